// Package operation defines the Operation algebra (§3, §4.2): the tagged
// union of every legal grid mutation, plus the Transaction and
// TransactionSummary shapes that carry operations through the system.
//
// Operation is modeled as one flat struct tagged by Kind rather than as a
// Go interface hierarchy, per §9 ("the operation variant is a tagged sum,
// not a type hierarchy; dispatch on the tag in the executor"). Only the
// fields relevant to Kind are populated; the struct doubles as its own
// externally-tagged JSON wire format (§6) since Kind serializes as the
// discriminator field alongside the variant's own fields.
package operation

import (
	"gridcore/pkg/grid"
	"gridcore/pkg/value"
)

type Kind string

const (
	KindSetCellValues  Kind = "SetCellValues"
	KindSetCodeCell    Kind = "SetCodeCell"
	KindDeleteCodeCell Kind = "DeleteCodeCell"
	KindComputeCode    Kind = "ComputeCode"
	KindSetCellFormats Kind = "SetCellFormats"
	KindSetBorders     Kind = "SetBorders"
	KindAddSheet       Kind = "AddSheet"
	KindDeleteSheet    Kind = "DeleteSheet"
	KindReorderSheet   Kind = "ReorderSheet"
	KindSetSheetName   Kind = "SetSheetName"
	KindSetSheetColor  Kind = "SetSheetColor"
	KindResizeColumn   Kind = "ResizeColumn"
	KindResizeRow      Kind = "ResizeRow"
)

// Operation is one entry in a Transaction's operation list.
type Operation struct {
	Type Kind `json:"type"`

	// SetCellValues
	SheetRect *value.SheetRect `json:"sheet_rect,omitempty"`
	Values    *value.Array     `json:"values,omitempty"`

	// SetCodeCell / DeleteCodeCell / ComputeCode anchor point
	SheetPos *value.SheetPos `json:"sheet_pos,omitempty"`

	// SetCodeCell
	CodeCellValue *value.CodeCellValue `json:"code_cell_value,omitempty"`

	// SetCellFormats
	CellFmt *grid.CellFmtArray `json:"cell_fmt,omitempty"`

	// SetBorders
	CellBorders *grid.CellBorders `json:"cell_borders,omitempty"`

	// AddSheet / DeleteSheet
	Sheet   *grid.Sheet  `json:"sheet,omitempty"`
	SheetID grid.SheetID `json:"sheet_id,omitempty"`

	// ReorderSheet
	Order grid.OrderKey `json:"order,omitempty"`

	// SetSheetName / SetSheetColor
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`

	// ResizeColumn / ResizeRow
	Index int64   `json:"index,omitempty"`
	Size  float64 `json:"size,omitempty"`
}

func SetCellValues(rect value.SheetRect, values *value.Array) Operation {
	return Operation{Type: KindSetCellValues, SheetRect: &rect, Values: values}
}

func SetCodeCell(pos value.SheetPos, cc *value.CodeCellValue) Operation {
	return Operation{Type: KindSetCodeCell, SheetPos: &pos, CodeCellValue: cc}
}

func DeleteCodeCell(pos value.SheetPos) Operation {
	return Operation{Type: KindDeleteCodeCell, SheetPos: &pos}
}

func ComputeCode(pos value.SheetPos) Operation {
	return Operation{Type: KindComputeCode, SheetPos: &pos}
}

func SetCellFormats(rect value.SheetRect, fmt grid.CellFmtArray) Operation {
	return Operation{Type: KindSetCellFormats, SheetRect: &rect, CellFmt: &fmt}
}

func SetBorders(rect value.SheetRect, borders grid.CellBorders) Operation {
	return Operation{Type: KindSetBorders, SheetRect: &rect, CellBorders: &borders}
}

func AddSheet(s *grid.Sheet) Operation {
	return Operation{Type: KindAddSheet, Sheet: s}
}

func DeleteSheet(id grid.SheetID) Operation {
	return Operation{Type: KindDeleteSheet, SheetID: id}
}

func ReorderSheet(id grid.SheetID, order grid.OrderKey) Operation {
	return Operation{Type: KindReorderSheet, SheetID: id, Order: order}
}

func SetSheetName(id grid.SheetID, name string) Operation {
	return Operation{Type: KindSetSheetName, SheetID: id, Name: name}
}

func SetSheetColor(id grid.SheetID, color string) Operation {
	return Operation{Type: KindSetSheetColor, SheetID: id, Color: color}
}

func ResizeColumn(sheetID grid.SheetID, x int64, width float64) Operation {
	return Operation{Type: KindResizeColumn, SheetID: sheetID, Index: x, Size: width}
}

func ResizeRow(sheetID grid.SheetID, y int64, height float64) Operation {
	return Operation{Type: KindResizeRow, SheetID: sheetID, Index: y, Size: height}
}

// Transaction is a uuid-identified batch of operations (§3). Unsaved
// transactions carry both Forward and Reverse until server acknowledgement.
type Transaction struct {
	ID            string      `json:"id"`
	SequenceNum   *uint64     `json:"sequence_num,omitempty"`
	Operations    []Operation `json:"operations"`
	Cursor        string      `json:"cursor,omitempty"`
}

// UnsavedEntry pairs a transaction's forward and reverse operation lists
// while it awaits server acknowledgement (§4.3 "Unsaved queue").
type UnsavedEntry struct {
	ID      string
	Forward []Operation
	Reverse []Operation
}

// Summary is the per-transaction externally-visible change record (§3
// TransactionSummary). It is emitted, never stored.
type Summary struct {
	DirtySheets         map[grid.SheetID]bool
	CellRegions         []value.SheetRect
	CodeCellsModified   map[grid.SheetID]bool
	FillSheetsDirty     map[grid.SheetID]bool
	BorderSheetsDirty   map[grid.SheetID]bool
	OffsetsDirty        map[grid.SheetID]bool
	SheetListDirty      bool
	GenerateThumbnail   bool
	Operations          []Operation // shared with peers
	Save                bool
	TransactionID       string
}

func NewSummary() *Summary {
	return &Summary{
		DirtySheets:       make(map[grid.SheetID]bool),
		CodeCellsModified: make(map[grid.SheetID]bool),
		FillSheetsDirty:   make(map[grid.SheetID]bool),
		BorderSheetsDirty: make(map[grid.SheetID]bool),
		OffsetsDirty:      make(map[grid.SheetID]bool),
	}
}

// Merge unions delta into s. Summary deltas are monotonic unions (§4.2).
func (s *Summary) Merge(delta *Summary) {
	if delta == nil {
		return
	}
	for k := range delta.DirtySheets {
		s.DirtySheets[k] = true
	}
	for k := range delta.CodeCellsModified {
		s.CodeCellsModified[k] = true
	}
	for k := range delta.FillSheetsDirty {
		s.FillSheetsDirty[k] = true
	}
	for k := range delta.BorderSheetsDirty {
		s.BorderSheetsDirty[k] = true
	}
	for k := range delta.OffsetsDirty {
		s.OffsetsDirty[k] = true
	}
	s.CellRegions = append(s.CellRegions, delta.CellRegions...)
	s.SheetListDirty = s.SheetListDirty || delta.SheetListDirty
	s.GenerateThumbnail = s.GenerateThumbnail || delta.GenerateThumbnail
	s.Save = s.Save || delta.Save
}
