package grid

import (
	"encoding/json"
	"strconv"

	"gridcore/pkg/value"
)

// sheetDTO is the JSON wire/file shape of a Sheet (§6 File format), since
// Sheet's column and row-id maps are unexported and its code-cell and border
// maps are keyed by struct types JSON cannot use as object keys (CellRef,
// value.Pos).
type sheetDTO struct {
	ID        SheetID                       `json:"id"`
	Name      string                        `json:"name"`
	Color     string                        `json:"color"`
	Order     OrderKey                      `json:"order"`
	Columns   []*Column                     `json:"columns"`
	RowIDs    map[string]RowID              `json:"row_ids"`
	CodeCells []codeCellEntry               `json:"code_cells"`
	Offsets   *Offsets                      `json:"offsets"`
	Borders   []borderEntry                 `json:"borders"`
}

type codeCellEntry struct {
	Ref   CellRef              `json:"ref"`
	Value *value.CodeCellValue `json:"value"`
}

type borderEntry struct {
	Pos     value.Pos   `json:"pos"`
	Borders CellBorders `json:"borders"`
}

func (s *Sheet) MarshalJSON() ([]byte, error) {
	dto := sheetDTO{
		ID: s.ID, Name: s.Name, Color: s.Color, Order: s.Order,
		RowIDs:  make(map[string]RowID, len(s.rowIDs)),
		Offsets: s.Offsets,
	}
	for _, col := range s.columns {
		dto.Columns = append(dto.Columns, col)
	}
	for y, id := range s.rowIDs {
		dto.RowIDs[strconv.FormatInt(y, 10)] = id
	}
	for ref, cc := range s.CodeCells {
		dto.CodeCells = append(dto.CodeCells, codeCellEntry{Ref: ref, Value: cc})
	}
	for p, cb := range s.Borders.cells {
		dto.Borders = append(dto.Borders, borderEntry{Pos: p, Borders: cb})
	}
	return json.Marshal(dto)
}

func (s *Sheet) UnmarshalJSON(data []byte) error {
	var dto sheetDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	s.ID = dto.ID
	s.Name = dto.Name
	s.Color = dto.Color
	s.Order = dto.Order
	s.columns = make(map[int64]*Column, len(dto.Columns))
	for _, col := range dto.Columns {
		s.columns[col.X] = col
	}
	s.rowIDs = make(map[int64]RowID, len(dto.RowIDs))
	for k, v := range dto.RowIDs {
		y, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return err
		}
		s.rowIDs[y] = v
	}
	s.CodeCells = make(map[CellRef]*value.CodeCellValue, len(dto.CodeCells))
	for _, entry := range dto.CodeCells {
		s.CodeCells[entry.Ref] = entry.Value
	}
	if dto.Offsets != nil {
		s.Offsets = dto.Offsets
	} else {
		s.Offsets = NewOffsets()
	}
	s.Borders = NewBorders()
	for _, entry := range dto.Borders {
		s.Borders.cells[entry.Pos] = entry.Borders
	}
	s.RecalculateBounds()
	return nil
}

// MarshalJSON/UnmarshalJSON for Grid round-trip the ordered sheet list
// (§6 File format envelope).
type gridDTO struct {
	Version int      `json:"version"`
	Sheets  []*Sheet `json:"sheets"`
}

const fileFormatVersion = 1

func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(gridDTO{Version: fileFormatVersion, Sheets: g.SheetsOrdered()})
}

func (g *Grid) UnmarshalJSON(data []byte) error {
	var dto gridDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	g.sheets = make(map[SheetID]*Sheet, len(dto.Sheets))
	for _, s := range dto.Sheets {
		g.sheets[s.ID] = s
	}
	return nil
}
