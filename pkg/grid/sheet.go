package grid

import (
	"sort"

	"gridcore/pkg/value"
)

// Sheet is one spreadsheet tab (§3): a sparse column store, per-sheet
// borders and offsets, the code-cell table, and a cached bounds rect.
type Sheet struct {
	ID    SheetID
	Name  string
	Color string
	Order OrderKey

	columns map[int64]*Column
	rowIDs  map[int64]RowID

	CodeCells map[CellRef]*value.CodeCellValue

	Offsets *Offsets
	Borders *Borders

	bounds    value.Rect
	hasBounds bool
}

func NewSheet(name string, order OrderKey) *Sheet {
	return &Sheet{
		ID:        NewSheetID(),
		Name:      name,
		Color:     "#ffffff",
		Order:     order,
		columns:   make(map[int64]*Column),
		rowIDs:    make(map[int64]RowID),
		CodeCells: make(map[CellRef]*value.CodeCellValue),
		Offsets:   NewOffsets(),
		Borders:   NewBorders(),
	}
}

// GetOrCreateColumn returns the column at x, creating it if absent.
func (s *Sheet) GetOrCreateColumn(x int64) *Column {
	c, ok := s.columns[x]
	if !ok {
		c = NewColumn(x)
		s.columns[x] = c
	}
	return c
}

// Column returns the column at x, or nil if it doesn't exist — distinct
// from GetOrCreateColumn, used by reads that must not allocate.
func (s *Sheet) Column(x int64) *Column {
	return s.columns[x]
}

// GetOrCreateRowID returns the stable RowID for y, allocating one on first
// access across any column.
func (s *Sheet) GetOrCreateRowID(y int64) RowID {
	if id, ok := s.rowIDs[y]; ok {
		return id
	}
	id := NewRowID()
	s.rowIDs[y] = id
	return id
}

func (s *Sheet) GetCellValue(p value.Pos) (value.CellValue, bool) {
	c := s.columns[p.X]
	if c == nil {
		return value.Blank(), false
	}
	return c.GetValue(p.Y)
}

// SetCellValue writes v at p, allocating the column/row ids as needed, and
// returns the prior value.
func (s *Sheet) SetCellValue(p value.Pos, v value.CellValue) value.CellValue {
	col := s.GetOrCreateColumn(p.X)
	col.RowIDFor(p.Y)
	s.GetOrCreateRowID(p.Y)
	prior := col.SetValue(p.Y, v)
	if col.IsEmpty() {
		anchored := false
		for ref := range s.CodeCells {
			if ref.Column == col.ID {
				anchored = true
				break
			}
		}
		if !anchored {
			delete(s.columns, p.X)
		}
	}
	return prior
}

func (s *Sheet) GetCodeCell(p value.Pos) (*value.CodeCellValue, CellRef, bool) {
	ref := s.PosToCellRef(p)
	cc, ok := s.CodeCells[ref]
	return cc, ref, ok
}

// SetCodeCell sets or clears (cc == nil) the code cell anchored at p,
// returning the prior value (nil if unset). Does not run the code (§4.2).
func (s *Sheet) SetCodeCell(p value.Pos, cc *value.CodeCellValue) *value.CodeCellValue {
	ref := s.PosToCellRef(p)
	prior := s.CodeCells[ref]
	if cc == nil {
		delete(s.CodeCells, ref)
	} else {
		s.CodeCells[ref] = cc
	}
	return prior
}

// CellRefToPos resolves a stable CellRef back to its current (x,y), or
// false if the column/row no longer exists (§3: "a CellRef may outlive the
// column/row it refers to").
func (s *Sheet) CellRefToPos(ref CellRef) (value.Pos, bool) {
	var x, y int64
	foundX, foundY := false, false
	for cx, col := range s.columns {
		if col.ID == ref.Column {
			x, foundX = cx, true
			break
		}
	}
	for ry, id := range s.rowIDs {
		if id == ref.Row {
			y, foundY = ry, true
			break
		}
	}
	if !foundX || !foundY {
		return value.Pos{}, false
	}
	return value.Pos{X: x, Y: y}, true
}

// PosToCellRef returns the stable CellRef for p, allocating column/row ids
// as needed so the same logical cell always resolves to the same ref.
func (s *Sheet) PosToCellRef(p value.Pos) CellRef {
	col := s.GetOrCreateColumn(p.X)
	colID := col.ID
	rowID := s.GetOrCreateRowID(p.Y)
	col.RowIDFor(p.Y)
	return CellRef{Sheet: s.ID, Column: colID, Row: rowID}
}

// SetRegionBorders applies borders across rect, returning the prior
// per-cell borders for the reverse operation.
func (s *Sheet) SetRegionBorders(rect value.Rect, borders CellBorders) map[value.Pos]CellBorders {
	return s.Borders.SetRegion(rect, borders)
}

// RecalculateBounds scans all non-empty columns/rows and refreshes the
// cached bounds rect (§3 invariant (d)).
func (s *Sheet) RecalculateBounds() {
	first := true
	var bounds value.Rect
	for x, col := range s.columns {
		for y := range col.Values {
			p := value.Pos{X: x, Y: y}
			if first {
				bounds = value.Rect{Min: p, Max: p}
				first = false
			} else {
				bounds = bounds.Union(value.Rect{Min: p, Max: p})
			}
		}
	}
	s.bounds = bounds
	s.hasBounds = !first
}

func (s *Sheet) Bounds() (value.Rect, bool) {
	return s.bounds, s.hasBounds
}

// SortedColumnXs returns the populated column x coordinates in ascending order.
func (s *Sheet) SortedColumnXs() []int64 {
	xs := make([]int64, 0, len(s.columns))
	for x := range s.columns {
		xs = append(xs, x)
	}
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	return xs
}

// Clone makes a deep-enough copy of the sheet for DeleteSheet to capture
// verbatim so its reverse AddSheet can restore it exactly (§3 lifecycle).
func (s *Sheet) Clone() *Sheet {
	clone := &Sheet{
		ID:        s.ID,
		Name:      s.Name,
		Color:     s.Color,
		Order:     s.Order,
		columns:   make(map[int64]*Column, len(s.columns)),
		rowIDs:    make(map[int64]RowID, len(s.rowIDs)),
		CodeCells: make(map[CellRef]*value.CodeCellValue, len(s.CodeCells)),
		Offsets:   s.Offsets.Clone(),
		Borders:   s.Borders.Clone(),
		bounds:    s.bounds,
		hasBounds: s.hasBounds,
	}
	for x, c := range s.columns {
		clone.columns[x] = c.Clone()
	}
	for y, id := range s.rowIDs {
		clone.rowIDs[y] = id
	}
	for ref, cc := range s.CodeCells {
		ccCopy := *cc
		clone.CodeCells[ref] = &ccCopy
	}
	return clone
}
