package grid

import "gridcore/pkg/value"

// Column holds the sparse per-y state of one x coordinate (§3): cell
// values, the RLE formatting runs, and the spill-ownership map.
type Column struct {
	ID      ColumnID
	X       int64
	Values  map[int64]value.CellValue
	RowIDs  map[int64]RowID
	Spills  map[int64]CellRef // y -> anchor CellRef owning the spilled cell
	Formats ColumnFormats
}

func NewColumn(x int64) *Column {
	return &Column{
		ID:     NewColumnID(),
		X:      x,
		Values: make(map[int64]value.CellValue),
		RowIDs: make(map[int64]RowID),
		Spills: make(map[int64]CellRef),
	}
}

// GetValue returns the value at y and whether one is set.
func (c *Column) GetValue(y int64) (value.CellValue, bool) {
	v, ok := c.Values[y]
	return v, ok
}

// SetValue sets or clears (v.IsBlank()) the value at y, returning the prior
// value (Blank if unset).
func (c *Column) SetValue(y int64, v value.CellValue) value.CellValue {
	prior, ok := c.Values[y]
	if !ok {
		prior = value.Blank()
	}
	if v.IsBlank() {
		delete(c.Values, y)
	} else {
		c.Values[y] = v
	}
	return prior
}

// RowIDFor returns the stable RowID for y, allocating one on first access.
func (c *Column) RowIDFor(y int64) RowID {
	if id, ok := c.RowIDs[y]; ok {
		return id
	}
	id := NewRowID()
	c.RowIDs[y] = id
	return id
}

// IsEmpty reports whether the column has no values, formats, or spills —
// used to decide whether it can be pruned from the sheet.
func (c *Column) IsEmpty() bool {
	return len(c.Values) == 0 && len(c.Spills) == 0 &&
		len(c.Formats.Bold) == 0 && len(c.Formats.Italic) == 0 &&
		len(c.Formats.Align) == 0 && len(c.Formats.Wrap) == 0 &&
		len(c.Formats.TextColor) == 0 && len(c.Formats.FillColor) == 0 &&
		len(c.Formats.NumericFormat) == 0 && len(c.Formats.NumericDecimals) == 0 &&
		len(c.Formats.NumericCommas) == 0 && len(c.Formats.RenderSize) == 0
}

func (c *Column) Clone() *Column {
	clone := &Column{
		ID:     c.ID,
		X:      c.X,
		Values: make(map[int64]value.CellValue, len(c.Values)),
		RowIDs: make(map[int64]RowID, len(c.RowIDs)),
		Spills: make(map[int64]CellRef, len(c.Spills)),
	}
	for k, v := range c.Values {
		clone.Values[k] = v
	}
	for k, v := range c.RowIDs {
		clone.RowIDs[k] = v
	}
	for k, v := range c.Spills {
		clone.Spills[k] = v
	}
	clone.Formats = c.Formats // RunList slices are copy-on-write via Apply's replace
	return clone
}
