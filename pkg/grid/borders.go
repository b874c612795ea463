package grid

import "gridcore/pkg/value"

// BorderStyle describes one edge's line style.
type BorderStyle struct {
	Color string
	Width int
}

// CellBorders holds the four edges that may be set on one cell.
type CellBorders struct {
	Top, Bottom, Left, Right *BorderStyle
}

func (b CellBorders) IsEmpty() bool {
	return b.Top == nil && b.Bottom == nil && b.Left == nil && b.Right == nil
}

// Borders is the sheet-wide per-edge style map (§3), keyed by position.
type Borders struct {
	cells map[value.Pos]CellBorders
}

func NewBorders() *Borders {
	return &Borders{cells: make(map[value.Pos]CellBorders)}
}

func (b *Borders) At(p value.Pos) CellBorders {
	return b.cells[p]
}

// SetRegion overwrites every position in rect with borders, returning the
// prior per-cell borders for the same rect (for the reverse operation).
func (b *Borders) SetRegion(rect value.Rect, borders CellBorders) map[value.Pos]CellBorders {
	prior := make(map[value.Pos]CellBorders)
	for y := rect.Min.Y; y <= rect.Max.Y; y++ {
		for x := rect.Min.X; x <= rect.Max.X; x++ {
			p := value.Pos{X: x, Y: y}
			prior[p] = b.cells[p]
			if borders.IsEmpty() {
				delete(b.cells, p)
			} else {
				b.cells[p] = borders
			}
		}
	}
	return prior
}

// RestoreRegion restores an exact prior per-cell borders snapshot (used to
// apply the reverse operation captured by SetRegion).
func (b *Borders) RestoreRegion(prior map[value.Pos]CellBorders) {
	for p, cb := range prior {
		if cb.IsEmpty() {
			delete(b.cells, p)
		} else {
			b.cells[p] = cb
		}
	}
}

func (b *Borders) Clone() *Borders {
	clone := NewBorders()
	for k, v := range b.cells {
		clone.cells[k] = v
	}
	return clone
}
