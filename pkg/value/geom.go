package value

import "strconv"

// Pos is a signed 2D integer cell coordinate.
type Pos struct {
	X, Y int64
}

func (p Pos) String() string {
	return strconv.FormatInt(p.X, 10) + "," + strconv.FormatInt(p.Y, 10)
}

// Rect is an axis-aligned inclusive min/max rectangle.
type Rect struct {
	Min, Max Pos
}

// NewRect builds a Rect, normalizing so Min <= Max on both axes.
func NewRect(a, b Pos) Rect {
	r := Rect{
		Min: Pos{X: minI(a.X, b.X), Y: minI(a.Y, b.Y)},
		Max: Pos{X: maxI(a.X, b.X), Y: maxI(a.Y, b.Y)},
	}
	return r
}

func minI(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxI(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func (r Rect) Width() int64  { return r.Max.X - r.Min.X + 1 }
func (r Rect) Height() int64 { return r.Max.Y - r.Min.Y + 1 }

func (r Rect) Contains(p Pos) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

func (r Rect) Intersects(o Rect) bool {
	return r.Min.X <= o.Max.X && r.Max.X >= o.Min.X && r.Min.Y <= o.Max.Y && r.Max.Y >= o.Min.Y
}

func (r Rect) Union(o Rect) Rect {
	return Rect{
		Min: Pos{X: minI(r.Min.X, o.Min.X), Y: minI(r.Min.Y, o.Min.Y)},
		Max: Pos{X: maxI(r.Max.X, o.Max.X), Y: maxI(r.Max.Y, o.Max.Y)},
	}
}

// RectFromAnchorSize builds the rectangle a code-cell output of size w×h
// occupies when anchored at a.
func RectFromAnchorSize(a Pos, w, h int64) Rect {
	return Rect{Min: a, Max: Pos{X: a.X + w - 1, Y: a.Y + h - 1}}
}

// SheetRect qualifies a Rect with the sheet it lives on.
type SheetRect struct {
	SheetID string
	Rect    Rect
}

func NewSheetRect(sheetID string, r Rect) SheetRect {
	return SheetRect{SheetID: sheetID, Rect: r}
}

// SheetPos qualifies a Pos with the sheet it lives on.
type SheetPos struct {
	SheetID string
	Pos     Pos
}
