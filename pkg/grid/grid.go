// Package grid implements the sheet store and grid (§4.1, §3): the sparse
// per-sheet column/row map, RLE formatting runs, and the ordered collection
// of sheets with stable ids and fractional order keys.
package grid

import (
	"sort"

	"gridcore/pkg/apperrors"
)

// Grid is the ordered collection of sheets that make up one document (§3).
// It is exclusively mutated by the executor (§5): readers should treat a
// Grid as owned by whichever transaction controller holds it.
type Grid struct {
	sheets map[SheetID]*Sheet
}

func NewGrid() *Grid {
	g := &Grid{sheets: make(map[SheetID]*Sheet)}
	first := NewSheet("Sheet1", FirstOrderKey())
	g.sheets[first.ID] = first
	return g
}

// NewEmptyGrid builds a Grid with no sheets at all, used by import adapters
// that add their own sheets explicitly.
func NewEmptyGrid() *Grid {
	return &Grid{sheets: make(map[SheetID]*Sheet)}
}

func (g *Grid) SheetByID(id SheetID) (*Sheet, bool) {
	s, ok := g.sheets[id]
	return s, ok
}

func (g *Grid) FindSheetByName(name string) (*Sheet, bool) {
	for _, s := range g.sheets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// AddSheet inserts sheet, rejecting a duplicate name as a programmer error
// (§4.2: "collision is a programmer error — the user-action layer must
// pre-rename").
func (g *Grid) AddSheet(s *Sheet) error {
	if _, exists := g.FindSheetByName(s.Name); exists {
		return apperrors.DuplicateSheetName(s.Name)
	}
	g.sheets[s.ID] = s
	return nil
}

// DeleteSheet removes and returns the sheet verbatim (including its order
// key) so the caller can capture it for the reverse AddSheet (§3 lifecycle,
// §4.2 DeleteSheet).
func (g *Grid) DeleteSheet(id SheetID) (*Sheet, bool) {
	s, ok := g.sheets[id]
	if !ok {
		return nil, false
	}
	delete(g.sheets, id)
	return s, true
}

// SheetsOrdered returns all sheets sorted by OrderKey.
func (g *Grid) SheetsOrdered() []*Sheet {
	out := make([]*Sheet, 0, len(g.sheets))
	for _, s := range g.sheets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (g *Grid) SheetIDs() []SheetID {
	ordered := g.SheetsOrdered()
	ids := make([]SheetID, len(ordered))
	for i, s := range ordered {
		ids[i] = s.ID
	}
	return ids
}

// ReorderSheet assigns a new order key to the sheet identified by target,
// returning the prior key for the reverse operation. A missing target is a
// no-op (§4.2 edge case).
func (g *Grid) ReorderSheet(target SheetID, newOrder OrderKey) (OrderKey, bool) {
	s, ok := g.sheets[target]
	if !ok {
		return 0, false
	}
	prior := s.Order
	s.Order = newOrder
	return prior, true
}

// OrderKeyForPosition computes a fractional order key placing a sheet at
// index `before` (0 = first) among the currently ordered sheets, using the
// midpoint-of-neighbors rule (§4.2 "Fractional keys").
func (g *Grid) OrderKeyForPosition(before int) OrderKey {
	ordered := g.SheetsOrdered()
	if len(ordered) == 0 {
		return FirstOrderKey()
	}
	if before <= 0 {
		return OrderKeyBefore(ordered[0].Order)
	}
	if before >= len(ordered) {
		return OrderKeyAfter(ordered[len(ordered)-1].Order)
	}
	return OrderKeyBetween(ordered[before-1].Order, ordered[before].Order)
}
