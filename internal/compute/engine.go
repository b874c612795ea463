// Package compute implements the dependency-driven code-cell recompute
// loop (§4.5): given a set of cells whose value changed, it walks the
// dependency graph derived from each code cell's CellsAccessed, runs every
// affected code cell's source through the registered Runner for its
// language, writes the result (materializing array outputs as a spill),
// and detects circular references via a per-drain seen set.
package compute

import (
	"time"

	"gridcore/pkg/apperrors"
	"gridcore/pkg/grid"
	"gridcore/pkg/logger"
	"gridcore/pkg/value"
)

// Runner executes one code cell's source and returns its result. The
// Formula language is evaluated in-process (internal/formula); Python and
// Javascript are async in the original system (§5) and are modeled here as
// pluggable Runners so the dependency/spill machinery stays independent of
// any particular external execution environment — standing up a real
// Python/JS sandbox is outside this engine's scope.
type Runner interface {
	Run(sheetID grid.SheetID, pos value.Pos, source string, g *grid.Grid) (RunOutcome, error)
}

// RunOutcome is a Runner's result: either a completed value/error, or a
// Pending marker for an async runtime that will report back later via
// Complete.
type RunOutcome struct {
	Pending       bool
	Result        value.CodeRunResult
	StdOut        string
	StdErr        string
	FormattedCode string
	CellsAccessed []value.SheetRect
}

// Engine owns the registered runners and the code-cell dependency graph
// for one Grid.
type Engine struct {
	g       *grid.Grid
	runners map[value.Language]Runner
}

func New(g *grid.Grid) *Engine {
	return &Engine{g: g, runners: make(map[value.Language]Runner)}
}

func (e *Engine) RegisterRunner(lang value.Language, r Runner) {
	e.runners[lang] = r
}

// DrainState is one transaction's compute-loop progress: the seen set that
// catches cycles and the FIFO queue of positions still to run. It survives
// an async suspension so Resume can pick up where Drain left off.
type DrainState struct {
	Seen  map[value.SheetPos]bool
	Queue []value.SheetPos
}

func NewDrainState(pending []value.SheetPos) *DrainState {
	return &DrainState{Seen: make(map[value.SheetPos]bool), Queue: append([]value.SheetPos(nil), pending...)}
}

// Drain runs queued positions to completion, following newly-discovered
// dependents, until either the queue empties (suspendedAt == nil) or a
// Runner reports Pending (suspendedAt names the cell awaiting an async
// result — call Resume once it arrives, then Drain again to continue).
func (e *Engine) Drain(state *DrainState) (suspendedAt *value.SheetPos, err error) {
	for len(state.Queue) > 0 {
		pos := state.Queue[0]
		state.Queue = state.Queue[1:]

		if state.Seen[pos] {
			e.markCircular(pos)
			continue
		}
		state.Seen[pos] = true

		dependents, pendingAsync, err := e.runOne(pos)
		if err != nil {
			return nil, err
		}
		if pendingAsync {
			return &pos, nil
		}
		for _, d := range dependents {
			queued := false
			for _, q := range state.Queue {
				if q == d {
					queued = true
					break
				}
			}
			if !queued {
				state.Queue = append(state.Queue, d)
			}
		}
	}
	return nil, nil
}

// Resume feeds an async Runner's (previously Pending) outcome back into
// state, materializing its result and queuing any newly-discovered
// dependents for the next Drain call.
func (e *Engine) Resume(state *DrainState, pos value.SheetPos, outcome RunOutcome) error {
	sheet, ok := e.g.SheetByID(grid.SheetID(pos.SheetID))
	if !ok {
		return nil
	}
	cc, ref, ok := sheet.GetCodeCell(pos.Pos)
	if !ok || cc == nil {
		return nil
	}
	dependents := e.writeRunResult(sheet, ref, pos.Pos, cc, outcome)
	for _, d := range dependents {
		if !state.Seen[d] {
			state.Queue = append(state.Queue, d)
		}
	}
	return nil
}

// runOne runs the code cell anchored at pos, writes its materialized
// result into the grid, and returns the positions of code cells that read
// any cell this run touched.
func (e *Engine) runOne(pos value.SheetPos) (dependents []value.SheetPos, pendingAsync bool, err error) {
	sheet, ok := e.g.SheetByID(grid.SheetID(pos.SheetID))
	if !ok {
		return nil, false, nil
	}
	cc, ref, ok := sheet.GetCodeCell(pos.Pos)
	if !ok || cc == nil {
		return nil, false, nil
	}

	runner, ok := e.runners[cc.Language]
	if !ok {
		e.writeRunResult(sheet, ref, pos.Pos, cc, RunOutcome{
			Result: value.CodeRunResult{
				Err: &value.CellError{Msg: "#RUNTIME: no runner registered for " + string(cc.Language)},
			},
		})
		return nil, false, nil
	}

	outcome, err := runner.Run(grid.SheetID(pos.SheetID), pos.Pos, cc.Source, e.g)
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "running code cell")
	}
	if outcome.Pending {
		logger.ComputeDebug("code cell " + pos.Pos.String() + " suspended pending async result")
		return nil, true, nil
	}

	dependents = e.writeRunResult(sheet, ref, pos.Pos, cc, outcome)
	return dependents, false, nil
}

// writeRunResult materializes a code run's output into the grid (single
// value or spilled array), updates the code cell's CodeRun record, and
// returns the positions of code cells reading any touched cell.
func (e *Engine) writeRunResult(sheet *grid.Sheet, anchorRef grid.CellRef, anchor value.Pos, cc *value.CodeCellValue, outcome RunOutcome) []value.SheetPos {
	res := outcome.Result
	run := &value.CodeRun{
		Result:        res,
		StdOut:        outcome.StdOut,
		StdErr:        outcome.StdErr,
		FormattedCode: outcome.FormattedCode,
		CellsAccessed: outcome.CellsAccessed,
		LastModified:  time.Now(),
	}

	clearSpillsOwnedBy(sheet, anchorRef)

	var touched []value.Pos
	if res.Err != nil {
		sheet.SetCellValue(anchor, value.Error(res.Err.Msg))
		touched = append(touched, anchor)
	} else if res.OK != nil {
		w, h := res.OK.OutputSize()
		if w == 1 && h == 1 {
			sheet.SetCellValue(anchor, res.OK.AsSingle())
			touched = append(touched, anchor)
		} else if conflict, ok := spillConflict(sheet, anchor, w, h); ok {
			run.SpillError = true
			sheet.SetCellValue(anchor, value.Blank())
			logger.ComputeWarn(anchor.String() + " spill blocked by " + conflict.String())
			touched = append(touched, anchor)
		} else {
			for dy := int64(0); dy < h; dy++ {
				for dx := int64(0); dx < w; dx++ {
					p := value.Pos{X: anchor.X + dx, Y: anchor.Y + dy}
					v := res.OK.Array.At(int(dx), int(dy))
					sheet.SetCellValue(p, v)
					if dx != 0 || dy != 0 {
						col := sheet.GetOrCreateColumn(p.X)
						col.Spills[p.Y] = anchorRef
					}
					touched = append(touched, p)
				}
			}
		}
	}

	cc.Output = run
	sheet.RecalculateBounds()

	var dependents []value.SheetPos
	for _, p := range touched {
		dependents = append(dependents, dependentsExcluding(sheet, p, anchor)...)
	}
	return dependents
}

// spillConflict reports the first occupied cell (other than the anchor
// itself) within the w×h output extent, if any (§4.5).
func spillConflict(sheet *grid.Sheet, anchor value.Pos, w, h int64) (value.Pos, bool) {
	for dy := int64(0); dy < h; dy++ {
		for dx := int64(0); dx < w; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			p := value.Pos{X: anchor.X + dx, Y: anchor.Y + dy}
			if v, ok := sheet.GetCellValue(p); ok && !v.IsBlank() {
				return p, true
			}
			if _, _, ok := sheet.GetCodeCell(p); ok {
				return p, true
			}
		}
	}
	return value.Pos{}, false
}

// clearSpillsOwnedBy removes spill ownership entries anchored at ref
// across every column, so a recompute doesn't leave stale spill cells
// behind when the output shrinks.
func clearSpillsOwnedBy(sheet *grid.Sheet, ref grid.CellRef) {
	for _, x := range sheet.SortedColumnXs() {
		col := sheet.Column(x)
		if col == nil {
			continue
		}
		for y, owner := range col.Spills {
			if owner == ref {
				delete(col.Spills, y)
				sheet.SetCellValue(value.Pos{X: x, Y: y}, value.Blank())
			}
		}
	}
}

// dependentsExcluding returns code cells whose CellsAccessed covers p,
// skipping the code cell anchored at self (a formula doesn't depend on
// its own output).
func dependentsExcluding(sheet *grid.Sheet, p, self value.Pos) []value.SheetPos {
	var out []value.SheetPos
	for ref, cc := range sheet.CodeCells {
		if cc == nil || cc.Output == nil {
			continue
		}
		anchorPos, ok := sheet.CellRefToPos(ref)
		if !ok || anchorPos == self {
			continue
		}
		for _, accessed := range cc.Output.CellsAccessed {
			if accessed.SheetID == string(sheet.ID) && accessed.Rect.Contains(p) {
				out = append(out, value.SheetPos{SheetID: string(sheet.ID), Pos: anchorPos})
				break
			}
		}
	}
	return out
}

// RecheckSpills reruns the §4.5 spill check for every code-cell anchor
// whose output extent intersects rect, the hook a plain value write (or a
// code-cell install/delete) uses to catch a write landing inside another
// cell's spilled output — the anchor's own CellsAccessed never covers that
// cell, since the write is to the anchor's output, not one of its inputs.
// Reruns writeRunResult against the anchor's cached outcome rather than the
// Runner, so a still-valid result is simply re-laid-out against the new
// grid state. Returns the anchor and any of its own dependents that need
// to be queued for recompute.
func (e *Engine) RecheckSpills(sheet *grid.Sheet, rect value.Rect) []value.SheetPos {
	var affected []value.SheetPos
	for ref, cc := range sheet.CodeCells {
		if cc == nil || cc.Output == nil {
			continue
		}
		w, h := cc.Output.OutputSize()
		if w == 1 && h == 1 {
			continue
		}
		anchor, ok := sheet.CellRefToPos(ref)
		if !ok {
			continue
		}
		if !value.RectFromAnchorSize(anchor, w, h).Intersects(rect) {
			continue
		}

		outcome := RunOutcome{
			Result:        cc.Output.Result,
			StdOut:        cc.Output.StdOut,
			StdErr:        cc.Output.StdErr,
			FormattedCode: cc.Output.FormattedCode,
			CellsAccessed: cc.Output.CellsAccessed,
		}
		dependents := e.writeRunResult(sheet, ref, anchor, cc, outcome)
		affected = append(affected, value.SheetPos{SheetID: string(sheet.ID), Pos: anchor})
		affected = append(affected, dependents...)
	}
	return affected
}

func (e *Engine) markCircular(pos value.SheetPos) {
	sheet, ok := e.g.SheetByID(grid.SheetID(pos.SheetID))
	if !ok {
		return
	}
	cc, _, ok := sheet.GetCodeCell(pos.Pos)
	if !ok || cc == nil {
		return
	}
	cc.Output = &value.CodeRun{
		Result:       value.CodeRunResult{Err: &value.CellError{Msg: "#CIRCULAR: reference cycle detected"}},
		LastModified: time.Now(),
	}
	sheet.SetCellValue(pos.Pos, value.Error("#CIRCULAR: reference cycle detected"))
	logger.ComputeWarn("circular reference detected at " + pos.Pos.String())
}
