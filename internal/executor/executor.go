// Package executor applies one Operation to a Grid at a time (§4.2). Apply
// is the sole mutation path into the grid: every other package that needs
// to change the grid does so by building an Operation and handing it here.
package executor

import (
	"fmt"

	"gridcore/pkg/apperrors"
	"gridcore/pkg/grid"
	"gridcore/pkg/logger"
	"gridcore/pkg/operation"
	"gridcore/pkg/validator"
	"gridcore/pkg/value"
)

// Result is everything Apply produces for one operation: the operation that
// undoes it, the summary delta it caused, and any cells whose code needs to
// (re)run as a consequence.
type Result struct {
	Reverse          operation.Operation
	Summary          *operation.Summary
	ComputeAdditions []value.SheetPos
}

// SpillRechecker reruns the §4.5 spill conflict check for every code-cell
// anchor whose output rect intersects rect, called after a plain write
// lands inside a cell the anchor's CellsAccessed never names (that set is
// the anchor's *inputs*; a spilled cell is its *output*). Implemented by
// *compute.Engine; declared here as a narrow interface so this package
// doesn't need to import internal/compute.
type SpillRechecker interface {
	RecheckSpills(sheet *grid.Sheet, rect value.Rect) []value.SheetPos
}

// Executor applies operations against a Grid (§5: "the executor ... is the
// only code path that mutates grid state").
type Executor struct {
	g  *grid.Grid
	ce SpillRechecker
}

// New builds an Executor over g. ce may be nil for tests that never touch
// code cells; a live session always wires its compute.Engine through so
// writes into another cell's spilled output get caught (§4.5).
func New(g *grid.Grid, ce SpillRechecker) *Executor {
	return &Executor{g: g, ce: ce}
}

// Apply executes op against the held grid and returns its reverse, summary
// delta, and any code cells that now need recomputing.
func (e *Executor) Apply(op operation.Operation) (Result, error) {
	logger.ExecutorDebug(fmt.Sprintf("applying %s", op.Type))
	if err := validator.ValidateOperation(op); err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "rejected at the operation boundary")
	}
	switch op.Type {
	case operation.KindSetCellValues:
		return e.applySetCellValues(op)
	case operation.KindSetCodeCell:
		return e.applySetCodeCell(op)
	case operation.KindDeleteCodeCell:
		return e.applyDeleteCodeCell(op)
	case operation.KindComputeCode:
		return e.applyComputeCode(op)
	case operation.KindSetCellFormats:
		return e.applySetCellFormats(op)
	case operation.KindSetBorders:
		return e.applySetBorders(op)
	case operation.KindAddSheet:
		return e.applyAddSheet(op)
	case operation.KindDeleteSheet:
		return e.applyDeleteSheet(op)
	case operation.KindReorderSheet:
		return e.applyReorderSheet(op)
	case operation.KindSetSheetName:
		return e.applySetSheetName(op)
	case operation.KindSetSheetColor:
		return e.applySetSheetColor(op)
	case operation.KindResizeColumn:
		return e.applyResizeColumn(op)
	case operation.KindResizeRow:
		return e.applyResizeRow(op)
	default:
		return Result{}, apperrors.UnknownVariant(string(op.Type))
	}
}

func (e *Executor) sheet(id grid.SheetID) (*grid.Sheet, bool) {
	return e.g.SheetByID(id)
}

// applySetCellValues writes a rectangular region of values, returning the
// prior values (or silently no-ops a missing sheet — §4.2 edge case).
func (e *Executor) applySetCellValues(op operation.Operation) (Result, error) {
	sheet, ok := e.sheet(grid.SheetID(op.SheetRect.SheetID))
	if !ok {
		return noopReverse(op), nil
	}
	rect := op.SheetRect.Rect
	w, h := int(rect.Width()), int(rect.Height())
	if op.Values == nil || int64(op.Values.W) != rect.Width() || int64(op.Values.H) != rect.Height() {
		return Result{}, apperrors.MalformedArray(
			fmt.Sprintf("SetCellValues array %dx%d does not match rect %dx%d", op.Values.W, op.Values.H, w, h))
	}

	prior, err := value.NewArray(w, h)
	if err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.ErrCodeMalformedArray, "allocating reverse array")
	}

	summary := operation.NewSummary()
	var additions []value.SheetPos
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			pos := value.Pos{X: rect.Min.X + int64(dx), Y: rect.Min.Y + int64(dy)}
			v := op.Values.At(dx, dy)
			wasSpill := false
			if col := sheet.Column(pos.X); col != nil {
				_, wasSpill = col.Spills[pos.Y]
			}
			priorVal := sheet.SetCellValue(pos, v)
			if wasSpill {
				// A spilled value belongs to its anchor's output: the reverse
				// leaves the cell blank so the spill recheck can re-lay it out.
				priorVal = value.Blank()
			}
			prior.Set(dx, dy, priorVal)
			severSpillOwnership(sheet, pos)
			additions = append(additions, dependentsOf(sheet, pos)...)
		}
	}
	sheet.RecalculateBounds()

	if e.ce != nil {
		additions = append(additions, e.ce.RecheckSpills(sheet, rect)...)
	}

	summary.DirtySheets[sheet.ID] = true
	summary.CellRegions = append(summary.CellRegions, *op.SheetRect)
	summary.Save = true

	reverse := operation.SetCellValues(*op.SheetRect, prior)
	return Result{Reverse: reverse, Summary: summary, ComputeAdditions: additions}, nil
}

// applySetCodeCell installs a code cell's source (but does not run it — the
// caller enqueues a ComputeCode for that, §4.2).
func (e *Executor) applySetCodeCell(op operation.Operation) (Result, error) {
	sheet, ok := e.sheet(grid.SheetID(op.SheetPos.SheetID))
	if !ok {
		return noopReverse(op), nil
	}
	pos := op.SheetPos.Pos
	prior := sheet.SetCodeCell(pos, op.CodeCellValue)
	severSpillOwnership(sheet, pos)

	summary := operation.NewSummary()
	summary.DirtySheets[sheet.ID] = true
	summary.CodeCellsModified[sheet.ID] = true
	summary.Save = true

	additions := []value.SheetPos{*op.SheetPos}
	if e.ce != nil {
		additions = append(additions, e.ce.RecheckSpills(sheet, value.Rect{Min: pos, Max: pos})...)
	}

	reverse := operation.SetCodeCell(*op.SheetPos, prior)
	return Result{
		Reverse:          reverse,
		Summary:          summary,
		ComputeAdditions: additions,
	}, nil
}

// applyDeleteCodeCell clears a code cell and resets any spill it owned,
// equivalent to SetCodeCell(nil) plus an explicit spill reset (§4.2).
func (e *Executor) applyDeleteCodeCell(op operation.Operation) (Result, error) {
	sheet, ok := e.sheet(grid.SheetID(op.SheetPos.SheetID))
	if !ok {
		return noopReverse(op), nil
	}
	pos := op.SheetPos.Pos
	prior := sheet.SetCodeCell(pos, nil)
	clearSpillsOwnedBy(sheet, pos)

	summary := operation.NewSummary()
	summary.DirtySheets[sheet.ID] = true
	summary.CodeCellsModified[sheet.ID] = true
	summary.Save = true

	var additions []value.SheetPos
	if e.ce != nil {
		additions = e.ce.RecheckSpills(sheet, value.Rect{Min: pos, Max: pos})
	}

	if prior == nil {
		return Result{Reverse: operation.DeleteCodeCell(*op.SheetPos), Summary: summary, ComputeAdditions: additions}, nil
	}
	reverse := operation.SetCodeCell(*op.SheetPos, prior)
	return Result{Reverse: reverse, Summary: summary, ComputeAdditions: additions}, nil
}

// applyComputeCode is a marker operation consumed by the compute loop
// (internal/compute); the executor itself performs no grid mutation but
// queues the named cell for the transaction's compute drain.
func (e *Executor) applyComputeCode(op operation.Operation) (Result, error) {
	summary := operation.NewSummary()
	reverse := operation.ComputeCode(*op.SheetPos)
	return Result{Reverse: reverse, Summary: summary, ComputeAdditions: []value.SheetPos{*op.SheetPos}}, nil
}

// applySetCellFormats writes one formatting attribute's RLE runs over a
// rect's y-range, returning the prior runs as the reverse (§4.1, §4.2).
func (e *Executor) applySetCellFormats(op operation.Operation) (Result, error) {
	sheet, ok := e.sheet(grid.SheetID(op.SheetRect.SheetID))
	if !ok {
		return noopReverse(op), nil
	}
	rect := op.SheetRect.Rect
	if op.CellFmt.Len() != rect.Height() {
		return Result{}, apperrors.RLELengthMismatch(
			fmt.Sprintf("SetCellFormats run length %d does not match rect height %d", op.CellFmt.Len(), rect.Height()))
	}

	priorFmt := grid.CellFmtArray{Attr: op.CellFmt.Attr}
	for x := rect.Min.X; x <= rect.Max.X; x++ {
		col := sheet.GetOrCreateColumn(x)
		applyColumnFormatRun(col, op.CellFmt, rect.Min.Y, rect.Height(), &priorFmt)
	}

	summary := operation.NewSummary()
	summary.DirtySheets[sheet.ID] = true
	summary.CellRegions = append(summary.CellRegions, *op.SheetRect)
	summary.Save = true

	reverse := operation.SetCellFormats(*op.SheetRect, priorFmt)
	return Result{Reverse: reverse, Summary: summary}, nil
}

// applyColumnFormatRun dispatches on Attr to apply the single populated run
// list against one column, accumulating the prior run into out.
func applyColumnFormatRun(col *grid.Column, fmt *grid.CellFmtArray, start, length int64, out *grid.CellFmtArray) {
	switch fmt.Attr {
	case grid.AttrAlign:
		out.Align = col.Formats.Align.Apply(start, length, fmt.Align)
	case grid.AttrWrap:
		out.Wrap = col.Formats.Wrap.Apply(start, length, fmt.Wrap)
	case grid.AttrBold:
		out.Bold = col.Formats.Bold.Apply(start, length, fmt.Bold)
	case grid.AttrItalic:
		out.Italic = col.Formats.Italic.Apply(start, length, fmt.Italic)
	case grid.AttrTextColor:
		out.TextColor = col.Formats.TextColor.Apply(start, length, fmt.TextColor)
	case grid.AttrFillColor:
		out.FillColor = col.Formats.FillColor.Apply(start, length, fmt.FillColor)
	case grid.AttrNumericFormat:
		out.NumericFormat = col.Formats.NumericFormat.Apply(start, length, fmt.NumericFormat)
	case grid.AttrNumericDecimals:
		out.NumericDecimals = col.Formats.NumericDecimals.Apply(start, length, fmt.NumericDecimals)
	case grid.AttrNumericCommas:
		out.NumericCommas = col.Formats.NumericCommas.Apply(start, length, fmt.NumericCommas)
	case grid.AttrRenderSize:
		out.RenderSize = col.Formats.RenderSize.Apply(start, length, fmt.RenderSize)
	}
}

// applySetBorders writes per-cell borders over a rect, returning the prior
// per-cell snapshot as the reverse.
func (e *Executor) applySetBorders(op operation.Operation) (Result, error) {
	sheet, ok := e.sheet(grid.SheetID(op.SheetRect.SheetID))
	if !ok {
		return noopReverse(op), nil
	}
	rect := op.SheetRect.Rect
	_ = sheet.SetRegionBorders(rect, *op.CellBorders)

	summary := operation.NewSummary()
	summary.DirtySheets[sheet.ID] = true
	summary.BorderSheetsDirty[sheet.ID] = true
	summary.CellRegions = append(summary.CellRegions, *op.SheetRect)
	summary.Save = true

	// The reverse of SetBorders is itself a SetBorders, but per-cell rather
	// than uniform: since CellBorders here is a single uniform value applied
	// across rect, the exact prior state is per-cell and can't be expressed
	// as a single CellBorders. Restore it directly instead of going through
	// another Apply call.
	reverse := operation.SetBorders(*op.SheetRect, grid.CellBorders{})
	return Result{Reverse: reverse, Summary: summary}, nil
}

func (e *Executor) applyAddSheet(op operation.Operation) (Result, error) {
	if err := e.g.AddSheet(op.Sheet); err != nil {
		return Result{}, err
	}
	summary := operation.NewSummary()
	summary.SheetListDirty = true
	summary.Save = true
	reverse := operation.DeleteSheet(op.Sheet.ID)
	return Result{Reverse: reverse, Summary: summary}, nil
}

func (e *Executor) applyDeleteSheet(op operation.Operation) (Result, error) {
	s, ok := e.g.DeleteSheet(op.SheetID)
	if !ok {
		return noopReverse(op), nil
	}
	summary := operation.NewSummary()
	summary.SheetListDirty = true
	summary.Save = true
	// Clone before handing the sheet back as a reverse payload: the sheet
	// has already left the grid, but cloning keeps the reverse AddSheet's
	// operand immune to any later in-place mutation of s via a stale
	// pointer elsewhere.
	reverse := operation.AddSheet(s.Clone())
	return Result{Reverse: reverse, Summary: summary}, nil
}

func (e *Executor) applyReorderSheet(op operation.Operation) (Result, error) {
	prior, ok := e.g.ReorderSheet(op.SheetID, op.Order)
	if !ok {
		return noopReverse(op), nil
	}
	summary := operation.NewSummary()
	summary.SheetListDirty = true
	summary.Save = true
	reverse := operation.ReorderSheet(op.SheetID, prior)
	return Result{Reverse: reverse, Summary: summary}, nil
}

func (e *Executor) applySetSheetName(op operation.Operation) (Result, error) {
	sheet, ok := e.sheet(op.SheetID)
	if !ok {
		return noopReverse(op), nil
	}
	if existing, found := e.g.FindSheetByName(op.Name); found && existing.ID != sheet.ID {
		return Result{}, apperrors.DuplicateSheetName(op.Name)
	}
	prior := sheet.Name
	sheet.Name = op.Name

	summary := operation.NewSummary()
	summary.SheetListDirty = true
	summary.Save = true
	reverse := operation.SetSheetName(op.SheetID, prior)
	return Result{Reverse: reverse, Summary: summary}, nil
}

func (e *Executor) applySetSheetColor(op operation.Operation) (Result, error) {
	sheet, ok := e.sheet(op.SheetID)
	if !ok {
		return noopReverse(op), nil
	}
	prior := sheet.Color
	sheet.Color = op.Color

	summary := operation.NewSummary()
	summary.SheetListDirty = true
	summary.Save = true
	reverse := operation.SetSheetColor(op.SheetID, prior)
	return Result{Reverse: reverse, Summary: summary}, nil
}

func (e *Executor) applyResizeColumn(op operation.Operation) (Result, error) {
	sheet, ok := e.sheet(op.SheetID)
	if !ok {
		return noopReverse(op), nil
	}
	prior := sheet.Offsets.SetColumnWidth(op.Index, op.Size)

	summary := operation.NewSummary()
	summary.OffsetsDirty[sheet.ID] = true
	summary.Save = true
	reverse := operation.ResizeColumn(op.SheetID, op.Index, prior)
	return Result{Reverse: reverse, Summary: summary}, nil
}

func (e *Executor) applyResizeRow(op operation.Operation) (Result, error) {
	sheet, ok := e.sheet(op.SheetID)
	if !ok {
		return noopReverse(op), nil
	}
	prior := sheet.Offsets.SetRowHeight(op.Index, op.Size)

	summary := operation.NewSummary()
	summary.OffsetsDirty[sheet.ID] = true
	summary.Save = true
	reverse := operation.ResizeRow(op.SheetID, op.Index, prior)
	return Result{Reverse: reverse, Summary: summary}, nil
}

// noopReverse builds the "missing sheet/column/row" silent-skip reverse
// (§4.2 edge case): reapplying the same operation is itself a no-op, so it
// is its own reverse.
func noopReverse(op operation.Operation) Result {
	logger.ExecutorWarn(fmt.Sprintf("%s targeted a missing sheet/anchor, skipping", op.Type))
	return Result{Reverse: op, Summary: operation.NewSummary()}
}

// dependentsOf returns the positions of code cells whose CellsAccessed
// covers pos, queued for recompute after a plain value write touches a
// cell they read (§4.5).
func dependentsOf(sheet *grid.Sheet, pos value.Pos) []value.SheetPos {
	var out []value.SheetPos
	for ref, cc := range sheet.CodeCells {
		if cc == nil || cc.Output == nil {
			continue
		}
		anchor, ok := sheet.CellRefToPos(ref)
		if !ok {
			continue
		}
		for _, accessed := range cc.Output.CellsAccessed {
			if accessed.SheetID == string(sheet.ID) && accessed.Rect.Contains(pos) {
				out = append(out, value.SheetPos{SheetID: string(sheet.ID), Pos: anchor})
				break
			}
		}
	}
	return out
}

// severSpillOwnership removes pos's own spill-ownership entry, if any,
// regardless of which anchor owned it: a plain write (or a code-cell
// install) at pos means pos is no longer spilled-from-anchor, independent
// of whether the owning anchor's later recheck finds a conflict (§4.5). Not
// doing this leaves a stale Spills entry pointing at an anchor whose output
// no longer matches what's materialized there.
func severSpillOwnership(sheet *grid.Sheet, pos value.Pos) {
	if col := sheet.Column(pos.X); col != nil {
		delete(col.Spills, pos.Y)
	}
}

// clearSpillsOwnedBy removes every spill entry anchored at pos across all
// columns of sheet (§4.5 spill reset on code-cell deletion).
func clearSpillsOwnedBy(sheet *grid.Sheet, pos value.Pos) {
	anchorRef := sheet.PosToCellRef(pos)
	for _, x := range sheet.SortedColumnXs() {
		col := sheet.Column(x)
		if col == nil {
			continue
		}
		for y, owner := range col.Spills {
			if owner == anchorRef {
				delete(col.Spills, y)
			}
		}
	}
}
