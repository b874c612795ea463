package executor

import (
	"testing"

	"gridcore/internal/compute"
	"gridcore/pkg/grid"
	"gridcore/pkg/operation"
	"gridcore/pkg/value"
)

func firstSheetID(g *grid.Grid) grid.SheetID {
	return g.SheetsOrdered()[0].ID
}

func TestSetCellValuesRoundTrip(t *testing.T) {
	g := grid.NewGrid()
	sheetID := firstSheetID(g)
	ex := New(g, nil)

	rect := value.NewRect(value.Pos{X: 0, Y: 0}, value.Pos{X: 1, Y: 0})
	sheetRect := value.NewSheetRect(string(sheetID), rect)
	values, err := value.NewArrayFrom(2, 1, []value.CellValue{value.Text("a"), value.Text("b")})
	if err != nil {
		t.Fatalf("NewArrayFrom: %v", err)
	}

	res, err := ex.Apply(operation.SetCellValues(sheetRect, values))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	sheet, _ := g.SheetByID(sheetID)
	got, _ := sheet.GetCellValue(value.Pos{X: 0, Y: 0})
	if got.Text != "a" {
		t.Fatalf("expected cell A1 to be %q, got %q", "a", got.Text)
	}

	if _, err := ex.Apply(res.Reverse); err != nil {
		t.Fatalf("applying reverse: %v", err)
	}
	got, ok := sheet.GetCellValue(value.Pos{X: 0, Y: 0})
	if ok && !got.IsBlank() {
		t.Fatalf("expected cell A1 to be blank after undo, got %+v", got)
	}
}

func TestSetCellValuesMissingSheetIsNoop(t *testing.T) {
	g := grid.NewGrid()
	ex := New(g, nil)
	rect := value.NewRect(value.Pos{X: 0, Y: 0}, value.Pos{X: 0, Y: 0})
	sheetRect := value.NewSheetRect("missing-sheet", rect)
	values, _ := value.NewArrayFrom(1, 1, []value.CellValue{value.Text("x")})

	res, err := ex.Apply(operation.SetCellValues(sheetRect, values))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Reverse.Type != operation.KindSetCellValues {
		t.Fatalf("expected no-op reverse to be a SetCellValues, got %s", res.Reverse.Type)
	}
}

func TestAddSheetDuplicateNameIsProgrammerError(t *testing.T) {
	g := grid.NewGrid()
	ex := New(g, nil)
	dup := grid.NewSheet("Sheet1", grid.OrderKeyAfter(0))

	if _, err := ex.Apply(operation.AddSheet(dup)); err == nil {
		t.Fatal("expected duplicate sheet name to return an error")
	}
}

func TestDeleteSheetReverseRestoresOrderKey(t *testing.T) {
	g := grid.NewGrid()
	ex := New(g, nil)
	order := g.OrderKeyForPosition(1)
	added := grid.NewSheet("Sheet2", order)

	if _, err := ex.Apply(operation.AddSheet(added)); err != nil {
		t.Fatalf("AddSheet: %v", err)
	}

	res, err := ex.Apply(operation.DeleteSheet(added.ID))
	if err != nil {
		t.Fatalf("DeleteSheet: %v", err)
	}
	if _, ok := g.SheetByID(added.ID); ok {
		t.Fatal("expected sheet to be gone after delete")
	}

	if _, err := ex.Apply(res.Reverse); err != nil {
		t.Fatalf("applying reverse AddSheet: %v", err)
	}
	restored, ok := g.SheetByID(added.ID)
	if !ok {
		t.Fatal("expected sheet to be restored")
	}
	if restored.Order != order {
		t.Fatalf("expected restored order key %v, got %v", order, restored.Order)
	}
}

func TestSetCellFormatsLengthMismatchErrors(t *testing.T) {
	g := grid.NewGrid()
	ex := New(g, nil)
	sheetID := firstSheetID(g)
	rect := value.NewRect(value.Pos{X: 0, Y: 0}, value.Pos{X: 0, Y: 9})
	sheetRect := value.NewSheetRect(string(sheetID), rect)

	boldTrue := true
	fmtArray := grid.CellFmtArray{
		Attr: grid.AttrBold,
		Bold: grid.UniformRun(0, 3, &boldTrue), // too short for a 10-row rect
	}

	if _, err := ex.Apply(operation.SetCellFormats(sheetRect, fmtArray)); err == nil {
		t.Fatal("expected RLE length mismatch error")
	}
}

func TestApplyRejectsInvalidSheetNameAtBoundary(t *testing.T) {
	g := grid.NewGrid()
	ex := New(g, nil)
	sheetID := firstSheetID(g)

	if _, err := ex.Apply(operation.SetSheetName(sheetID, "bad/name")); err == nil {
		t.Fatal("expected validation error for sheet name containing '/'")
	}

	sheet, _ := g.SheetByID(sheetID)
	if sheet.Name != "Sheet1" {
		t.Fatalf("sheet name should be unchanged after a rejected op, got %q", sheet.Name)
	}
}

func TestApplyRejectsInvalidSheetColorAtBoundary(t *testing.T) {
	g := grid.NewGrid()
	ex := New(g, nil)
	sheetID := firstSheetID(g)

	if _, err := ex.Apply(operation.SetSheetColor(sheetID, "not-a-color")); err == nil {
		t.Fatal("expected validation error for malformed hex color")
	}
}

// TestSetCellValuesTriggersSpillRecheck covers seed scenario 4: a plain
// value write into a cell already owned by another anchor's spill must
// flip that anchor's spill_error on, and clear it again on undo — not just
// leave the write to dependentsOf, which only follows a code cell's inputs.
func TestSetCellValuesTriggersSpillRecheck(t *testing.T) {
	g := grid.NewGrid()
	sheetID := firstSheetID(g)
	ce := compute.New(g)
	ce.RegisterRunner(value.LanguageFormula, compute.FormulaRunner{})
	ex := New(g, ce)
	sheet, _ := g.SheetByID(sheetID)

	sheet.SetCellValue(value.Pos{X: 0, Y: 0}, value.NumberFromInt(1))
	sheet.SetCellValue(value.Pos{X: 0, Y: 1}, value.NumberFromInt(2))
	sheet.SetCellValue(value.Pos{X: 0, Y: 2}, value.NumberFromInt(3))
	sheet.SetCellValue(value.Pos{X: 0, Y: 3}, value.NumberFromInt(4))

	anchor := value.Pos{X: 1, Y: 1}
	anchorSheetPos := value.SheetPos{SheetID: string(sheetID), Pos: anchor}
	res, err := ex.Apply(operation.SetCodeCell(anchorSheetPos, &value.CodeCellValue{Language: value.LanguageFormula, Source: "A0:A3"}))
	if err != nil {
		t.Fatalf("SetCodeCell: %v", err)
	}
	state := compute.NewDrainState(res.ComputeAdditions)
	if _, err := ce.Drain(state); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	spilled, _ := sheet.GetCellValue(value.Pos{X: 1, Y: 2})
	if spilled.ToDisplay(nil) != "2" {
		t.Fatalf("B2 = %s, want 2 (spilled from A0:A3)", spilled.ToDisplay(nil))
	}

	writeRect := value.NewRect(value.Pos{X: 1, Y: 2}, value.Pos{X: 1, Y: 2})
	sheetRect := value.NewSheetRect(string(sheetID), writeRect)
	blocker, _ := value.NewArrayFrom(1, 1, []value.CellValue{value.Text("blocker")})
	writeRes, err := ex.Apply(operation.SetCellValues(sheetRect, blocker))
	if err != nil {
		t.Fatalf("SetCellValues: %v", err)
	}

	cc, _, _ := sheet.GetCodeCell(anchor)
	if cc == nil || cc.Output == nil || !cc.Output.SpillError {
		t.Fatalf("expected anchor's code run to carry spill_error=true, got %+v", cc)
	}
	anchorVal, _ := sheet.GetCellValue(anchor)
	if anchorVal.ToDisplay(nil) != "" {
		t.Fatalf("expected anchor to display blank while spill-blocked, got %q", anchorVal.ToDisplay(nil))
	}

	if _, err := ex.Apply(writeRes.Reverse); err != nil {
		t.Fatalf("applying reverse: %v", err)
	}

	cc, _, _ = sheet.GetCodeCell(anchor)
	if cc == nil || cc.Output == nil || cc.Output.SpillError {
		t.Fatalf("expected spill_error to clear after undo, got %+v", cc.Output)
	}
	anchorVal, _ = sheet.GetCellValue(anchor)
	if anchorVal.ToDisplay(nil) != "1" {
		t.Fatalf("expected anchor to display A0's value (1) again after undo, got %q", anchorVal.ToDisplay(nil))
	}
	reblocked, _ := sheet.GetCellValue(value.Pos{X: 1, Y: 2})
	if reblocked.ToDisplay(nil) != "2" {
		t.Fatalf("expected B2 to be re-spilled to 2 after undo, got %q", reblocked.ToDisplay(nil))
	}
}
