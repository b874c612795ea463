package compute

import (
	"testing"

	"gridcore/pkg/grid"
	"gridcore/pkg/value"
)

func setupEngine(t *testing.T) (*grid.Grid, *Engine, grid.SheetID) {
	t.Helper()
	g := grid.NewGrid()
	sheetID := g.SheetsOrdered()[0].ID
	e := New(g)
	e.RegisterRunner(value.LanguageFormula, FormulaRunner{})
	return g, e, sheetID
}

func drainAll(t *testing.T, e *Engine, pending []value.SheetPos) {
	t.Helper()
	state := NewDrainState(pending)
	suspended, err := e.Drain(state)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if suspended != nil {
		t.Fatalf("unexpected suspension at %v", *suspended)
	}
}

func TestSimpleFormulaRecompute(t *testing.T) {
	g, e, sheetID := setupEngine(t)
	sheet, _ := g.SheetByID(sheetID)
	sheet.SetCellValue(value.Pos{X: 0, Y: 0}, value.NumberFromInt(5))
	sheet.SetCodeCell(value.Pos{X: 1, Y: 0}, &value.CodeCellValue{Language: value.LanguageFormula, Source: "A0*2"})

	drainAll(t, e, []value.SheetPos{{SheetID: string(sheetID), Pos: value.Pos{X: 1, Y: 0}}})

	got, _ := sheet.GetCellValue(value.Pos{X: 1, Y: 0})
	if got.ToDisplay(nil) != "10" {
		t.Fatalf("B0 = %s, want 10", got.ToDisplay(nil))
	}
}

func TestTransitiveDependencyRecompute(t *testing.T) {
	g, e, sheetID := setupEngine(t)
	sheet, _ := g.SheetByID(sheetID)
	sheet.SetCellValue(value.Pos{X: 0, Y: 0}, value.NumberFromInt(2))
	sheet.SetCodeCell(value.Pos{X: 1, Y: 0}, &value.CodeCellValue{Language: value.LanguageFormula, Source: "A0+1"})
	sheet.SetCodeCell(value.Pos{X: 2, Y: 0}, &value.CodeCellValue{Language: value.LanguageFormula, Source: "B0+1"})

	// Prime both code cells once so C0's CellsAccessed (of B0) is recorded.
	drainAll(t, e, []value.SheetPos{
		{SheetID: string(sheetID), Pos: value.Pos{X: 1, Y: 0}},
		{SheetID: string(sheetID), Pos: value.Pos{X: 2, Y: 0}},
	})

	sheet.SetCellValue(value.Pos{X: 0, Y: 0}, value.NumberFromInt(10))
	drainAll(t, e, []value.SheetPos{{SheetID: string(sheetID), Pos: value.Pos{X: 1, Y: 0}}})

	c1, _ := sheet.GetCellValue(value.Pos{X: 2, Y: 0})
	if c1.ToDisplay(nil) != "12" {
		t.Fatalf("C0 = %s, want 12 (transitively recomputed)", c1.ToDisplay(nil))
	}
}

func TestCircularReferenceDetected(t *testing.T) {
	g, e, sheetID := setupEngine(t)
	sheet, _ := g.SheetByID(sheetID)
	sheet.SetCodeCell(value.Pos{X: 0, Y: 0}, &value.CodeCellValue{Language: value.LanguageFormula, Source: "B0"})
	sheet.SetCodeCell(value.Pos{X: 1, Y: 0}, &value.CodeCellValue{Language: value.LanguageFormula, Source: "A0"})

	drainAll(t, e, []value.SheetPos{
		{SheetID: string(sheetID), Pos: value.Pos{X: 0, Y: 0}},
		{SheetID: string(sheetID), Pos: value.Pos{X: 1, Y: 0}},
	})

	a1, _ := sheet.GetCellValue(value.Pos{X: 0, Y: 0})
	if a1.Kind != value.KindError {
		t.Fatalf("expected A0 to resolve to a circular-reference error, got %+v", a1)
	}
}

func TestArraySpill(t *testing.T) {
	g, e, sheetID := setupEngine(t)
	sheet, _ := g.SheetByID(sheetID)
	arr, _ := value.NewArrayFrom(1, 2, []value.CellValue{value.NumberFromInt(1), value.NumberFromInt(2)})
	// Registering a stub runner for a second language lets this test drive a
	// 1x2 array result through the spill path without a real Python/JS host.
	e.RegisterRunner(value.LanguagePython, stubArrayRunner{arr: arr})
	sheet.SetCodeCell(value.Pos{X: 2, Y: 0}, &value.CodeCellValue{Language: value.LanguagePython, Source: "ignored"})

	drainAll(t, e, []value.SheetPos{{SheetID: string(sheetID), Pos: value.Pos{X: 2, Y: 0}}})

	spilled, _ := sheet.GetCellValue(value.Pos{X: 2, Y: 1})
	if spilled.ToDisplay(nil) != "2" {
		t.Fatalf("C1 = %s, want 2 (spilled)", spilled.ToDisplay(nil))
	}
}

func TestAsyncRunnerSuspendsAndResumes(t *testing.T) {
	g, e, sheetID := setupEngine(t)
	sheet, _ := g.SheetByID(sheetID)
	e.RegisterRunner(value.LanguagePython, pendingThenRunner{})
	sheet.SetCodeCell(value.Pos{X: 0, Y: 0}, &value.CodeCellValue{Language: value.LanguagePython, Source: "ignored"})

	pos := value.SheetPos{SheetID: string(sheetID), Pos: value.Pos{X: 0, Y: 0}}
	state := NewDrainState([]value.SheetPos{pos})
	suspended, err := e.Drain(state)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if suspended == nil || *suspended != pos {
		t.Fatalf("expected suspension at %v, got %v", pos, suspended)
	}

	v := value.SingleValue(value.NumberFromInt(42))
	if err := e.Resume(state, pos, RunOutcome{Result: value.CodeRunResult{OK: &v}}); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	suspended, err = e.Drain(state)
	if err != nil {
		t.Fatalf("Drain after resume: %v", err)
	}
	if suspended != nil {
		t.Fatalf("unexpected further suspension at %v", *suspended)
	}

	got, _ := sheet.GetCellValue(value.Pos{X: 0, Y: 0})
	if got.ToDisplay(nil) != "42" {
		t.Fatalf("A0 = %s, want 42", got.ToDisplay(nil))
	}
}

type stubArrayRunner struct{ arr *value.Array }

func (s stubArrayRunner) Run(sheetID grid.SheetID, pos value.Pos, source string, g *grid.Grid) (RunOutcome, error) {
	v := value.ArrayValue(s.arr)
	return RunOutcome{Result: value.CodeRunResult{OK: &v}}, nil
}

type pendingThenRunner struct{}

func (pendingThenRunner) Run(sheetID grid.SheetID, pos value.Pos, source string, g *grid.Grid) (RunOutcome, error) {
	return RunOutcome{Pending: true}, nil
}
