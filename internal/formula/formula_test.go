package formula

import (
	"testing"

	"gridcore/pkg/grid"
	"gridcore/pkg/value"
)

func newTestCtx(t *testing.T) *Ctx {
	t.Helper()
	g := grid.NewGrid()
	sheetID := g.SheetsOrdered()[0].ID
	sheet, _ := g.SheetByID(sheetID)
	sheet.SetCellValue(value.Pos{X: 0, Y: 0}, value.NumberFromInt(1))
	sheet.SetCellValue(value.Pos{X: 0, Y: 1}, value.NumberFromInt(2))
	sheet.SetCellValue(value.Pos{X: 0, Y: 2}, value.NumberFromInt(3))
	return NewCtx(g, sheetID)
}

func evalText(t *testing.T, src string, ctx *Ctx) string {
	t.Helper()
	v, cerr := Evaluate(src, ctx)
	if cerr != nil {
		t.Fatalf("Evaluate(%q): %s", src, cerr.Msg)
	}
	return v.AsSingle().ToDisplay(nil)
}

func TestArithmetic(t *testing.T) {
	ctx := newTestCtx(t)
	cases := map[string]string{
		"1+2*3": "7",
		"(1+2)*3": "9",
		"2^3":   "8",
		"10/2":  "5",
		"-5+2":  "-3",
	}
	for src, want := range cases {
		if got := evalText(t, src, ctx); got != want {
			t.Errorf("%s = %s, want %s", src, got, want)
		}
	}
}

func TestDivideByZero(t *testing.T) {
	ctx := newTestCtx(t)
	_, cerr := Evaluate("1/0", ctx)
	if cerr == nil || cerr.Msg != "#DIV/0!" {
		t.Fatalf("expected #DIV/0!, got %+v", cerr)
	}
}

func TestCellReference(t *testing.T) {
	ctx := newTestCtx(t)
	if got := evalText(t, "A0+A1", ctx); got != "3" {
		t.Fatalf("A0+A1 = %s, want 3", got)
	}
	if len(ctx.CellsAccessed) != 2 {
		t.Fatalf("expected 2 cells accessed, got %d", len(ctx.CellsAccessed))
	}
}

func TestRangeAggregates(t *testing.T) {
	ctx := newTestCtx(t)
	if got := evalText(t, "SUM(A0:A2)", ctx); got != "6" {
		t.Fatalf("SUM(A0:A2) = %s, want 6", got)
	}
	if got := evalText(t, "AVERAGE(A0:A2)", ctx); got != "2" {
		t.Fatalf("AVERAGE(A0:A2) = %s, want 2", got)
	}
	if got := evalText(t, "MAX(A0:A2)", ctx); got != "3" {
		t.Fatalf("MAX(A0:A2) = %s, want 3", got)
	}
	if got := evalText(t, "COUNT(A0:A2)", ctx); got != "3" {
		t.Fatalf("COUNT(A0:A2) = %s, want 3", got)
	}
}

func TestIfAndConcat(t *testing.T) {
	ctx := newTestCtx(t)
	if got := evalText(t, `IF(A0=1,"one","other")`, ctx); got != "one" {
		t.Fatalf(`IF(A0=1,"one","other") = %s, want one`, got)
	}
	if got := evalText(t, `CONCAT("a","b",A0)`, ctx); got != "ab1" {
		t.Fatalf(`CONCAT("a","b",A0) = %s, want ab1`, got)
	}
}

// TestZeroIndexedRowAddressing covers seed scenario 3: row labels are
// 0-indexed, so "A0" addresses the same cell as Pos{X:0,Y:0} rather than
// being rejected as an invalid reference.
func TestZeroIndexedRowAddressing(t *testing.T) {
	pos, ok := parseA1("A0")
	if !ok {
		t.Fatal("expected A0 to parse as a valid reference")
	}
	if pos != (value.Pos{X: 0, Y: 0}) {
		t.Fatalf("parseA1(A0) = %+v, want {X:0 Y:0}", pos)
	}

	ctx := newTestCtx(t)
	if got := evalText(t, "A0+1", ctx); got != "2" {
		t.Fatalf("A0+1 = %s, want 2", got)
	}
}

func TestTrailingOperatorSyntaxError(t *testing.T) {
	ctx := newTestCtx(t)
	_, cerr := Evaluate("1+", ctx)
	if cerr == nil {
		t.Fatal("expected a syntax error")
	}
}
