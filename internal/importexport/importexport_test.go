package importexport

import (
	"bytes"
	"testing"

	"gridcore/pkg/grid"
	"gridcore/pkg/value"
)

func buildTestGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g := grid.NewGrid()
	sheet, _ := g.SheetByID(g.SheetsOrdered()[0].ID)
	sheet.SetCellValue(value.Pos{X: 0, Y: 0}, value.NumberFromInt(5))
	sheet.SetCellValue(value.Pos{X: 1, Y: 0}, value.Text("hello"))
	sheet.SetCodeCell(value.Pos{X: 2, Y: 0}, &value.CodeCellValue{Language: value.LanguageFormula, Source: "A1*2"})
	sheet.RecalculateBounds()
	return g
}

func TestJSONRoundTrip(t *testing.T) {
	g := buildTestGrid(t)

	var buf bytes.Buffer
	if err := ExportJSON(g, &buf); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	g2, err := ImportJSON(&buf)
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}

	sheet2 := g2.SheetsOrdered()[0]
	a1, _ := sheet2.GetCellValue(value.Pos{X: 0, Y: 0})
	if a1.ToDisplay(nil) != "5" {
		t.Fatalf("A1 = %s, want 5", a1.ToDisplay(nil))
	}
	b1, _ := sheet2.GetCellValue(value.Pos{X: 1, Y: 0})
	if b1.Text != "hello" {
		t.Fatalf("B1 = %q, want hello", b1.Text)
	}
	cc, _, ok := sheet2.GetCodeCell(value.Pos{X: 2, Y: 0})
	if !ok || cc.Source != "A1*2" {
		t.Fatalf("C1 code cell missing or wrong source: %+v", cc)
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	g := buildTestGrid(t)

	var buf bytes.Buffer
	if err := ExportXLSX(g, &buf); err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}

	g2, err := ImportXLSX(&buf)
	if err != nil {
		t.Fatalf("ImportXLSX: %v", err)
	}

	sheet2 := g2.SheetsOrdered()[0]
	a1, _ := sheet2.GetCellValue(value.Pos{X: 0, Y: 0})
	if a1.ToDisplay(nil) != "5" {
		t.Fatalf("A1 = %s, want 5", a1.ToDisplay(nil))
	}
	cc, _, ok := sheet2.GetCodeCell(value.Pos{X: 2, Y: 0})
	if !ok || cc.Source == "" {
		t.Fatalf("C1 formula missing after xlsx round trip: %+v", cc)
	}
}

func TestClipboardCopyPasteShiftsRelativeReferences(t *testing.T) {
	g := buildTestGrid(t)
	sheet := g.SheetsOrdered()[0]

	rect := value.NewRect(value.Pos{X: 0, Y: 0}, value.Pos{X: 2, Y: 0})
	html, plain, err := CopyRegion(sheet, rect, "A1:C1")
	if err != nil {
		t.Fatalf("CopyRegion: %v", err)
	}
	if plain == "" {
		t.Fatal("expected non-empty plain text")
	}

	pasted, err := PasteHTML(html, value.Pos{X: 0, Y: 5})
	if err != nil {
		t.Fatalf("PasteHTML: %v", err)
	}
	if v := pasted.Values[value.Pos{X: 0, Y: 5}]; v.ToDisplay(nil) != "5" {
		t.Fatalf("pasted A6 = %s, want 5", v.ToDisplay(nil))
	}
	cc, ok := pasted.CodeCells[value.Pos{X: 2, Y: 5}]
	if !ok {
		t.Fatal("expected pasted code cell at C6")
	}
	if cc.Source != "A6*2" {
		t.Fatalf("pasted formula = %q, want A6*2 (shifted by +5 rows)", cc.Source)
	}
}

func TestClipboardAbsoluteReferenceUnshifted(t *testing.T) {
	shifted := shiftFormulaRefs("$A$1+B2", 2, 3)
	if shifted != "$A$1+D5" {
		t.Fatalf("shiftFormulaRefs = %q, want $A$1+D5", shifted)
	}
}

func TestPastePlainTextFallback(t *testing.T) {
	values := PastePlainText("1\t2\nhello\tworld", value.Pos{X: 0, Y: 0})
	if v := values[value.Pos{X: 0, Y: 0}]; v.ToDisplay(nil) != "1" {
		t.Fatalf("A1 = %s, want 1", v.ToDisplay(nil))
	}
	if v := values[value.Pos{X: 1, Y: 1}]; v.Text != "world" {
		t.Fatalf("B2 = %q, want world", v.Text)
	}
}
