// Package importexport implements the §6 boundary adapters: xlsx
// import/export via excelize, the native JSON file envelope, and the
// clipboard HTML codec. None of these mutate a live Controller directly —
// each builds or consumes a *grid.Grid (file import/export) or returns
// position-keyed values and code cells (paste), leaving the caller to apply
// the result.
package importexport

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"gridcore/pkg/apperrors"
	"gridcore/pkg/grid"
	"gridcore/pkg/value"
)

// ImportXLSX reads an xlsx workbook and builds a Grid with one sheet per
// worksheet, translating every populated cell into a value write and every
// formula cell into a Formula-language code cell (its computed result is
// not preserved — the caller must recompute via internal/compute).
func ImportXLSX(r io.Reader) (*grid.Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.ImportFailed(err)
	}
	defer f.Close()

	g := grid.NewEmptyGrid()
	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, apperrors.ImportFailed(fmt.Errorf("workbook has no sheets"))
	}

	for i, name := range names {
		sheet := grid.NewSheet(name, g.OrderKeyForPosition(i))
		if err := importWorksheet(f, name, sheet); err != nil {
			return nil, apperrors.ImportFailed(err)
		}
		if err := g.AddSheet(sheet); err != nil {
			return nil, apperrors.ImportFailed(err)
		}
	}
	return g, nil
}

func importWorksheet(f *excelize.File, name string, sheet *grid.Sheet) error {
	rows, err := f.GetRows(name)
	if err != nil {
		return err
	}
	for rowIdx, row := range rows {
		for colIdx, raw := range row {
			cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return err
			}
			pos := value.Pos{X: int64(colIdx), Y: int64(rowIdx)}

			if formula, err := f.GetCellFormula(name, cellName); err == nil && formula != "" {
				sheet.SetCodeCell(pos, &value.CodeCellValue{
					Language: value.LanguageFormula,
					Source:   formula,
				})
				continue
			}
			if raw == "" {
				continue
			}
			sheet.SetCellValue(pos, cellValueFromRaw(raw))
		}
	}
	sheet.RecalculateBounds()
	return nil
}

// cellValueFromRaw coerces excelize's display-string cell value into a
// CellValue, preferring Number when the text parses cleanly as one (xlsx
// stores numbers without type tagging in GetRows' string view).
func cellValueFromRaw(raw string) value.CellValue {
	if d, err := decimal.NewFromString(raw); err == nil {
		return value.Number(d)
	}
	switch strings.ToUpper(raw) {
	case "TRUE":
		return value.Logical(true)
	case "FALSE":
		return value.Logical(false)
	}
	return value.Text(raw)
}

// ExportXLSX writes g to an xlsx workbook, one worksheet per sheet in order,
// restoring formula source text for Formula code cells (other languages
// have no xlsx representation and export their last computed display value
// instead, if any).
func ExportXLSX(g *grid.Grid, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := g.SheetsOrdered()
	if len(sheets) == 0 {
		return apperrors.ExportFailed(fmt.Errorf("grid has no sheets"))
	}

	for i, sheet := range sheets {
		sheetName := sheet.Name
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
				return apperrors.ExportFailed(err)
			}
		} else if _, err := f.NewSheet(sheetName); err != nil {
			return apperrors.ExportFailed(err)
		}
		if err := exportWorksheet(f, sheetName, sheet); err != nil {
			return apperrors.ExportFailed(err)
		}
	}

	if err := f.Write(w); err != nil {
		return apperrors.ExportFailed(err)
	}
	return nil
}

func exportWorksheet(f *excelize.File, sheetName string, sheet *grid.Sheet) error {
	bounds, ok := sheet.Bounds()
	if !ok {
		return nil
	}
	for y := bounds.Min.Y; y <= bounds.Max.Y; y++ {
		for x := bounds.Min.X; x <= bounds.Max.X; x++ {
			pos := value.Pos{X: x, Y: y}
			cellName, err := excelize.CoordinatesToCellName(int(x)+1, int(y)+1)
			if err != nil {
				return err
			}
			if cc, _, ok := sheet.GetCodeCell(pos); ok && cc != nil && cc.Language == value.LanguageFormula {
				if err := f.SetCellFormula(sheetName, cellName, cc.Source); err != nil {
					return err
				}
				continue
			}
			v, ok := sheet.GetCellValue(pos)
			if !ok || v.IsBlank() {
				continue
			}
			if err := setExcelizeCell(f, sheetName, cellName, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func setExcelizeCell(f *excelize.File, sheetName, cellName string, v value.CellValue) error {
	switch v.Kind {
	case value.KindNumber:
		n, _ := v.Number.Float64()
		return f.SetCellValue(sheetName, cellName, n)
	case value.KindLogical:
		return f.SetCellValue(sheetName, cellName, v.Logical)
	default:
		return f.SetCellValue(sheetName, cellName, v.ToDisplay(nil))
	}
}
