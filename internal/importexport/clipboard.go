package importexport

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"gridcore/pkg/apperrors"
	"gridcore/pkg/grid"
	"gridcore/pkg/value"
)

// clipboardPayload is the JSON embedded in a copied region's
// data-quadratic attribute (§6 "Clipboard").
type clipboardPayload struct {
	W         int64                      `json:"w"`
	H         int64                      `json:"h"`
	Cells     []clipboardCodeCell        `json:"cells"`
	Values    map[string]value.CellValue `json:"values"` // "dx,dy" -> value
	Formats   []clipboardFormat          `json:"formats,omitempty"`
	Borders   []clipboardBorder          `json:"borders,omitempty"`
	Origin    value.Pos                  `json:"origin"`
	Selection string                     `json:"selection"`
}

type clipboardCodeCell struct {
	DX       int64          `json:"dx"`
	DY       int64          `json:"dy"`
	Language value.Language `json:"language"`
	Source   string         `json:"source"`
}

// clipboardFormat is a per-cell snapshot of the handful of formatting
// attributes relevant to paste (the RLE runs CellFmtArray carries are a
// per-operation, not per-cell, shape, so copy/paste flattens to one entry
// per populated cell instead of re-deriving runs on paste).
type clipboardFormat struct {
	DX        int64       `json:"dx"`
	DY        int64       `json:"dy"`
	Bold      *bool       `json:"bold,omitempty"`
	Italic    *bool       `json:"italic,omitempty"`
	Align     *grid.Align `json:"align,omitempty"`
	TextColor *string     `json:"text_color,omitempty"`
	FillColor *string     `json:"fill_color,omitempty"`
}

func (f clipboardFormat) isEmpty() bool {
	return f.Bold == nil && f.Italic == nil && f.Align == nil && f.TextColor == nil && f.FillColor == nil
}

type clipboardBorder struct {
	DX      int64            `json:"dx"`
	DY      int64            `json:"dy"`
	Borders grid.CellBorders `json:"borders"`
}

// CopyRegion builds the clipboard payload for rect on sheet (§6): every
// populated value keyed by its offset from origin, every code cell's raw
// source preserved verbatim (shifted only on paste), and plain tab/newline
// text for the fallback representation.
func CopyRegion(sheet *grid.Sheet, rect value.Rect, selection string) (html string, plain string, err error) {
	w, h := rect.Width(), rect.Height()
	payload := clipboardPayload{
		W: w, H: h, Origin: rect.Min, Selection: selection,
		Values: make(map[string]value.CellValue),
	}

	var lines []string
	for dy := int64(0); dy < h; dy++ {
		var cols []string
		for dx := int64(0); dx < w; dx++ {
			pos := value.Pos{X: rect.Min.X + dx, Y: rect.Min.Y + dy}
			if cc, _, ok := sheet.GetCodeCell(pos); ok && cc != nil {
				payload.Cells = append(payload.Cells, clipboardCodeCell{DX: dx, DY: dy, Language: cc.Language, Source: cc.Source})
			}
			v, ok := sheet.GetCellValue(pos)
			if ok && !v.IsBlank() {
				payload.Values[key(dx, dy)] = v
			}
			cols = append(cols, v.ToDisplay(nil))

			if col := sheet.Column(pos.X); col != nil {
				cellFmt := clipboardFormat{DX: dx, DY: dy}
				cellFmt.Bold = col.Formats.Bold.At(pos.Y)
				cellFmt.Italic = col.Formats.Italic.At(pos.Y)
				cellFmt.Align = col.Formats.Align.At(pos.Y)
				cellFmt.TextColor = col.Formats.TextColor.At(pos.Y)
				cellFmt.FillColor = col.Formats.FillColor.At(pos.Y)
				if !cellFmt.isEmpty() {
					payload.Formats = append(payload.Formats, cellFmt)
				}
			}

			if cb := sheet.Borders.At(pos); !cb.IsEmpty() {
				payload.Borders = append(payload.Borders, clipboardBorder{DX: dx, DY: dy, Borders: cb})
			}
		}
		lines = append(lines, strings.Join(cols, "\t"))
	}
	plain = strings.Join(lines, "\n")

	data, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}
	encoded := url.QueryEscape(string(data))
	html = fmt.Sprintf(`<table data-quadratic="%s"><tbody>%s</tbody></table>`, encoded, plainToHTMLRows(lines))
	return html, plain, nil
}

func plainToHTMLRows(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString("<tr>")
		for _, cell := range strings.Split(line, "\t") {
			b.WriteString("<td>")
			b.WriteString(cell)
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	return b.String()
}

// PastedRegion is everything a rich paste needs to turn into operations:
// the caller builds SetCellValues/SetCodeCell/SetBorders ops from these maps
// and drives them through a txn.Controller — this package stays independent
// of the executor/operation wiring.
type PastedRegion struct {
	Values    map[value.Pos]value.CellValue
	CodeCells map[value.Pos]*value.CodeCellValue
	Formats   map[value.Pos]clipboardFormat
	Borders   map[value.Pos]grid.CellBorders
}

// PasteHTML decodes a data-quadratic payload from html and returns the
// values/code-cells/formats/borders to write at dest, shifting every code
// cell's relative references by (dest - origin) per §6.
func PasteHTML(html string, dest value.Pos) (*PastedRegion, error) {
	encoded, ok := extractDataQuadratic(html)
	if !ok {
		return nil, apperrors.InvalidInput("no data-quadratic attribute found in pasted HTML")
	}
	raw, err := url.QueryUnescape(encoded)
	if err != nil {
		return nil, err
	}
	var payload clipboardPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}

	dx := dest.X - payload.Origin.X
	dy := dest.Y - payload.Origin.Y

	out := &PastedRegion{
		Values:    make(map[value.Pos]value.CellValue, len(payload.Values)),
		CodeCells: make(map[value.Pos]*value.CodeCellValue, len(payload.Cells)),
		Formats:   make(map[value.Pos]clipboardFormat, len(payload.Formats)),
		Borders:   make(map[value.Pos]grid.CellBorders, len(payload.Borders)),
	}

	for k, v := range payload.Values {
		ddx, ddy, ok := parseKey(k)
		if !ok {
			continue
		}
		out.Values[value.Pos{X: dest.X + ddx, Y: dest.Y + ddy}] = v
	}

	for _, c := range payload.Cells {
		pos := value.Pos{X: dest.X + c.DX, Y: dest.Y + c.DY}
		source := c.Source
		if c.Language == value.LanguageFormula {
			source = shiftFormulaRefs(c.Source, dx, dy)
		}
		out.CodeCells[pos] = &value.CodeCellValue{Language: c.Language, Source: source}
	}

	for _, f := range payload.Formats {
		out.Formats[value.Pos{X: dest.X + f.DX, Y: dest.Y + f.DY}] = f
	}
	for _, b := range payload.Borders {
		out.Borders[value.Pos{X: dest.X + b.DX, Y: dest.Y + b.DY}] = b.Borders
	}

	return out, nil
}

// PastePlainText splits tab/newline separated text into a value grid
// anchored at dest, the fallback path when no rich clipboard data is present.
func PastePlainText(text string, dest value.Pos) map[value.Pos]value.CellValue {
	values := make(map[value.Pos]value.CellValue)
	for dy, line := range strings.Split(text, "\n") {
		for dx, cell := range strings.Split(line, "\t") {
			if cell == "" {
				continue
			}
			values[value.Pos{X: dest.X + int64(dx), Y: dest.Y + int64(dy)}] = cellValueFromRaw(cell)
		}
	}
	return values
}

var dataQuadraticRe = regexp.MustCompile(`data-quadratic="([^"]*)"`)

func extractDataQuadratic(html string) (string, bool) {
	m := dataQuadraticRe.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func key(dx, dy int64) string {
	return strconv.FormatInt(dx, 10) + "," + strconv.FormatInt(dy, 10)
}

func parseKey(k string) (dx, dy int64, ok bool) {
	parts := strings.SplitN(k, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	x, err1 := strconv.ParseInt(parts[0], 10, 64)
	y, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return x, y, true
}

// cellRefRe matches an A1-style reference with optional $ absolute markers
// on the column and/or row, used to shift relative references on paste
// without needing a full formula-engine round trip.
var cellRefRe = regexp.MustCompile(`(\$?)([A-Z]{1,3})(\$?)([0-9]+)`)

// shiftFormulaRefs rewrites every non-absolute A1 reference in src by
// (dx, dy), leaving $-anchored column/row components untouched (§6
// "absolute references unchanged"). Row labels are 0-indexed (A0 is row
// y=0), matching internal/formula's parseA1 convention.
func shiftFormulaRefs(src string, dx, dy int64) string {
	return cellRefRe.ReplaceAllStringFunc(src, func(m string) string {
		parts := cellRefRe.FindStringSubmatch(m)
		colAbs, colStr, rowAbs, rowStr := parts[1], parts[2], parts[3], parts[4]

		col := columnLettersToIndex(colStr)
		row, err := strconv.ParseInt(rowStr, 10, 64)
		if err != nil {
			return m
		}

		if colAbs == "" {
			col += dx
		}
		if rowAbs == "" {
			row += dy
		}
		if col < 0 || row < 0 {
			return "#REF!"
		}
		return colAbs + columnIndexToLetters(col) + rowAbs + strconv.FormatInt(row, 10)
	})
}

// columnLettersToIndex converts a base-26 column label to a zero-based
// index; columnIndexToLetters is its inverse. Duplicated from
// internal/formula's unexported helpers since that package's A1 parsing
// isn't part of this package's import surface.
func columnLettersToIndex(s string) int64 {
	var n int64
	for _, c := range s {
		n = n*26 + int64(c-'A'+1)
	}
	return n - 1
}

func columnIndexToLetters(col int64) string {
	col++
	var out []byte
	for col > 0 {
		col--
		out = append([]byte{byte('A' + col%26)}, out...)
		col /= 26
	}
	return string(out)
}
