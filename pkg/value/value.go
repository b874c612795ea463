// Package value defines the typed cell value sum type and the small
// geometric types (Pos, Rect) the rest of the engine builds on.
package value

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind tags which variant of CellValue is populated.
type Kind int

const (
	KindBlank Kind = iota
	KindText
	KindNumber
	KindLogical
	KindHTML
	KindCode
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindLogical:
		return "logical"
	case KindHTML:
		return "html"
	case KindCode:
		return "code"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// FormatKind selects how a Number is displayed.
type FormatKind int

const (
	FormatPlain FormatKind = iota
	FormatCurrency
	FormatPercentage
	FormatExponential
)

// NumericFormat controls the display of a Number cell.
type NumericFormat struct {
	Kind     FormatKind
	Decimals int
	Commas   bool
}

// CellError is the boxed payload of the Error variant. It is in-band
// spreadsheet data, never a Go error returned up a call stack.
type CellError struct {
	Msg  string
	Span *[2]int // optional [start,end) offset into the originating formula text
}

// CellValue is the tagged sum type described in §3. Only the field matching
// Kind is meaningful; zero-value CellValue{} is Blank.
type CellValue struct {
	Kind    Kind
	Text    string
	Number  decimal.Decimal
	Logical bool
	HTML    string
	Code    *CodeCellValue
	Err     *CellError
}

func Blank() CellValue { return CellValue{Kind: KindBlank} }

func Text(s string) CellValue { return CellValue{Kind: KindText, Text: s} }

func Number(d decimal.Decimal) CellValue { return CellValue{Kind: KindNumber, Number: d} }

func NumberFromInt(i int64) CellValue {
	return CellValue{Kind: KindNumber, Number: decimal.NewFromInt(i)}
}

func Logical(b bool) CellValue { return CellValue{Kind: KindLogical, Logical: b} }

func HTML(s string) CellValue { return CellValue{Kind: KindHTML, HTML: s} }

func Code(c *CodeCellValue) CellValue { return CellValue{Kind: KindCode, Code: c} }

func Error(msg string) CellValue {
	return CellValue{Kind: KindError, Err: &CellError{Msg: msg}}
}

func ErrorAt(msg string, start, end int) CellValue {
	return CellValue{Kind: KindError, Err: &CellError{Msg: msg, Span: &[2]int{start, end}}}
}

// IsBlank reports whether v holds no value.
func (v CellValue) IsBlank() bool { return v.Kind == KindBlank }

// ToDisplay renders v as locale-neutral display text. Number formatting uses
// the decimal's own String form when format is nil (plain, no trailing zero
// padding, "0" for zero).
func (v CellValue) ToDisplay(format *NumericFormat) string {
	switch v.Kind {
	case KindBlank:
		return ""
	case KindText:
		return v.Text
	case KindNumber:
		return displayNumber(v.Number, format)
	case KindLogical:
		if v.Logical {
			return "TRUE"
		}
		return "FALSE"
	case KindHTML:
		return v.HTML
	case KindCode:
		if v.Code != nil && v.Code.Output != nil {
			return v.Code.Output.displayResult(format)
		}
		return ""
	case KindError:
		if v.Err != nil {
			return "#ERROR: " + v.Err.Msg
		}
		return "#ERROR"
	default:
		return ""
	}
}

func displayNumber(d decimal.Decimal, format *NumericFormat) string {
	if format == nil {
		if d.IsZero() {
			return "0"
		}
		return d.String()
	}

	rounded := d.Round(int32(format.Decimals))
	s := rounded.StringFixed(int32(format.Decimals))
	if format.Commas {
		s = addThousandsCommas(s)
	}

	switch format.Kind {
	case FormatCurrency:
		return "$" + s
	case FormatPercentage:
		return rounded.Mul(decimal.NewFromInt(100)).StringFixed(int32(format.Decimals)) + "%"
	case FormatExponential:
		return d.String()
	default:
		return s
	}
}

func addThousandsCommas(s string) string {
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	intPart := s
	frac := ""
	if i := indexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		frac = s[i:]
	}
	var out []byte
	for i, c := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	result := string(out) + frac
	if neg {
		result = "-" + result
	}
	return result
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// Array is a dense, row-major 2D grid of CellValue.
type Array struct {
	W, H  int
	Cells []CellValue
}

// NewArray constructs a w×h array filled with blanks. Returns an error for
// non-positive dimensions, matching the §8 boundary requirement that empty
// array construction fails cleanly.
func NewArray(w, h int) (*Array, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("array dimensions must be positive, got %dx%d", w, h)
	}
	return &Array{W: w, H: h, Cells: make([]CellValue, w*h)}, nil
}

// NewArrayFrom builds an array from row-major cells, validating length.
func NewArrayFrom(w, h int, cells []CellValue) (*Array, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("array dimensions must be positive, got %dx%d", w, h)
	}
	if len(cells) != w*h {
		return nil, fmt.Errorf("array cell count %d does not match %dx%d", len(cells), w, h)
	}
	return &Array{W: w, H: h, Cells: cells}, nil
}

func (a *Array) At(x, y int) CellValue {
	if x < 0 || y < 0 || x >= a.W || y >= a.H {
		return Blank()
	}
	return a.Cells[y*a.W+x]
}

func (a *Array) Set(x, y int, v CellValue) {
	if x < 0 || y < 0 || x >= a.W || y >= a.H {
		return
	}
	a.Cells[y*a.W+x] = v
}
