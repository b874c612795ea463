package formula

import (
	"github.com/shopspring/decimal"

	"gridcore/pkg/grid"
	"gridcore/pkg/value"
)

// Ctx is the evaluation context threaded through one formula run (§4.6):
// the grid it reads from, the sheet the formula is anchored on, and the
// accumulated set of cells it read (recorded as the code run's
// CellsAccessed, from which §4.5's dependency edges are derived).
type Ctx struct {
	Grid          *grid.Grid
	SheetID       grid.SheetID
	CellsAccessed []value.SheetRect
}

func NewCtx(g *grid.Grid, sheetID grid.SheetID) *Ctx {
	return &Ctx{Grid: g, SheetID: sheetID}
}

func (c *Ctx) record(sheetID string, rect value.Rect) {
	c.CellsAccessed = append(c.CellsAccessed, value.SheetRect{SheetID: sheetID, Rect: rect})
}

// Evaluate parses and runs source against ctx, returning either a value or
// an in-band CellError (never a Go error — malformed formula text is a
// spreadsheet-visible result, not a program failure, §7).
func Evaluate(source string, ctx *Ctx) (value.Value, *value.CellError) {
	n, err := parse(source)
	if err != nil {
		if pe, ok := err.(*parseErr); ok {
			return value.Value{}, &value.CellError{Msg: "#SYNTAX: " + pe.msg}
		}
		return value.Value{}, &value.CellError{Msg: "#SYNTAX: " + err.Error()}
	}
	res, cerr := eval(n, ctx)
	if cerr != nil {
		return value.Value{}, cerr
	}
	return res.toValue(), nil
}

// result is either a single cell value or a 2D array, the two shapes a
// sub-expression can produce (a bare reference vs. a range).
type result struct {
	scalar *value.CellValue
	array  *value.Array
}

func scalarResult(v value.CellValue) result { return result{scalar: &v} }
func arrayResult(a *value.Array) result     { return result{array: a} }

func (r result) toValue() value.Value {
	if r.array != nil {
		return value.ArrayValue(r.array)
	}
	if r.scalar != nil {
		return value.SingleValue(*r.scalar)
	}
	return value.SingleValue(value.Blank())
}

func (r result) asScalar() value.CellValue {
	if r.scalar != nil {
		return *r.scalar
	}
	if r.array != nil {
		return r.array.At(0, 0)
	}
	return value.Blank()
}

func (r result) flatten() []value.CellValue {
	if r.array != nil {
		return r.array.Cells
	}
	if r.scalar != nil {
		return []value.CellValue{*r.scalar}
	}
	return nil
}

func eval(n node, ctx *Ctx) (result, *value.CellError) {
	switch t := n.(type) {
	case numberLit:
		d, err := decimal.NewFromString(t.text)
		if err != nil {
			return result{}, &value.CellError{Msg: "#NUM: invalid numeric literal " + t.text}
		}
		return scalarResult(value.Number(d)), nil
	case stringLit:
		return scalarResult(value.Text(t.s)), nil
	case boolLit:
		return scalarResult(value.Logical(t.b)), nil
	case cellRefNode:
		return evalCellRef(t, ctx)
	case rangeRefNode:
		return evalRangeRef(t, ctx)
	case unaryNode:
		return evalUnary(t, ctx)
	case binaryNode:
		return evalBinary(t, ctx)
	case callNode:
		return evalCall(t, ctx)
	default:
		return result{}, &value.CellError{Msg: "#ERROR: unrecognized expression"}
	}
}

func (ctx *Ctx) resolveSheet(name string, hasSheet bool) (*grid.Sheet, string, *value.CellError) {
	if !hasSheet {
		sheet, ok := ctx.Grid.SheetByID(ctx.SheetID)
		if !ok {
			return nil, "", &value.CellError{Msg: "#REF: current sheet no longer exists"}
		}
		return sheet, string(sheet.ID), nil
	}
	sheet, ok := ctx.Grid.FindSheetByName(name)
	if !ok {
		return nil, "", &value.CellError{Msg: "#REF: unknown sheet " + name}
	}
	return sheet, string(sheet.ID), nil
}

func evalCellRef(n cellRefNode, ctx *Ctx) (result, *value.CellError) {
	sheet, sheetID, cerr := ctx.resolveSheet(n.sheet, n.hasSheet)
	if cerr != nil {
		return result{}, cerr
	}
	v, _ := sheet.GetCellValue(n.pos)
	ctx.record(sheetID, value.Rect{Min: n.pos, Max: n.pos})
	return scalarResult(v), nil
}

func evalRangeRef(n rangeRefNode, ctx *Ctx) (result, *value.CellError) {
	sheet, sheetID, cerr := ctx.resolveSheet(n.sheet, n.hasSheet)
	if cerr != nil {
		return result{}, cerr
	}
	rect := value.NewRect(n.start, n.end)
	ctx.record(sheetID, rect)

	w, h := int(rect.Width()), int(rect.Height())
	arr, err := value.NewArray(w, h)
	if err != nil {
		return result{}, &value.CellError{Msg: "#VALUE: " + err.Error()}
	}
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			p := value.Pos{X: rect.Min.X + int64(dx), Y: rect.Min.Y + int64(dy)}
			v, _ := sheet.GetCellValue(p)
			arr.Set(dx, dy, v)
		}
	}
	return arrayResult(arr), nil
}

func evalUnary(n unaryNode, ctx *Ctx) (result, *value.CellError) {
	operand, cerr := eval(n.operand, ctx)
	if cerr != nil {
		return result{}, cerr
	}
	d, ok := numberOf(operand.asScalar())
	if !ok {
		return result{}, &value.CellError{Msg: "#VALUE: expected a number"}
	}
	return scalarResult(value.Number(d.Neg())), nil
}

func evalBinary(n binaryNode, ctx *Ctx) (result, *value.CellError) {
	left, cerr := eval(n.left, ctx)
	if cerr != nil {
		return result{}, cerr
	}
	right, cerr := eval(n.right, ctx)
	if cerr != nil {
		return result{}, cerr
	}

	switch n.op {
	case "&":
		l := left.asScalar().ToDisplay(nil)
		r := right.asScalar().ToDisplay(nil)
		return scalarResult(value.Text(l + r)), nil
	case "=", "<>", "<", "<=", ">", ">=":
		return evalComparison(n.op, left.asScalar(), right.asScalar())
	default:
		return evalArithmetic(n.op, left.asScalar(), right.asScalar())
	}
}

func evalArithmetic(op string, l, r value.CellValue) (result, *value.CellError) {
	ld, ok1 := numberOf(l)
	rd, ok2 := numberOf(r)
	if !ok1 || !ok2 {
		return result{}, &value.CellError{Msg: "#VALUE: arithmetic requires numbers"}
	}
	switch op {
	case "+":
		return scalarResult(value.Number(ld.Add(rd))), nil
	case "-":
		return scalarResult(value.Number(ld.Sub(rd))), nil
	case "*":
		return scalarResult(value.Number(ld.Mul(rd))), nil
	case "/":
		if rd.IsZero() {
			return result{}, &value.CellError{Msg: "#DIV/0!"}
		}
		return scalarResult(value.Number(ld.Div(rd))), nil
	case "^":
		f, _ := rd.Float64()
		return scalarResult(value.Number(ld.Pow(decimal.NewFromFloat(f)))), nil
	default:
		return result{}, &value.CellError{Msg: "#ERROR: unknown operator " + op}
	}
}

func evalComparison(op string, l, r value.CellValue) (result, *value.CellError) {
	cmp := compareCellValues(l, r)
	var b bool
	switch op {
	case "=":
		b = cmp == 0
	case "<>":
		b = cmp != 0
	case "<":
		b = cmp < 0
	case "<=":
		b = cmp <= 0
	case ">":
		b = cmp > 0
	case ">=":
		b = cmp >= 0
	}
	return scalarResult(value.Logical(b)), nil
}

// compareCellValues compares two values numerically when both coerce to a
// number (numbers, logicals, blanks); otherwise it compares their display
// text.
func compareCellValues(l, r value.CellValue) int {
	ld, lok := numberOf(l)
	rd, rok := numberOf(r)
	if lok && rok {
		return ld.Cmp(rd)
	}
	lt := l.ToDisplay(nil)
	rt := r.ToDisplay(nil)
	switch {
	case lt < rt:
		return -1
	case lt > rt:
		return 1
	default:
		return 0
	}
}

// numberOf coerces a cell value to a decimal the way SUM/arithmetic does:
// numbers pass through, logicals become 0/1, blanks become 0, text fails.
func numberOf(v value.CellValue) (decimal.Decimal, bool) {
	switch v.Kind {
	case value.KindNumber:
		return v.Number, true
	case value.KindLogical:
		if v.Logical {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	case value.KindBlank:
		return decimal.Zero, true
	default:
		return decimal.Decimal{}, false
	}
}
