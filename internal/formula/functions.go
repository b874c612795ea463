package formula

import (
	"strings"

	"github.com/shopspring/decimal"

	"gridcore/pkg/value"
)

// evalCall dispatches a function call node to its implementation (§4.6:
// "SUM, AVERAGE, MIN, MAX, COUNT, IF, CONCAT"). IF evaluates lazily so its
// untaken branch contributes neither a value nor a CellsAccessed entry;
// every other function evaluates all arguments eagerly.
func evalCall(n callNode, ctx *Ctx) (result, *value.CellError) {
	name := strings.ToUpper(n.name)

	if name == "IF" {
		return evalIf(n, ctx)
	}

	args := make([]result, len(n.args))
	for i, a := range n.args {
		r, cerr := eval(a, ctx)
		if cerr != nil {
			return result{}, cerr
		}
		args[i] = r
	}

	switch name {
	case "SUM":
		return evalSum(args)
	case "AVERAGE":
		return evalAverage(args)
	case "MIN":
		return evalMinMax(args, true)
	case "MAX":
		return evalMinMax(args, false)
	case "COUNT":
		return evalCount(args)
	case "CONCAT":
		return evalConcat(args)
	default:
		return result{}, &value.CellError{Msg: "#NAME?: unknown function " + n.name}
	}
}

func evalIf(n callNode, ctx *Ctx) (result, *value.CellError) {
	if len(n.args) < 2 || len(n.args) > 3 {
		return result{}, &value.CellError{Msg: "#ERROR: IF expects 2 or 3 arguments"}
	}
	cond, cerr := eval(n.args[0], ctx)
	if cerr != nil {
		return result{}, cerr
	}
	truthy := isTruthy(cond.asScalar())
	if truthy {
		return eval(n.args[1], ctx)
	}
	if len(n.args) == 3 {
		return eval(n.args[2], ctx)
	}
	return scalarResult(value.Logical(false)), nil
}

func isTruthy(v value.CellValue) bool {
	switch v.Kind {
	case value.KindLogical:
		return v.Logical
	case value.KindNumber:
		return !v.Number.IsZero()
	case value.KindBlank:
		return false
	default:
		return v.ToDisplay(nil) != ""
	}
}

// numericCells flattens every arg's scalar/array into its numeric cells,
// skipping non-numeric ones the way SUM/AVERAGE/MIN/MAX skip text (§4.6).
func numericCells(args []result) []decimal.Decimal {
	var out []decimal.Decimal
	for _, a := range args {
		for _, v := range a.flatten() {
			if v.Kind == value.KindBlank {
				continue
			}
			if d, ok := numberOf(v); ok {
				out = append(out, d)
			}
		}
	}
	return out
}

func evalSum(args []result) (result, *value.CellError) {
	sum := decimal.Zero
	for _, d := range numericCells(args) {
		sum = sum.Add(d)
	}
	return scalarResult(value.Number(sum)), nil
}

func evalAverage(args []result) (result, *value.CellError) {
	nums := numericCells(args)
	if len(nums) == 0 {
		return result{}, &value.CellError{Msg: "#DIV/0!"}
	}
	sum := decimal.Zero
	for _, d := range nums {
		sum = sum.Add(d)
	}
	return scalarResult(value.Number(sum.Div(decimal.NewFromInt(int64(len(nums)))))), nil
}

func evalMinMax(args []result, wantMin bool) (result, *value.CellError) {
	nums := numericCells(args)
	if len(nums) == 0 {
		return scalarResult(value.NumberFromInt(0)), nil
	}
	best := nums[0]
	for _, d := range nums[1:] {
		if (wantMin && d.LessThan(best)) || (!wantMin && d.GreaterThan(best)) {
			best = d
		}
	}
	return scalarResult(value.Number(best)), nil
}

func evalCount(args []result) (result, *value.CellError) {
	return scalarResult(value.NumberFromInt(int64(len(numericCells(args))))), nil
}

func evalConcat(args []result) (result, *value.CellError) {
	var sb strings.Builder
	for _, a := range args {
		for _, v := range a.flatten() {
			sb.WriteString(v.ToDisplay(nil))
		}
	}
	return scalarResult(value.Text(sb.String())), nil
}
