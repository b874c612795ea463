package compute

import (
	"gridcore/internal/formula"
	"gridcore/pkg/grid"
	"gridcore/pkg/value"
)

// FormulaRunner evaluates Language==Formula code cells synchronously
// in-process via internal/formula, the one Runner that never suspends.
type FormulaRunner struct{}

func (FormulaRunner) Run(sheetID grid.SheetID, pos value.Pos, source string, g *grid.Grid) (RunOutcome, error) {
	ctx := formula.NewCtx(g, sheetID)
	v, cerr := formula.Evaluate(source, ctx)
	if cerr != nil {
		return RunOutcome{
			Result:        value.CodeRunResult{Err: cerr},
			CellsAccessed: ctx.CellsAccessed,
		}, nil
	}
	return RunOutcome{
		Result:        value.CodeRunResult{OK: &v},
		CellsAccessed: ctx.CellsAccessed,
	}, nil
}
