package value

import "time"

// Language identifies the runtime a code cell's source runs under.
type Language string

const (
	LanguageFormula    Language = "Formula"
	LanguagePython     Language = "Python"
	LanguageJavascript Language = "Javascript"
)

// IsAsync reports whether this language suspends the transaction while an
// external runtime computes the result (§5).
func (l Language) IsAsync() bool {
	return l != LanguageFormula
}

// CodeCellValue is the anchor-cell payload for a Code value (§3).
type CodeCellValue struct {
	Language     Language
	Source       string
	LastModified time.Time
	Output       *CodeRun
}

// CodeRunResult is the Ok/Err union of a CodeRun.
type CodeRunResult struct {
	OK    *Value
	Err   *CellError
}

// Value is the result shape produced by the formula engine and by code-cell
// runtimes: either a single CellValue or a 2D Array.
type Value struct {
	Single *CellValue
	Array  *Array
}

func SingleValue(v CellValue) Value { return Value{Single: &v} }
func ArrayValue(a *Array) Value     { return Value{Array: a} }

// OutputSize returns the w×h extent of v: 1×1 for a single value, else the
// array's dimensions.
func (v Value) OutputSize() (w, h int64) {
	if v.Array != nil {
		return int64(v.Array.W), int64(v.Array.H)
	}
	return 1, 1
}

// AsSingle collapses an array result to its top-left cell, used when a
// formula consumer expects a scalar.
func (v Value) AsSingle() CellValue {
	if v.Single != nil {
		return *v.Single
	}
	if v.Array != nil && len(v.Array.Cells) > 0 {
		return v.Array.Cells[0]
	}
	return Blank()
}

// CodeRun is the result of the most recent execution of a code cell (§3).
type CodeRun struct {
	Result        CodeRunResult
	StdOut        string
	StdErr        string
	FormattedCode string
	CellsAccessed []SheetRect
	SpillError    bool
	LastModified  time.Time
}

// OutputSize returns 1×1 for an Err result or a single value, else the
// array extent, per §3.
func (r *CodeRun) OutputSize() (w, h int64) {
	if r == nil || r.Result.OK == nil {
		return 1, 1
	}
	return r.Result.OK.OutputSize()
}

// displayResult renders the current output as text for the anchor cell.
func (r *CodeRun) displayResult(format *NumericFormat) string {
	if r == nil {
		return ""
	}
	if r.SpillError {
		return ""
	}
	if r.Result.Err != nil {
		return "#ERROR: " + r.Result.Err.Msg
	}
	if r.Result.OK != nil {
		return r.Result.OK.AsSingle().ToDisplay(format)
	}
	return ""
}
