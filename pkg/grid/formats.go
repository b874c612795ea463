package grid

import "gridcore/pkg/value"

// Align is the horizontal alignment formatting attribute.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// RenderSize overrides the display size of a cell (used by code-cell chart
// outputs and similar); it is carried as an opaque formatting attribute.
type RenderSize struct {
	W, H float64
}

// ColumnFormats holds the per-attribute run-length-encoded formatting state
// of one column, over the y axis (§3, §4.1).
type ColumnFormats struct {
	Align           RunList[Align]
	Wrap            RunList[bool]
	Bold            RunList[bool]
	Italic          RunList[bool]
	TextColor       RunList[string]
	FillColor       RunList[string]
	NumericFormat   RunList[value.FormatKind]
	NumericDecimals RunList[int]
	NumericCommas   RunList[bool]
	RenderSize      RunList[RenderSize]
}

// NumericFormatAt reassembles a *value.NumericFormat from the three
// separate numeric-formatting runs, or nil if nothing is set at y.
func (f *ColumnFormats) NumericFormatAt(y int64) *value.NumericFormat {
	kind := f.NumericFormat.At(y)
	decimals := f.NumericDecimals.At(y)
	commas := f.NumericCommas.At(y)
	if kind == nil && decimals == nil && commas == nil {
		return nil
	}
	nf := value.NumericFormat{Decimals: 2}
	if kind != nil {
		nf.Kind = *kind
	}
	if decimals != nil {
		nf.Decimals = *decimals
	}
	if commas != nil {
		nf.Commas = *commas
	}
	return &nf
}

// FormatAttr tags which formatting attribute a CellFmtArray carries (§4.2):
// "attr is a discriminated enum tagged by which formatting attribute."
type FormatAttr int

const (
	AttrAlign FormatAttr = iota
	AttrWrap
	AttrBold
	AttrItalic
	AttrTextColor
	AttrFillColor
	AttrNumericFormat
	AttrNumericDecimals
	AttrNumericCommas
	AttrRenderSize
)

// CellFmtArray is the discriminated payload of SetCellFormats: one
// formatting attribute plus a run-length-encoded value list covering the
// operation's rect height. Exactly one of the typed slices is populated,
// matching FormatAttr.
type CellFmtArray struct {
	Attr            FormatAttr
	Align           RunList[Align]
	Wrap            RunList[bool]
	Bold            RunList[bool]
	Italic          RunList[bool]
	TextColor       RunList[string]
	FillColor       RunList[string]
	NumericFormat   RunList[value.FormatKind]
	NumericDecimals RunList[int]
	NumericCommas   RunList[bool]
	RenderSize      RunList[RenderSize]
}

// Len returns the total covered length of the populated run list, used to
// validate "the correct length" contract from §4.2.
func (c CellFmtArray) Len() int64 {
	var total int64
	switch c.Attr {
	case AttrAlign:
		total = sumLen(c.Align)
	case AttrWrap:
		total = sumLen(c.Wrap)
	case AttrBold:
		total = sumLen(c.Bold)
	case AttrItalic:
		total = sumLen(c.Italic)
	case AttrTextColor:
		total = sumLen(c.TextColor)
	case AttrFillColor:
		total = sumLen(c.FillColor)
	case AttrNumericFormat:
		total = sumLen(c.NumericFormat)
	case AttrNumericDecimals:
		total = sumLen(c.NumericDecimals)
	case AttrNumericCommas:
		total = sumLen(c.NumericCommas)
	case AttrRenderSize:
		total = sumLen(c.RenderSize)
	}
	return total
}

func sumLen[T comparable](rl RunList[T]) int64 {
	var total int64
	for _, s := range rl {
		total += s.Length
	}
	return total
}
