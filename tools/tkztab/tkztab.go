// Package tkztab renders table descriptions as tkz-tab LaTeX source.
//
// The functions here are pure: they read a table.Description and return
// strings, never mutating their input, and are safe for concurrent use.
// Descriptions are expected to satisfy table.Description.Validate; slices
// that are too short panic on the first out-of-range index.
package tkztab

import (
	"fmt"
	"strconv"
	"strings"

	"tabvar-studio/entities/table"
	"tabvar-studio/tools/latex"
)

const (
	initMacro      = `\tkzTabInit`
	lineMacro      = `\tkzTabLine`
	variationMacro = `\tkzTabVar`

	signWeight      = "1"
	variationWeight = "1.5"
)

// Header emits the \tkzTabInit call declaring the row labels and points.
// A nil layout omits the option group.
func Header(variable string, signLabels, variationLabels, points []string, layout *table.Layout) string {
	specs := make([]string, 0, 1+len(signLabels)+len(variationLabels))
	specs = append(specs, columnSpec(variable, signWeight))
	for _, l := range signLabels {
		specs = append(specs, columnSpec(l, signWeight))
	}
	for _, l := range variationLabels {
		specs = append(specs, columnSpec(l, variationWeight))
	}

	pts := make([]string, len(points))
	for i, p := range points {
		pts[i] = latex.Math(p)
	}

	var b strings.Builder
	b.WriteString(initMacro)
	if layout != nil {
		fmt.Fprintf(&b, "[lgt=%s,espcl=%s,deltacl=%s]",
			formatFloat(layout.ColumnWidth), formatFloat(layout.Spacing), formatFloat(layout.Padding))
	}
	b.WriteString("{")
	b.WriteString(strings.Join(specs, ", "))
	b.WriteString("}{")
	b.WriteString(strings.Join(pts, ", "))
	b.WriteString("}")
	return b.String()
}

// HeaderFor derives the header labels from a description
func HeaderFor(d *table.Description) string {
	var signLabels, variationLabels []string
	if d.HasSign() {
		for _, row := range d.Rows {
			if len(row.Signs) == 0 {
				continue
			}
			signLabels = append(signLabels, row.Label)
		}
		if len(signLabels) == 0 && d.Variation != nil {
			signLabels = []string{d.Variation.Label}
		}
	}
	if d.HasVariation() {
		variationLabels = []string{d.Variation.Label}
	}
	return Header(d.Variable, signLabels, variationLabels, d.Points, d.Layout)
}

func columnSpec(label, weight string) string {
	return latex.Math(label) + " / " + weight
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// SignTokens returns the alternating mark/sign sequence of a sign row:
// mark_0, sign_0, mark_1, ..., sign_{N-2}, mark_{N-1}.
func SignTokens(row table.ExpressionRow) []string {
	n := len(row.Signs) + 1
	tokens := make([]string, 0, 2*n-1)
	for i := 0; i < n; i++ {
		tokens = append(tokens, row.Marks[i].Code())
		if i < n-1 {
			tokens = append(tokens, row.Signs[i].Code())
		}
	}
	return tokens
}

// SignLine emits the \tkzTabLine call for a row, or "" when the row has no
// intervals.
func SignLine(row table.ExpressionRow) string {
	if len(row.Signs) == 0 {
		return ""
	}
	return lineMacro + "{" + strings.Join(SignTokens(row), ", ") + "}"
}
