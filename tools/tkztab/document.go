package tkztab

import (
	"strings"

	"tabvar-studio/entities/table"
	"tabvar-studio/tools/latex"
)

// Preamble declares the packages the generated picture needs. The h style
// gives hatched intervals their crosshatch fill.
const Preamble = `\usepackage{amsmath,amssymb}
\usepackage{tkz-tab}
\usetikzlibrary{patterns}
\tikzset{h style/.style = {pattern = north west lines}}
`

const documentClass = `\documentclass[border=2pt]{standalone}
\usepackage[utf8]{inputenc}
\usepackage[T1]{fontenc}
`

// Mode selects between a standalone document and a bare picture
type Mode int

const (
	// ModeDocument wraps the picture in a compilable standalone document
	ModeDocument Mode = iota
	// ModeSnippet emits only the tikzpicture environment
	ModeSnippet
)

func (m Mode) String() string {
	if m == ModeSnippet {
		return "snippet"
	}
	return "document"
}

// ParseMode accepts "document" / "full" and "snippet"
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "", "document", "full":
		return ModeDocument, true
	case "snippet":
		return ModeSnippet, true
	}
	return ModeDocument, false
}

// Lines returns the tkz-tab macro calls for a description in emission order
func Lines(d *table.Description) []string {
	lines := []string{HeaderFor(d)}
	if d.HasSign() {
		for _, row := range d.Rows {
			if l := SignLine(row); l != "" {
				lines = append(lines, l)
			}
		}
	}
	if d.HasVariation() && len(d.Variation.Arrows) > 0 {
		lines = append(lines, VariationLine(*d.Variation))
	}
	return lines
}

// Picture returns the tikzpicture block for a description
func Picture(d *table.Description) string {
	var b strings.Builder
	b.WriteString("\\begin{tikzpicture}\n")
	for _, l := range Lines(d) {
		b.WriteString(l)
		b.WriteString("\n")
	}
	if d.Caption != "" {
		b.WriteString(`\node[below, yshift=-2mm] at (current bounding box.south) {`)
		b.WriteString(latex.EscapeText(d.Caption))
		b.WriteString("};\n")
	}
	b.WriteString("\\end{tikzpicture}\n")
	return b.String()
}

// Document returns a standalone document containing the picture
func Document(d *table.Description) string {
	var b strings.Builder
	b.WriteString(documentClass)
	b.WriteString(Preamble)
	b.WriteString("\\begin{document}\n")
	b.WriteString(Picture(d))
	b.WriteString("\\end{document}\n")
	return b.String()
}

// Generate renders a description in the given mode
func Generate(d *table.Description, mode Mode) string {
	if mode == ModeSnippet {
		return Picture(d)
	}
	return Document(d)
}
