// Package latex converts user-entered math text into LaTeX.
package latex

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Symbol is one Unicode glyph and the macro that replaces it
type Symbol struct {
	Glyph string
	Macro string
}

// symbols is checked in order; glyphs are matched literally
var symbols = []Symbol{
	{"∞", `\infty`},
	{"π", `\pi`},
	{"√", `\sqrt`},
	{"≤", `\leq`},
	{"≥", `\geq`},
	{"≠", `\neq`},
	{"±", `\pm`},
	{"×", `\times`},
	{"÷", `\div`},
	{"·", `\cdot`},
	{"→", `\to`},
	{"∈", `\in`},
	{"∅", `\emptyset`},
	{"ℝ", `\mathbb{R}`},
	{"α", `\alpha`},
	{"β", `\beta`},
	{"γ", `\gamma`},
	{"δ", `\delta`},
	{"ε", `\varepsilon`},
	{"ζ", `\zeta`},
	{"η", `\eta`},
	{"θ", `\theta`},
	{"ι", `\iota`},
	{"κ", `\kappa`},
	{"λ", `\lambda`},
	{"μ", `\mu`},
	{"ν", `\nu`},
	{"ξ", `\xi`},
	{"ρ", `\rho`},
	{"σ", `\sigma`},
	{"τ", `\tau`},
	{"υ", `\upsilon`},
	{"φ", `\varphi`},
	{"χ", `\chi`},
	{"ψ", `\psi`},
	{"ω", `\omega`},
	{"Γ", `\Gamma`},
	{"Δ", `\Delta`},
	{"Θ", `\Theta`},
	{"Λ", `\Lambda`},
	{"Ξ", `\Xi`},
	{"Π", `\Pi`},
	{"Σ", `\Sigma`},
	{"Φ", `\Phi`},
	{"Ψ", `\Psi`},
	{"Ω", `\Omega`},
}

// BlankMath is emitted in place of an empty math group
const BlankMath = "$~$"

// Symbols returns the substitution table in match order
func Symbols() []Symbol {
	out := make([]Symbol, len(symbols))
	copy(out, symbols)
	return out
}

// Normalize replaces known Unicode math glyphs with LaTeX macros.
// Strings that already contain a backslash are treated as LaTeX and
// returned unchanged.
func Normalize(s string) string {
	if strings.Contains(s, `\`) {
		return s
	}
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		macro, width := match(s[i:])
		if width == 0 {
			_, size := utf8.DecodeRuneInString(s[i:])
			b.WriteString(s[i : i+size])
			i += size
			continue
		}
		b.WriteString(macro)
		i += width
		// \inftyx would be read as one control word
		if i < len(s) && isASCIILetter(s[i]) && !strings.HasSuffix(macro, "}") {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func match(s string) (string, int) {
	for _, sym := range symbols {
		if strings.HasPrefix(s, sym.Glyph) {
			return sym.Macro, len(sym.Glyph)
		}
	}
	return "", 0
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Math wraps a value in inline math delimiters. Blank values become
// BlankMath so macro arguments never contain an empty group.
func Math(s string) string {
	if strings.TrimSpace(s) == "" {
		return BlankMath
	}
	return "$" + Normalize(s) + "$"
}

var textEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// EscapeText escapes LaTeX special characters in plain (non-math) text
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}
