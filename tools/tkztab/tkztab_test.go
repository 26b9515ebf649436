package tkztab

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabvar-studio/entities/table"
)

func variation(arrows []table.Arrow, values []string) table.VariationRow {
	n := len(values)
	return table.VariationRow{
		Label:      "f",
		Arrows:     arrows,
		Values:     values,
		LeftValues: make([]string, n),
		Kinds:      make([]table.PointKind, n),
	}
}

func TestSignTokensBasicTable(t *testing.T) {
	row := table.ExpressionRow{
		Label: "x",
		Signs: []table.Sign{table.Negative, table.Positive},
		Marks: []table.PointMark{table.None, table.Zero, table.None},
	}

	want := []string{"", "-", "z", "+", ""}
	if diff := cmp.Diff(want, SignTokens(row)); diff != "" {
		t.Errorf("SignTokens mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, `\tkzTabLine{, -, z, +, }`, SignLine(row))
}

func TestSignTokensAllCodes(t *testing.T) {
	row := table.ExpressionRow{
		Signs: []table.Sign{table.Positive, table.HatchedSign, table.Negative},
		Marks: []table.PointMark{table.Forbidden, table.Undefined, table.Undefined, table.Zero},
	}
	want := []string{"t", "+", "d", "h", "d", "-", "z"}
	if diff := cmp.Diff(want, SignTokens(row)); diff != "" {
		t.Errorf("SignTokens mismatch (-want +got):\n%s", diff)
	}
}

func TestSignLineSkipsRowsWithoutIntervals(t *testing.T) {
	assert.Equal(t, "", SignLine(table.ExpressionRow{Label: "empty"}))
}

func TestSignTokenCount(t *testing.T) {
	signs := []table.Sign{table.Positive, table.Negative, table.HatchedSign}
	marks := []table.PointMark{table.None, table.Zero, table.Undefined, table.Forbidden}
	for n := 2; n <= 8; n++ {
		row := table.ExpressionRow{}
		for i := 0; i < n; i++ {
			row.Marks = append(row.Marks, marks[i%len(marks)])
			if i < n-1 {
				row.Signs = append(row.Signs, signs[i%len(signs)])
			}
		}
		tokens := SignTokens(row)
		require.Len(t, tokens, 2*n-1, "n=%d", n)
		assert.Equal(t, row.Marks[0].Code(), tokens[0])
		assert.Equal(t, row.Marks[n-1].Code(), tokens[len(tokens)-1])
	}
}

func TestVariationTokens(t *testing.T) {
	up, down, hatch := table.Increasing, table.Decreasing, table.HatchedArrow

	tests := []struct {
		name   string
		arrows []table.Arrow
		values []string
		want   []string
	}{
		{
			name:   "local maximum",
			arrows: []table.Arrow{up, down},
			values: []string{"v0", "v1", "v2"},
			want:   []string{"-/ $v0$", "+/ $v1$", "-/ $v2$"},
		},
		{
			name:   "local minimum",
			arrows: []table.Arrow{down, up},
			values: []string{"+∞", "-2", "+∞"},
			want:   []string{`+/ $+\infty$`, "-/ $-2$", `+/ $+\infty$`},
		},
		{
			name:   "hatched middle interval",
			arrows: []table.Arrow{up, hatch, down},
			values: []string{"v0", "v1", "v2", "v3"},
			want:   []string{"-/ $v0$", "+H/ $v1$", "+/ $v2$", "-/ $v3$"},
		},
		{
			name:   "hatched from the start",
			arrows: []table.Arrow{hatch, up},
			values: []string{"a", "b", "c"},
			want:   []string{"-H/ $a$", "-/ $b$", "+/ $c$"},
		},
		{
			name:   "hatched zone spanning a point",
			arrows: []table.Arrow{hatch, hatch},
			values: []string{"a", "b", "c"},
			want:   []string{"-H/ $a$", "R/", "-/ $c$"},
		},
		{
			name:   "entering hatch after decrease",
			arrows: []table.Arrow{down, hatch, up},
			values: []string{"a", "b", "c", "d"},
			want:   []string{"+/ $a$", "-H/ $b$", "-/ $c$", "+/ $d$"},
		},
		{
			name:   "increasing pass-through",
			arrows: []table.Arrow{up, up},
			values: []string{"a", "b", "c"},
			want:   []string{"-/ $a$", "-/ $b$", "+/ $c$"},
		},
		{
			name:   "decreasing pass-through",
			arrows: []table.Arrow{down, down},
			values: []string{"a", "b", "c"},
			want:   []string{"+/ $a$", "+/ $b$", "-/ $c$"},
		},
		{
			name:   "blank value",
			arrows: []table.Arrow{up},
			values: []string{"", "1"},
			want:   []string{"-/ $~$", "+/ $1$"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VariationTokens(variation(tt.arrows, tt.values))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("VariationTokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVariationTokensDoubleBar(t *testing.T) {
	t.Run("interior", func(t *testing.T) {
		row := variation([]table.Arrow{table.Increasing, table.Increasing}, []string{"0", "R", "5"})
		row.LeftValues = []string{"", "L", ""}
		row.Kinds = []table.PointKind{table.Normal, table.DoubleBar, table.Normal}

		got := VariationTokens(row)
		assert.Equal(t, "+D-/ $L$ / $R$", got[1])
	})

	t.Run("first point", func(t *testing.T) {
		row := variation([]table.Arrow{table.Decreasing}, []string{"+∞", "0"})
		row.Kinds = []table.PointKind{table.DoubleBar, table.Normal}

		got := VariationTokens(row)
		assert.Equal(t, `D+/ $+\infty$`, got[0])
	})

	t.Run("last point uses left value", func(t *testing.T) {
		row := variation([]table.Arrow{table.Increasing}, []string{"0", "ignored"})
		row.LeftValues = []string{"", "+∞"}
		row.Kinds = []table.PointKind{table.Normal, table.DoubleBar}

		got := VariationTokens(row)
		assert.Equal(t, `+D/ $+\infty$`, got[1])
	})

	t.Run("takes precedence over hatching", func(t *testing.T) {
		row := variation([]table.Arrow{table.Decreasing, table.HatchedArrow}, []string{"a", "b", "c"})
		row.LeftValues = []string{"", "l", ""}
		row.Kinds = []table.PointKind{table.Normal, table.DoubleBar, table.Normal}

		got := VariationTokens(row)
		assert.Equal(t, "-D-/ $l$ / $b$", got[1])
	})
}

func TestVariationTokenCount(t *testing.T) {
	all := []table.Arrow{table.Increasing, table.Decreasing, table.HatchedArrow}
	for n := 2; n <= 6; n++ {
		combos := 1
		for i := 0; i < n-1; i++ {
			combos *= len(all)
		}
		for c := 0; c < combos; c++ {
			arrows := make([]table.Arrow, n-1)
			k := c
			for i := range arrows {
				arrows[i] = all[k%len(all)]
				k /= len(all)
			}
			values := make([]string, n)
			for i := range values {
				values[i] = "v"
			}
			tokens := VariationTokens(variation(arrows, values))
			require.Len(t, tokens, n, "arrows=%v", arrows)
			for i, tok := range tokens {
				assert.NotEmpty(t, tok, "arrows=%v point=%d", arrows, i)
				assert.NotContains(t, tok, "$$", "arrows=%v point=%d", arrows, i)
			}
		}
	}
}

func TestVariationLine(t *testing.T) {
	row := variation([]table.Arrow{table.Increasing, table.Decreasing}, []string{"0", "1", "0"})
	assert.Equal(t, `\tkzTabVar{-/ $0$, +/ $1$, -/ $0$}`, VariationLine(row))
}

func TestVariationTokensPanicsOnShortSlices(t *testing.T) {
	row := table.VariationRow{
		Arrows: []table.Arrow{table.Increasing, table.Decreasing},
		Values: []string{"a"},
		Kinds:  []table.PointKind{table.Normal, table.Normal, table.Normal},
	}
	assert.Panics(t, func() { VariationTokens(row) })
}

func TestHeader(t *testing.T) {
	points := []string{"-∞", "0", "+∞"}

	got := Header("x", []string{"x+1"}, []string{"f(x)"}, points, &table.Layout{ColumnWidth: 2, Spacing: 2.5, Padding: 0.5})
	assert.Equal(t, `\tkzTabInit[lgt=2,espcl=2.5,deltacl=0.5]{$x$ / 1, $x+1$ / 1, $f(x)$ / 1.5}{$-\infty$, $0$, $+\infty$}`, got)

	got = Header("t", nil, []string{"g"}, []string{"0", ""}, nil)
	assert.Equal(t, `\tkzTabInit{$t$ / 1, $g$ / 1.5}{$0$, $~$}`, got)
}

func sampleDescription() *table.Description {
	return &table.Description{
		Variable: "x",
		Kind:     table.Both,
		Points:   []string{"-∞", "-1", "+∞"},
		Rows: []table.ExpressionRow{
			{
				Label: "x+1",
				Signs: []table.Sign{table.Negative, table.Positive},
				Marks: []table.PointMark{table.None, table.Zero, table.None},
			},
		},
		Variation: &table.VariationRow{
			Label:      "f(x)",
			Arrows:     []table.Arrow{table.Decreasing, table.Increasing},
			Values:     []string{"+∞", "-2", "+∞"},
			LeftValues: []string{"", "", ""},
			Kinds:      []table.PointKind{table.Normal, table.Normal, table.Normal},
		},
	}
}

func TestPicture(t *testing.T) {
	want := `\begin{tikzpicture}
\tkzTabInit{$x$ / 1, $x+1$ / 1, $f(x)$ / 1.5}{$-\infty$, $-1$, $+\infty$}
\tkzTabLine{, -, z, +, }
\tkzTabVar{+/ $+\infty$, -/ $-2$, +/ $+\infty$}
\end{tikzpicture}
`
	assert.Equal(t, want, Picture(sampleDescription()))
}

func TestHeaderForFallsBackToFunctionLabel(t *testing.T) {
	d := sampleDescription()
	d.Rows = nil

	assert.Equal(t, `\tkzTabInit{$x$ / 1, $f(x)$ / 1, $f(x)$ / 1.5}{$-\infty$, $-1$, $+\infty$}`, HeaderFor(d))
}

func TestLinesByKind(t *testing.T) {
	d := sampleDescription()

	d.Kind = table.SignOnly
	lines := Lines(d)
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "1.5")
	assert.True(t, strings.HasPrefix(lines[1], `\tkzTabLine`))

	d.Kind = table.VariationOnly
	lines = Lines(d)
	require.Len(t, lines, 2)
	assert.Equal(t, `\tkzTabInit{$x$ / 1, $f(x)$ / 1.5}{$-\infty$, $-1$, $+\infty$}`, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `\tkzTabVar`))
}

func TestModesShareDrawingBlock(t *testing.T) {
	d := sampleDescription()
	d.Layout = &table.Layout{ColumnWidth: 1.5, Spacing: 2, Padding: 0.5}

	snippet := Generate(d, ModeSnippet)
	doc := Generate(d, ModeDocument)

	assert.Equal(t, Picture(d), snippet)
	assert.Contains(t, doc, snippet)
	assert.True(t, strings.HasPrefix(doc, `\documentclass`))
	assert.Contains(t, doc, Preamble)
	assert.Contains(t, doc, `\tikzset{h style/.style = {pattern = north west lines}}`)
	assert.True(t, strings.HasSuffix(doc, "\\end{document}\n"))
	assert.NotContains(t, snippet, `\usepackage`)
}

func TestCaptionIsEscaped(t *testing.T) {
	d := sampleDescription()
	d.Caption = "Variations de f & g (100%)"

	assert.Contains(t, Picture(d), `{Variations de f \& g (100\%)};`)
}

func TestGenerateDoesNotMutateInput(t *testing.T) {
	d := sampleDescription()
	before := *d.Variation
	_ = Generate(d, ModeDocument)
	assert.Equal(t, before, *d.Variation)
	assert.Equal(t, []string{"-∞", "-1", "+∞"}, d.Points)
}

func TestGenerateConcurrent(t *testing.T) {
	d := sampleDescription()
	want := Generate(d, ModeDocument)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, Generate(d, ModeDocument))
		}()
	}
	wg.Wait()
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode("snippet")
	assert.True(t, ok)
	assert.Equal(t, ModeSnippet, m)

	m, ok = ParseMode("")
	assert.True(t, ok)
	assert.Equal(t, ModeDocument, m)

	_, ok = ParseMode("pdf")
	assert.False(t, ok)
}
