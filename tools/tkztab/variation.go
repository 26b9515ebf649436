package tkztab

import (
	"strings"

	"tabvar-studio/entities/table"
	"tabvar-studio/tools/latex"
)

// neighbor is the arrow on one side of a point; ok is false at the ends
type neighbor struct {
	arrow table.Arrow
	ok    bool
}

func (n neighbor) is(a table.Arrow) bool {
	return n.ok && n.arrow == a
}

// inPos is where a value sits when reached through the incoming arrow
func inPos(prev neighbor) string {
	switch prev.arrow {
	case table.Increasing:
		return "+"
	case table.Decreasing:
		return "-"
	default:
		return "-"
	}
}

// outPos is where a value sits when left through the outgoing arrow
func outPos(next neighbor) string {
	switch next.arrow {
	case table.Increasing:
		return "-"
	case table.Decreasing:
		return "+"
	default:
		return "-"
	}
}

// VariationTokens returns one tkz-tab token per point of the variation row.
//
// tkz-tab places a value at the top (+) or bottom (-) of the row; the
// position is inferred from the arrows on either side of the point. Rules
// are tried in order and the first match wins:
//
//  1. double bar:      D+/ v, +D-/ l / r, -D/ l
//  2. entering hatch:  +H/ v
//  3. inside hatch:    R/
//  4. leaving hatch:   -/ v
//  5. plain point:     +/ v or -/ v
func VariationTokens(row table.VariationRow) []string {
	n := len(row.Arrows) + 1
	tokens := make([]string, n)
	for i := 0; i < n; i++ {
		var prev, next neighbor
		if i > 0 {
			prev = neighbor{arrow: row.Arrows[i-1], ok: true}
		}
		if i < n-1 {
			next = neighbor{arrow: row.Arrows[i], ok: true}
		}
		tokens[i] = variationToken(row, i, prev, next)
	}
	return tokens
}

func variationToken(row table.VariationRow, i int, prev, next neighbor) string {
	value := latex.Math(row.Values[i])
	hatchedIn := prev.is(table.HatchedArrow)
	hatchedOut := next.is(table.HatchedArrow)

	switch {
	case row.Kinds[i] == table.DoubleBar:
		switch {
		case !prev.ok:
			return "D" + outPos(next) + "/ " + value
		case !next.ok:
			return inPos(prev) + "D/ " + latex.Math(row.LeftValues[i])
		default:
			return inPos(prev) + "D" + outPos(next) + "/ " + latex.Math(row.LeftValues[i]) + " / " + value
		}

	case hatchedOut && !hatchedIn:
		pos := outPos(next)
		switch {
		case prev.is(table.Increasing):
			pos = "+"
		case prev.is(table.Decreasing):
			pos = "-"
		}
		return pos + "H/ " + value

	case hatchedIn && hatchedOut:
		return "R/"

	case hatchedIn:
		pos := inPos(prev)
		switch {
		case next.is(table.Increasing):
			pos = "-"
		case next.is(table.Decreasing):
			pos = "+"
		}
		return pos + "/ " + value
	}

	switch {
	case !prev.ok:
		return outPos(next) + "/ " + value
	case !next.ok:
		return inPos(prev) + "/ " + value
	case prev.arrow == table.Increasing && next.arrow == table.Decreasing:
		// local maximum
		return "+/ " + value
	case prev.arrow == table.Decreasing && next.arrow == table.Increasing:
		// local minimum
		return "-/ " + value
	case next.arrow == table.Increasing:
		return "-/ " + value
	default:
		return "+/ " + value
	}
}

// VariationLine emits the \tkzTabVar call for the variation row
func VariationLine(row table.VariationRow) string {
	return variationMacro + "{" + strings.Join(VariationTokens(row), ", ") + "}"
}
