// Package table describes sign and variation tables as edited by the user.
//
// A Description is a read-only snapshot handed to the generator. The
// invariants on slice lengths are checked by Validate; the generator itself
// assumes they hold.
package table

import (
	"errors"
	"fmt"
)

// Description is a complete sign/variation table
type Description struct {
	Variable  string          `json:"variable" yaml:"variable"`
	Kind      Kind            `json:"kind" yaml:"kind"`
	Points    []string        `json:"points" yaml:"points"`
	Rows      []ExpressionRow `json:"rows,omitempty" yaml:"rows,omitempty"`
	Variation *VariationRow   `json:"variation,omitempty" yaml:"variation,omitempty"`
	Layout    *Layout         `json:"layout,omitempty" yaml:"layout,omitempty"`
	Caption   string          `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// ExpressionRow is one sign row
type ExpressionRow struct {
	Label string      `json:"label" yaml:"label"`
	Signs []Sign      `json:"signs" yaml:"signs"`
	Marks []PointMark `json:"marks" yaml:"marks"`
}

// VariationRow is the variation row of the function
type VariationRow struct {
	Label      string      `json:"label" yaml:"label"`
	Arrows     []Arrow     `json:"arrows" yaml:"arrows"`
	Values     []string    `json:"values" yaml:"values"`
	LeftValues []string    `json:"left_values,omitempty" yaml:"left_values,omitempty"`
	Kinds      []PointKind `json:"kinds,omitempty" yaml:"kinds,omitempty"`
}

// Layout holds the tkz-tab spacing options, in centimetres
type Layout struct {
	ColumnWidth float64 `json:"lgt" yaml:"lgt"`
	Spacing     float64 `json:"espcl" yaml:"espcl"`
	Padding     float64 `json:"deltacl" yaml:"deltacl"`
}

// Intervals returns the number of intervals between points
func (d *Description) Intervals() int {
	if len(d.Points) == 0 {
		return 0
	}
	return len(d.Points) - 1
}

// HasSign reports whether sign rows are emitted
func (d *Description) HasSign() bool {
	return d.Kind == Both || d.Kind == SignOnly
}

// HasVariation reports whether the variation row is emitted
func (d *Description) HasVariation() bool {
	return (d.Kind == Both || d.Kind == VariationOnly) && d.Variation != nil
}

// FunctionLabel returns the variation row label, or "" without one
func (d *Description) FunctionLabel() string {
	if d.Variation == nil {
		return ""
	}
	return d.Variation.Label
}

// Validate checks the length invariants and reports every violation
func (d *Description) Validate() error {
	var errs []error

	n := len(d.Points)
	if n < 2 {
		errs = append(errs, fmt.Errorf("need at least 2 points, got %d", n))
		return errors.Join(errs...)
	}

	for i, row := range d.Rows {
		if len(row.Signs) != n-1 {
			errs = append(errs, fmt.Errorf("row %d (%s): %d signs for %d intervals", i, row.Label, len(row.Signs), n-1))
		}
		if len(row.Marks) != n {
			errs = append(errs, fmt.Errorf("row %d (%s): %d marks for %d points", i, row.Label, len(row.Marks), n))
		}
	}

	if d.Kind != SignOnly {
		v := d.Variation
		if v == nil {
			errs = append(errs, fmt.Errorf("table kind %s requires a variation row", d.Kind))
		} else {
			if len(v.Arrows) != n-1 {
				errs = append(errs, fmt.Errorf("variation: %d arrows for %d intervals", len(v.Arrows), n-1))
			}
			if len(v.Values) != n {
				errs = append(errs, fmt.Errorf("variation: %d values for %d points", len(v.Values), n))
			}
			if len(v.LeftValues) != n {
				errs = append(errs, fmt.Errorf("variation: %d left values for %d points", len(v.LeftValues), n))
			}
			if len(v.Kinds) != n {
				errs = append(errs, fmt.Errorf("variation: %d point kinds for %d points", len(v.Kinds), n))
			}
		}
	}

	if l := d.Layout; l != nil {
		if l.ColumnWidth <= 0 || l.Spacing <= 0 || l.Padding <= 0 {
			errs = append(errs, fmt.Errorf("layout values must be positive (lgt=%g espcl=%g deltacl=%g)", l.ColumnWidth, l.Spacing, l.Padding))
		}
	}

	return errors.Join(errs...)
}

// Normalize pads or truncates every per-point and per-interval slice to the
// lengths implied by Points, the way the editor does before generation.
func (d *Description) Normalize() {
	n := len(d.Points)
	if n == 0 {
		return
	}
	for i := range d.Rows {
		d.Rows[i].Signs = resize(d.Rows[i].Signs, n-1, Positive)
		d.Rows[i].Marks = resize(d.Rows[i].Marks, n, None)
	}
	if v := d.Variation; v != nil {
		v.Arrows = resize(v.Arrows, n-1, Increasing)
		v.Values = resize(v.Values, n, "")
		v.LeftValues = resize(v.LeftValues, n, "")
		v.Kinds = resize(v.Kinds, n, Normal)
	}
}

func resize[T any](s []T, n int, fill T) []T {
	if len(s) >= n {
		return s[:n]
	}
	out := make([]T, n)
	copy(out, s)
	for i := len(s); i < n; i++ {
		out[i] = fill
	}
	return out
}
