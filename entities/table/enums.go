package table

import "fmt"

// Kind selects which sections of the table are emitted
type Kind int

const (
	Both Kind = iota
	SignOnly
	VariationOnly
)

func (k Kind) String() string {
	switch k {
	case SignOnly:
		return "sign"
	case VariationOnly:
		return "variation"
	default:
		return "both"
	}
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "both", "":
		*k = Both
	case "sign":
		*k = SignOnly
	case "variation":
		*k = VariationOnly
	default:
		return fmt.Errorf("unknown table kind %q", string(b))
	}
	return nil
}

// Sign is the sign of an expression over one interval
type Sign int

const (
	Positive Sign = iota
	Negative
	HatchedSign
)

// Code returns the tkz-tab token for the sign
func (s Sign) Code() string {
	switch s {
	case Negative:
		return "-"
	case HatchedSign:
		return "h"
	default:
		return "+"
	}
}

func (s Sign) String() string { return s.Code() }

// MarshalText implements encoding.TextMarshaler
func (s Sign) MarshalText() ([]byte, error) {
	return []byte(s.Code()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Sign) UnmarshalText(b []byte) error {
	switch string(b) {
	case "+", "positive":
		*s = Positive
	case "-", "negative":
		*s = Negative
	case "h", "hatched":
		*s = HatchedSign
	default:
		return fmt.Errorf("unknown sign %q", string(b))
	}
	return nil
}

// PointMark qualifies an expression exactly at a boundary point
type PointMark int

const (
	// None draws nothing at the point
	None PointMark = iota
	// Zero marks a zero crossing
	Zero
	// Undefined marks a discontinuity with a double bar
	Undefined
	// Forbidden draws a dashed vertical line (asymptote)
	Forbidden
)

// Code returns the tkz-tab token for the mark
func (m PointMark) Code() string {
	switch m {
	case Zero:
		return "z"
	case Undefined:
		return "d"
	case Forbidden:
		return "t"
	default:
		return ""
	}
}

func (m PointMark) String() string {
	switch m {
	case Zero:
		return "zero"
	case Undefined:
		return "undefined"
	case Forbidden:
		return "forbidden"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler
func (m PointMark) MarshalText() ([]byte, error) {
	return []byte(m.Code()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *PointMark) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "none":
		*m = None
	case "z", "zero", "0":
		*m = Zero
	case "d", "undefined":
		*m = Undefined
	case "t", "forbidden":
		*m = Forbidden
	default:
		return fmt.Errorf("unknown point mark %q", string(b))
	}
	return nil
}

// Arrow is the direction of the function over one interval
type Arrow int

const (
	Increasing Arrow = iota
	Decreasing
	HatchedArrow
)

func (a Arrow) String() string {
	switch a {
	case Decreasing:
		return "down"
	case HatchedArrow:
		return "hatched"
	default:
		return "up"
	}
}

// MarshalText implements encoding.TextMarshaler
func (a Arrow) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Arrow) UnmarshalText(b []byte) error {
	switch string(b) {
	case "up", "+", "increasing", "↗":
		*a = Increasing
	case "down", "-", "decreasing", "↘":
		*a = Decreasing
	case "h", "hatched":
		*a = HatchedArrow
	default:
		return fmt.Errorf("unknown arrow %q", string(b))
	}
	return nil
}

// PointKind marks discontinuities on the variation row
type PointKind int

const (
	Normal PointKind = iota
	DoubleBar
)

func (k PointKind) String() string {
	if k == DoubleBar {
		return "double"
	}
	return "normal"
}

// MarshalText implements encoding.TextMarshaler
func (k PointKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *PointKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "normal":
		*k = Normal
	case "double", "D", "doublebar":
		*k = DoubleBar
	default:
		return fmt.Errorf("unknown point kind %q", string(b))
	}
	return nil
}
