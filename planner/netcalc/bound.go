package netcalc

import (
	"fmt"
	"math"
)

// Bound is either a finite value or Unstable, the result for a system whose
// queue grows without limit. The zero value is Bounded(0).
type Bound struct {
	value    float64
	unstable bool
}

// Bounded returns a finite bound.
func Bounded(v float64) Bound { return Bound{value: v} }

// Unstable returns the unbounded variant.
func Unstable() Bound { return Bound{unstable: true} }

// IsUnstable reports whether the bound is the unbounded variant.
func (b Bound) IsUnstable() bool { return b.unstable }

// Value returns the finite value and true, or (0, false) when unstable.
func (b Bound) Value() (float64, bool) {
	if b.unstable {
		return 0, false
	}
	return b.value, true
}

// Float returns the value, or +Inf when unstable. Only for display and arithmetic
// at the edges of the package; constraint checks should use Within.
func (b Bound) Float() float64 {
	if b.unstable {
		return math.Inf(1)
	}
	return b.value
}

// Within reports whether the bound is finite and at most limit.
func (b Bound) Within(limit float64) bool {
	return !b.unstable && b.value <= limit
}

// Add shifts a finite bound by v. Unstable stays unstable.
func (b Bound) Add(v float64) Bound {
	if b.unstable {
		return b
	}
	return Bounded(b.value + v)
}

// Scale multiplies a finite bound by f. Unstable stays unstable.
func (b Bound) Scale(f float64) Bound {
	if b.unstable {
		return b
	}
	return Bounded(b.value * f)
}

func (b Bound) String() string {
	if b.unstable {
		return "unstable"
	}
	return fmt.Sprintf("%g", b.value)
}

// MarshalYAML renders unstable bounds as the string "unstable".
func (b Bound) MarshalYAML() (interface{}, error) {
	if b.unstable {
		return "unstable", nil
	}
	return b.value, nil
}
