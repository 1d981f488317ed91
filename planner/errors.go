package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Corey-Zumar/plots-model-comp-paper/planner/netcalc"
)

var (
	// ErrExhausted is returned by a Catalogue when an upgrade has no next step.
	ErrExhausted = errors.New("no further upgrade available")
	// ErrInvalidConfig is returned by an Estimator for configurations it cannot evaluate.
	ErrInvalidConfig = errors.New("invalid pipeline configuration")
	// ErrInvalidInitialConfig rejects a greedy starting point before any search work.
	ErrInvalidInitialConfig = errors.New("invalid initial configuration")
	// ErrNoFeasibleConfig is returned by brute force when no combination meets the constraints.
	ErrNoFeasibleConfig = errors.New("no feasible configuration found")
	// ErrUnsatisfiable matches every *UnsatisfiedError.
	ErrUnsatisfiable = errors.New("constraints not satisfied")
)

// BoundKind names a constraint.
type BoundKind string

const (
	BoundLatency BoundKind = "latency"
	BoundCost    BoundKind = "cost"
)

// Violation describes one exceeded constraint.
type Violation struct {
	Bound  BoundKind     `yaml:"bound"`
	Limit  float64       `yaml:"limit"`
	Actual netcalc.Bound `yaml:"actual"`
	Excess netcalc.Bound `yaml:"excess"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s exceeds %g by %s", v.Bound, v.Actual, v.Limit, v.Excess)
}

// UnsatisfiedError is returned by greedy search when the final configuration
// breaks a constraint. It carries the best-effort configuration.
type UnsatisfiedError struct {
	Result     Result
	Violations []Violation
}

func (e *UnsatisfiedError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s: %s", ErrUnsatisfiable, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrUnsatisfiable) match.
func (e *UnsatisfiedError) Is(target error) bool {
	return target == ErrUnsatisfiable
}

// Violated returns the violation for kind, if any.
func (e *UnsatisfiedError) Violated(kind BoundKind) (Violation, bool) {
	for _, v := range e.Violations {
		if v.Bound == kind {
			return v, true
		}
	}
	return Violation{}, false
}
