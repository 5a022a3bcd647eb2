package sim

import (
	"gonum.org/v1/gonum/mat"
)

// Discrete is a basic model of a linear, discrete-time, dynamical system
type Discrete struct {
	System
}

// NewDiscrete creates a linear discrete-time model based on the control theory equations.
//
//	x[n+1] = A*x[n] + B*u[n]
//	y[n] = C*x[n]
//
// B may be nil for systems without control input.
// It returns error if A is not square or B, C dimensions do not match it.
func NewDiscrete(A, B, C *mat.Dense) (*Discrete, error) {
	sys := System{A: A}
	if A != nil && !A.IsEmpty() {
		sys = newSystem(A, B, C)
	}

	if err := sys.validate(); err != nil {
		return nil, err
	}

	return &Discrete{System: sys}, nil
}
