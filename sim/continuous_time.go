package sim

import (
	"fmt"

	"github.com/sdia/kalman/linalg"
	"gonum.org/v1/gonum/mat"
)

// integrationSteps is the number of trapezoid intervals used to discretize
// the control matrix of a system with singular A.
const integrationSteps = 100

// Continuous is a basic model of a linear, continuous-time, dynamical system
type Continuous struct {
	System
}

// NewContinuous creates a linear continuous-time model based on the control theory equations.
//
//	dx/dt = A*x + B*u
//	y = C*x
func NewContinuous(A, B, C *mat.Dense) (*Continuous, error) {
	sys := System{A: A}
	if A != nil && !A.IsEmpty() {
		sys = newSystem(A, B, C)
	}

	if err := sys.validate(); err != nil {
		return nil, err
	}

	return &Continuous{System: sys}, nil
}

// ToDiscrete creates a discrete-time model from a continuous time model
// using ts as the sampling time:
//
//	Ad = exp(A*ts)
//	Bd = integral(exp(A*t), 0, ts) * B
//
// When A is invertible the integral has the closed form (Ad - I)*inv(A); otherwise
// it is evaluated with the trapezoid rule.
func (ct *Continuous) ToDiscrete(ts float64) (*Discrete, error) {
	if ts <= 0 {
		return nil, fmt.Errorf("invalid sampling time: %v", ts)
	}

	nx, _, _ := ct.SystemDims()
	dsys := newSystem(ct.A, ct.B, ct.C)

	at := &mat.Dense{}
	at.Scale(ts, ct.A)
	dsys.A.Exp(at)

	if ct.B == nil {
		return &Discrete{System: dsys}, nil
	}

	eye, err := linalg.Eye(nx)
	if err != nil {
		return nil, err
	}

	integral := mat.NewDense(nx, nx, nil)

	aInv := &mat.Dense{}
	if err := aInv.Inverse(ct.A); err == nil {
		integral.Sub(dsys.A, eye)
		integral.Mul(integral, aInv)
	} else {
		dt := ts / integrationSteps
		step := &mat.Dense{}
		for i := 0; i <= integrationSteps; i++ {
			at.Scale(dt*float64(i), ct.A)
			step.Exp(at)
			w := dt
			if i == 0 || i == integrationSteps {
				w = 0.5 * dt
			}
			step.Scale(w, step)
			integral.Add(integral, step)
		}
	}

	dsys.B.Mul(integral, ct.B)

	if !linalg.IsFinite(dsys.A) || !linalg.IsFinite(dsys.B) {
		return nil, fmt.Errorf("discretization produced non-finite matrices")
	}

	return &Discrete{System: dsys}, nil
}
