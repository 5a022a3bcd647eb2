package sim

import (
	"fmt"

	kalman "github.com/sdia/kalman"
	"github.com/sdia/kalman/linalg"
	"gonum.org/v1/gonum/mat"
)

// Simulator is a measurement source: it propagates the true state of a system
// and observes it through measurement noise.
type Simulator struct {
	// m is the simulated system
	m kalman.Model
	// x is the true system state
	x *mat.VecDense
	// w is process noise; nil means none
	w kalman.Noise
	// v is measurement noise; nil means none
	v kalman.Noise
}

// NewSimulator creates new Simulator of system m starting from state x0 and returns it.
// Process noise w and measurement noise v may be nil.
// It returns error if x0 or noise dimensions do not match the model.
func NewSimulator(m kalman.Model, x0 mat.Vector, w, v kalman.Noise) (*Simulator, error) {
	nx, _, ny := m.SystemDims()
	if err := linalg.CheckLen("initial state", x0, nx); err != nil {
		return nil, err
	}

	if w != nil && len(w.Mean()) != nx {
		return nil, fmt.Errorf("%w: process noise dimension %d, expected %d", kalman.ErrDimensionMismatch, len(w.Mean()), nx)
	}

	if v != nil && len(v.Mean()) != ny {
		return nil, fmt.Errorf("%w: measurement noise dimension %d, expected %d", kalman.ErrDimensionMismatch, len(v.Mean()), ny)
	}

	x := &mat.VecDense{}
	x.CloneFromVec(x0)

	return &Simulator{
		m: m,
		x: x,
		w: w,
		v: v,
	}, nil
}

// Next propagates the true state one step with input u and returns the new true state
// and its noisy measurement.
func (s *Simulator) Next(u mat.Vector) (truth, y mat.Vector, err error) {
	var w mat.Vector
	if s.w != nil {
		w = s.w.Sample()
	}

	x, err := s.m.Propagate(s.x, u, w)
	if err != nil {
		return nil, nil, fmt.Errorf("state propagation failed: %w", err)
	}

	var v mat.Vector
	if s.v != nil {
		v = s.v.Sample()
	}

	y, err = s.m.Observe(x, v)
	if err != nil {
		return nil, nil, fmt.Errorf("state observation failed: %w", err)
	}

	s.x.CloneFromVec(x)

	return s.State(), y, nil
}

// State returns the current true state
func (s *Simulator) State() mat.Vector {
	x := &mat.VecDense{}
	x.CloneFromVec(s.x)

	return x
}
