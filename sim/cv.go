package sim

import (
	"fmt"

	"github.com/sdia/kalman/linalg"
	"gonum.org/v1/gonum/mat"
)

// NewConstantVelocity creates a discrete-time constant velocity model of an object
// moving in dims spatial dimensions, sampled every dt.
//
// The state vector is [p_1..p_dims, v_1..v_dims]: positions followed by velocities.
//
//	A = | I  dt*I |    B = I    C = | I  0 |
//	    | 0   I   |
//
// Only positions are observed.
func NewConstantVelocity(dims int, dt float64) (*Discrete, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("invalid number of dimensions: %d", dims)
	}

	if dt <= 0 {
		return nil, fmt.Errorf("invalid time step: %v", dt)
	}

	nx := 2 * dims

	A, err := linalg.Eye(nx)
	if err != nil {
		return nil, err
	}
	for i := 0; i < dims; i++ {
		A.Set(i, dims+i, dt)
	}

	B, err := linalg.Eye(nx)
	if err != nil {
		return nil, err
	}

	C := mat.NewDense(dims, nx, nil)
	for i := 0; i < dims; i++ {
		C.Set(i, i, 1.0)
	}

	return NewDiscrete(A, B, C)
}

// ConstantVelocityProcessNoise returns process noise covariance of a constant velocity
// model driven by white acceleration noise with variance accVar (discrete white noise model):
//
//	Q = accVar * | dt^4/4*I  dt^3/2*I |
//	             | dt^3/2*I  dt^2*I   |
func ConstantVelocityProcessNoise(dims int, dt, accVar float64) (*mat.SymDense, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("invalid number of dimensions: %d", dims)
	}

	if accVar < 0 {
		return nil, fmt.Errorf("invalid acceleration variance: %v", accVar)
	}

	dt2 := dt * dt
	q := mat.NewSymDense(2*dims, nil)
	for i := 0; i < dims; i++ {
		q.SetSym(i, i, accVar*dt2*dt2/4)
		q.SetSym(i, dims+i, accVar*dt2*dt/2)
		q.SetSym(dims+i, dims+i, accVar*dt2)
	}

	return q, nil
}
