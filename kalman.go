// Package kalman defines the interfaces shared by the linear Kalman filter,
// its system models and the noise sources that drive them.
package kalman

import "gonum.org/v1/gonum/mat"

// Filter is a dynamical system filter.
type Filter interface {
	// Predict estimates the next internal state of the system
	Predict(x, u mat.Vector) (Estimate, error)
	// Update corrects the predicted state x using measurement y
	Update(x, y mat.Vector) (Estimate, error)
}

// Propagator propagates internal state of the system to the next step
type Propagator interface {
	// Propagate propagates internal state x to the next step given input u and process noise w
	Propagate(x, u, w mat.Vector) (mat.Vector, error)
}

// Observer observes external state (output) of the system
type Observer interface {
	// Observe observes external state of the system given internal state x and output noise v
	Observe(x, v mat.Vector) (mat.Vector, error)
}

// Model is a linear discrete-time model of a dynamical system:
//
//	x[k+1] = A*x[k] + B*u[k]
//	y[k]   = C*x[k]
type Model interface {
	// Propagator is system propagator
	Propagator
	// Observer is system observer
	Observer
	// SystemDims returns state, input and output vector lengths
	SystemDims() (nx, nu, ny int)
	// SystemMatrix returns state transition matrix A
	SystemMatrix() mat.Matrix
	// ControlMatrix returns control matrix B; it may be nil
	ControlMatrix() mat.Matrix
	// OutputMatrix returns observation matrix C (H in Kalman filter terms)
	OutputMatrix() mat.Matrix
}

// InitCond is initial state condition of the filter
type InitCond interface {
	// State returns initial filter state
	State() mat.Vector
	// Cov returns initial state covariance
	Cov() mat.Symmetric
}

// Estimate is dynamical system filter estimate
type Estimate interface {
	// Val returns estimate value
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset() error
}
