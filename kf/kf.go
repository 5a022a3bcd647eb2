// Package kf implements the discrete-time linear Kalman filter.
//
// Predict and Update are pure functions over explicit state, covariance and model
// matrices. KF wraps them for a fixed model and keeps the state covariance between calls.
package kf

import (
	"fmt"

	kalman "github.com/sdia/kalman"
	"github.com/sdia/kalman/linalg"
	"github.com/sdia/kalman/noise"
	"gonum.org/v1/gonum/mat"
)

// KF is Kalman Filter
type KF struct {
	// m is KF system model
	m kalman.Model
	// q is state noise a.k.a. process noise
	q kalman.Noise
	// r is output noise a.k.a. measurement noise
	r kalman.Noise
	// p is the KF covariance matrix
	p *mat.SymDense
	// pNext is the KF predicted covariance matrix
	pNext *mat.SymDense
	// k is Kalman gain
	k *mat.Dense
	// im is the last predicted measurement
	im *mat.VecDense
	// is is the last innovation covariance
	is *mat.SymDense
	// lh is the last measurement likelihood
	lh float64
	// nll is negative log of lh
	nll float64
}

// New creates new KF and returns it.
// It accepts the following parameters:
//   - m:      linear dynamical system model
//   - init:   initial condition of the filter
//   - q:      state noise a.k.a. process noise
//   - r:      output noise a.k.a. measurement noise
//
// Nil noise is replaced with zero noise of matching dimension.
// It returns error if either of the following conditions is met:
//   - invalid model is given: model dimensions must be positive integers and matrices must match them
//   - invalid noise is given: noise covariance must match the model dimensions
//   - invalid initial condition is given: it must match the model state dimension
func New(m kalman.Model, init kalman.InitCond, q, r kalman.Noise) (*KF, error) {
	nx, nu, ny := m.SystemDims()
	if nx <= 0 || ny <= 0 || nu < 0 {
		return nil, fmt.Errorf("%w: invalid model dimensions: [%d x %d]", kalman.ErrDimensionMismatch, nx, ny)
	}

	if err := linalg.CheckDims("propagation matrix", m.SystemMatrix(), nx, nx); err != nil {
		return nil, err
	}

	if !linalg.IsEmpty(m.ControlMatrix()) {
		if err := linalg.CheckDims("ctl propagation matrix", m.ControlMatrix(), nx, nu); err != nil {
			return nil, err
		}
	}

	if err := linalg.CheckDims("observation matrix", m.OutputMatrix(), ny, nx); err != nil {
		return nil, err
	}

	var err error
	if q == nil {
		if q, err = noise.NewZero(nx); err != nil {
			return nil, err
		}
	}
	if err := linalg.CheckDims("state noise covariance", q.Cov(), nx, nx); err != nil {
		return nil, err
	}

	if r == nil {
		if r, err = noise.NewZero(ny); err != nil {
			return nil, err
		}
	}
	if err := linalg.CheckDims("output noise covariance", r.Cov(), ny, ny); err != nil {
		return nil, err
	}

	if err := linalg.CheckLen("initial state", init.State(), nx); err != nil {
		return nil, err
	}
	if err := linalg.CheckDims("initial covariance", init.Cov(), nx, nx); err != nil {
		return nil, err
	}

	// initialize covariance matrix to initial condition covariance
	p := mat.NewSymDense(nx, nil)
	p.CopySym(init.Cov())

	// until the first prediction the predicted covariance is the initial one
	pNext := mat.NewSymDense(nx, nil)
	pNext.CopySym(p)

	return &KF{
		m:     m,
		q:     q,
		r:     r,
		p:     p,
		pNext: pNext,
		k:     mat.NewDense(nx, ny, nil),
		im:    mat.NewVecDense(ny, nil),
		is:    mat.NewSymDense(ny, nil),
	}, nil
}

// Predict calculates the next system state given the state x and input u and returns its estimate.
// Input u is ignored when the model has no control matrix; nil or empty u means no control input.
// It returns error if x or u do not match the model dimensions.
func (k *KF) Predict(x, u mat.Vector) (kalman.Estimate, error) {
	b := k.m.ControlMatrix()
	if linalg.IsEmpty(b) || linalg.IsEmpty(u) {
		b, u = nil, nil
	}

	est, err := Predict(x, k.p, k.m.SystemMatrix(), k.q.Cov(), b, u)
	if err != nil {
		return nil, fmt.Errorf("system state propagation failed: %w", err)
	}

	k.pNext.CopySym(est.Cov())

	return est, nil
}

// Update corrects predicted state x using the measurement y and returns corrected estimate.
// It returns error if the measurement is invalid or the innovation covariance is singular;
// the filter state is left unchanged in that case.
func (k *KF) Update(x, y mat.Vector) (kalman.Estimate, error) {
	c, err := Update(x, k.pNext, y, k.m.OutputMatrix(), k.r.Cov())
	if err != nil {
		return nil, fmt.Errorf("measurement update failed: %w", err)
	}

	k.p.CopySym(c.Estimate.Cov())
	k.pNext.CopySym(k.p)
	k.k.Copy(c.Gain)
	k.im.CopyVec(c.InnovMean)
	k.is.CopySym(c.InnovCov)
	k.lh = c.Likelihood
	k.nll = c.NegLogLikelihood

	return c.Estimate, nil
}

// Run runs one step of KF for given state x, input u and measurement y.
// It corrects system state x using measurement y and returns new system estimate.
// It returns error if it either fails to propagate or correct state x.
func (k *KF) Run(x, u, y mat.Vector) (kalman.Estimate, error) {
	pred, err := k.Predict(x, u)
	if err != nil {
		return nil, err
	}

	return k.Update(pred.Val(), y)
}

// Model returns KF model
func (k *KF) Model() kalman.Model {
	return k.m
}

// StateNoise returns state noise
func (k *KF) StateNoise() kalman.Noise {
	return k.q
}

// OutputNoise returns output noise
func (k *KF) OutputNoise() kalman.Noise {
	return k.r
}

// Cov returns KF covariance
func (k *KF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.p.SymmetricDim(), nil)
	cov.CopySym(k.p)

	return cov
}

// SetCov sets KF covariance matrix to cov.
// It returns error if either cov is nil or its dimensions are not the same as KF covariance dimensions.
func (k *KF) SetCov(cov mat.Symmetric) error {
	n := k.p.SymmetricDim()
	if err := linalg.CheckDims("covariance", cov, n, n); err != nil {
		return err
	}

	k.p.CopySym(cov)
	k.pNext.CopySym(cov)

	return nil
}

// Gain returns Kalman gain
func (k *KF) Gain() mat.Matrix {
	gain := &mat.Dense{}
	gain.CloneFrom(k.k)

	return gain
}

// Innovation returns the last predicted measurement and innovation covariance
func (k *KF) Innovation() (mat.Vector, mat.Symmetric) {
	im := &mat.VecDense{}
	im.CloneFromVec(k.im)

	is := mat.NewSymDense(k.is.SymmetricDim(), nil)
	is.CopySym(k.is)

	return im, is
}

// Likelihood returns likelihood of the last measurement
func (k *KF) Likelihood() float64 {
	return k.lh
}

// NegLogLikelihood returns negative log likelihood of the last measurement.
// Unlike Likelihood it does not underflow for measurements far from the prediction.
func (k *KF) NegLogLikelihood() float64 {
	return k.nll
}
