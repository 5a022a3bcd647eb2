package kf

import (
	"fmt"

	kalman "github.com/sdia/kalman"
	"github.com/sdia/kalman/density"
	"github.com/sdia/kalman/estimate"
	"github.com/sdia/kalman/linalg"
	"gonum.org/v1/gonum/mat"
)

// Correction is the result of a Kalman filter measurement update.
type Correction struct {
	// Estimate is corrected state x and its covariance P
	Estimate *estimate.State
	// Gain is Kalman gain K = P*H'*inv(IS)
	Gain *mat.Dense
	// InnovMean is predicted measurement IM = H*x
	InnovMean *mat.VecDense
	// InnovCov is innovation covariance IS = R + H*P*H'
	InnovCov *mat.SymDense
	// Likelihood is normal density of the measurement given IM and IS
	Likelihood float64
	// NegLogLikelihood is negative log of Likelihood
	NegLogLikelihood float64
}

// Predict advances state x with covariance p one step forward:
//
//	x' = A*x + B*u
//	P' = A*P*A' + Q
//
// b and u are optional: when both are nil no control input is applied.
// It returns error wrapping kalman.ErrDimensionMismatch if any of the shapes are incompatible.
func Predict(x mat.Vector, p mat.Symmetric, a mat.Matrix, q mat.Symmetric, b mat.Matrix, u mat.Vector) (*estimate.State, error) {
	if linalg.IsEmpty(x) {
		return nil, fmt.Errorf("%w: empty state vector", kalman.ErrDimensionMismatch)
	}
	n := x.Len()

	if err := linalg.CheckDims("state covariance", p, n, n); err != nil {
		return nil, err
	}

	if err := linalg.CheckDims("transition matrix", a, n, n); err != nil {
		return nil, err
	}

	if err := linalg.CheckDims("process noise covariance", q, n, n); err != nil {
		return nil, err
	}

	xNext := mat.NewVecDense(n, nil)
	xNext.MulVec(a, x)

	switch noB, noU := linalg.IsEmpty(b), linalg.IsEmpty(u); {
	case noB && noU:
	case noB || noU:
		return nil, fmt.Errorf("%w: control matrix and control input must be supplied together", kalman.ErrDimensionMismatch)
	default:
		if err := linalg.CheckDims("control matrix", b, n, u.Len()); err != nil {
			return nil, err
		}
		bu := mat.NewVecDense(n, nil)
		bu.MulVec(b, u)
		xNext.AddVec(xNext, bu)
	}

	// A*P*A' + Q
	cov := &mat.Dense{}
	cov.Mul(a, p)
	cov.Mul(cov, a.T())
	cov.Add(cov, q)

	pNext, err := linalg.Sym(cov)
	if err != nil {
		return nil, err
	}

	return estimate.New(xNext, pNext)
}

// Update corrects predicted state x with covariance p using measurement y,
// observation matrix h and measurement noise covariance r:
//
//	IM  = H*x
//	IS  = R + H*P*H'
//	K   = P*H'*inv(IS)
//	x'' = x + K*(y - IM)
//	P'' = P - K*IS*K'
//	LH  = N(y; IM, IS)
//
// IS is factorized once; the factorization serves both the gain and the likelihood.
// It returns error wrapping kalman.ErrDimensionMismatch if the shapes are incompatible,
// or kalman.ErrSingularCovariance if IS is not invertible. No partial result is returned.
func Update(x mat.Vector, p mat.Symmetric, y mat.Vector, h mat.Matrix, r mat.Symmetric) (*Correction, error) {
	if linalg.IsEmpty(x) {
		return nil, fmt.Errorf("%w: empty state vector", kalman.ErrDimensionMismatch)
	}
	n := x.Len()

	if linalg.IsEmpty(y) {
		return nil, fmt.Errorf("%w: empty measurement vector", kalman.ErrDimensionMismatch)
	}
	m := y.Len()

	if err := linalg.CheckDims("state covariance", p, n, n); err != nil {
		return nil, err
	}

	if err := linalg.CheckDims("observation matrix", h, m, n); err != nil {
		return nil, err
	}

	if err := linalg.CheckDims("measurement noise covariance", r, m, m); err != nil {
		return nil, err
	}

	im := mat.NewVecDense(m, nil)
	im.MulVec(h, x)

	// P*H'
	ph := mat.NewDense(n, m, nil)
	ph.Mul(p, h.T())

	// H*P*H' + R
	hph := mat.NewDense(m, m, nil)
	hph.Mul(h, ph)
	hph.Add(hph, r)

	is, err := linalg.Sym(hph)
	if err != nil {
		return nil, err
	}

	chol, err := density.Factorize(is)
	if err != nil {
		return nil, fmt.Errorf("innovation covariance: %w", err)
	}

	// IS is symmetric so K' = inv(IS)*(P*H')'
	kt := &mat.Dense{}
	if err := chol.SolveTo(kt, ph.T()); err != nil {
		return nil, fmt.Errorf("%w: failed to solve for gain: %v", kalman.ErrSingularCovariance, err)
	}
	gain := mat.DenseCopyOf(kt.T())

	inn := mat.NewVecDense(m, nil)
	inn.SubVec(y, im)

	xNext := mat.NewVecDense(n, nil)
	xNext.MulVec(gain, inn)
	xNext.AddVec(x, xNext)

	// K*IS*K'
	kis := &mat.Dense{}
	kis.Mul(gain, is)
	kisk := &mat.Dense{}
	kisk.Mul(kis, gain.T())

	cov := &mat.Dense{}
	cov.Sub(p, kisk)

	pNext, err := linalg.Sym(cov)
	if err != nil {
		return nil, err
	}

	dist, err := density.NewFromCholesky(im, chol)
	if err != nil {
		return nil, fmt.Errorf("innovation density: %w", err)
	}

	lh, err := dist.Eval(y)
	if err != nil {
		return nil, fmt.Errorf("innovation density: %w", err)
	}

	est, err := estimate.New(xNext, pNext)
	if err != nil {
		return nil, err
	}

	return &Correction{
		Estimate:         est,
		Gain:             gain,
		InnovMean:        im,
		InnovCov:         is,
		Likelihood:       lh.Prob,
		NegLogLikelihood: lh.NegLog,
	}, nil
}
