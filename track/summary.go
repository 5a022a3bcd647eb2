package track

import (
	"fmt"
	"math"

	"github.com/milosgajdos/matrix"
	kalman "github.com/sdia/kalman"
	"github.com/sdia/kalman/density"
	"github.com/sdia/kalman/linalg"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Summary aggregates filter performance over a run.
type Summary struct {
	// Steps is the number of steps
	Steps int
	// Skipped is the number of skipped measurement updates
	Skipped int
	// RMSE is root mean square error of the estimate in measurement space: H*(truth - estimate)
	RMSE float64
	// LogLikelihood is cumulative log likelihood of all applied measurements
	LogLikelihood float64
	// NEES is average normalized estimation error squared
	NEES float64
	// InnovCov is empirical covariance of the innovations y - IM; nil if fewer than 2 updates
	InnovCov mat.Symmetric
}

// Summarize computes run statistics of steps. h maps states into measurement space.
// NEES is averaged over the steps whose estimate covariance is positive definite.
// It returns error if steps is empty, any step misses its true state or h does not fit the states.
func Summarize(steps []Step, h mat.Matrix) (*Summary, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("no steps to summarize")
	}

	nx := steps[0].Estimate.Val().Len()
	if linalg.IsEmpty(h) {
		return nil, fmt.Errorf("%w: empty observation matrix", kalman.ErrDimensionMismatch)
	}
	ny, _ := h.Dims()
	if err := linalg.CheckDims("observation matrix", h, ny, nx); err != nil {
		return nil, err
	}

	s := &Summary{Steps: len(steps)}

	sqErr := make([]float64, 0, len(steps))
	nll := make([]float64, 0, len(steps))
	nees := make([]float64, 0, len(steps))
	innov := make([]float64, 0, len(steps)*ny)

	diff := mat.NewVecDense(nx, nil)
	obsErr := mat.NewVecDense(ny, nil)

	for i, step := range steps {
		if step.Truth == nil {
			return nil, fmt.Errorf("step %d: missing true state", i)
		}
		if err := linalg.CheckLen("true state", step.Truth, nx); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		diff.SubVec(step.Truth, step.Estimate.Val())
		obsErr.MulVec(h, diff)
		sqErr = append(sqErr, floats.Dot(obsErr.RawVector().Data, obsErr.RawVector().Data))

		if v, err := density.Eval(step.Truth, step.Estimate.Val(), step.Estimate.Cov()); err == nil {
			nees = append(nees, v.Mahalanobis*v.Mahalanobis)
		}

		if step.Skipped {
			s.Skipped++
			continue
		}

		nll = append(nll, step.NegLogLikelihood)
		for j := 0; j < ny; j++ {
			innov = append(innov, step.Measurement.AtVec(j)-step.InnovMean.AtVec(j))
		}
	}

	s.RMSE = math.Sqrt(floats.Sum(sqErr) / float64(len(steps)*ny))
	s.LogLikelihood = -floats.Sum(nll)

	if len(nees) > 0 {
		s.NEES = floats.Sum(nees) / float64(len(nees))
	}

	if n := len(innov) / ny; n >= 2 {
		// one innovation per column
		m := mat.NewDense(n, ny, innov)
		cov, err := matrix.Cov(mat.DenseCopyOf(m.T()), "cols")
		if err != nil {
			return nil, fmt.Errorf("failed to calculate innovation covariance: %v", err)
		}
		s.InnovCov = cov
	}

	return s, nil
}
