// Package track drives a Kalman filter over a stream of measurements.
//
// Run predicts and corrects once per measurement. When the innovation covariance
// is singular the update is skipped and the prediction is carried forward;
// any other error aborts the run.
package track

import (
	"context"
	"errors"
	"fmt"

	kalman "github.com/sdia/kalman"
	"github.com/sdia/kalman/kf"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Source produces true system states and their measurements.
type Source interface {
	// Next advances the source one step with input u
	Next(u mat.Vector) (truth, y mat.Vector, err error)
}

// Step records a single filter iteration.
type Step struct {
	// Truth is the true state, if the source knows it
	Truth mat.Vector
	// Measurement is the measurement the filter was given
	Measurement mat.Vector
	// Prediction is the a priori estimate
	Prediction kalman.Estimate
	// Estimate is the a posteriori estimate; equal to Prediction when Skipped
	Estimate kalman.Estimate
	// Gain is the Kalman gain; nil when Skipped
	Gain mat.Matrix
	// InnovMean is the predicted measurement; nil when Skipped
	InnovMean mat.Vector
	// InnovCov is the innovation covariance; nil when Skipped
	InnovCov mat.Symmetric
	// Likelihood is the measurement likelihood
	Likelihood float64
	// NegLogLikelihood is negative log of Likelihood
	NegLogLikelihood float64
	// Skipped is true if the update was skipped due to singular innovation covariance
	Skipped bool
}

// Run runs filter f for the given number of steps starting from estimate start.
// Every step draws a measurement from src, predicts with control input u and corrects
// the prediction with the measurement. u may be nil.
// It returns the steps completed so far together with error if src fails, the filter
// fails with anything other than kalman.ErrSingularCovariance, or ctx is cancelled.
func Run(ctx context.Context, f *kf.KF, src Source, u mat.Vector, start kalman.Estimate, steps int, logger *zap.Logger) ([]Step, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("invalid number of steps: %d", steps)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	if err := f.SetCov(start.Cov()); err != nil {
		return nil, fmt.Errorf("invalid initial estimate: %w", err)
	}

	est := start
	out := make([]Step, 0, steps)

	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		truth, y, err := src.Next(u)
		if err != nil {
			return out, fmt.Errorf("step %d: measurement source failed: %w", i, err)
		}

		pred, err := f.Predict(est.Val(), u)
		if err != nil {
			return out, fmt.Errorf("step %d: %w", i, err)
		}

		step := Step{
			Truth:       truth,
			Measurement: y,
			Prediction:  pred,
		}

		corr, err := f.Update(pred.Val(), y)
		switch {
		case errors.Is(err, kalman.ErrSingularCovariance):
			logger.Warn("skipping measurement update",
				zap.Int("step", i),
				zap.Error(err))

			// the next prediction starts from the predicted covariance
			if err := f.SetCov(pred.Cov()); err != nil {
				return out, fmt.Errorf("step %d: %w", i, err)
			}
			step.Estimate = pred
			step.Skipped = true
		case err != nil:
			return out, fmt.Errorf("step %d: %w", i, err)
		default:
			im, is := f.Innovation()
			step.Estimate = corr
			step.Gain = f.Gain()
			step.InnovMean = im
			step.InnovCov = is
			step.Likelihood = f.Likelihood()
			step.NegLogLikelihood = f.NegLogLikelihood()
		}

		logger.Debug("filter step",
			zap.Int("step", i),
			zap.Float64s("measurement", vecData(y)),
			zap.Float64s("estimate", vecData(step.Estimate.Val())),
			zap.Float64("trace", mat.Trace(step.Estimate.Cov())),
			zap.Float64("nll", step.NegLogLikelihood),
			zap.Bool("skipped", step.Skipped))

		est = step.Estimate
		out = append(out, step)
	}

	return out, nil
}

func vecData(v mat.Vector) []float64 {
	if v == nil {
		return nil
	}

	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}

	return data
}
