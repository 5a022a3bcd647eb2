package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/milosgajdos/matrix"
	"github.com/sdia/kalman/config"
	"github.com/sdia/kalman/estimate"
	"github.com/sdia/kalman/kf"
	"github.com/sdia/kalman/linalg"
	"github.com/sdia/kalman/noise"
	"github.com/sdia/kalman/sim"
	"github.com/sdia/kalman/track"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	run, err := simulate(ctx, cfg, logger)
	if err != nil {
		return err
	}

	cv, err := sim.NewConstantVelocity(cfg.Dims, cfg.Dt)
	if err != nil {
		return err
	}

	s, err := track.Summarize(run, cv.OutputMatrix())
	if err != nil {
		return fmt.Errorf("failed to summarize run: %w", err)
	}

	logger.Info("simulation finished",
		zap.Int("steps", s.Steps),
		zap.Int("skipped", s.Skipped),
		zap.Float64("rmse", s.RMSE),
		zap.Float64("log_likelihood", s.LogLikelihood),
		zap.Float64("nees", s.NEES))

	if s.InnovCov != nil {
		logger.Debug("empirical innovation covariance",
			zap.String("cov", fmt.Sprintf("%v", matrix.Format(s.InnovCov))))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "steps:          %d\n", s.Steps)
	fmt.Fprintf(out, "skipped:        %d\n", s.Skipped)
	fmt.Fprintf(out, "rmse:           %.6f\n", s.RMSE)
	fmt.Fprintf(out, "log likelihood: %.6f\n", s.LogLikelihood)
	fmt.Fprintf(out, "nees:           %.6f\n", s.NEES)

	if cfg.Plot != "" {
		if err := plotRun(run, cfg.Dt, cfg.Plot); err != nil {
			return err
		}
		logger.Info("plot saved", zap.String("path", cfg.Plot))
	}

	return nil
}

// simulate builds the constant velocity system, its measurement source and the
// filter tracking it, and runs the filter over the configured number of steps.
func simulate(ctx context.Context, c *config.Config, logger *zap.Logger) ([]track.Step, error) {
	cv, err := sim.NewConstantVelocity(c.Dims, c.Dt)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	nx, _, ny := cv.SystemDims()

	qCov, err := sim.ConstantVelocityProcessNoise(c.Dims, c.Dt, c.Noise.Process)
	if err != nil {
		return nil, fmt.Errorf("failed to create process noise: %w", err)
	}

	// measurement noise is seeded apart from process noise; zero seed stays time based
	measSeed := c.Seed
	if measSeed != 0 {
		measSeed++
	}

	q, err := noise.NewGaussianSeeded(make([]float64, nx), qCov, c.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create process noise: %w", err)
	}

	rCov, err := linalg.Eye(ny)
	if err != nil {
		return nil, err
	}
	rCov.Scale(c.Noise.Measurement, rCov)

	r, err := noise.NewGaussianSeeded(make([]float64, ny), mat.NewSymDense(ny, rCov.RawMatrix().Data), measSeed)
	if err != nil {
		return nil, fmt.Errorf("failed to create measurement noise: %w", err)
	}

	// true system starts at the origin with the configured velocity
	x0 := mat.NewVecDense(nx, nil)
	for i, v := range c.InitVelocity {
		x0.SetVec(c.Dims+i, v)
	}

	src, err := sim.NewSimulator(cv, x0, q, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulator: %w", err)
	}

	// filter knows nothing about the velocity
	p0, err := linalg.Eye(nx)
	if err != nil {
		return nil, err
	}
	p0.Scale(c.InitCovScale, p0)

	ic := sim.NewInitCond(mat.NewVecDense(nx, nil), mat.NewSymDense(nx, p0.RawMatrix().Data))

	f, err := kf.New(cv, ic, q, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter: %w", err)
	}

	est, err := estimate.FromInitCond(ic)
	if err != nil {
		return nil, err
	}

	logger.Info("starting simulation",
		zap.Int("steps", c.Steps),
		zap.Int("dims", c.Dims),
		zap.Float64("dt", c.Dt),
		zap.Uint64("seed", c.Seed))

	return track.Run(ctx, f, src, nil, est, c.Steps, logger)
}

// plotRun plots true, measured and filtered positions. Two or more dimensions are
// plotted in the plane of the first two positions, a single dimension against time.
func plotRun(steps []track.Step, dt float64, path string) error {
	n := len(steps)
	truth := mat.NewDense(n, 2, nil)
	meas := mat.NewDense(n, 2, nil)
	filter := mat.NewDense(n, 2, nil)

	for i, s := range steps {
		if s.Measurement.Len() == 1 {
			t := float64(i+1) * dt
			truth.SetRow(i, []float64{t, s.Truth.AtVec(0)})
			meas.SetRow(i, []float64{t, s.Measurement.AtVec(0)})
			filter.SetRow(i, []float64{t, s.Estimate.Val().AtVec(0)})
			continue
		}
		truth.SetRow(i, []float64{s.Truth.AtVec(0), s.Truth.AtVec(1)})
		meas.SetRow(i, []float64{s.Measurement.AtVec(0), s.Measurement.AtVec(1)})
		filter.SetRow(i, []float64{s.Estimate.Val().AtVec(0), s.Estimate.Val().AtVec(1)})
	}

	plt, err := sim.New2DPlot(truth, meas, filter)
	if err != nil {
		return fmt.Errorf("failed to make plot: %w", err)
	}

	return sim.SavePlot(plt, path)
}
