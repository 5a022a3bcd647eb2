package kf

import (
	"errors"
	"math"
	"os"
	"testing"

	kalman "github.com/sdia/kalman"
	"github.com/sdia/kalman/noise"
	"github.com/sdia/kalman/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type invalidModel struct {
	kalman.Model
	nx int
	nu int
	ny int
}

func (m *invalidModel) SystemDims() (nx, nu, ny int) {
	return m.nx, m.nu, m.ny
}

var (
	okModel  *sim.Discrete
	badModel *invalidModel
	ic       *sim.InitCond
	q        kalman.Noise
	r        kalman.Noise
	u        *mat.VecDense
	z        *mat.VecDense
)

func setup() {
	u = mat.NewVecDense(1, []float64{-1.0})
	z = mat.NewVecDense(1, []float64{-1.5})

	// initial condition
	initState := mat.NewVecDense(2, []float64{1.0, 3.0})
	initCov := mat.NewSymDense(2, []float64{0.25, 0, 0, 0.25})
	ic = sim.NewInitCond(initState, initCov)

	// state and output noise
	q, _ = noise.NewGaussian([]float64{0, 0}, initCov)
	r, _ = noise.NewGaussian([]float64{0}, mat.NewSymDense(1, []float64{0.25}))

	A := mat.NewDense(2, 2, []float64{1.0, 1.0, 0.0, 1.0})
	B := mat.NewDense(2, 1, []float64{0.5, 1.0})
	C := mat.NewDense(1, 2, []float64{1.0, 0.0})

	okModel, _ = sim.NewDiscrete(A, B, C)
	badModel = &invalidModel{Model: okModel, nx: 10, ny: 10}
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

func TestKFNew(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	assert.NoError(err)
	assert.NotNil(f)

	// invalid model: negative dimensions
	badModel.nx, badModel.ny = -10, 20
	f, err = New(badModel, ic, q, r)
	assert.Nil(f)
	assert.True(errors.Is(err, kalman.ErrDimensionMismatch))

	// invalid model: dimensions do not match matrices
	badModel.nx, badModel.ny = 10, 10
	f, err = New(badModel, ic, q, r)
	assert.Nil(f)
	assert.True(errors.Is(err, kalman.ErrDimensionMismatch))

	// invalid state noise dimension
	_q, _ := noise.NewZero(20)
	f, err = New(okModel, ic, _q, r)
	assert.Nil(f)
	assert.True(errors.Is(err, kalman.ErrDimensionMismatch))

	// invalid output noise dimension
	_r, _ := noise.NewZero(20)
	f, err = New(okModel, ic, q, _r)
	assert.Nil(f)
	assert.True(errors.Is(err, kalman.ErrDimensionMismatch))

	// invalid initial condition
	_ic := sim.NewInitCond(mat.NewVecDense(3, nil), mat.NewSymDense(3, nil))
	f, err = New(okModel, _ic, q, r)
	assert.Nil(f)
	assert.True(errors.Is(err, kalman.ErrDimensionMismatch))

	// zero [state and output] noise
	f, err = New(okModel, ic, nil, nil)
	assert.NotNil(f)
	assert.NoError(err)
	assert.Equal(0.0, mat.Trace(f.StateNoise().Cov()))
	assert.Equal(0.0, mat.Trace(f.OutputNoise().Cov()))
}

func TestKFPredict(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	assert.NotNil(f)
	assert.NoError(err)

	x := mat.VecDenseCopyOf(ic.State())
	est, err := f.Predict(x, u)
	assert.NotNil(est)
	assert.NoError(err)
	// [1+3-0.5, 3-1]
	assert.InDeltaSlice([]float64{3.5, 2.0}, est.Val().(*mat.VecDense).RawVector().Data, 1e-12)

	// nil input: no control applied
	est, err = f.Predict(x, nil)
	assert.NoError(err)
	assert.InDeltaSlice([]float64{4.0, 3.0}, est.Val().(*mat.VecDense).RawVector().Data, 1e-12)

	// typed nil and empty inputs behave like nil
	var nilU *mat.VecDense
	for _, in := range []mat.Vector{nilU, &mat.VecDense{}} {
		est, err = f.Predict(x, in)
		assert.NoError(err)
		assert.InDeltaSlice([]float64{4.0, 3.0}, est.Val().(*mat.VecDense).RawVector().Data, 1e-12)
	}

	// prediction does not touch the filter covariance
	assert.True(mat.Equal(ic.Cov(), f.Cov()))

	// invalid input vector
	_u := mat.NewVecDense(3, nil)
	est, err = f.Predict(x, _u)
	assert.Nil(est)
	assert.True(errors.Is(err, kalman.ErrDimensionMismatch))

	// invalid state vector
	est, err = f.Predict(mat.NewVecDense(3, nil), u)
	assert.Nil(est)
	assert.True(errors.Is(err, kalman.ErrDimensionMismatch))
}

func TestKFUpdate(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	assert.NotNil(f)
	assert.NoError(err)

	x := mat.VecDenseCopyOf(ic.State())
	est, err := f.Update(x, z)
	assert.NotNil(est)
	assert.NoError(err)

	// IS = 0.25 + 0.25, K = [0.5, 0]
	gain := f.Gain()
	assert.InDelta(0.5, gain.At(0, 0), 1e-12)
	assert.InDelta(0.0, gain.At(1, 0), 1e-12)
	assert.InDelta(1.0-0.5*2.5, est.Val().AtVec(0), 1e-12)

	im, is := f.Innovation()
	assert.InDelta(1.0, im.AtVec(0), 1e-12)
	assert.InDelta(0.5, is.At(0, 0), 1e-12)
	assert.Greater(f.Likelihood(), 0.0)
	assert.InDelta(-math.Log(f.Likelihood()), f.NegLogLikelihood(), 1e-12)

	// filter covariance follows the corrected estimate
	assert.True(mat.EqualApprox(est.Cov(), f.Cov(), 1e-12))
	assert.InDelta(0.125, f.Cov().At(0, 0), 1e-12)

	// invalid measurement vector
	_z := mat.NewVecDense(3, nil)
	est, err = f.Update(x, _z)
	assert.Nil(est)
	assert.True(errors.Is(err, kalman.ErrDimensionMismatch))
}

func TestKFUpdateSingular(t *testing.T) {
	assert := assert.New(t)

	// zero initial covariance and no measurement noise
	_ic := sim.NewInitCond(ic.State(), mat.NewSymDense(2, nil))
	f, err := New(okModel, _ic, nil, nil)
	require.NoError(t, err)

	est, err := f.Update(ic.State(), z)
	assert.Nil(est)
	assert.True(errors.Is(err, kalman.ErrSingularCovariance))

	// failed update leaves the filter unchanged
	assert.Equal(0.0, mat.Trace(f.Cov()))
	assert.Equal(0.0, f.Likelihood())
	assert.True(mat.Equal(mat.NewDense(2, 1, nil), f.Gain()))
}

func TestKFRun(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	assert.NotNil(f)
	assert.NoError(err)

	x := mat.VecDenseCopyOf(ic.State())
	est, err := f.Run(x, u, z)
	assert.NotNil(est)
	assert.NoError(err)

	// invalid input vector
	_u := mat.NewVecDense(3, nil)
	est, err = f.Run(x, _u, z)
	assert.Nil(est)
	assert.Error(err)

	// invalid measurement vector
	_z := mat.NewVecDense(3, nil)
	est, err = f.Run(x, u, _z)
	assert.Nil(est)
	assert.Error(err)
}

func TestKFRunMatchesSteps(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	require.NoError(t, err)

	x := mat.VecDenseCopyOf(ic.State())
	est, err := f.Run(x, u, z)
	require.NoError(t, err)

	pred, err := Predict(x, ic.Cov(), okModel.SystemMatrix(), q.Cov(), okModel.ControlMatrix(), u)
	require.NoError(t, err)
	c, err := Update(pred.Val(), pred.Cov(), z, okModel.OutputMatrix(), r.Cov())
	require.NoError(t, err)

	assert.Equal(c.Estimate.Val(), est.Val())
	assert.Equal(c.Estimate.Cov(), est.Cov())
	assert.Equal(c.Likelihood, f.Likelihood())
}

func TestKFModel(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	assert.NotNil(f)
	assert.NoError(err)

	m := f.Model()
	assert.Equal(okModel, m)
}

func TestKFNoise(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	assert.NotNil(f)
	assert.NoError(err)

	sn := f.StateNoise()
	assert.Equal(q, sn)

	on := f.OutputNoise()
	assert.Equal(r, on)
}

func TestKFCov(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	assert.NotNil(f)
	assert.NoError(err)

	cov := f.Cov()
	assert.True(mat.EqualApprox(cov, ic.Cov(), 1e-12))

	c := mat.NewSymDense(2, []float64{1.0, 0.5, 0.5, 2.0})
	err = f.SetCov(c)
	assert.NoError(err)
	assert.True(mat.Equal(c, f.Cov()))

	// the new covariance is used by the next prediction
	est, err := f.Predict(mat.VecDenseCopyOf(ic.State()), nil)
	require.NoError(t, err)
	// A*P*A' + Q: [1 1; 0 1]*[1 .5; .5 2]*[1 0; 1 1] = [4 2.5; 2.5 2]
	assert.InDelta(4.25, est.Cov().At(0, 0), 1e-12)
	assert.InDelta(2.5, est.Cov().At(0, 1), 1e-12)
	assert.InDelta(2.25, est.Cov().At(1, 1), 1e-12)

	c = mat.NewSymDense(3, nil)
	err = f.SetCov(c)
	assert.True(errors.Is(err, kalman.ErrDimensionMismatch))

	err = f.SetCov(nil)
	assert.Error(err)
}

func TestKFGain(t *testing.T) {
	assert := assert.New(t)

	f, err := New(okModel, ic, q, r)
	assert.NotNil(f)
	assert.NoError(err)

	gain := f.Gain()
	rows, cols := gain.Dims()
	assert.Equal(2, rows)
	assert.Equal(1, cols)
}

var _ kalman.Filter = (*KF)(nil)
