package noise

import (
	"errors"
	"testing"

	kalman "github.com/sdia/kalman"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewGaussian(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		mean []float64
		cov  *mat.SymDense
		err  error
	}{
		{
			mean: []float64{2, 3},
			cov:  mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1}),
		},
		{
			mean: []float64{2},
			cov:  mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1}),
			err:  kalman.ErrDimensionMismatch,
		},
		{
			mean: []float64{0, 0},
			cov:  mat.NewSymDense(2, []float64{1, 0, 0, -1}),
			err:  kalman.ErrSingularCovariance,
		},
		{
			// positive semidefinite
			mean: []float64{0, 0},
			cov:  mat.NewSymDense(2, []float64{1, 1, 1, 1}),
		},
		{
			mean: []float64{0, 0},
			cov:  mat.NewSymDense(2, nil),
		},
	} {
		g, err := NewGaussian(test.mean, test.cov)
		if test.err == nil {
			assert.NotNil(g)
			assert.NoError(err)
			continue
		}
		assert.Nil(g)
		assert.True(errors.Is(err, test.err))
	}
}

func TestGaussianMeanCov(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussian(mean, cov)
	assert.NotNil(g)
	assert.NoError(err)

	assert.True(mat.Equal(cov, g.Cov()))
	assert.EqualValues(mean, g.Mean())

	// returned values are copies
	g.Mean()[0] = 100
	assert.EqualValues(mean, g.Mean())
}

func TestGaussianSample(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussian(mean, cov)
	assert.NoError(err)

	sample := g.Sample()
	assert.Equal(len(mean), sample.Len())
}

func TestGaussianSampleMean(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{5, -3}
	cov := mat.NewSymDense(2, []float64{1, 0, 0, 1})

	g, err := NewGaussianSeeded(mean, cov, 42)
	assert.NoError(err)

	n := 5000
	sum := mat.NewVecDense(2, nil)
	for i := 0; i < n; i++ {
		sum.AddVec(sum, g.Sample())
	}
	sum.ScaleVec(1/float64(n), sum)

	assert.InDelta(mean[0], sum.AtVec(0), 0.1)
	assert.InDelta(mean[1], sum.AtVec(1), 0.1)
}

func TestGaussianSampleSingular(t *testing.T) {
	assert := assert.New(t)

	// both components are driven by a single noise source
	mean := []float64{1, -1}
	cov := mat.NewSymDense(2, []float64{4, 2, 2, 1})

	g, err := NewGaussianSeeded(mean, cov, 3)
	require.NoError(t, err)

	n := 5000
	var sumSq float64
	for i := 0; i < n; i++ {
		s := g.Sample()
		// the sample stays on the line x0 - 1 = 2*(x1 + 1)
		assert.InDelta(s.AtVec(0)-mean[0], 2*(s.AtVec(1)-mean[1]), 1e-9)
		sumSq += (s.AtVec(1) - mean[1]) * (s.AtVec(1) - mean[1])
	}
	assert.InDelta(1.0, sumSq/float64(n), 0.1)

	// zero covariance always samples the mean
	g, err = NewGaussianSeeded(mean, mat.NewSymDense(2, nil), 3)
	require.NoError(t, err)
	assert.InDeltaSlice(mean, g.Sample().(*mat.VecDense).RawVector().Data, 1e-12)

	// replay after reset
	g, err = NewGaussianSeeded(mean, cov, 5)
	require.NoError(t, err)
	sample := g.Sample()
	assert.NoError(g.Reset())
	assert.True(mat.Equal(sample, g.Sample()))
}

func TestGaussianReset(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussianSeeded(mean, cov, 7)
	assert.NoError(err)

	sample1 := g.Sample()
	sample2 := g.Sample()
	assert.False(mat.Equal(sample1, sample2))

	// seeded noise replays its sequence after reset
	assert.NoError(g.Reset())
	assert.True(mat.Equal(sample1, g.Sample()))
	assert.True(mat.Equal(sample2, g.Sample()))
}

func TestGaussianString(t *testing.T) {
	assert := assert.New(t)

	str := `Gaussian{
Mean=[2 3]
Cov=⎡  1  0.1⎤
    ⎣0.1    1⎦
}`
	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussian(mean, cov)
	assert.NotNil(g)
	assert.NoError(err)
	assert.Equal(str, g.String())
}
