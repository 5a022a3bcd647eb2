package noise

import (
	"fmt"
	"math"
	"time"

	kalman "github.com/sdia/kalman"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// psdTolerance is the relative size of an eigenvalue still treated as zero
const psdTolerance = 1e-12

// Gaussian is gaussian noise.
// Covariance may be positive semidefinite, e.g. process noise driven by fewer noise
// sources than there are states.
type Gaussian struct {
	// dist is a multivariate normal distribution; nil if cov is singular
	dist *distmv.Normal
	// factor maps standard normal draws to samples when cov is singular
	factor *mat.Dense
	// std draws standard normal samples for factor
	std distuv.Normal
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov *mat.SymDense
	// seed is the random source seed; zero means the noise is seeded from time
	seed uint64
}

// NewGaussian creates new Gaussian noise with given mean and covariance.
// The noise is seeded from current time.
// It returns error if it fails to create Gaussian.
func NewGaussian(mean []float64, cov mat.Symmetric) (*Gaussian, error) {
	return NewGaussianSeeded(mean, cov, 0)
}

// NewGaussianSeeded creates new Gaussian noise with given mean and covariance whose samples
// are drawn from a source seeded with seed. A zero seed seeds the source from current time.
// It returns error if mean and cov dimensions differ or if cov is not positive semidefinite.
func NewGaussianSeeded(mean []float64, cov mat.Symmetric, seed uint64) (*Gaussian, error) {
	if cov == nil || len(mean) == 0 || len(mean) != cov.SymmetricDim() {
		return nil, fmt.Errorf("%w: invalid Gaussian noise mean or covariance", kalman.ErrDimensionMismatch)
	}

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	m := make([]float64, len(mean))
	copy(m, mean)

	g := &Gaussian{
		mean: m,
		cov:  c,
		seed: seed,
	}

	if err := g.Reset(); err != nil {
		return nil, err
	}

	return g, nil
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	if g.dist != nil {
		r := g.dist.Rand(nil)
		return mat.NewVecDense(len(r), r)
	}

	n := len(g.mean)
	z := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		z.SetVec(i, g.std.Rand())
	}

	x := mat.NewVecDense(n, nil)
	x.MulVec(g.factor, z)
	x.AddVec(x, mat.NewVecDense(n, g.Mean()))

	return x
}

// Cov returns covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	cov := mat.NewSymDense(g.cov.SymmetricDim(), nil)
	cov.CopySym(g.cov)

	return cov
}

// Mean returns Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	mean := make([]float64, len(g.mean))
	copy(mean, g.mean)

	return mean
}

// Reset resets Gaussian noise.
// Seeded noise replays the same sample sequence after Reset.
// It returns error if it fails to reset the noise.
func (g *Gaussian) Reset() error {
	seed := g.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	src := rand.NewSource(seed)

	if dist, ok := distmv.NewNormal(g.mean, g.cov, src); ok {
		g.dist, g.factor = dist, nil
		return nil
	}

	factor, err := sqrtFactor(g.cov)
	if err != nil {
		return err
	}

	g.dist = nil
	g.factor = factor
	g.std = distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	return nil
}

// sqrtFactor returns F such that F*F' = cov for positive semidefinite cov.
// It uses eigen decomposition as Cholesky fails on singular matrices.
func sqrtFactor(cov mat.Symmetric) (*mat.Dense, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return nil, fmt.Errorf("%w: eigen decomposition of Gaussian noise covariance failed", kalman.ErrSingularCovariance)
	}

	vals := eig.Values(nil)
	tol := psdTolerance * math.Max(floats.Max(vals), 1)
	if floats.Min(vals) < -tol {
		return nil, fmt.Errorf("%w: Gaussian noise covariance is not positive semidefinite", kalman.ErrSingularCovariance)
	}

	for i := range vals {
		if vals[i] < tol {
			vals[i] = 0
		}
		vals[i] = math.Sqrt(vals[i])
	}

	f := &mat.Dense{}
	eig.VectorsTo(f)
	f.Mul(f, mat.NewDiagDense(len(vals), vals))

	return f, nil
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
