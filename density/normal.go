// Package density evaluates multivariate normal (Gaussian) densities.
//
// Covariance matrices are factorized once with Cholesky decomposition; the same
// factorization provides both the log-determinant and the solve used by the
// Mahalanobis distance, so det(S) and inv(S) are never computed separately.
package density

import (
	"fmt"
	"math"

	kalman "github.com/sdia/kalman"
	"github.com/sdia/kalman/linalg"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// log(2*pi)
var ln2Pi = math.Log(2 * math.Pi)

// Value is multivariate normal density evaluated at a single point
type Value struct {
	// Mahalanobis is Mahalanobis distance between the point and the mean
	Mahalanobis float64
	// NegLog is negative log density:
	// 0.5*(x-m)'*inv(S)*(x-m) + 0.5*d*log(2*pi) + 0.5*log(det(S))
	NegLog float64
	// Prob is density value: exp(-NegLog)
	Prob float64
}

// Factorize computes Cholesky factorization of covariance matrix cov.
// It returns error if cov is empty, if it is not positive definite or
// if its condition number exceeds mat.ConditionTolerance.
func Factorize(cov mat.Symmetric) (*mat.Cholesky, error) {
	if linalg.IsEmpty(cov) {
		return nil, fmt.Errorf("%w: empty covariance", kalman.ErrDimensionMismatch)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, fmt.Errorf("%w: covariance is not positive definite", kalman.ErrSingularCovariance)
	}

	if c := chol.Cond(); math.IsNaN(c) || c > mat.ConditionTolerance {
		return nil, fmt.Errorf("%w: covariance condition number %g", kalman.ErrSingularCovariance, c)
	}

	return &chol, nil
}

// Normal is multivariate normal distribution with a factorized covariance.
type Normal struct {
	// mean is distribution mean
	mean *mat.VecDense
	// chol is Cholesky factorization of covariance
	chol *mat.Cholesky
	// logNorm is 0.5*d*log(2*pi) + 0.5*log(det(S))
	logNorm float64
}

// New creates new Normal distribution with the given mean and covariance and returns it.
// It returns error if mean and cov dimensions differ or if cov can not be factorized.
func New(mean mat.Vector, cov mat.Symmetric) (*Normal, error) {
	chol, err := Factorize(cov)
	if err != nil {
		return nil, err
	}

	return NewFromCholesky(mean, chol)
}

// NewFromCholesky creates new Normal distribution from mean and an existing
// Cholesky factorization of its covariance. chol is shared, not copied.
func NewFromCholesky(mean mat.Vector, chol *mat.Cholesky) (*Normal, error) {
	if chol == nil {
		return nil, fmt.Errorf("%w: nil covariance factorization", kalman.ErrSingularCovariance)
	}

	d := chol.SymmetricDim()
	if err := linalg.CheckLen("mean", mean, d); err != nil {
		return nil, err
	}

	m := &mat.VecDense{}
	m.CloneFromVec(mean)

	logDet := chol.LogDet()
	if math.IsNaN(logDet) || math.IsInf(logDet, 0) {
		return nil, fmt.Errorf("%w: covariance log-determinant %g", kalman.ErrSingularCovariance, logDet)
	}

	return &Normal{
		mean:    m,
		chol:    chol,
		logNorm: 0.5*float64(d)*ln2Pi + 0.5*logDet,
	}, nil
}

// Dim returns dimension of the distribution
func (n *Normal) Dim() int {
	return n.mean.Len()
}

// Mean returns distribution mean
func (n *Normal) Mean() mat.Vector {
	m := &mat.VecDense{}
	m.CloneFromVec(n.mean)

	return m
}

// LogDet returns log-determinant of the covariance
func (n *Normal) LogDet() float64 {
	return n.chol.LogDet()
}

// Eval evaluates density at point x.
// It returns error if x length differs from the distribution dimension.
func (n *Normal) Eval(x mat.Vector) (Value, error) {
	if err := linalg.CheckLen("point", x, n.Dim()); err != nil {
		return Value{}, err
	}

	return n.eval(x, n.mean), nil
}

// eval evaluates density at x around mean m; dimensions must be checked by the caller.
func (n *Normal) eval(x, m mat.Vector) Value {
	d := stat.Mahalanobis(x, m, n.chol)
	e := 0.5*d*d + n.logNorm

	return Value{
		Mahalanobis: d,
		NegLog:      e,
		Prob:        math.Exp(-e),
	}
}

// Eval evaluates normal density with mean and covariance cov at point x.
// x and mean must have the same length as cov dimension.
func Eval(x, mean mat.Vector, cov mat.Symmetric) (Value, error) {
	n, err := New(mean, cov)
	if err != nil {
		return Value{}, err
	}

	return n.Eval(x)
}

// EvalPoints evaluates normal density with a single mean and covariance cov
// at every column of points. points is d x N matrix; mean is broadcast across its columns.
// It returns one Value per column.
func EvalPoints(points mat.Matrix, mean mat.Vector, cov mat.Symmetric) ([]Value, error) {
	n, err := New(mean, cov)
	if err != nil {
		return nil, err
	}

	return n.EvalPoints(points)
}

// EvalPoints evaluates density at every column of d x N matrix points.
func (n *Normal) EvalPoints(points mat.Matrix) ([]Value, error) {
	cols, err := columns("points", points, n.Dim())
	if err != nil {
		return nil, err
	}

	vals := make([]Value, len(cols))
	for i, x := range cols {
		vals[i] = n.eval(x, n.mean)
	}

	return vals, nil
}

// EvalMeans evaluates normal densities with covariance cov and means stored in columns
// of d x N matrix means at a single point x. It returns one Value per mean.
func EvalMeans(x mat.Vector, means mat.Matrix, cov mat.Symmetric) ([]Value, error) {
	chol, err := Factorize(cov)
	if err != nil {
		return nil, err
	}

	d := chol.SymmetricDim()
	if err := linalg.CheckLen("point", x, d); err != nil {
		return nil, err
	}

	cols, err := columns("means", means, d)
	if err != nil {
		return nil, err
	}

	n, err := NewFromCholesky(cols[0], chol)
	if err != nil {
		return nil, err
	}

	vals := make([]Value, len(cols))
	for i, m := range cols {
		vals[i] = n.eval(x, m)
	}

	return vals, nil
}

// columns copies columns of m into vectors; m must have d rows and at least one column.
func columns(name string, m mat.Matrix, d int) ([]mat.Vector, error) {
	if linalg.IsEmpty(m) {
		return nil, fmt.Errorf("%w: %s is empty", kalman.ErrDimensionMismatch, name)
	}

	r, c := m.Dims()
	if r != d {
		return nil, fmt.Errorf("%w: %s has %d rows, expected %d", kalman.ErrDimensionMismatch, name, r, d)
	}

	cols := make([]mat.Vector, c)
	for j := 0; j < c; j++ {
		col := mat.NewVecDense(r, nil)
		for i := 0; i < r; i++ {
			col.SetVec(i, m.At(i, j))
		}
		cols[j] = col
	}

	return cols, nil
}
