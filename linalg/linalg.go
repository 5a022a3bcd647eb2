// Package linalg provides shape checks and small matrix helpers used by the filter.
package linalg

import (
	"fmt"
	"math"

	"github.com/milosgajdos/matrix"
	kalman "github.com/sdia/kalman"
	"gonum.org/v1/gonum/mat"
)

// Eye returns n x n identity matrix.
// It returns error if n is not a positive integer.
func Eye(n int) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: invalid identity size %d", kalman.ErrDimensionMismatch, n)
	}

	return matrix.NewDenseValIdentity(n, 1.0)
}

// IsEmpty returns true if m is nil or has no elements.
func IsEmpty(m mat.Matrix) bool {
	if m == nil {
		return true
	}

	switch v := m.(type) {
	case *mat.Dense:
		if v == nil || v.IsEmpty() {
			return true
		}
	case *mat.VecDense:
		if v == nil || v.IsEmpty() {
			return true
		}
	case *mat.SymDense:
		if v == nil || v.IsEmpty() {
			return true
		}
	}

	r, c := m.Dims()
	return r == 0 || c == 0
}

// CheckDims returns error if m is not r x c matrix. name identifies m in the error message.
func CheckDims(name string, m mat.Matrix, r, c int) error {
	if IsEmpty(m) {
		return fmt.Errorf("%w: %s is empty, expected [%d x %d]", kalman.ErrDimensionMismatch, name, r, c)
	}

	rows, cols := m.Dims()
	if rows != r || cols != c {
		return fmt.Errorf("%w: %s is [%d x %d], expected [%d x %d]", kalman.ErrDimensionMismatch, name, rows, cols, r, c)
	}

	return nil
}

// CheckLen returns error if v is not a vector of length n.
func CheckLen(name string, v mat.Vector, n int) error {
	if IsEmpty(v) {
		return fmt.Errorf("%w: %s is empty, expected length %d", kalman.ErrDimensionMismatch, name, n)
	}

	if v.Len() != n {
		return fmt.Errorf("%w: %s has length %d, expected %d", kalman.ErrDimensionMismatch, name, v.Len(), n)
	}

	return nil
}

// Sym returns the symmetric part of square matrix m, i.e. (m + m')/2.
// Rounding makes products such as A*P*A' drift from exact symmetry; Sym removes the drift.
func Sym(m mat.Matrix) (*mat.SymDense, error) {
	if IsEmpty(m) {
		return nil, fmt.Errorf("%w: empty matrix", kalman.ErrDimensionMismatch)
	}

	r, c := m.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: matrix is not square: [%d x %d]", kalman.ErrDimensionMismatch, r, c)
	}

	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}

	return s, nil
}

// IsFinite returns true if no element of m is NaN or Inf.
func IsFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}

	return true
}
