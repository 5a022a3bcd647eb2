package sim

import (
	"fmt"

	kalman "github.com/sdia/kalman"
	"github.com/sdia/kalman/linalg"
	"gonum.org/v1/gonum/mat"
)

// System defines a linear model of a plant using
// traditional matrices of modern control theory.
//
// It contains the System (A), input (B) and Observation/Output (C) matrices.
type System struct {
	// System/State matrix A
	A *mat.Dense
	// Control/Input Matrix B
	B *mat.Dense
	// Observation/Output Matrix C
	C *mat.Dense
}

func newSystem(A, B, C mat.Matrix) System {
	sys := System{A: mat.DenseCopyOf(A)}
	if !linalg.IsEmpty(B) {
		sys.B = mat.DenseCopyOf(B)
	}
	if !linalg.IsEmpty(C) {
		sys.C = mat.DenseCopyOf(C)
	}
	return sys
}

// validate checks that A is square and B, C match its dimensions.
func (s System) validate() error {
	if linalg.IsEmpty(s.A) {
		return fmt.Errorf("%w: system matrix must be defined for a model", kalman.ErrDimensionMismatch)
	}

	nx, _ := s.A.Dims()
	if err := linalg.CheckDims("system matrix", s.A, nx, nx); err != nil {
		return err
	}

	if s.B != nil {
		_, nu := s.B.Dims()
		if err := linalg.CheckDims("control matrix", s.B, nx, nu); err != nil {
			return err
		}
	}

	if s.C != nil {
		ny, _ := s.C.Dims()
		if err := linalg.CheckDims("output matrix", s.C, ny, nx); err != nil {
			return err
		}
	}

	return nil
}

// SystemDims returns internal state length (nx), input vector length (nu)
// and external/observable/output state length (ny).
func (s System) SystemDims() (nx, nu, ny int) {
	nx, _ = s.A.Dims()
	if s.B != nil {
		_, nu = s.B.Dims()
	}
	if s.C != nil {
		ny, _ = s.C.Dims()
	}
	return nx, nu, ny
}

// SystemMatrix returns state propagation matrix `A`.
func (s System) SystemMatrix() (A mat.Matrix) { return s.A }

// ControlMatrix returns state propagation control matrix `B`
func (s System) ControlMatrix() (B mat.Matrix) {
	if s.B == nil {
		return nil
	}
	return s.B
}

// OutputMatrix returns observation matrix `C`
func (s System) OutputMatrix() (C mat.Matrix) {
	if s.C == nil {
		return nil
	}
	return s.C
}

// Propagate returns the next internal state x given an input vector u and
// process noise w. Either u or w may be nil.
func (s System) Propagate(x, u, w mat.Vector) (mat.Vector, error) {
	nx, nu, _ := s.SystemDims()
	if err := linalg.CheckLen("state vector", x, nx); err != nil {
		return nil, err
	}

	out := mat.NewVecDense(nx, nil)
	out.MulVec(s.A, x)

	if u != nil && s.B != nil {
		if err := linalg.CheckLen("input vector", u, nu); err != nil {
			return nil, err
		}
		outU := mat.NewVecDense(nx, nil)
		outU.MulVec(s.B, u)

		out.AddVec(out, outU)
	}

	if w != nil {
		if err := linalg.CheckLen("process noise", w, nx); err != nil {
			return nil, err
		}
		out.AddVec(out, w)
	}

	return out, nil
}

// Observe returns external/observable state given internal state x.
// v is added to the output as a noise vector; it may be nil.
func (s System) Observe(x, v mat.Vector) (mat.Vector, error) {
	nx, _, ny := s.SystemDims()
	if s.C == nil {
		return nil, fmt.Errorf("%w: output matrix must be defined to observe", kalman.ErrDimensionMismatch)
	}

	if err := linalg.CheckLen("state vector", x, nx); err != nil {
		return nil, err
	}

	out := mat.NewVecDense(ny, nil)
	out.MulVec(s.C, x)

	if v != nil {
		if err := linalg.CheckLen("output noise", v, ny); err != nil {
			return nil, err
		}
		out.AddVec(out, v)
	}

	return out, nil
}
