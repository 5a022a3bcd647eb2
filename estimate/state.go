// Package estimate provides an immutable snapshot of a filter state estimate.
package estimate

import (
	"fmt"

	kalman "github.com/sdia/kalman"
	"gonum.org/v1/gonum/mat"
)

// State is a state estimate: state vector x and its covariance P.
// State owns copies of its data; accessors return copies too.
type State struct {
	// val is estimated state
	val *mat.VecDense
	// cov is estimate covariance
	cov *mat.SymDense
}

// New returns state estimate given value val and covariance cov.
// It returns error if val length does not match cov dimensions.
func New(val mat.Vector, cov mat.Symmetric) (*State, error) {
	if val == nil || cov == nil {
		return nil, fmt.Errorf("%w: nil estimate value or covariance", kalman.ErrDimensionMismatch)
	}

	if val.Len() == 0 || val.Len() != cov.SymmetricDim() {
		return nil, fmt.Errorf("%w: value length %d, covariance [%d x %d]",
			kalman.ErrDimensionMismatch, val.Len(), cov.SymmetricDim(), cov.SymmetricDim())
	}

	v := &mat.VecDense{}
	v.CloneFromVec(val)

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &State{
		val: v,
		cov: c,
	}, nil
}

// FromInitCond returns state estimate initialized from initial condition c.
func FromInitCond(c kalman.InitCond) (*State, error) {
	return New(c.State(), c.Cov())
}

// Val returns estimated state
func (s *State) Val() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(s.val)

	return v
}

// Cov returns estimate covariance
func (s *State) Cov() mat.Symmetric {
	cov := mat.NewSymDense(s.cov.SymmetricDim(), nil)
	cov.CopySym(s.cov)

	return cov
}

// Len returns state vector length
func (s *State) Len() int {
	return s.val.Len()
}

// Trace returns trace of the estimate covariance i.e. total state variance.
func (s *State) Trace() float64 {
	return mat.Trace(s.cov)
}

// String implements the Stringer interface.
func (s *State) String() string {
	return fmt.Sprintf("State{\nVal=%v\nCov=%v\n}",
		mat.Formatted(s.val.T(), mat.Prefix("    "), mat.Squeeze()),
		mat.Formatted(s.cov, mat.Prefix("    "), mat.Squeeze()))
}
