package kalman

import "errors"

var (
	// ErrDimensionMismatch is returned when vector or matrix shapes are incompatible.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrSingularCovariance is returned when a covariance matrix can not be factorized,
	// i.e. it is not positive definite or it is too ill-conditioned to invert.
	ErrSingularCovariance = errors.New("singular covariance")
)
