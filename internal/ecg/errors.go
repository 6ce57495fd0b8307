package ecg

import "errors"

// Structural errors. Data-quality outcomes (rejected RR intervals, unmatched beats)
// are carried in return values and never use these.
var (
	// ErrInvalidConfig: malformed processing parameters (rates, bands, radii).
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidInput: empty signal or a beat sequence that is not strictly increasing.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidLimits: RR limits whose lower bound is not below the upper bound.
	ErrInvalidLimits = errors.New("invalid limits")
)
