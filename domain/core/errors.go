package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Topology errors - raised before any spectral work starts
	ErrInvalidTopology = errors.New("invalid coupling topology")

	// Spectrum errors - the Fiedler vector is ill-defined
	ErrDegenerateSpectrum = errors.New("degenerate laplacian spectrum")

	// Refinement errors - gradient descent produced NaN/Inf
	ErrNonFiniteGradient = errors.New("non-finite gradient component")

	// Persistence errors
	ErrResultNotFound  = errors.New("optimization result not found")
	ErrMalformedResult = errors.New("malformed result record")

	// Configuration errors - a tuning value is out of its allowed range
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Error constructors with context

func NewTopologyError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidTopology, reason)
}

func NewSpectrumError(lambda1, lambda2 float64) error {
	return fmt.Errorf("%w: second eigenvalue %.3e indistinguishable from smallest %.3e", ErrDegenerateSpectrum, lambda2, lambda1)
}

func NewGradientError(component int, value float64) error {
	return fmt.Errorf("%w: mode %d gradient %v", ErrNonFiniteGradient, component, value)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, reason)
}

// Error checking helpers

func IsTopologyError(err error) bool {
	return errors.Is(err, ErrInvalidTopology)
}

func IsSpectrumError(err error) bool {
	return errors.Is(err, ErrDegenerateSpectrum)
}

func IsGradientError(err error) bool {
	return errors.Is(err, ErrNonFiniteGradient)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
