package engine

import "errors"

// Common errors
var (
	// Validation errors are recoverable: the caller re-prompts and the
	// session is left unchanged.
	ErrMissingRequiredAnswer = errors.New("missing required answer")
	ErrInvalidOption         = errors.New("invalid option")
	ErrOutOfRange            = errors.New("answer out of range")

	// Structural errors indicate caller or integration misuse.
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionAlreadyComplete = errors.New("session already complete")
	ErrSessionNotComplete     = errors.New("session not complete")
	ErrStaleSession           = errors.New("stale session version")

	// ErrNoApplicableRecommendation indicates a defect in an advisor's
	// decision table; it is surfaced, never defaulted to generic advice.
	ErrNoApplicableRecommendation = errors.New("no applicable recommendation")
)

// IsValidationError reports whether err is a recoverable answer-validation
// failure rather than a structural one.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingRequiredAnswer) ||
		errors.Is(err, ErrInvalidOption) ||
		errors.Is(err, ErrOutOfRange)
}
