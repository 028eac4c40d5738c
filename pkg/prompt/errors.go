package prompt

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("prompt: aborted")
	// ErrTooManyAttempts is returned when a field keeps failing validation
	// past the configured attempt budget.
	ErrTooManyAttempts = errors.New("prompt: too many invalid answers")
)

// ErrInvalidSubmission is returned when the assembled payload fails
// form-level validation after every field was accepted.
var ErrInvalidSubmission = errors.New("prompt: submission failed validation")
