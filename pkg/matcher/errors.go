package matcher

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSpec is returned when a matcher spec violates its invariants.
	ErrInvalidSpec = errors.New("matcher: invalid spec")

	// ErrTemplateLarger is returned when a template exceeds the frame size.
	ErrTemplateLarger = errors.New("matcher: template larger than frame")
)

// EvalError wraps a recoverable per-matcher evaluation failure with the
// matcher's name so the analyzer can log which detector input failed.
type EvalError struct {
	Matcher string
	Err     error
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	return fmt.Sprintf("matcher %q: %v", e.Matcher, e.Err)
}

// Unwrap returns the underlying error.
func (e *EvalError) Unwrap() error {
	return e.Err
}
