package detector

import "errors"

var (
	// ErrInvalidExpression is returned for structurally malformed expressions.
	ErrInvalidExpression = errors.New("detector: invalid expression")

	// ErrUnresolvedReference is returned when a leaf names no known matcher
	// or detector.
	ErrUnresolvedReference = errors.New("detector: unresolved reference")

	// ErrCycle is returned when detector definitions reference each other
	// in a loop.
	ErrCycle = errors.New("detector: cyclic definition")

	// ErrDuplicateName is returned when a name is defined more than once,
	// or collides between the matcher and detector namespaces.
	ErrDuplicateName = errors.New("detector: duplicate name")
)
