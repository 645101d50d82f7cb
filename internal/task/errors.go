package task

import "errors"

// Common errors returned when wiring or running the loops
var (
	ErrMissingDependency = errors.New("missing dependency")
	ErrInvalidConfig     = errors.New("invalid loop configuration")
	ErrProcessorPanic    = errors.New("task processor panicked")
)
