package models

import "errors"

// Error kinds shared by the store, the mode registry, the coordinator and the
// API layer. Callers wrap them with context and match with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidMode         = errors.New("invalid mode")
	ErrNoActiveSession     = errors.New("no active chat session")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrValidation          = errors.New("validation error")
)
