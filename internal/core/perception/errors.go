package perception

import "errors"

// Perception errors
var (
	ErrInvalidConfig   = errors.New("invalid sensor configuration")
	ErrNilDependency   = errors.New("nil sensor dependency")
	ErrDuplicateSensor = errors.New("sensor already registered")
)
