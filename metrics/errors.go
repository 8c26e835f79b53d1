package metrics

import (
	"errors"
	"fmt"
)

// Error is an error of a specific metric.
type Error struct {
	Metric string
	Err    error
}

func (e *Error) Error() string {
	return e.Metric + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrAlreadyRunning = errors.New("already running")
	ErrInvalidConfig  = errors.New("invalid config")
)

func errInvalidConfig(metric string, err error) error {
	return &Error{metric, fmt.Errorf("%w: %w", ErrInvalidConfig, err)}
}
