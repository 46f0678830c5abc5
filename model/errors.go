package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is wrapped by every error raised while building a circus.
	ErrConfiguration = errors.New("configuration error")
	// ErrArithmeticOverflow means a transform produced a value that does not fit
	// in 64 bits before the worry policy could reduce it.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)

// ConfigError describes a rejected worker or circus setting.
// Worker is -1 when the problem is not tied to a single worker.
type ConfigError struct {
	Worker int
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Worker < 0 {
		return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: worker %d: %s: %s", ErrConfiguration, e.Worker, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

func configErr(worker int, field, format string, args ...interface{}) error {
	return &ConfigError{
		Worker: worker,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}
