package terminal

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by Controller operations that need an open link.
	ErrNotConnected = errors.New("terminal: not connected")

	// ErrAlreadyConnected is returned by Connect and Configure while a link is open.
	ErrAlreadyConnected = errors.New("terminal: already connected")

	// ErrNotConfigured is returned by Connect before Configure succeeded.
	ErrNotConfigured = errors.New("terminal: not configured")

	// ErrReservedByte is returned when outbound text carries ENQ or ACK.
	ErrReservedByte = errors.New("terminal: text contains a reserved control byte")

	// ErrSessionClosed is returned by Session operations after Close.
	ErrSessionClosed = errors.New("terminal: session closed")
)

// ConfigError rejects a configuration before any connection attempt.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// LinkError is an open, close or write failure of the link. It is never
// retried; the caller decides what to do next.
type LinkError struct {
	Op  string
	Err error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s: %v", e.Op, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }
