package domain

import (
	"errors"
	"fmt"
)

// Error is the root of all expected failure modes: configuration problems
// and restore resolution problems. The CLI reports these with their
// message only; anything that is not an *Error is treated as unexpected
// and logged with full detail.
type Error struct {
	msg string
}

// Error returns the user-facing message.
func (e *Error) Error() string {
	return e.msg
}

// Errorf creates a new expected error.
func Errorf(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// NewConfigError creates an expected error describing an invalid
// configuration.
func NewConfigError(format string, args ...any) *Error {
	return &Error{msg: "invalid config: " + fmt.Sprintf(format, args...)}
}

// ErrNoConfig is returned when no configuration file exists at all.
var ErrNoConfig = &Error{msg: "no config exists"}

// IsExpected reports whether err belongs to the expected error taxonomy.
func IsExpected(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
