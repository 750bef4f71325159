// Package fatal defines the setup-error taxonomy of structest.
//
// A fatal error aborts a whole check kind. It is never used for a mismatch in
// the submission under test; those are reported as per-expectation outcomes.
package fatal

import (
	"fmt"

	"github.com/pkg/errors"
)

// Class is a stable category of setup failure.
type Class string

const (
	OracleMissing   Class = "ORACLE_MISSING"
	OracleMalformed Class = "ORACLE_MALFORMED"
	NoTests         Class = "NO_TESTS"
	Provider        Class = "PROVIDER"
	Config          Class = "CONFIG"
	Internal        Class = "INTERNAL"
)

// ExitCode returns the process exit code for this class.
func (c Class) ExitCode() int {
	switch c {
	case Provider, Internal:
		return 10
	default:
		return 2
	}
}

// Error is a classified setup failure.
type Error struct {
	Class   Class
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

// Detail is the error text without the class prefix.
func (e *Error) Detail() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a classified error.
func New(class Class, format string, args ...any) *Error {
	return &Error{Class: class, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error around cause.
func Wrap(class Class, cause error, format string, args ...any) *Error {
	return &Error{Class: class, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ClassOf returns the class of err, or Internal when err carries none.
func ClassOf(err error) Class {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class
	}
	return Internal
}

// Is reports whether err is a fatal error of the given class.
func Is(err error, class Class) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Class == class
}
