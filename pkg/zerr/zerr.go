// Package zerr defines the typed error taxonomy shared by every Zephyr
// package. A zerr.Error carries a Code that downstream callers (the CLI's
// exit-code mapping, the audit log's event classification) switch on instead
// of string-matching error messages.
package zerr

import (
	"errors"
	"fmt"
)

// Code classifies the kind of failure a zerr.Error represents.
type Code int

const (
	// Internal is an unexpected failure with no more specific classification.
	Internal Code = iota
	// Invalid means caller-supplied input (a manifest, a flag, a pattern)
	// failed validation.
	Invalid
	// NotFound means a named module, session, or cache entry does not exist.
	NotFound
	// Conflict means an operation would clobber existing state (a module
	// already installed, a cycle in the dependency graph).
	Conflict
	// SecurityDenied means the scanner, git-hook detection or signature
	// verifier rejected a module. Only the git-hook rejection is lifted by
	// --unsafe; critical findings and signature failures are not.
	SecurityDenied
	// PermissionDenied means the permission engine refused the operation
	// for the current session's role.
	PermissionDenied
	// IOFailure means a filesystem or git-transport operation failed.
	IOFailure
)

func (c Code) String() string {
	switch c {
	case Invalid:
		return "invalid"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case SecurityDenied:
		return "security_denied"
	case PermissionDenied:
		return "permission_denied"
	case IOFailure:
		return "io_failure"
	default:
		return "internal"
	}
}

// Error is Zephyr's structured error type. It implements the standard error
// interface and Unwrap, so callers can still use errors.Is/errors.As against
// a wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs an *Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs an *Error that carries err as its cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrapf is Wrap with fmt.Sprintf-style formatting of the message.
func Wrapf(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the Code from err if it is (or wraps) a *zerr.Error,
// otherwise returns Internal.
func CodeOf(err error) Code {
	var zerrErr *Error
	if errors.As(err, &zerrErr) {
		return zerrErr.Code
	}
	return Internal
}

// Exit codes returned by the zephyr CLI: operation-failed (not-found,
// conflict, internal) shares exit 1, security- and permission-denial
// share exit 2, I/O failure is 3, and bad input is 4.
const (
	ExitOK               = 0
	ExitGeneral          = 1
	ExitSecurityDenied   = 2
	ExitPermissionDenied = 2
	ExitIOFailure        = 3
	ExitInvalid          = 4
)

// ExitCode maps err to the process exit code the CLI should return.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch CodeOf(err) {
	case Invalid:
		return ExitInvalid
	case SecurityDenied:
		return ExitSecurityDenied
	case PermissionDenied:
		return ExitPermissionDenied
	case IOFailure:
		return ExitIOFailure
	case NotFound, Conflict, Internal:
		return ExitGeneral
	default:
		return ExitGeneral
	}
}
