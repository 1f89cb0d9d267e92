// Package bidierr implements the BiDi error taxonomy (spec §6.3, §7).
//
// Errors are classified along two axes: local-vs-surfaced and
// fatal-vs-recoverable. Only errors constructed with New/Wrap carry a wire
// error code; anything else reaching the CommandProcessor is folded into
// UnknownError with the original message preserved.
package bidierr

import "fmt"

// Code is a BiDi wire error code, as listed in spec §6.3.
type Code string

const (
	InvalidArgument     Code = "invalid argument"
	InvalidSessionID     Code = "invalid session id"
	NoSuchAlert          Code = "no such alert"
	NoSuchElement        Code = "no such element"
	NoSuchFrame          Code = "no such frame"
	NoSuchHandle         Code = "no such handle"
	NoSuchIntercept      Code = "no such intercept"
	NoSuchNode           Code = "no such node"
	NoSuchRequest        Code = "no such request"
	NoSuchScript         Code = "no such script"
	NoSuchUserContext    Code = "no such user context"
	SessionNotCreated    Code = "session not created"
	UnableToCaptureScreen Code = "unable to capture screen"
	UnableToCloseBrowser Code = "unable to close browser"
	UnableToSetCookie    Code = "unable to set cookie"
	UnableToSetFileInput Code = "unable to set file input"
	UnknownCommand       Code = "unknown command"
	UnknownError         Code = "unknown error"
	UnsupportedOperation Code = "unsupported operation"
	MoveTargetOutOfBounds Code = "move target out of bounds"
)

// Error is a BiDi command error: a wire code plus a human-readable message
// and an optional stacktrace string, matching the error reply shape in
// spec §6.1.
type Error struct {
	Code       Code
	Message    string
	Stacktrace string
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs an Error with the given code and formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an arbitrary error under code, preserving it as the cause.
func Wrap(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// AsBidiError classifies any error for the wire. Errors already of type
// *Error pass through; anything else becomes UnknownError, per spec §7
// ("Unknown exceptions become `unknown error` with the original message
// attached").
func AsBidiError(err error) *Error {
	if err == nil {
		return nil
	}
	if be, ok := err.(*Error); ok {
		return be
	}
	return &Error{Code: UnknownError, Message: err.Error(), cause: err}
}

// Fatal marks errors that terminate the whole session (transport or CDP mux
// closure, per spec §7 "Fatal").
type Fatal struct {
	Reason string
	cause  error
}

func (f *Fatal) Error() string { return "fatal: " + f.Reason }
func (f *Fatal) Unwrap() error { return f.cause }

// NewFatal wraps cause as a Fatal error with the given reason.
func NewFatal(reason string, cause error) *Fatal {
	return &Fatal{Reason: reason, cause: cause}
}

// ErrConnectionClosed is returned to in-flight command futures when the
// client transport closes (spec §5 Cancellation).
var ErrConnectionClosed = New(UnknownError, "connection closed")

// ErrSessionClosed is returned to in-flight CDP command futures when their
// CDP session detaches (spec §5 Cancellation).
var ErrSessionClosed = New(UnknownError, "cdp session closed")
