// Package errkit provides the supervisor's unified error taxonomy.
// Every fallible operation in the core returns exactly one Kind, carrying
// enough structure for the GUI layer to render it and for logs to correlate
// it, without panicking on the happy-error path.
package errkit

import (
	"errors"
	"fmt"
)

// Kind is the error taxonomy variant.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConfig     Kind = "config"
	KindNetwork    Kind = "network"
	KindTimeout    Kind = "timeout"
	KindProcess    Kind = "process"
	KindStorage    Kind = "storage"
	KindNotFound   Kind = "not_found"
	KindSecurity   Kind = "security"
	KindScript     Kind = "script"
)

// Error is the structured error type returned throughout the core.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail attaches a key/value pair and returns the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error wrapping an existing cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation reports that a single field failed validation. The field name
// always appears in the message so UI surfaces can highlight it.
func Validation(field, reason string) *Error {
	return New(KindValidation, fmt.Sprintf("%s: %s", field, reason)).WithDetail("field", field)
}

// ConfigError reports a malformed or semantically inconsistent config file.
func ConfigError(path, reason string) *Error {
	return New(KindConfig, reason).WithDetail("path", path)
}

// Network wraps a lower-level network failure with its UI-facing class.
func Network(class string, err error) *Error {
	return Wrap(KindNetwork, "network operation failed", err).WithDetail("class", class)
}

// TimeoutError reports that an operation exceeded its ceiling.
func TimeoutError(operation string, ceilingMS int64) *Error {
	return New(KindTimeout, fmt.Sprintf("%s exceeded its %dms ceiling", operation, ceilingMS)).
		WithDetail("operation", operation).WithDetail("ceiling_ms", ceilingMS)
}

// ProcessError reports a supervisor-level process failure.
func ProcessError(reason string) *Error {
	return New(KindProcess, reason)
}

// StorageError wraps a persistent-store failure.
func StorageError(operation string, err error) *Error {
	return Wrap(KindStorage, "storage operation failed", err).WithDetail("operation", operation)
}

// NotFound reports an unknown id for a named resource kind.
func NotFound(resource, id string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).WithDetail("id", id)
}

// SecurityError reports a hash mismatch, SSRF rejection, or capability
// filter rejection.
func SecurityError(reason string) *Error {
	return New(KindSecurity, reason)
}

// ScriptError reports a plugin script failure of the given sub-kind
// (not-found, invalid-type, execution-failed, timeout, permission-denied,
// runtime, io).
func ScriptError(subKind, reason string) *Error {
	return New(KindScript, reason).WithDetail("sub_kind", subKind)
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// As extracts the *Error from an error chain, if present.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
