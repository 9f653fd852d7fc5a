// Package apperror defines the error taxonomy shared by the store,
// dispatcher, and transport layers.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for JSON-RPC code mapping and HTTP status mapping.
type Kind string

const (
	InvalidInput Kind = "invalid-input"
	NotFound     Kind = "not-found"
	Conflict     Kind = "conflict"
	IOError      Kind = "io-error"
	ParseError   Kind = "parse-error"
	Timeout      Kind = "timeout"
	ToolNotFound Kind = "tool-not-found"
	Unauthorized Kind = "unauthorized"
	Internal     Kind = "internal"
)

// Error is a typed error carrying a Kind, an optional Field (for
// invalid-input/conflict errors that point at a specific attribute), and a
// wrapped cause.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithField returns a copy of e with Field set.
func (e *Error) WithField(field string) *Error {
	c := *e
	c.Field = field
	return &c
}

// Wrap annotates err with a Kind, preserving it as the Cause.
func Wrap(kind Kind, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}

// KindOf extracts the Kind from err, defaulting to Internal for untyped
// errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// RPCCode maps a Kind to a stable JSON-RPC error code. Standard JSON-RPC
// codes (parse/invalid-request/method-not-found/invalid-params/internal)
// occupy -32700..-32600; application-level kinds get a reserved block below
// that so they never collide with transport-level errors.
func RPCCode(kind Kind) int {
	switch kind {
	case InvalidInput:
		return -32001
	case NotFound:
		return -32002
	case Conflict:
		return -32003
	case IOError:
		return -32004
	case ParseError:
		return -32005
	case Timeout:
		return -32006
	case ToolNotFound:
		return -32007
	case Unauthorized:
		return -32008
	default:
		return -32603
	}
}

// HTTPStatus maps a Kind to an HTTP status code for the dashboard bridge.
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidInput:
		return 400
	case Unauthorized:
		return 401
	case NotFound:
		return 404
	case Conflict:
		return 409
	case Timeout:
		return 504
	case ToolNotFound:
		return 404
	case ParseError:
		return 422
	case IOError, Internal:
		return 500
	default:
		return 500
	}
}
