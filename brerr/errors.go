// Package brerr defines the error taxonomy shared by all SDK packages.
//
// Errors raised before a request is handed to the worker pool (configuration,
// validation, request body, signature, queue full) are returned synchronously
// from the call that triggered them. Errors raised after dispatch (network,
// http) are delivered to the request callback.
package brerr

import (
	"errors"
	"fmt"
)

// Kind classifies an SDK error.
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindValidation
	KindRequestBody
	KindSignature
	KindNetwork
	KindHTTP
	KindQueueFull
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindRequestBody:
		return "request body"
	case KindSignature:
		return "signature"
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindQueueFull:
		return "queue full"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is comparisons against a Kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrRequestBody   = &Error{Kind: KindRequestBody}
	ErrSignature     = &Error{Kind: KindSignature}
	ErrNetwork       = &Error{Kind: KindNetwork}
	ErrHTTP          = &Error{Kind: KindHTTP}
	ErrQueueFull     = &Error{Kind: KindQueueFull}
)

// Error is the concrete error type returned by the SDK.
type Error struct {
	Kind       Kind
	Op         string // operation that failed, e.g. "engine.Invoke"
	Msg        string
	StatusCode int // set for KindHTTP
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind wrapping err.
func Wrap(kind Kind, op string, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Configuration returns a configuration error.
func Configuration(op, format string, args ...interface{}) *Error {
	return New(KindConfiguration, op, format, args...)
}

// Validation returns a validation error.
func Validation(op, format string, args ...interface{}) *Error {
	return New(KindValidation, op, format, args...)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
