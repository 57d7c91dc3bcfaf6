// Package apperr classifies the failures surfaced to the user: I/O, transport,
// response parsing, input validation, configuration and service-reported errors.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies the failure class of an Error.
type Kind int

const (
	KindUnknown Kind = iota
	KindIO
	KindNetwork
	KindParse
	KindValidation
	KindConfig
	KindRemote
)

var kindNames = map[Kind]string{
	KindUnknown:    "UNKNOWN",
	KindIO:         "IO",
	KindNetwork:    "NETWORK",
	KindParse:      "PARSE",
	KindValidation: "VALIDATION",
	KindConfig:     "CONFIG",
	KindRemote:     "REMOTE",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Error is the classified error type. Message is meant to be shown to the user as-is.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// New creates a new Error with the given kind and message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates a new Error with formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error.
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: err}
}

// KindOf returns the kind of the first Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// IsKind checks if an error has a specific kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
