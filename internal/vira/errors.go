package vira

import (
	"errors"
	"fmt"

	"github.com/peorobertsson/vira/internal/jira"
)

// ErrorKind classifies an Error.
type ErrorKind int

const (
	KindRemote ErrorKind = iota
	KindConnection
	KindNotFound
	KindHierarchy
	KindUnsupportedRelationship
	KindCreate
	KindParentRequired
	KindTypeMismatch
	KindSelfReference
)

var kindNames = map[ErrorKind]string{
	KindRemote:                  "remote error",
	KindConnection:              "connection failed",
	KindNotFound:                "issue not found",
	KindHierarchy:               "hierarchy violation",
	KindUnsupportedRelationship: "unsupported relationship",
	KindCreate:                  "create failed",
	KindParentRequired:          "parent required",
	KindTypeMismatch:            "type mismatch",
	KindSelfReference:           "self reference",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the single error type returned by this package. StatusCode is the
// HTTP status of the underlying tracker response, or 0 when there was none.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// wrapError attaches kind and message to a store error, keeping the HTTP
// status if the store reported one. An err that is already an *Error is
// returned unchanged.
func wrapError(kind ErrorKind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: jira.StatusCode(err),
		Err:        err,
	}
}
