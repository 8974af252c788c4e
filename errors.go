package docudb

import (
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// Kind categorizes store errors.
type Kind string

const (
	// KindConnection indicates the store could not be opened or reached.
	KindConnection Kind = "CONNECTION"

	// KindStatement indicates a statement failed to prepare or bind.
	KindStatement Kind = "STATEMENT"

	// KindExecution indicates a statement failed while stepping.
	KindExecution Kind = "EXECUTION"

	// KindNotFound indicates a document id or JSON path did not resolve
	// where the caller expected it to.
	KindNotFound Kind = "NOT_FOUND"

	// KindConstraint indicates a unique index rejected a write.
	KindConstraint Kind = "CONSTRAINT"

	// KindMalformed indicates text asserted as JSON was not valid JSON.
	KindMalformed Kind = "MALFORMED_JSON"
)

// Error is the error type returned by every failing store operation.
// Statement failures carry the generated SQL so callers can tell a
// malformed predicate apart from a rejected constraint.
type Error struct {
	Kind    Kind
	Message string

	// SQL is the generated statement text, set when a statement was
	// involved in the failure.
	SQL string

	// Err is the underlying driver error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.SQL != "" {
		msg += fmt.Sprintf(" (sql: %s)", e.SQL)
	}
	return msg
}

// Unwrap returns the underlying driver error.
func (e *Error) Unwrap() error { return e.Err }

// IsNotFound returns true if the error is a not-found failure.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == KindNotFound
}

// IsConstraint returns true if the error is a unique constraint
// violation. Uses errors.As to handle wrapped errors.
func IsConstraint(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == KindConstraint
}

// notFound creates a KindNotFound error.
func notFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// wrap classifies a driver error against the statement that produced
// it. Constraint violations and malformed JSON map to their own
// kinds; other SQLITE_ERROR failures are statement-level (syntax or
// JSON path errors surface at prepare); everything else is an
// execution failure.
func wrap(err error, stmt string) *Error {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.Code {
		case sqlite3.ErrConstraint:
			return &Error{Kind: KindConstraint, Message: "constraint violated", SQL: stmt, Err: err}
		case sqlite3.ErrError:
			if strings.Contains(err.Error(), "malformed JSON") {
				return &Error{Kind: KindMalformed, Message: "body is not valid JSON", SQL: stmt, Err: err}
			}
			return &Error{Kind: KindStatement, Message: "statement rejected", SQL: stmt, Err: err}
		}
	}
	return &Error{Kind: KindExecution, Message: "statement failed", SQL: stmt, Err: err}
}
