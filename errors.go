// Package quackdb provides a pure-Go driver for DuckDB using runtime library binding.
package quackdb

import (
	"fmt"
)

// ErrorType represents different types of DuckDB errors.
type ErrorType int

const (
	// ErrGeneric is a generic error.
	ErrGeneric ErrorType = iota
	// ErrConnection is a connection error.
	ErrConnection
	// ErrPrepare is a statement preparation error.
	ErrPrepare
	// ErrExec is a statement execution error.
	ErrExec
	// ErrQuery is a query error.
	ErrQuery
	// ErrType is a value conversion error.
	ErrType
	// ErrBind is a parameter binding error.
	ErrBind
	// ErrClosed is an operation on a closed object.
	ErrClosed
	// ErrIndexRange is a parameter or element index outside its valid bounds.
	ErrIndexRange
	// ErrNotFound is a lookup of a name that does not exist.
	ErrNotFound
	// ErrIncompatibleType is a reader type that does not match the column's
	// native representation.
	ErrIncompatibleType
	// ErrNullElement is a read of a NULL or out-of-range element.
	ErrNullElement
	// ErrTransaction is a transaction error.
	ErrTransaction
)

// Error is a DuckDB-specific error type. Native failures carry the engine's
// diagnostic text verbatim in Message.
type Error struct {
	Type    ErrorType
	Message string
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("quackdb: %s", e.Message)
}

// Is reports whether target is an *Error of the same type, so that
// errors.Is(err, ErrStatementClosed) matches any closed-statement error
// regardless of message text.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewError creates a new Error.
func NewError(typ ErrorType, message string) *Error {
	return &Error{
		Type:    typ,
		Message: message,
	}
}

// Errorf creates a new Error with a formatted message.
func Errorf(typ ErrorType, format string, args ...any) *Error {
	return &Error{
		Type:    typ,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsError checks if an error is of a specific type.
func IsError(err error, typ ErrorType) bool {
	duckErr, ok := err.(*Error)
	if !ok {
		return false
	}
	return duckErr.Type == typ
}

// Common failure states. These double as errors.Is targets: any *Error of
// the same type matches.
var (
	// ErrConnectionClosed is returned when operating on a closed connection.
	ErrConnectionClosed = NewError(ErrClosed, "connection is closed")
	// ErrStatementClosed is returned when operating on a closed prepared statement.
	ErrStatementClosed = NewError(ErrClosed, "prepared statement is closed")
	// ErrResultClosed is returned when operating on a closed result.
	ErrResultClosed = NewError(ErrClosed, "result is closed")
	// ErrChunkClosed is returned when operating on a closed data chunk.
	ErrChunkClosed = NewError(ErrClosed, "data chunk is closed")
	// ErrParamIndexRange matches errors from parameter indexes outside [1, ParameterCount].
	ErrParamIndexRange = NewError(ErrIndexRange, "parameter index out of range")
	// ErrParamNotFound matches errors from unknown parameter names.
	ErrParamNotFound = NewError(ErrNotFound, "parameter not found")
	// ErrElementNull is returned when reading an element whose validity bit is unset.
	ErrElementNull = NewError(ErrNullElement, "element is NULL")
)
