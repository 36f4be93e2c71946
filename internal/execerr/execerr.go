// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package execerr defines the categories of error raised while binding,
// executing and propagating generated keys for a mapped statement.
package execerr

import (
	"errors"
	"fmt"
)

// Kind provides a coarse category for execution errors.
type Kind int

const (
	// Resolution means a named property could not be found on a structured
	// argument.
	Resolution Kind = iota
	// CoercionConfig means no coercion strategy could be resolved for a bind
	// position.
	CoercionConfig
	// BindExecution means the driver, or a coercion strategy acting on its
	// behalf, rejected a bind, prepare or execute call.
	BindExecution
	// KeyExtraction means a generated key could not be read from the
	// driver or written back to the argument.
	KeyExtraction
	// ResultMapping means a result row could not be mapped into the
	// statement's result type.
	ResultMapping
)

func (k Kind) String() string {
	switch k {
	case Resolution:
		return "resolution"
	case CoercionConfig:
		return "coercion configuration"
	case BindExecution:
		return "bind/execute"
	case KeyExtraction:
		return "key extraction"
	case ResultMapping:
		return "result mapping"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error wraps an underlying error with the statement and, where known, the
// property that was being processed when it occurred.
type Error struct {
	Kind        Kind
	StatementID string
	Property    string
	Err         error
}

// Error composes a message with the statement and property context as well
// as the underlying error message.
func (e *Error) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("%s error in statement %q, property %q: %s", e.Kind, e.StatementID, e.Property, e.Err)
	}
	return fmt.Sprintf("%s error in statement %q: %s", e.Kind, e.StatementID, e.Err)
}

// Unwrap returns the inner error to allow inspection of error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// New is a convenience function for creating a new Error.
func New(kind Kind, stmtID, property string, err error) error {
	return &Error{Kind: kind, StatementID: stmtID, Property: property, Err: err}
}

// Is reports whether any error in err's chain is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
