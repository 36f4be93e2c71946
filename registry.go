// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"github.com/canonical/sqlbind/internal/coerce"
	"github.com/canonical/sqlbind/internal/execerr"
)

// Registry resolves the coercion strategy used for each Go type. A Registry
// is immutable and may be shared by any number of executors.
type Registry = coerce.Registry

// RegistryOption customises a Registry under construction.
type RegistryOption = coerce.RegistryOption

// Strategy converts between one Go type and its driver representation.
type Strategy = coerce.Strategy

// ParamSetter accepts positional query parameters.
type ParamSetter = coerce.ParamSetter

// ColumnReader gives access to the columns of the current row of a cursor.
type ColumnReader = coerce.ColumnReader

// NullType is the representation bound for a nil parameter value.
type NullType = coerce.NullType

const (
	NullUnset     = coerce.NullUnset
	NullOther     = coerce.NullOther
	NullVarchar   = coerce.NullVarchar
	NullInteger   = coerce.NullInteger
	NullNumeric   = coerce.NullNumeric
	NullBoolean   = coerce.NullBoolean
	NullTimestamp = coerce.NullTimestamp
	NullBinary    = coerce.NullBinary
)

// NewRegistry returns a Registry holding the default strategies and then
// those given by opts.
func NewRegistry(opts ...RegistryOption) *Registry {
	return coerce.NewRegistry(opts...)
}

// WithStrategy registers s for type t under name. A nil s removes them.
var WithStrategy = coerce.WithStrategy

// ParseNullType parses a null type name.
var ParseNullType = coerce.ParseNullType

// ErrorKind is the category of an execution error.
type ErrorKind = execerr.Kind

const (
	ResolutionError     = execerr.Resolution
	CoercionConfigError = execerr.CoercionConfig
	BindExecutionError  = execerr.BindExecution
	KeyExtractionError  = execerr.KeyExtraction
	ResultMappingError  = execerr.ResultMapping
)

// Error is returned by every failed execution. It names the statement and,
// where known, the property being processed.
type Error = execerr.Error

// IsErrorKind reports whether err is, or wraps, an Error of the given kind.
func IsErrorKind(err error, kind ErrorKind) bool {
	return execerr.Is(err, kind)
}
