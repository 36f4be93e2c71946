// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package coerce maps Go types to the strategies used to bind them as query
// parameters and to extract them from driver columns.
package coerce

import (
	"database/sql"
	"database/sql/driver"
	"reflect"
	"sort"
)

// ParamSetter accepts positional query parameters. Positions are 1-indexed.
type ParamSetter interface {
	SetParam(pos int, v any) error
}

// ColumnReader gives access to the columns of the current row of a cursor.
// Columns are 1-indexed.
type ColumnReader interface {
	Value(col int) (any, error)
}

// Strategy converts between one Go type and its driver representation.
// Strategies hold no per-call state and may be shared freely.
type Strategy interface {
	// Bind sets v at position pos of ps. When v is nil the strategy binds the
	// null representation nt, which must not be NullUnset.
	Bind(ps ParamSetter, pos int, v any, nt NullType) error
	// Extract reads column col of r and converts it to the strategy's type.
	// A SQL NULL is returned as nil.
	Extract(r ColumnReader, col int) (any, error)
}

var (
	scannerInterface = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	valuerInterface  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	anyType          = reflect.TypeOf((*any)(nil)).Elem()
)

// Registry resolves strategies by Go type or by name. A Registry is never
// modified after NewRegistry returns and is safe for concurrent use.
type Registry struct {
	byType map[reflect.Type]Strategy
	byName map[string]Strategy
}

// RegistryOption customises a Registry under construction.
type RegistryOption func(*Registry)

// WithStrategy registers s for type t under name. It replaces any default
// strategy for t or with the same name. A nil s removes the registrations.
func WithStrategy(t reflect.Type, name string, s Strategy) RegistryOption {
	return func(r *Registry) {
		if s == nil {
			delete(r.byType, t)
			delete(r.byName, name)
			return
		}
		if t != nil {
			r.byType[t] = s
		}
		if name != "" {
			r.byName[name] = s
		}
	}
}

// NewRegistry returns a Registry populated with the default catalogue and
// then the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byType: map[reflect.Type]Strategy{},
		byName: map[string]Strategy{},
	}
	registerDefaults(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Find returns the strategy for t. Pointer types resolve to the strategy of
// the type they point to. Types without an exact entry fall back to
// sql.Scanner/driver.Valuer implementations and then to their underlying
// primitive kind.
func (r *Registry) Find(t reflect.Type) (Strategy, bool) {
	if t == nil {
		return nil, false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if s, ok := r.byType[t]; ok {
		return s, true
	}
	if t.Implements(valuerInterface) && reflect.PointerTo(t).Implements(scannerInterface) {
		return valuerStrategy{typ: t}, true
	}
	if isPrimitiveKind(t.Kind()) {
		return kindStrategy{typ: t}, true
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return bytesStrategy{typ: t}, true
	}
	return nil, false
}

// Has reports whether a strategy exists for t. Values of such types are bound
// as a whole and never decomposed into properties. The empty interface type
// is not considered.
func (r *Registry) Has(t reflect.Type) bool {
	if t == nil || t == anyType {
		return false
	}
	_, ok := r.Find(t)
	return ok
}

// Named returns the strategy registered under name.
func (r *Registry) Named(name string) (Strategy, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Names returns the sorted names of all registered strategies.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Object returns the pass-through strategy registered for the empty
// interface type.
func (r *Registry) Object() Strategy {
	return r.byType[anyType]
}

var primitiveKinds = map[reflect.Kind]bool{
	reflect.String:  true,
	reflect.Bool:    true,
	reflect.Int:     true,
	reflect.Int8:    true,
	reflect.Int16:   true,
	reflect.Int32:   true,
	reflect.Int64:   true,
	reflect.Uint:    true,
	reflect.Uint8:   true,
	reflect.Uint16:  true,
	reflect.Uint32:  true,
	reflect.Uint64:  true,
	reflect.Float32: true,
	reflect.Float64: true,
}

func isPrimitiveKind(k reflect.Kind) bool {
	return primitiveKinds[k]
}
