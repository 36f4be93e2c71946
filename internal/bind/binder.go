// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package bind sets the positional parameters of a prepared statement from a
// caller's argument.
package bind

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/canonical/sqlbind/internal/coerce"
	"github.com/canonical/sqlbind/internal/execerr"
	"github.com/canonical/sqlbind/internal/typeinfo"
)

// Mode is the direction of a parameter.
type Mode int

const (
	In Mode = iota
	Out
	InOut
)

func (m Mode) String() string {
	switch m {
	case In:
		return "in"
	case Out:
		return "out"
	case InOut:
		return "inout"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses the mode names used in mapper files. The empty string is
// In.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "in":
		return In, nil
	case "out":
		return Out, nil
	case "inout":
		return InOut, nil
	}
	return In, fmt.Errorf("unknown parameter mode %q", s)
}

// Spec describes the parameter at one position of a statement.
type Spec struct {
	// Property names the value in the argument. Dotted names reach into
	// nested structs and maps.
	Property string
	Mode     Mode
	// Coercion, when set, is used instead of a strategy found by type.
	Coercion coerce.Strategy
	// NullType is the representation bound when the value is nil. NullUnset
	// defers to the binder's default.
	NullType coerce.NullType
	// GoType is the declared type of the property. It is only consulted when
	// no other type information is available.
	GoType reflect.Type
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// Binder binds statement parameters. It is safe for concurrent use.
type Binder struct {
	Registry *coerce.Registry
	// DefaultNull replaces an unset null type when binding a nil value.
	DefaultNull coerce.NullType
}

// Bind sets the parameter of every non-OUT spec at its 1-indexed position.
// Values named in additional are taken from it in preference to arg. Binding
// stops at the first failure; parameters already set are left set.
func (b *Binder) Bind(ps coerce.ParamSetter, stmtID string, specs []Spec, arg typeinfo.Accessor, additional map[string]any) error {
	for i, spec := range specs {
		if spec.Mode == Out {
			continue
		}
		if kind, err := b.bindOne(ps, i+1, spec, arg, additional); err != nil {
			return execerr.New(kind, stmtID, spec.Property, err)
		}
	}
	return nil
}

// bindOne binds a single spec at pos. It returns the category of any
// failure alongside the error.
func (b *Binder) bindOne(ps coerce.ParamSetter, pos int, spec Spec, arg typeinfo.Accessor, additional map[string]any) (execerr.Kind, error) {
	value, fromAdditional, err := resolve(spec.Property, arg, additional)
	if err != nil {
		return execerr.Resolution, err
	}
	value = typeinfo.Deref(value)

	strategy := spec.Coercion
	if strategy == nil {
		strategy = b.findStrategy(spec, arg, value, fromAdditional)
		if strategy == nil {
			return execerr.CoercionConfig, fmt.Errorf("no coercion strategy for parameter %d", pos)
		}
	}

	nullType := spec.NullType
	if value == nil && nullType == coerce.NullUnset {
		nullType = b.DefaultNull
	}
	return execerr.BindExecution, strategy.Bind(ps, pos, value, nullType)
}

// resolve returns the value of the named property, looking in additional
// first.
func resolve(name string, arg typeinfo.Accessor, additional map[string]any) (any, bool, error) {
	if v, ok := additional[name]; ok {
		return v, true, nil
	}
	v, err := arg.Resolve(name)
	return v, false, err
}

// findStrategy picks the strategy for a spec without an explicit coercion.
func (b *Binder) findStrategy(spec Spec, arg typeinfo.Accessor, value any, fromAdditional bool) coerce.Strategy {
	var candidates []reflect.Type
	switch {
	case fromAdditional:
		if value != nil {
			candidates = append(candidates, reflect.TypeOf(value))
		}
	case arg.Kind() == typeinfo.Atomic:
		candidates = append(candidates, reflect.TypeOf(arg.Value()))
	case arg.Kind() == typeinfo.Structured:
		if t, ok := arg.TargetType(spec.Property); ok {
			candidates = append(candidates, t)
		}
	}
	if value != nil {
		candidates = append(candidates, reflect.TypeOf(value))
	}
	candidates = append(candidates, spec.GoType, anyType)
	for _, t := range candidates {
		if t == nil {
			continue
		}
		if s, ok := b.Registry.Find(t); ok {
			return s
		}
	}
	return nil
}
