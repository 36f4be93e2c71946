// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrNoProperty is returned when a structured argument has no property
	// with the requested name.
	ErrNoProperty = errors.New("no such property")
	// ErrNotAssignable is returned when assigning to a null or atomic
	// argument.
	ErrNotAssignable = errors.New("argument cannot be assigned to")
)

// Kind is the shape category of an argument.
type Kind int

const (
	Null Kind = iota
	Atomic
	Structured
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Atomic:
		return "atomic"
	case Structured:
		return "structured"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Accessor reads and writes the properties of one argument.
type Accessor interface {
	// Kind returns the shape category of the argument.
	Kind() Kind
	// Value returns the argument as given by the user.
	Value() any
	// Resolve returns the value of the named property.
	Resolve(name string) (any, error)
	// Assign writes v to the named property. Assigning to a property that
	// the argument does not have is a no-op.
	Assign(name string, v any) error
	// HasTarget reports whether Assign would write the named property.
	HasTarget(name string) bool
	// TargetType returns the type of the value Assign would write.
	TargetType(name string) (reflect.Type, bool)
}

// nullArg is a nil argument. Every property of it is nil.
type nullArg struct{}

func (nullArg) Kind() Kind { return Null }

func (nullArg) Value() any { return nil }

func (nullArg) Resolve(string) (any, error) { return nil, nil }

func (nullArg) Assign(name string, _ any) error {
	return fmt.Errorf("%w: property %q of nil argument", ErrNotAssignable, name)
}

func (nullArg) HasTarget(string) bool { return false }

func (nullArg) TargetType(string) (reflect.Type, bool) { return nil, false }

// atomicArg is an argument bound as a single value. Every property name
// resolves to the argument itself.
type atomicArg struct {
	value any
}

func (a atomicArg) Kind() Kind { return Atomic }

func (a atomicArg) Value() any { return a.value }

func (a atomicArg) Resolve(string) (any, error) { return a.value, nil }

func (a atomicArg) Assign(name string, _ any) error {
	return fmt.Errorf("%w: property %q of %T", ErrNotAssignable, name, a.value)
}

func (a atomicArg) HasTarget(string) bool { return false }

func (a atomicArg) TargetType(string) (reflect.Type, bool) { return nil, false }

// structuredArg is a map or struct argument. root is the argument with any
// pointers removed.
type structuredArg struct {
	value any
	root  reflect.Value
}

func (a *structuredArg) Kind() Kind { return Structured }

func (a *structuredArg) Value() any { return a.value }

// Resolve returns the value of the property. A nil value part way along a
// dotted name resolves to nil.
func (a *structuredArg) Resolve(name string) (any, error) {
	v, res, err := walk(a.root, splitName(name))
	switch {
	case err != nil:
		return nil, err
	case res == walkNil:
		return nil, nil
	case res == walkMissing:
		return nil, fmt.Errorf("%w %q in %s", ErrNoProperty, name, a.root.Type())
	}
	return v.Interface(), nil
}

// Assign writes v to the property, converting it to the property's type
// where needed. Missing properties, nil values part way along a dotted name
// and struct arguments passed by value are skipped.
func (a *structuredArg) Assign(name string, v any) error {
	parts := splitName(name)
	container, ok, err := a.container(parts)
	if err != nil || !ok {
		return err
	}
	last := parts[len(parts)-1]
	switch container.Kind() {
	case reflect.Map:
		ev, err := convertValue(v, container.Type().Elem())
		if err != nil {
			return fmt.Errorf("cannot assign property %q: %w", name, err)
		}
		container.SetMapIndex(mapKey(container, last), ev)
	case reflect.Struct:
		target, res, err := member(container, last)
		if err != nil || res != walkFound || !target.CanSet() {
			return err
		}
		if err := setValue(target, v); err != nil {
			return fmt.Errorf("cannot assign property %q: %w", name, err)
		}
	}
	return nil
}

func (a *structuredArg) HasTarget(name string) bool {
	_, ok := a.TargetType(name)
	return ok
}

func (a *structuredArg) TargetType(name string) (reflect.Type, bool) {
	parts := splitName(name)
	container, ok, err := a.container(parts)
	if err != nil || !ok {
		return nil, false
	}
	last := parts[len(parts)-1]
	switch container.Kind() {
	case reflect.Map:
		return container.Type().Elem(), true
	case reflect.Struct:
		target, res, err := member(container, last)
		if err != nil || res != walkFound || !target.CanSet() {
			return nil, false
		}
		return target.Type(), true
	}
	return nil, false
}

// container returns the settable map or struct holding the last element of
// parts. ok is false when there is nowhere to write.
func (a *structuredArg) container(parts []string) (reflect.Value, bool, error) {
	c, res, err := walk(a.root, parts[:len(parts)-1])
	if err != nil || res != walkFound {
		return reflect.Value{}, false, err
	}
	c = indirect(c)
	switch {
	case !c.IsValid():
		return reflect.Value{}, false, nil
	case c.Kind() == reflect.Map:
		if c.IsNil() || c.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false, nil
		}
	case c.Kind() != reflect.Struct:
		return reflect.Value{}, false, nil
	}
	return c, true, nil
}

type walkResult int

const (
	walkFound walkResult = iota
	walkNil
	walkMissing
)

// walk follows the property names in parts from v.
func walk(v reflect.Value, parts []string) (reflect.Value, walkResult, error) {
	cur := v
	for _, part := range parts {
		cur = indirect(cur)
		if !cur.IsValid() {
			return reflect.Value{}, walkNil, nil
		}
		next, res, err := member(cur, part)
		if err != nil || res != walkFound {
			return reflect.Value{}, res, err
		}
		cur = next
	}
	return cur, walkFound, nil
}

// member returns the named member of the struct or map v.
func member(v reflect.Value, name string) (reflect.Value, walkResult, error) {
	switch v.Kind() {
	case reflect.Struct:
		info, err := getStructInfo(v.Type())
		if err != nil {
			return reflect.Value{}, walkMissing, err
		}
		f, ok := info.field(name)
		if !ok {
			return reflect.Value{}, walkMissing, nil
		}
		return v.FieldByIndex(f.index), walkFound, nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, walkMissing, nil
		}
		e := v.MapIndex(mapKey(v, name))
		if !e.IsValid() {
			return reflect.Value{}, walkMissing, nil
		}
		return e, walkFound, nil
	}
	return reflect.Value{}, walkMissing, nil
}

// mapKey returns name as a key of the map m, whose key type may be a named
// string type.
func mapKey(m reflect.Value, name string) reflect.Value {
	return reflect.ValueOf(name).Convert(m.Type().Key())
}

// indirect removes pointers and interfaces from v. It returns the zero Value
// if it meets a nil.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func splitName(name string) []string {
	return strings.Split(name, ".")
}
