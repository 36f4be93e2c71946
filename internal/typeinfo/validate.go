// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"reflect"
)

// AtomicChecker reports whether values of a type are bound as a whole.
type AtomicChecker interface {
	Has(t reflect.Type) bool
}

// Classify inspects arg once and returns the Accessor for its shape.
func Classify(arg any, atomic AtomicChecker) Accessor {
	v := reflect.ValueOf(arg)
	if isInvalidNil(v) {
		return nullArg{}
	}
	if atomic.Has(v.Type()) {
		return atomicArg{value: arg}
	}
	root := indirect(v)
	if isInvalidNil(root) {
		return nullArg{}
	}
	return &structuredArg{value: arg, root: root}
}

// ClassifyAll classifies each of args.
func ClassifyAll(args []any, atomic AtomicChecker) []Accessor {
	accessors := make([]Accessor, len(args))
	for i, arg := range args {
		accessors[i] = Classify(arg, atomic)
	}
	return accessors
}

// Deref returns the value v points to, following any number of pointers.
// Nil pointers dereference to nil.
func Deref(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return v
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func isInvalidNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
