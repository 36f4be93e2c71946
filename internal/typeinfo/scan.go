// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"fmt"
	"reflect"
)

// setValue sets target to v. A nil v zeroes the target.
func setValue(target reflect.Value, v any) error {
	cv, err := convertValue(v, target.Type())
	if err != nil {
		return err
	}
	target.Set(cv)
	return nil
}

// Convert returns v converted to type t under the same rules used by
// Accessor.Assign.
func Convert(v any, t reflect.Type) (any, error) {
	cv, err := convertValue(v, t)
	if err != nil {
		return nil, err
	}
	return cv.Interface(), nil
}

// convertValue returns v as a value of type t. Values are assigned directly
// where possible, converted between numeric kinds or between types sharing
// a kind, and wrapped in a new pointer when t is a pointer type.
func convertValue(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(t):
		return rv, nil
	case convertible(rv.Type(), t):
		return rv.Convert(t), nil
	case t.Kind() == reflect.Pointer:
		elem, err := convertValue(v, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(elem)
		return p, nil
	case rv.Kind() == reflect.Pointer:
		if rv.IsNil() {
			return reflect.Zero(t), nil
		}
		return convertValue(rv.Elem().Interface(), t)
	}
	return reflect.Value{}, fmt.Errorf("cannot assign %s to %s", rv.Type(), t)
}

// convertible reports whether values of type from can be converted to type
// to without changing their meaning.
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	fk, tk := from.Kind(), to.Kind()
	if isNumeric(fk) && isNumeric(tk) {
		return true
	}
	return fk == tk && fk != reflect.Pointer
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
