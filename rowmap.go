// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"fmt"
	"reflect"

	"github.com/canonical/sqlbind/internal/coerce"
	"github.com/canonical/sqlbind/internal/typeinfo"
)

// M is a convenience type for arguments and rows referenced by key. Any map
// type with string keys can be used in its place.
type M map[string]any

// RowHandler receives each mapped row of a select as it is read. It stops
// the query by returning an error.
type RowHandler func(row any) error

// rowMapper turns result rows into values of a statement's result type.
type rowMapper struct {
	// typ is the result type. A nil typ maps rows to M.
	typ       reflect.Type
	behaviour AutoMapping
	registry  *coerce.Registry
}

func newRowMapper(typ reflect.Type, behaviour AutoMapping, registry *coerce.Registry) *rowMapper {
	return &rowMapper{typ: typ, behaviour: behaviour, registry: registry}
}

// mapRow maps the current row of r, whose columns are named by cols.
func (m *rowMapper) mapRow(cols []string, r coerce.ColumnReader) (any, error) {
	if m.typ == nil || m.behaviour == AutoMappingNone {
		return m.toM(cols, r)
	}
	base := m.typ
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	switch {
	case m.registry.Has(base):
		return m.toAtomic(base, r)
	case base.Kind() == reflect.Map && base.Key().Kind() == reflect.String:
		mv := reflect.MakeMap(base)
		if err := m.fill(mv.Interface(), base, cols, r); err != nil {
			return nil, err
		}
		return m.shape(mv)
	case base.Kind() == reflect.Struct:
		ptr := reflect.New(base)
		if err := m.fill(ptr.Interface(), base, cols, r); err != nil {
			return nil, err
		}
		return m.shape(ptr.Elem())
	}
	return nil, fmt.Errorf("cannot map rows into %s", m.typ)
}

func (m *rowMapper) toM(cols []string, r coerce.ColumnReader) (any, error) {
	row := M{}
	for i, col := range cols {
		v, err := r.Value(i + 1)
		if err != nil {
			return nil, err
		}
		row[col] = v
	}
	return row, nil
}

// toAtomic reads the first column as a single value of type t.
func (m *rowMapper) toAtomic(t reflect.Type, r coerce.ColumnReader) (any, error) {
	s, _ := m.registry.Find(t)
	v, err := s.Extract(r, 1)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return reflect.Zero(m.typ).Interface(), nil
	}
	return typeinfo.Convert(v, m.typ)
}

// fill assigns each column to the matching property of target. Columns
// without a matching property, or matching only a field of an embedded
// struct when auto-mapping is partial, are ignored.
func (m *rowMapper) fill(target any, base reflect.Type, cols []string, r coerce.ColumnReader) error {
	acc := typeinfo.Classify(target, m.registry)
	for i, col := range cols {
		if base.Kind() == reflect.Struct {
			depth, ok := typeinfo.FieldDepth(base, col)
			if !ok || (depth > 0 && m.behaviour != AutoMappingFull) {
				continue
			}
		}
		t, ok := acc.TargetType(col)
		if !ok {
			continue
		}
		s, ok := m.registry.Find(t)
		if !ok {
			continue
		}
		v, err := s.Extract(r, i+1)
		if err != nil {
			return fmt.Errorf("column %q: %w", col, err)
		}
		if err := acc.Assign(col, v); err != nil {
			return err
		}
	}
	return nil
}

// shape returns v, or a pointer to it if the result type is a pointer.
func (m *rowMapper) shape(v reflect.Value) (any, error) {
	if m.typ.Kind() != reflect.Pointer {
		return v.Interface(), nil
	}
	return typeinfo.Convert(v.Interface(), m.typ)
}
