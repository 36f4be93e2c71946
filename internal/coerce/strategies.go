// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package coerce

import (
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

var primitiveTypes = map[string]any{
	"string":  "",
	"bool":    false,
	"uint":    uint(0),
	"uint8":   uint8(0),
	"uint16":  uint16(0),
	"uint32":  uint32(0),
	"uint64":  uint64(0),
	"int":     int(0),
	"int8":    int8(0),
	"int16":   int16(0),
	"int32":   int32(0),
	"int64":   int64(0),
	"float32": float32(0),
	"float64": float64(0),
}

var scannerTypes = map[string]any{
	"null_string":  sql.NullString{},
	"null_int64":   sql.NullInt64{},
	"null_int32":   sql.NullInt32{},
	"null_float64": sql.NullFloat64{},
	"null_bool":    sql.NullBool{},
	"null_time":    sql.NullTime{},
}

func registerDefaults(r *Registry) {
	for name, sample := range primitiveTypes {
		t := reflect.TypeOf(sample)
		s := kindStrategy{typ: t}
		r.byType[t] = s
		r.byName[name] = s
	}
	for name, sample := range scannerTypes {
		t := reflect.TypeOf(sample)
		s := valuerStrategy{typ: t}
		r.byType[t] = s
		r.byName[name] = s
	}

	bytes := bytesStrategy{typ: reflect.TypeOf([]byte(nil))}
	r.byType[bytes.typ] = bytes
	r.byName["bytes"] = bytes

	r.byType[reflect.TypeOf(time.Time{})] = timeStrategy{}
	r.byName["time"] = timeStrategy{}

	r.byType[reflect.TypeOf(ulid.ULID{})] = ulidStrategy{}
	r.byName["ulid"] = ulidStrategy{}

	object := objectStrategy{reg: r}
	r.byType[anyType] = object
	r.byName["object"] = object
}

// bindNull binds the null representation nt at pos.
func bindNull(ps ParamSetter, pos int, nt NullType) error {
	if nt == NullUnset {
		return errors.Errorf("cannot bind null at position %d without a null type", pos)
	}
	return ps.SetParam(pos, nt.Value())
}

// kindStrategy handles the primitive kinds, including named types whose
// underlying type is primitive. Values are bound as the canonical driver
// types int64, float64, bool and string.
type kindStrategy struct {
	typ reflect.Type
}

func (s kindStrategy) Bind(ps ParamSetter, pos int, v any, nt NullType) error {
	if v == nil {
		return bindNull(ps, pos, nt)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != s.typ.Kind() {
		cv, err := convertKind(v, s.typ)
		if err != nil {
			return err
		}
		rv = reflect.ValueOf(cv)
	}
	dv, err := driverValue(rv)
	if err != nil {
		return err
	}
	return ps.SetParam(pos, dv)
}

func (s kindStrategy) Extract(r ColumnReader, col int) (any, error) {
	raw, err := r.Value(col)
	if err != nil || raw == nil {
		return nil, err
	}
	return convertKind(raw, s.typ)
}

// driverValue converts a primitive value to its canonical driver type.
func driverValue(rv reflect.Value) (any, error) {
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, errors.Errorf("uint64 value %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return nil, errors.Errorf("cannot bind %s as a primitive value", rv.Type())
}

// convertKind converts a driver value to a value of type t, which must have a
// primitive kind.
func convertKind(raw any, t reflect.Type) (any, error) {
	dst := reflect.New(t).Elem()
	switch k := t.Kind(); k {
	case reflect.String:
		switch v := raw.(type) {
		case string:
			dst.SetString(v)
		case []byte:
			dst.SetString(string(v))
		default:
			dst.SetString(fmt.Sprint(v))
		}
	case reflect.Bool:
		b, err := asBool(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot convert %T to %s", raw, t)
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := asInt64(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot convert %T to %s", raw, t)
		}
		if dst.OverflowInt(n) {
			return nil, errors.Errorf("value %d overflows %s", n, t)
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := asInt64(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot convert %T to %s", raw, t)
		}
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return nil, errors.Errorf("value %d overflows %s", n, t)
		}
		dst.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		f, err := asFloat64(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot convert %T to %s", raw, t)
		}
		if dst.OverflowFloat(f) {
			return nil, errors.Errorf("value %v overflows %s", f, t)
		}
		dst.SetFloat(f)
	default:
		return nil, errors.Errorf("cannot convert to non-primitive type %s", t)
	}
	return dst.Interface(), nil
}

func asInt64(raw any) (int64, error) {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, errors.Errorf("value %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) {
			return 0, errors.Errorf("value %v is not integral", f)
		}
		return int64(f), nil
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	case reflect.String:
		return strconv.ParseInt(rv.String(), 10, 64)
	case reflect.Slice:
		if b, ok := raw.([]byte); ok {
			return strconv.ParseInt(string(b), 10, 64)
		}
	}
	return 0, errors.Errorf("unsupported source type %T", raw)
}

func asFloat64(raw any) (float64, error) {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.String:
		return strconv.ParseFloat(rv.String(), 64)
	case reflect.Slice:
		if b, ok := raw.([]byte); ok {
			return strconv.ParseFloat(string(b), 64)
		}
	}
	return 0, errors.Errorf("unsupported source type %T", raw)
}

func asBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	case []byte:
		return strconv.ParseBool(string(v))
	}
	n, err := asInt64(raw)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

// bytesStrategy handles []byte and named byte slice types.
type bytesStrategy struct {
	typ reflect.Type
}

func (s bytesStrategy) Bind(ps ParamSetter, pos int, v any, nt NullType) error {
	if v == nil {
		return bindNull(ps, pos, nt)
	}
	if str, ok := v.(string); ok {
		return ps.SetParam(pos, []byte(str))
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() != reflect.Uint8 {
		return errors.Errorf("cannot bind %T as bytes", v)
	}
	if rv.IsNil() {
		return bindNull(ps, pos, nt)
	}
	return ps.SetParam(pos, rv.Bytes())
}

func (s bytesStrategy) Extract(r ColumnReader, col int) (any, error) {
	raw, err := r.Value(col)
	if err != nil || raw == nil {
		return nil, err
	}
	var b []byte
	switch v := raw.(type) {
	case []byte:
		b = append([]byte(nil), v...)
	case string:
		b = []byte(v)
	default:
		return nil, errors.Errorf("cannot convert %T to %s", raw, s.typ)
	}
	return reflect.ValueOf(b).Convert(s.typ).Interface(), nil
}

// timeLayouts are tried in order when a time is stored as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type timeStrategy struct{}

func (timeStrategy) Bind(ps ParamSetter, pos int, v any, nt NullType) error {
	if v == nil {
		return bindNull(ps, pos, nt)
	}
	t, ok := v.(time.Time)
	if !ok {
		return errors.Errorf("cannot bind %T as time", v)
	}
	return ps.SetParam(pos, t)
}

func (timeStrategy) Extract(r ColumnReader, col int) (any, error) {
	raw, err := r.Value(col)
	if err != nil || raw == nil {
		return nil, err
	}
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case []byte:
		return parseTime(string(v))
	case string:
		return parseTime(v)
	}
	return nil, errors.Errorf("cannot convert %T to time", raw)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("cannot parse %q as time", s)
}

// ulidStrategy stores ULIDs in their 26 character text form and reads either
// the text or the 16 byte binary form.
type ulidStrategy struct{}

func (ulidStrategy) Bind(ps ParamSetter, pos int, v any, nt NullType) error {
	if v == nil {
		return bindNull(ps, pos, nt)
	}
	id, ok := v.(ulid.ULID)
	if !ok {
		return errors.Errorf("cannot bind %T as ulid", v)
	}
	return ps.SetParam(pos, id.String())
}

func (ulidStrategy) Extract(r ColumnReader, col int) (any, error) {
	raw, err := r.Value(col)
	if err != nil || raw == nil {
		return nil, err
	}
	var id ulid.ULID
	switch v := raw.(type) {
	case string:
		id, err = ulid.Parse(v)
	case []byte:
		if len(v) == len(id) {
			err = id.UnmarshalBinary(v)
		} else {
			id, err = ulid.Parse(string(v))
		}
	default:
		return nil, errors.Errorf("cannot convert %T to ulid", raw)
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot read ulid")
	}
	return id, nil
}

// valuerStrategy handles types implementing both driver.Valuer and, through
// a pointer, sql.Scanner. Such types represent SQL NULL themselves, so
// Extract never returns nil.
type valuerStrategy struct {
	typ reflect.Type
}

func (s valuerStrategy) Bind(ps ParamSetter, pos int, v any, nt NullType) error {
	if v == nil {
		return bindNull(ps, pos, nt)
	}
	return ps.SetParam(pos, v)
}

func (s valuerStrategy) Extract(r ColumnReader, col int) (any, error) {
	raw, err := r.Value(col)
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(s.typ)
	if err := ptr.Interface().(sql.Scanner).Scan(raw); err != nil {
		return nil, errors.Wrapf(err, "cannot scan %T into %s", raw, s.typ)
	}
	return ptr.Elem().Interface(), nil
}

// objectStrategy is registered for the empty interface type. It binds a
// value with the strategy of its runtime type when one exists and passes it
// to the driver unchanged otherwise. Extract returns the raw driver value.
type objectStrategy struct {
	reg *Registry
}

func (s objectStrategy) Bind(ps ParamSetter, pos int, v any, nt NullType) error {
	if v == nil {
		return bindNull(ps, pos, nt)
	}
	if inner, ok := s.reg.Find(reflect.TypeOf(v)); ok {
		if _, isObject := inner.(objectStrategy); !isObject {
			return inner.Bind(ps, pos, v, nt)
		}
	}
	return ps.SetParam(pos, v)
}

func (s objectStrategy) Extract(r ColumnReader, col int) (any, error) {
	return r.Value(col)
}
