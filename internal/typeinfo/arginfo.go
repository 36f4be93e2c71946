// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeinfo

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
)

// structField represents reflection information about a field of a particular
// struct type.
type structField struct {
	// name is the member name within the struct.
	name string

	// tag is the name given in the field's "db" tag, if any.
	tag string

	// index for Value.FieldByIndex.
	index []int

	// depth is zero for fields declared directly on the struct and greater
	// for fields promoted from embedded structs.
	depth int
}

// structInfo stores information useful for sqlbind about struct types.
type structInfo struct {
	structType reflect.Type

	byTag       map[string]*structField
	byName      map[string]*structField
	byLowerName map[string]*structField
}

// field finds a field by db tag, then by field name, then by field name
// ignoring case.
func (si *structInfo) field(name string) (*structField, bool) {
	if f, ok := si.byTag[name]; ok {
		return f, true
	}
	if f, ok := si.byName[name]; ok {
		return f, true
	}
	f, ok := si.byLowerName[strings.ToLower(name)]
	return f, ok
}

var structInfoCacheMutex sync.RWMutex
var structInfoCache = make(map[reflect.Type]*structInfo)

// getStructInfo returns type information about the struct type t, generating
// and caching as required.
func getStructInfo(t reflect.Type) (*structInfo, error) {
	structInfoCacheMutex.RLock()
	info, found := structInfoCache[t]
	structInfoCacheMutex.RUnlock()
	if found {
		return info, nil
	}

	info = &structInfo{
		structType:  t,
		byTag:       map[string]*structField{},
		byName:      map[string]*structField{},
		byLowerName: map[string]*structField{},
	}
	if err := info.addFields(t, nil, 0); err != nil {
		return nil, err
	}

	// Put type in cache.
	structInfoCacheMutex.Lock()
	structInfoCache[t] = info
	structInfoCacheMutex.Unlock()

	return info, nil
}

// addFields adds the fields of t, located at index within the outermost
// struct, to the info. Untagged embedded structs are flattened. A field
// already known at a shallower depth is not replaced.
func (si *structInfo) addFields(t reflect.Type, index []int, depth int) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fieldIndex := append(append([]int{}, index...), i)
		tag := f.Tag.Get("db")
		if tag == "-" {
			continue
		}
		if f.Anonymous && tag == "" && f.Type.Kind() == reflect.Struct {
			if err := si.addFields(f.Type, fieldIndex, depth+1); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() {
			if tag != "" {
				return fmt.Errorf("field %q of struct %s not exported", f.Name, si.structType.Name())
			}
			continue
		}

		sf := &structField{
			name:  f.Name,
			index: fieldIndex,
			depth: depth,
		}
		if tag != "" {
			name, _, err := parseTag(tag)
			if err != nil {
				return fmt.Errorf("cannot parse tag for field %s.%s: %s", si.structType.Name(), f.Name, err)
			}
			sf.tag = name
			if _, ok := si.byTag[name]; !ok {
				si.byTag[name] = sf
			}
		}
		if _, ok := si.byName[f.Name]; !ok {
			si.byName[f.Name] = sf
		}
		if _, ok := si.byLowerName[strings.ToLower(f.Name)]; !ok {
			si.byLowerName[strings.ToLower(f.Name)] = sf
		}
	}
	return nil
}

// FieldDepth returns the embedding depth of the field of struct type t
// matching name. Fields declared directly on t have depth zero. It returns
// false if t is not a struct or has no such field.
func FieldDepth(t reflect.Type, name string) (int, bool) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return 0, false
	}
	info, err := getStructInfo(t)
	if err != nil {
		return 0, false
	}
	f, ok := info.field(name)
	if !ok {
		return 0, false
	}
	return f.depth, true
}

// This expression should be aligned with the characters allowed in property
// names by the mapper loader.
var validColNameRx = regexp.MustCompile(`^([a-zA-Z_])+([a-zA-Z_0-9])*$`)

// parseTag parses the input tag string and returns its
// name and whether it contains the "omitempty" option.
func parseTag(tag string) (string, bool, error) {
	options := strings.Split(tag, ",")

	var omitEmpty bool
	if len(options) > 1 {
		for _, flag := range options[1:] {
			if flag == "omitempty" {
				omitEmpty = true
			} else {
				return "", omitEmpty, fmt.Errorf("unsupported flag %q in tag %q", flag, tag)
			}
		}
	}

	name := options[0]
	if len(name) == 0 {
		return "", false, fmt.Errorf("empty db tag")
	}

	if !validColNameRx.MatchString(name) {
		return "", false, fmt.Errorf("invalid column name in 'db' tag: %q", name)
	}

	return name, omitEmpty, nil
}
