// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package coerce

import (
	"database/sql"
	"fmt"
	"strings"
)

// NullType names the driver representation used when a null value is bound.
// The zero value means no representation was given.
type NullType int

const (
	NullUnset NullType = iota
	NullOther
	NullVarchar
	NullInteger
	NullNumeric
	NullBoolean
	NullTimestamp
	NullBinary
)

var nullTypeNames = map[NullType]string{
	NullUnset:     "",
	NullOther:     "other",
	NullVarchar:   "varchar",
	NullInteger:   "integer",
	NullNumeric:   "numeric",
	NullBoolean:   "boolean",
	NullTimestamp: "timestamp",
	NullBinary:    "binary",
}

func (nt NullType) String() string {
	if s, ok := nullTypeNames[nt]; ok {
		if s == "" {
			return "unset"
		}
		return s
	}
	return fmt.Sprintf("NullType(%d)", int(nt))
}

// ParseNullType returns the NullType with the given name. The empty string
// parses to NullUnset.
func ParseNullType(s string) (NullType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for nt, name := range nullTypeNames {
		if name == s {
			return nt, nil
		}
	}
	return NullUnset, fmt.Errorf("unknown null type %q", s)
}

// UnmarshalText allows NullType to be used directly in configuration files.
func (nt *NullType) UnmarshalText(text []byte) error {
	v, err := ParseNullType(string(text))
	if err != nil {
		return err
	}
	*nt = v
	return nil
}

// Value returns the typed database/sql null bound for the representation.
// NullUnset and NullOther bind an untyped nil.
func (nt NullType) Value() any {
	switch nt {
	case NullVarchar:
		return sql.NullString{}
	case NullInteger:
		return sql.NullInt64{}
	case NullNumeric:
		return sql.NullFloat64{}
	case NullBoolean:
		return sql.NullBool{}
	case NullTimestamp:
		return sql.NullTime{}
	case NullBinary:
		return []byte(nil)
	}
	return nil
}
