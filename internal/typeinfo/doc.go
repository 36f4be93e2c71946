// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

/*
Package typeinfo contains code relating to Go types and their processing in
sqlbind. As much as possible, reflection code is limited to this package. It
classifies the arguments passed by the user and reads and writes their
properties by name.

An argument is classified exactly once, in this order of precedence:

  - Null: a nil interface, pointer, map or slice.
  - Atomic: a value whose type has a registered coercion strategy. The whole
    value is the property value for every property name.
  - Structured: a map with string keys or a struct, possibly behind pointers.
    Properties are map keys or struct fields, matched by `db` tag and then by
    field name. Dotted names walk nested values.
*/
package typeinfo
