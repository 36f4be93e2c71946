// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/canonical/sqlbind/internal/bind"
	"github.com/canonical/sqlbind/internal/parse"
)

// Kind is the kind of SQL command a statement runs.
type Kind int

const (
	Select Kind = iota
	Insert
	Update
	Delete
)

func (k Kind) String() string {
	switch k {
	case Select:
		return "select"
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses a statement kind name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "select":
		return Select, nil
	case "insert":
		return Insert, nil
	case "update":
		return Update, nil
	case "delete":
		return Delete, nil
	}
	return Select, fmt.Errorf("unknown statement kind %q", s)
}

// KeyGenerator selects how generated keys are read after an insert or
// update.
type KeyGenerator int

const (
	// KeyGeneratorUnset defers to the executor's configuration.
	KeyGeneratorUnset KeyGenerator = iota
	// KeyGeneratorNone never reads generated keys.
	KeyGeneratorNone
	// KeyGeneratorLastInsertID reads the single key reported by
	// sql.Result.LastInsertId.
	KeyGeneratorLastInsertID
	// KeyGeneratorReturning reads keys from the rows returned by the
	// statement itself, for example through a RETURNING clause.
	KeyGeneratorReturning
)

func (g KeyGenerator) String() string {
	switch g {
	case KeyGeneratorUnset:
		return "unset"
	case KeyGeneratorNone:
		return "none"
	case KeyGeneratorLastInsertID:
		return "last_insert_id"
	case KeyGeneratorReturning:
		return "returning"
	}
	return fmt.Sprintf("KeyGenerator(%d)", int(g))
}

// ParseKeyGenerator parses a key generator name. The empty string is
// KeyGeneratorUnset.
func ParseKeyGenerator(s string) (KeyGenerator, error) {
	switch strings.ToLower(s) {
	case "", "unset":
		return KeyGeneratorUnset, nil
	case "none":
		return KeyGeneratorNone, nil
	case "last_insert_id":
		return KeyGeneratorLastInsertID, nil
	case "returning":
		return KeyGeneratorReturning, nil
	}
	return KeyGeneratorUnset, fmt.Errorf("unknown key generator %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *KeyGenerator) UnmarshalText(text []byte) error {
	kg, err := ParseKeyGenerator(string(text))
	if err != nil {
		return err
	}
	*g = kg
	return nil
}

// BindSpec describes the parameter at one position of a statement.
type BindSpec = bind.Spec

// Mode is the direction of a parameter.
type Mode = bind.Mode

const (
	In    = bind.In
	Out   = bind.Out
	InOut = bind.InOut
)

// Statement is a mapped statement definition. It is immutable once created
// and may be shared by concurrent executions.
type Statement struct {
	id            string
	sql           string
	kind          Kind
	binds         []BindSpec
	keyProperties []string
	keyGenerator  KeyGenerator
	resultType    reflect.Type
}

// StatementOption configures a Statement under construction.
type StatementOption func(*Statement)

// WithBinds sets the parameters of the statement, in position order.
func WithBinds(binds ...BindSpec) StatementOption {
	return func(s *Statement) {
		s.binds = append([]BindSpec(nil), binds...)
	}
}

// WithKeyProperties names the argument properties that receive generated
// keys, in the column order of the generated key cursor.
func WithKeyProperties(props ...string) StatementOption {
	return func(s *Statement) {
		s.keyProperties = append([]string(nil), props...)
	}
}

// WithKeyGenerator sets how generated keys are read.
func WithKeyGenerator(g KeyGenerator) StatementOption {
	return func(s *Statement) {
		s.keyGenerator = g
	}
}

// WithResultType sets the type each row of a select is mapped into. The
// type sample may be a value or a pointer; rows are returned with the same
// shape.
func WithResultType(sample any) StatementOption {
	return func(s *Statement) {
		s.resultType = reflect.TypeOf(sample)
	}
}

// NewStatement creates a Statement and checks it is well formed.
func NewStatement(id string, kind Kind, sql string, opts ...StatementOption) (*Statement, error) {
	s := &Statement{id: id, sql: sql, kind: kind}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("cannot create statement %q: %w", id, err)
	}
	return s, nil
}

// MustStatement is the same as [NewStatement] except that it panics on error.
func MustStatement(id string, kind Kind, sql string, opts ...StatementOption) *Statement {
	s, err := NewStatement(id, kind, sql, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Statement) validate() error {
	var mErr multierror.Error
	if s.id == "" {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("empty statement id"))
	}
	if strings.TrimSpace(s.sql) == "" {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("empty sql"))
	} else if ph, err := parse.Scan(s.sql); err != nil {
		mErr.Errors = append(mErr.Errors, err)
	} else if ph.Count != len(s.binds) {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("sql has %d parameters, %d bound", ph.Count, len(s.binds)))
	}
	for i, b := range s.binds {
		if b.Property == "" {
			mErr.Errors = append(mErr.Errors, fmt.Errorf("parameter %d has no property", i+1))
		}
	}
	if len(s.keyProperties) > 0 && s.kind != Insert && s.kind != Update {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("key properties on %s statement", s.kind))
	}
	for _, p := range s.keyProperties {
		if p == "" {
			mErr.Errors = append(mErr.Errors, fmt.Errorf("empty key property"))
		}
	}
	if s.keyGenerator == KeyGeneratorLastInsertID && s.kind != Insert {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("%s key generator on %s statement", s.keyGenerator, s.kind))
	}
	if s.resultType != nil && s.kind != Select {
		mErr.Errors = append(mErr.Errors, fmt.Errorf("result type on %s statement", s.kind))
	}
	return mErr.ErrorOrNil()
}

// ID returns the unique identifier of the statement.
func (s *Statement) ID() string { return s.id }

// SQL returns the statement text.
func (s *Statement) SQL() string { return s.sql }

// Kind returns the kind of command the statement runs.
func (s *Statement) Kind() Kind { return s.kind }

// Binds returns a copy of the statement's parameter list.
func (s *Statement) Binds() []BindSpec { return append([]BindSpec(nil), s.binds...) }

// KeyProperties returns a copy of the properties receiving generated keys.
func (s *Statement) KeyProperties() []string { return append([]string(nil), s.keyProperties...) }

// KeyGenerator returns the statement's key generator.
func (s *Statement) KeyGenerator() KeyGenerator { return s.keyGenerator }

// ResultType returns the type rows are mapped into, or nil.
func (s *Statement) ResultType() reflect.Type { return s.resultType }

// BoundSQL returns the statement's own text and parameters with no
// additional parameters.
func (s *Statement) BoundSQL() *BoundSQL {
	return &BoundSQL{Statement: s, SQL: s.sql, Binds: s.binds}
}

// BoundSQL is the final text of one execution of a statement together with
// its parameters. Dynamic SQL produces a BoundSQL whose text and parameters
// differ from those of the statement it was built from.
type BoundSQL struct {
	Statement *Statement
	SQL       string
	Binds     []BindSpec
	// Additional holds values generated while building the SQL. They take
	// precedence over properties of the argument with the same name.
	Additional map[string]any
}

// NewBoundSQL returns a BoundSQL for stmt.
func NewBoundSQL(stmt *Statement, sql string, binds []BindSpec, additional map[string]any) *BoundSQL {
	return &BoundSQL{Statement: stmt, SQL: sql, Binds: binds, Additional: additional}
}
