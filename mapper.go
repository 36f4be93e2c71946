// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/canonical/sqlbind/internal/bind"
	"github.com/canonical/sqlbind/internal/coerce"
)

// Mapper holds the statements defined in a mapper file, indexed by id.
type Mapper struct {
	byID  map[string]*Statement
	order []*Statement
}

type mapperDoc struct {
	Statements []statementDoc `yaml:"statements"`
}

type statementDoc struct {
	ID            string    `yaml:"id"`
	Kind          string    `yaml:"kind"`
	SQL           string    `yaml:"sql"`
	Binds         []bindDoc `yaml:"binds"`
	KeyProperties []string  `yaml:"key_properties"`
	KeyGenerator  string    `yaml:"key_generator"`
}

type bindDoc struct {
	Property string `yaml:"property"`
	Mode     string `yaml:"mode"`
	Coercion string `yaml:"coercion"`
	NullType string `yaml:"null_type"`
}

// ParseMapper reads the statements of a YAML mapper file. Explicit
// coercions are looked up by name in reg, or in the default registry if reg
// is nil. Every problem found in the file is reported in the returned error.
func ParseMapper(data []byte, reg *Registry) (*Mapper, error) {
	if reg == nil {
		reg = coerce.NewRegistry()
	}
	var doc mapperDoc
	if err := strictUnmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("cannot parse mapper: %w", err)
	}

	m := &Mapper{byID: map[string]*Statement{}}
	var mErr multierror.Error
	for i, sd := range doc.Statements {
		stmt, err := sd.statement(reg)
		if err != nil {
			mErr.Errors = append(mErr.Errors, fmt.Errorf("statement %d (%q): %v", i, sd.ID, err))
			continue
		}
		if _, ok := m.byID[stmt.ID()]; ok {
			mErr.Errors = append(mErr.Errors, fmt.Errorf("statement %d (%q): duplicate id", i, sd.ID))
			continue
		}
		m.byID[stmt.ID()] = stmt
		m.order = append(m.order, stmt)
	}
	if err := mErr.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("invalid mapper: %w", err)
	}
	return m, nil
}

// LoadMapper reads the YAML mapper file at path.
func LoadMapper(path string, reg *Registry) (*Mapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMapper(data, reg)
}

func (sd statementDoc) statement(reg *Registry) (*Statement, error) {
	var mErr multierror.Error
	kind, err := ParseKind(sd.Kind)
	if err != nil {
		mErr.Errors = append(mErr.Errors, err)
	}
	keyGen, err := ParseKeyGenerator(sd.KeyGenerator)
	if err != nil {
		mErr.Errors = append(mErr.Errors, err)
	}
	binds := make([]BindSpec, len(sd.Binds))
	for i, bd := range sd.Binds {
		spec, err := bd.spec(reg)
		if err != nil {
			mErr.Errors = append(mErr.Errors, fmt.Errorf("parameter %d: %v", i+1, err))
		}
		binds[i] = spec
	}
	if err := mErr.ErrorOrNil(); err != nil {
		return nil, err
	}

	s := &Statement{
		id:            sd.ID,
		sql:           sd.SQL,
		kind:          kind,
		binds:         binds,
		keyProperties: sd.KeyProperties,
		keyGenerator:  keyGen,
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (bd bindDoc) spec(reg *Registry) (BindSpec, error) {
	spec := BindSpec{Property: bd.Property}
	var err error
	if spec.Mode, err = bind.ParseMode(bd.Mode); err != nil {
		return spec, err
	}
	if spec.NullType, err = coerce.ParseNullType(bd.NullType); err != nil {
		return spec, err
	}
	if bd.Coercion != "" {
		s, ok := reg.Named(bd.Coercion)
		if !ok {
			return spec, fmt.Errorf("unknown coercion %q", bd.Coercion)
		}
		spec.Coercion = s
	}
	return spec, nil
}

// Statement returns the statement with the given id.
func (m *Mapper) Statement(id string) (*Statement, bool) {
	s, ok := m.byID[id]
	return s, ok
}

// MustStatement returns the statement with the given id and panics if
// there is none.
func (m *Mapper) MustStatement(id string) *Statement {
	s, ok := m.byID[id]
	if !ok {
		panic(fmt.Sprintf("no statement %q in mapper", id))
	}
	return s
}

// Statements returns the statements in the order they are defined.
func (m *Mapper) Statements() []*Statement {
	return append([]*Statement(nil), m.order...)
}
