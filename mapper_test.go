// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"

	"github.com/hashicorp/go-multierror"
	. "gopkg.in/check.v1"

	"github.com/canonical/sqlbind/internal/coerce"
)

type mapperSuite struct{}

var _ = Suite(&mapperSuite{})

const personMapper = `
statements:
  - id: insertPerson
    kind: insert
    sql: INSERT INTO person (name, team, nickname) VALUES (?, ?, ?)
    binds:
      - property: name
      - property: team
      - property: nickname
        null_type: varchar
    key_properties: [id]
    key_generator: last_insert_id
  - id: countTeam
    kind: select
    sql: SELECT count(*) FROM person WHERE team = ?
    binds:
      - property: team
        coercion: string
  - id: renameAll
    kind: update
    sql: UPDATE person SET name = ?
    binds:
      - property: name
        mode: IN
`

func (s *mapperSuite) TestParseMapper(c *C) {
	m, err := ParseMapper([]byte(personMapper), nil)
	c.Assert(err, IsNil)

	var ids []string
	for _, stmt := range m.Statements() {
		ids = append(ids, stmt.ID())
	}
	c.Check(ids, DeepEquals, []string{"insertPerson", "countTeam", "renameAll"})

	insert, ok := m.Statement("insertPerson")
	c.Assert(ok, Equals, true)
	c.Check(insert.Kind(), Equals, Insert)
	c.Check(insert.SQL(), Equals, "INSERT INTO person (name, team, nickname) VALUES (?, ?, ?)")
	c.Check(insert.KeyProperties(), DeepEquals, []string{"id"})
	c.Check(insert.KeyGenerator(), Equals, KeyGeneratorLastInsertID)
	c.Check(insert.Binds(), DeepEquals, []BindSpec{
		{Property: "name"},
		{Property: "team"},
		{Property: "nickname", NullType: NullVarchar},
	})

	count := m.MustStatement("countTeam")
	c.Check(count.Kind(), Equals, Select)
	c.Check(count.KeyGenerator(), Equals, KeyGeneratorUnset)
	want, _ := coerce.NewRegistry().Find(reflect.TypeOf(""))
	c.Check(count.Binds()[0].Coercion, Equals, want)

	c.Check(m.MustStatement("renameAll").Binds()[0].Mode, Equals, In)

	_, ok = m.Statement("missing")
	c.Check(ok, Equals, false)
	c.Check(func() { m.MustStatement("missing") }, PanicMatches, `no statement "missing" in mapper`)
}

func (s *mapperSuite) TestCustomRegistry(c *C) {
	type code string
	reg := NewRegistry(WithStrategy(reflect.TypeOf(code("")), "code", coerce.NewRegistry().Object()))
	input := `
statements:
  - id: byCode
    kind: select
    sql: SELECT * FROM person WHERE code = ?
    binds:
      - property: code
        coercion: code
`
	m, err := ParseMapper([]byte(input), reg)
	c.Assert(err, IsNil)
	c.Check(m.MustStatement("byCode").Binds()[0].Coercion, NotNil)

	_, err = ParseMapper([]byte(input), nil)
	c.Check(err, ErrorMatches, `(?s)invalid mapper: .*statement 0 \("byCode"\): .*parameter 1: unknown coercion "code".*`)
}

func (s *mapperSuite) TestParseMapperErrors(c *C) {
	input := `
statements:
  - id: first
    kind: select
    sql: SELECT 1
  - id: first
    kind: select
    sql: SELECT 2
  - id: badKind
    kind: merge
    sql: MERGE INTO person
  - id: badBinds
    kind: insert
    sql: INSERT INTO person (name, team) VALUES (?, ?)
    binds:
      - property: name
        mode: sideways
      - property: team
        null_type: clob
  - id: keysOnSelect
    kind: select
    sql: SELECT id FROM person
    key_properties: [id]
  - id: ""
    kind: delete
    sql: " "
`
	_, err := ParseMapper([]byte(input), nil)
	c.Assert(err, NotNil)

	var mErr *multierror.Error
	c.Assert(errors.As(err, &mErr), Equals, true)
	c.Assert(mErr.Errors, HasLen, 5)
	c.Check(mErr.Errors[0], ErrorMatches, `statement 1 \("first"\): duplicate id`)
	c.Check(mErr.Errors[1], ErrorMatches, `(?s)statement 2 \("badKind"\): .*unknown statement kind "merge".*`)
	c.Check(mErr.Errors[2], ErrorMatches, `(?s)statement 3 \("badBinds"\): 2 errors occurred:.*parameter 1: unknown parameter mode "sideways".*parameter 2: unknown null type "clob".*`)
	c.Check(mErr.Errors[3], ErrorMatches, `(?s)statement 4 \("keysOnSelect"\): .*key properties on select statement.*`)
	c.Check(mErr.Errors[4], ErrorMatches, `(?s)statement 5 \(""\): 2 errors occurred:.*empty statement id.*empty sql.*`)
}

func (s *mapperSuite) TestParseMapperStrict(c *C) {
	_, err := ParseMapper([]byte("statements:\n  - id: a\n    kind: select\n    sql: SELECT 1\n    result: M\n"), nil)
	c.Check(err, ErrorMatches, `(?s)cannot parse mapper: yaml: unmarshal errors:.*field result not found.*`)
}

func (s *mapperSuite) TestLoadMapper(c *C) {
	path := filepath.Join(c.MkDir(), "person.yaml")
	c.Assert(os.WriteFile(path, []byte(personMapper), 0o644), IsNil)

	m, err := LoadMapper(path, nil)
	c.Assert(err, IsNil)
	c.Check(m.Statements(), HasLen, 3)
}
