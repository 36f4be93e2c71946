// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"reflect"

	. "gopkg.in/check.v1"
)

type statementSuite struct{}

var _ = Suite(&statementSuite{})

func (s *statementSuite) TestNewStatement(c *C) {
	stmt, err := NewStatement("byTeam", Select, "SELECT * FROM person WHERE team = ?",
		WithBinds(BindSpec{Property: "team"}),
		WithResultType(&Person{}),
	)
	c.Assert(err, IsNil)
	c.Check(stmt.ID(), Equals, "byTeam")
	c.Check(stmt.Kind(), Equals, Select)
	c.Check(stmt.ResultType(), Equals, reflect.TypeOf(&Person{}))
	c.Check(stmt.KeyGenerator(), Equals, KeyGeneratorUnset)
	c.Check(stmt.KeyProperties(), HasLen, 0)

	// Statements cannot be changed through the values they return.
	binds := stmt.Binds()
	binds[0].Property = "name"
	c.Check(stmt.Binds()[0].Property, Equals, "team")

	bound := stmt.BoundSQL()
	c.Check(bound.Statement, Equals, stmt)
	c.Check(bound.SQL, Equals, stmt.SQL())
	c.Check(bound.Additional, IsNil)
}

func (s *statementSuite) TestNewStatementErrors(c *C) {
	tests := []struct {
		summary string
		id      string
		kind    Kind
		sql     string
		opts    []StatementOption
		err     string
	}{{
		summary: "empty id",
		kind:    Select,
		sql:     "SELECT 1",
		err:     `(?s)cannot create statement "": .*empty statement id.*`,
	}, {
		summary: "empty sql",
		id:      "s",
		kind:    Delete,
		sql:     "\n\t",
		err:     `(?s)cannot create statement "s": .*empty sql.*`,
	}, {
		summary: "parameter without property",
		id:      "s",
		kind:    Update,
		sql:     "UPDATE person SET name = ? WHERE id = ?",
		opts:    []StatementOption{WithBinds(BindSpec{Property: "name"}, BindSpec{})},
		err:     `(?s)cannot create statement "s": .*parameter 2 has no property.*`,
	}, {
		summary: "key properties on delete",
		id:      "s",
		kind:    Delete,
		sql:     "DELETE FROM person",
		opts:    []StatementOption{WithKeyProperties("id")},
		err:     `(?s)cannot create statement "s": .*key properties on delete statement.*`,
	}, {
		summary: "empty key property",
		id:      "s",
		kind:    Insert,
		sql:     "INSERT INTO person DEFAULT VALUES",
		opts:    []StatementOption{WithKeyProperties("id", "")},
		err:     `(?s)cannot create statement "s": .*empty key property.*`,
	}, {
		summary: "last insert id on update",
		id:      "s",
		kind:    Update,
		sql:     "UPDATE person SET name = 'x'",
		opts:    []StatementOption{WithKeyProperties("id"), WithKeyGenerator(KeyGeneratorLastInsertID)},
		err:     `(?s)cannot create statement "s": .*last_insert_id key generator on update statement.*`,
	}, {
		summary: "result type on insert",
		id:      "s",
		kind:    Insert,
		sql:     "INSERT INTO person DEFAULT VALUES",
		opts:    []StatementOption{WithResultType(Person{})},
		err:     `(?s)cannot create statement "s": .*result type on insert statement.*`,
	}, {
		summary: "fewer parameters than placeholders",
		id:      "s",
		kind:    Update,
		sql:     "UPDATE person SET name = ? WHERE id = ?",
		opts:    []StatementOption{WithBinds(BindSpec{Property: "name"})},
		err:     `(?s)cannot create statement "s": .*sql has 2 parameters, 1 bound.*`,
	}, {
		summary: "placeholders in literals are ignored",
		id:      "s",
		kind:    Select,
		sql:     "SELECT '?' FROM person WHERE team = $1",
		err:     `(?s)cannot create statement "s": .*sql has 1 parameters, 0 bound.*`,
	}, {
		summary: "unparseable sql",
		id:      "s",
		kind:    Select,
		sql:     "SELECT 'abc",
		err:     `(?s)cannot create statement "s": .*cannot parse sql: column 8: missing closing quote in string literal.*`,
	}, {
		summary: "every problem is reported",
		kind:    Select,
		opts:    []StatementOption{WithKeyProperties("id")},
		err:     `(?s)cannot create statement "": 3 errors occurred:.*empty statement id.*empty sql.*key properties on select statement.*`,
	}}
	for i, t := range tests {
		_, err := NewStatement(t.id, t.kind, t.sql, t.opts...)
		c.Check(err, ErrorMatches, t.err, Commentf("test %d failed (%s)", i, t.summary))
	}
	c.Check(func() { MustStatement("", Select, "") }, PanicMatches, `(?s)cannot create statement "".*`)
}

func (s *statementSuite) TestParseKeyGenerator(c *C) {
	for _, kg := range []KeyGenerator{KeyGeneratorUnset, KeyGeneratorNone, KeyGeneratorLastInsertID, KeyGeneratorReturning} {
		got, err := ParseKeyGenerator(kg.String())
		c.Assert(err, IsNil)
		c.Check(got, Equals, kg)
	}
	_, err := ParseKeyGenerator("identity")
	c.Check(err, ErrorMatches, `unknown key generator "identity"`)

	for _, k := range []Kind{Select, Insert, Update, Delete} {
		got, err := ParseKind(k.String())
		c.Assert(err, IsNil)
		c.Check(got, Equals, k)
	}
}
