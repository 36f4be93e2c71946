// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"database/sql"
	"errors"

	. "gopkg.in/check.v1"

	"github.com/canonical/sqlbind/internal/coerce"
	"github.com/canonical/sqlbind/internal/typeinfo"
)

type handleSuite struct{}

var _ = Suite(&handleSuite{})

func (s *handleSuite) TestSetParam(c *C) {
	h := newHandle(nil, []BindSpec{{Property: "a"}, {Property: "b"}})
	c.Assert(h.SetParam(1, "x"), IsNil)
	c.Assert(h.SetParam(2, int64(2)), IsNil)
	c.Assert(h.SetParam(0, "x"), ErrorMatches, `parameter position 0 out of range \[1, 2\]`)
	c.Assert(h.SetParam(3, "x"), ErrorMatches, `parameter position 3 out of range \[1, 2\]`)
	c.Assert(h.params(), DeepEquals, []any{"x", int64(2)})
	c.Assert(h.hasOutputs(), Equals, false)
}

func (s *handleSuite) TestOutParameters(c *C) {
	h := newHandle(nil, []BindSpec{
		{Property: "name"},
		{Property: "count", Mode: Out},
		{Property: "total", Mode: InOut},
	})
	c.Assert(h.SetParam(1, "x"), IsNil)
	c.Assert(h.SetParam(3, int64(5)), IsNil)
	c.Assert(h.hasOutputs(), Equals, true)

	params := h.params()
	c.Assert(params[0], Equals, "x")
	out, ok := params[1].(sql.Out)
	c.Assert(ok, Equals, true)
	c.Assert(out.In, Equals, false)
	inout, ok := params[2].(sql.Out)
	c.Assert(ok, Equals, true)
	c.Assert(inout.In, Equals, true)
	c.Assert(*inout.Dest.(*any), Equals, int64(5))

	// The driver writes results through the destinations.
	*out.Dest.(*any) = int64(7)
	*inout.Dest.(*any) = int64(12)

	arg := M{"name": "x"}
	c.Assert(h.writeBack(typeinfo.Classify(arg, coerce.NewRegistry())), IsNil)
	c.Assert(arg, DeepEquals, M{"name": "x", "count": int64(7), "total": int64(12)})

	// Arguments without the properties are left alone.
	c.Assert(h.writeBack(typeinfo.Classify(42, coerce.NewRegistry())), IsNil)
	byValue := struct {
		Count int64 `db:"count"`
	}{}
	c.Assert(h.writeBack(typeinfo.Classify(byValue, coerce.NewRegistry())), IsNil)
	c.Assert(byValue.Count, Equals, int64(0))
}

func (s *handleSuite) TestBufferedRows(c *C) {
	b := &bufferedRows{columns: []string{"id", "name"}, rows: [][]any{{int64(1), "a"}, {int64(2), "b"}}}
	c.Assert(b.ColumnCount(), Equals, 2)
	_, err := b.Value(1)
	c.Assert(err, ErrorMatches, "no current row")

	c.Assert(b.Next(), Equals, true)
	v, err := b.Value(2)
	c.Assert(err, IsNil)
	c.Assert(v, Equals, "a")
	_, err = b.Value(3)
	c.Assert(err, ErrorMatches, `column 3 out of range \[1, 2\]`)

	c.Assert(b.Next(), Equals, true)
	v, err = b.Value(1)
	c.Assert(err, IsNil)
	c.Assert(v, Equals, int64(2))
	c.Assert(b.Next(), Equals, false)
	c.Assert(b.Err(), IsNil)
	c.Assert(b.Close(), IsNil)
}

type result struct {
	id  int64
	err error
}

func (r result) LastInsertId() (int64, error) { return r.id, r.err }

func (r result) RowsAffected() (int64, error) { return 1, nil }

func (s *handleSuite) TestLastInsertIDCursor(c *C) {
	cur := lastInsertIDCursor(result{id: 101}, 1)
	c.Assert(cur.ColumnCount(), Equals, 1)
	c.Assert(cur.Next(), Equals, true)
	v, err := cur.Value(1)
	c.Assert(err, IsNil)
	c.Assert(v, Equals, int64(101))
	c.Assert(cur.Next(), Equals, false)

	// Nothing inserted: the reported id belongs to an earlier insert.
	cur = lastInsertIDCursor(result{id: 101}, 0)
	c.Assert(cur.ColumnCount(), Equals, 1)
	c.Assert(cur.Next(), Equals, false)

	cur = lastInsertIDCursor(result{err: errors.New("not supported")}, 1)
	c.Assert(cur.ColumnCount(), Equals, 0)
	c.Assert(cur.Next(), Equals, false)
}
