// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/canonical/sqlbind/internal/typeinfo"
)

// Preparer creates prepared statements. It is satisfied by *sql.DB,
// *sql.Conn and *sql.Tx.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// handle is a prepared statement together with the parameters of a single
// execution. It belongs to that execution only.
type handle struct {
	stmt  *sql.Stmt
	binds []BindSpec
	args  []any
	// outs receives the values of OUT and INOUT parameters.
	outs []any
}

func newHandle(stmt *sql.Stmt, binds []BindSpec) *handle {
	return &handle{
		stmt:  stmt,
		binds: binds,
		args:  make([]any, len(binds)),
		outs:  make([]any, len(binds)),
	}
}

// SetParam implements coerce.ParamSetter.
func (h *handle) SetParam(pos int, v any) error {
	if pos < 1 || pos > len(h.args) {
		return fmt.Errorf("parameter position %d out of range [1, %d]", pos, len(h.args))
	}
	h.args[pos-1] = v
	return nil
}

// params returns the arguments to pass to the driver. OUT and INOUT
// positions are wrapped in sql.Out.
func (h *handle) params() []any {
	params := make([]any, len(h.args))
	for i, spec := range h.binds {
		switch spec.Mode {
		case Out:
			params[i] = sql.Out{Dest: &h.outs[i]}
		case InOut:
			h.outs[i] = h.args[i]
			params[i] = sql.Out{Dest: &h.outs[i], In: true}
		default:
			params[i] = h.args[i]
		}
	}
	return params
}

// writeBack assigns the values of OUT and INOUT parameters to the
// argument. Properties the argument cannot hold are skipped.
func (h *handle) writeBack(arg typeinfo.Accessor) error {
	for i, spec := range h.binds {
		if spec.Mode == In || !arg.HasTarget(spec.Property) {
			continue
		}
		if err := arg.Assign(spec.Property, h.outs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (h *handle) hasOutputs() bool {
	for _, spec := range h.binds {
		if spec.Mode != In {
			return true
		}
	}
	return false
}

// bufferedRows holds every row of a result set in memory. It serves as the
// generated key cursor and as the column source for row mapping.
type bufferedRows struct {
	columns []string
	rows    [][]any
	// pos is the 1-indexed current row. Zero means before the first row.
	pos int
}

// bufferRows reads all of rows and closes it.
func bufferRows(rows *sql.Rows) (br *bufferedRows, err error) {
	defer func() {
		if cerr := rows.Close(); err == nil {
			err = cerr
		}
	}()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	br = &bufferedRows{columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = append([]byte(nil), b...)
			}
		}
		br.rows = append(br.rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return br, nil
}

// lastInsertIDCursor returns a single row, single column cursor holding the
// id reported by res. An execution that inserted no rows yields no row, as
// the id reported is then that of an earlier insert. Drivers that cannot
// report an id yield a cursor with no columns.
func lastInsertIDCursor(res sql.Result, rowsAffected int64) *bufferedRows {
	id, err := res.LastInsertId()
	if err != nil {
		return &bufferedRows{}
	}
	if rowsAffected == 0 {
		return &bufferedRows{columns: []string{"id"}}
	}
	return &bufferedRows{columns: []string{"id"}, rows: [][]any{{id}}}
}

func (b *bufferedRows) ColumnCount() int { return len(b.columns) }

func (b *bufferedRows) Next() bool {
	if b.pos >= len(b.rows) {
		return false
	}
	b.pos++
	return true
}

func (b *bufferedRows) Value(col int) (any, error) {
	if b.pos < 1 || b.pos > len(b.rows) {
		return nil, fmt.Errorf("no current row")
	}
	if col < 1 || col > len(b.columns) {
		return nil, fmt.Errorf("column %d out of range [1, %d]", col, len(b.columns))
	}
	return b.rows[b.pos-1][col-1], nil
}

func (b *bufferedRows) Err() error { return nil }

func (b *bufferedRows) Close() error {
	b.pos = len(b.rows)
	return nil
}
