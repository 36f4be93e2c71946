// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlbind

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/canonical/sqlbind/internal/bind"
	"github.com/canonical/sqlbind/internal/coerce"
	"github.com/canonical/sqlbind/internal/execerr"
	"github.com/canonical/sqlbind/internal/keygen"
	"github.com/canonical/sqlbind/internal/typeinfo"
)

// BatchResult describes one flushed batch of statements.
type BatchResult struct {
	Statement    *Statement
	RowsAffected []int64
}

// Executor runs mapped statements one at a time. Every execution prepares
// its statement, binds the argument, runs it and closes the prepared
// statement before returning. An Executor is safe for concurrent use if its
// Preparer is.
type Executor struct {
	db         Preparer
	cfg        *Config
	registry   *coerce.Registry
	logger     hclog.Logger
	binder     *bind.Binder
	propagator *keygen.Propagator
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger the Executor writes to. By default nothing is
// logged.
func WithLogger(logger hclog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithRegistry sets the coercion registry. By default the Executor uses a
// registry with the default strategies.
func WithRegistry(registry *Registry) Option {
	return func(e *Executor) {
		e.registry = registry
	}
}

// NewExecutor returns an Executor running statements on db. A nil cfg
// selects DefaultConfig.
func NewExecutor(db Preparer, cfg *Config, opts ...Option) *Executor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	e := &Executor{db: db, cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = coerce.NewRegistry()
	}
	if e.logger == nil {
		e.logger = hclog.NewNullLogger()
	}
	e.binder = &bind.Binder{Registry: e.registry, DefaultNull: cfg.NullType}
	e.propagator = &keygen.Propagator{Registry: e.registry}
	return e
}

// Update runs an insert, update or delete statement with arg and returns
// the number of rows affected. Generated keys are written back into arg for
// statements declaring key properties.
func (e *Executor) Update(ctx context.Context, stmt *Statement, arg any) (int64, error) {
	return e.UpdateBound(ctx, stmt.BoundSQL(), arg)
}

// UpdateBound is like Update but runs the text and parameters of bound.
func (e *Executor) UpdateBound(ctx context.Context, bound *BoundSQL, arg any) (int64, error) {
	h, acc, err := e.prepare(ctx, bound, arg)
	if err != nil {
		return 0, err
	}
	stmt := bound.Statement
	defer e.close(stmt, h)

	var rowsAffected int64
	var cur keygen.Cursor
	switch keyGen := e.keyGenerator(stmt); keyGen {
	case KeyGeneratorReturning:
		rows, err := h.stmt.QueryContext(ctx, h.params()...)
		if err != nil {
			return 0, execerr.New(execerr.BindExecution, stmt.ID(), "", err)
		}
		buffered, err := bufferRows(rows)
		if err != nil {
			return 0, execerr.New(execerr.BindExecution, stmt.ID(), "", err)
		}
		rowsAffected = int64(len(buffered.rows))
		cur = buffered
	default:
		res, err := h.stmt.ExecContext(ctx, h.params()...)
		if err != nil {
			return 0, execerr.New(execerr.BindExecution, stmt.ID(), "", err)
		}
		if rowsAffected, err = res.RowsAffected(); err != nil {
			return 0, execerr.New(execerr.BindExecution, stmt.ID(), "", err)
		}
		if keyGen == KeyGeneratorLastInsertID && stmt.Kind() == Insert {
			cur = lastInsertIDCursor(res, rowsAffected)
		}
	}

	if cur != nil {
		keyProps := stmt.KeyProperties()
		if err := e.propagator.Propagate(cur, stmt.ID(), keyProps, []any{arg}); err != nil {
			return 0, err
		}
		if len(keyProps) > 0 {
			e.logger.Debug("propagated generated keys", "id", stmt.ID(), "properties", keyProps)
		}
	}
	if h.hasOutputs() {
		if err := h.writeBack(acc); err != nil {
			return 0, execerr.New(execerr.BindExecution, stmt.ID(), "", err)
		}
	}
	return rowsAffected, nil
}

// Query runs a select statement with arg. Each row is mapped into the
// statement's result type, or into an M if it has none. If handler is not
// nil the rows are passed to it as they are mapped and the returned slice is
// empty.
func (e *Executor) Query(ctx context.Context, stmt *Statement, arg any, handler RowHandler) ([]any, error) {
	return e.QueryBound(ctx, stmt.BoundSQL(), arg, handler)
}

// QueryBound is like Query but runs the text and parameters of bound.
func (e *Executor) QueryBound(ctx context.Context, bound *BoundSQL, arg any, handler RowHandler) ([]any, error) {
	h, acc, err := e.prepare(ctx, bound, arg)
	if err != nil {
		return nil, err
	}
	stmt := bound.Statement
	defer e.close(stmt, h)

	rows, err := h.stmt.QueryContext(ctx, h.params()...)
	if err != nil {
		return nil, execerr.New(execerr.BindExecution, stmt.ID(), "", err)
	}
	buffered, err := bufferRows(rows)
	if err != nil {
		return nil, execerr.New(execerr.BindExecution, stmt.ID(), "", err)
	}

	mapper := newRowMapper(stmt.ResultType(), e.cfg.AutoMapping, e.registry)
	results := []any{}
	for buffered.Next() {
		row, err := mapper.mapRow(buffered.columns, buffered)
		if err != nil {
			return nil, execerr.New(execerr.ResultMapping, stmt.ID(), "", fmt.Errorf("cannot map row %d: %w", buffered.pos, err))
		}
		if handler == nil {
			results = append(results, row)
			continue
		}
		if err := handler(row); err != nil {
			return nil, err
		}
	}
	if h.hasOutputs() {
		if err := h.writeBack(acc); err != nil {
			return nil, execerr.New(execerr.BindExecution, stmt.ID(), "", err)
		}
	}
	return results, nil
}

// FlushStatements flushes batched statements. The Executor never batches,
// so there is never anything to flush.
func (e *Executor) FlushStatements(ctx context.Context) ([]BatchResult, error) {
	return []BatchResult{}, nil
}

// prepare prepares the statement text of bound and binds arg to it. The
// returned handle must be closed.
func (e *Executor) prepare(ctx context.Context, bound *BoundSQL, arg any) (*handle, typeinfo.Accessor, error) {
	if bound == nil || bound.Statement == nil {
		return nil, nil, fmt.Errorf("cannot execute: no statement")
	}
	id := bound.Statement.ID()
	e.logger.Debug("preparing statement", "id", id, "sql", bound.SQL)
	sqlstmt, err := e.db.PrepareContext(ctx, bound.SQL)
	if err != nil {
		return nil, nil, execerr.New(execerr.BindExecution, id, "", err)
	}
	h := newHandle(sqlstmt, bound.Binds)
	acc := typeinfo.Classify(arg, e.registry)
	if err := e.binder.Bind(h, id, bound.Binds, acc, bound.Additional); err != nil {
		e.close(bound.Statement, h)
		return nil, nil, err
	}
	e.logger.Trace("bound parameters", "id", id, "count", len(bound.Binds), "argument", acc.Kind())
	return h, acc, nil
}

// close closes the prepared statement of h. Failures are logged.
func (e *Executor) close(stmt *Statement, h *handle) {
	if err := h.stmt.Close(); err != nil {
		e.logger.Warn("cannot close prepared statement", "id", stmt.ID(), "error", err)
	}
}

// keyGenerator returns the key generator that applies to stmt.
func (e *Executor) keyGenerator(stmt *Statement) KeyGenerator {
	if kg := stmt.KeyGenerator(); kg != KeyGeneratorUnset {
		return kg
	}
	if e.cfg.UseGeneratedKeys && stmt.Kind() == Insert && len(stmt.KeyProperties()) > 0 {
		return e.cfg.KeyGenerator
	}
	return KeyGeneratorNone
}
