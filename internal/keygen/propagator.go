// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package keygen writes database generated keys back into the arguments of
// the statement that produced them.
package keygen

import (
	"github.com/canonical/sqlbind/internal/coerce"
	"github.com/canonical/sqlbind/internal/execerr"
	"github.com/canonical/sqlbind/internal/typeinfo"
)

// Cursor iterates over the rows of generated keys. Columns are 1-indexed.
type Cursor interface {
	ColumnCount() int
	Next() bool
	Value(col int) (any, error)
	Err() error
	Close() error
}

// Propagator assigns generated keys to argument properties. It is safe for
// concurrent use.
type Propagator struct {
	Registry *coerce.Registry
}

// Propagate reads one row of cur per argument and assigns column i of the
// row to keyProps[i] of that argument. The cursor is always closed.
//
// Nothing is assigned if the cursor has fewer columns than there are key
// properties. Arguments left over once the cursor runs out of rows are not
// touched. Properties that the first argument cannot hold, or that have no
// coercion strategy, are skipped for every argument.
func (p *Propagator) Propagate(cur Cursor, stmtID string, keyProps []string, args []any) (err error) {
	defer func() {
		if cerr := cur.Close(); err == nil && cerr != nil {
			err = execerr.New(execerr.KeyExtraction, stmtID, "", cerr)
		}
	}()
	if len(keyProps) == 0 || len(args) == 0 || cur.ColumnCount() < len(keyProps) {
		return nil
	}

	accessors := typeinfo.ClassifyAll(args, p.Registry)
	var strategies []coerce.Strategy
	for i, acc := range accessors {
		if !cur.Next() {
			if err := cur.Err(); err != nil {
				return execerr.New(execerr.KeyExtraction, stmtID, "", err)
			}
			return nil
		}
		if i == 0 {
			strategies = p.strategies(acc, keyProps)
		}
		for j, prop := range keyProps {
			s := strategies[j]
			if s == nil {
				continue
			}
			v, err := s.Extract(cur, j+1)
			if err != nil {
				return execerr.New(execerr.KeyExtraction, stmtID, prop, err)
			}
			if err := acc.Assign(prop, v); err != nil {
				return execerr.New(execerr.KeyExtraction, stmtID, prop, err)
			}
		}
	}
	return nil
}

// strategies returns the strategy for each key property of acc, or nil where
// the property has no target or no strategy.
func (p *Propagator) strategies(acc typeinfo.Accessor, keyProps []string) []coerce.Strategy {
	strategies := make([]coerce.Strategy, len(keyProps))
	for i, prop := range keyProps {
		t, ok := acc.TargetType(prop)
		if !ok {
			continue
		}
		if s, ok := p.Registry.Find(t); ok {
			strategies[i] = s
		}
	}
	return strategies
}
