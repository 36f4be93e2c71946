// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.
package sqlbind

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/mattn/go-sqlite3"
)

// This file contains a wrapper sql.Driver over the SQLite driver which
// records the creation and closing of prepared statements. Tests use it to
// check that every execution closes the statements it prepares, whatever
// the outcome.

// openedStmts and closedStmts store the pointers to the created/closed
// statements indexed by test name.
var openedStmts = map[string]map[uintptr]string{}
var closedStmts = map[string]map[uintptr]bool{}
var stmtRegistryMutex sync.RWMutex

// stmtQueriesRun counts the executions run through a prepared statement,
// indexed by test name.
var stmtQueriesRun = map[string]int{}
var queriesRunMutex sync.RWMutex

const trackingDriverName = "sqlite3_stmtChecked"

type trackingDriver struct {
	driver.Driver
}

type trackingConn struct {
	testName string
	*sqlite3.SQLiteConn
}

type trackingStmt struct {
	testName string
	*sqlite3.SQLiteStmt
}

func countStmtQuery(testName string) {
	queriesRunMutex.Lock()
	defer queriesRunMutex.Unlock()
	stmtQueriesRun[testName]++
}

func (s *trackingStmt) Close() error {
	stmtRegistryMutex.Lock()
	defer stmtRegistryMutex.Unlock()
	if _, ok := closedStmts[s.testName]; !ok {
		closedStmts[s.testName] = map[uintptr]bool{}
	}
	closedStmts[s.testName][uintptr(unsafe.Pointer(s))] = true

	return s.SQLiteStmt.Close()
}

func (s *trackingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	rows, err := s.SQLiteStmt.QueryContext(ctx, args)
	if err == nil {
		countStmtQuery(s.testName)
	}
	return rows, err
}

func (s *trackingStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	res, err := s.SQLiteStmt.ExecContext(ctx, args)
	if err == nil {
		countStmtQuery(s.testName)
	}
	return res, err
}

func (c *trackingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	s, err := c.SQLiteConn.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	sm, ok := s.(*sqlite3.SQLiteStmt)
	if !ok {
		panic(fmt.Sprintf("internal error: base driver is not SQLite, got %T", s))
	}
	sPtr := &trackingStmt{SQLiteStmt: sm, testName: c.testName}

	stmtRegistryMutex.Lock()
	defer stmtRegistryMutex.Unlock()
	if _, ok := openedStmts[c.testName]; !ok {
		openedStmts[c.testName] = map[uintptr]string{}
	}
	openedStmts[c.testName][uintptr(unsafe.Pointer(sPtr))] = query
	return sPtr, nil
}

func (c *trackingConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

const testNameTag = "testName"

// Open expects the DSN to contain the test name using the testNameTag
// attribute.
func (d *trackingDriver) Open(name string) (driver.Conn, error) {
	var testName string
	if _, parameters, ok := strings.Cut(name, "?"); ok {
		for _, p := range strings.Split(parameters, "&") {
			if k, v, _ := strings.Cut(p, "="); k == testNameTag {
				testName = v
			}
		}
	}
	if testName == "" {
		panic("internal error: testName is not found in the db DSN")
	}

	baseConn, err := d.Driver.Open(name)
	if err != nil {
		return nil, err
	}
	conn, ok := baseConn.(*sqlite3.SQLiteConn)
	if !ok {
		panic("internal error: base driver is not SQLite")
	}
	return &trackingConn{SQLiteConn: conn, testName: testName}, nil
}

// openTrackedDB opens a private in-memory database whose statements are
// tracked under testName.
func openTrackedDB(testName string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&%s=%s", strings.ReplaceAll(testName, ".", "_"), testNameTag, testName)
	db, err := sql.Open(trackingDriverName, dsn)
	if err != nil {
		return nil, err
	}
	// A single connection keeps the in-memory database alive between
	// statements.
	db.SetMaxOpenConns(1)
	return db, nil
}

// stmtCounts returns the number of statements opened and closed under
// testName.
func stmtCounts(testName string) (opened, closed int) {
	stmtRegistryMutex.RLock()
	defer stmtRegistryMutex.RUnlock()
	return len(openedStmts[testName]), len(closedStmts[testName])
}

func stmtQueries(testName string) int {
	queriesRunMutex.RLock()
	defer queriesRunMutex.RUnlock()
	return stmtQueriesRun[testName]
}

func init() {
	sql.Register(trackingDriverName, &trackingDriver{
		&sqlite3.SQLiteDriver{},
	})
}
