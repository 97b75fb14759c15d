// Copyright 2026 The Aggplan Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package docstore

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
)

// fakeDB is a tiny in-memory stand-in for Postgres, registered as a
// database/sql driver so Store can be exercised through its real
// *sql.DB-shaped code path without a live server. It understands exactly
// the two statement shapes docstore issues: "SELECT doc FROM ..." and
// "INSERT INTO ... (doc) VALUES ($1)".
type fakeDB struct {
	mu     sync.Mutex
	tables map[string][][]byte
}

func newFakeDB() *fakeDB {
	return &fakeDB{tables: map[string][][]byte{}}
}

func (f *fakeDB) seed(table string, docs ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = append(f.tables[table], docs...)
}

func (f *fakeDB) rowsFor(table string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.tables[table]))
	copy(out, f.tables[table])
	return out
}

func (f *fakeDB) insert(table string, doc []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = append(f.tables[table], doc)
}

var fakeRegistry = struct {
	mu sync.Mutex
	m  map[string]*fakeDB
}{m: map[string]*fakeDB{}}

func registerFakeDriver(name string, db *fakeDB) {
	fakeRegistry.mu.Lock()
	fakeRegistry.m[name] = db
	fakeRegistry.mu.Unlock()
	sql.Register(name, &fakeDriverImpl{name: name})
}

type fakeDriverImpl struct{ name string }

func (d *fakeDriverImpl) Open(string) (driver.Conn, error) {
	fakeRegistry.mu.Lock()
	db := fakeRegistry.m[d.name]
	fakeRegistry.mu.Unlock()
	return &fakeConn{db: db}, nil
}

type fakeConn struct{ db *fakeDB }

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return &fakeStmt{db: c.db, query: query}, nil
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return fakeTx{}, nil }

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

type fakeStmt struct {
	db    *fakeDB
	query string
}

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	table, ok := parseInsertTable(s.query)
	if !ok {
		return nil, errors.New("fakedriver: unsupported exec: " + s.query)
	}
	raw, ok := args[0].([]byte)
	if !ok {
		return nil, errors.New("fakedriver: insert arg is not []byte")
	}
	s.db.insert(table, raw)
	return driver.RowsAffected(1), nil
}

func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	table, ok := parseSelectTable(s.query)
	if !ok {
		return nil, errors.New("fakedriver: unsupported query: " + s.query)
	}
	return &fakeRows{docs: s.db.rowsFor(table)}, nil
}

type fakeRows struct {
	docs []([]byte)
	pos  int
}

func (r *fakeRows) Columns() []string { return []string{"doc"} }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.docs) {
		return io.EOF
	}
	dest[0] = r.docs[r.pos]
	r.pos++
	return nil
}

func parseInsertTable(q string) (string, bool) {
	const prefix = "INSERT INTO "
	if !strings.HasPrefix(q, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(q, prefix)
	return unquoteIdent(strings.TrimSpace(strings.SplitN(rest, " ", 2)[0])), true
}

func parseSelectTable(q string) (string, bool) {
	const prefix = "SELECT doc FROM "
	if !strings.HasPrefix(q, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(q, prefix)
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", false
	}
	return unquoteIdent(fields[0]), true
}

// unquoteIdent strips the double-quote wrapping pq.QuoteIdentifier adds,
// enough to recover the plain table name for this fake's in-memory map
// key (docstore's tests use identifiers with no embedded quotes).
func unquoteIdent(ident string) string {
	return strings.ReplaceAll(ident, `"`, "")
}
