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

// Package docstore is the document store collaborator `go/pipelinerun`
// stitches onto the front (initial cursor) and, for a pipeline ending in
// $out, the back (sink) of a pipeline. Documents are opaque as far as this
// core is concerned (the BSON codec is explicitly out of scope per the
// stage ontology); a collection is modeled as a single Postgres table with
// one jsonb column, so a "document" round-trips as encoding/json bytes
// rather than through a typed schema.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/multigres/aggplan/go/stage"
)

// Store is a Postgres-backed document collaborator. It satisfies
// pipelinerun.DocStore structurally, without importing that package, so
// the two packages can be wired together by whichever caller constructs
// both (cmd/aggplan in this core).
type Store struct {
	db *sql.DB
}

// Open connects to the Postgres instance named by dsn and verifies it is
// reachable.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("docstore: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// tableName maps a namespace onto its backing table, quoting each part as
// a Postgres identifier: collection names come from the command document
// (spec §6's "aggregate" and "$out" target), so they're untrusted input
// and table names can't be bind-parameterized like ordinary values.
func tableName(ns stage.Namespace) string {
	if ns.DB == "" {
		return pq.QuoteIdentifier(ns.Collection)
	}
	return pq.QuoteIdentifier(ns.DB) + "." + pq.QuoteIdentifier(ns.Collection)
}

// Cursor is a lazily-fetched pull cursor over one collection's rows. It
// satisfies pipelinerun.Cursor structurally.
type Cursor struct {
	rows *sql.Rows
}

// Next decodes the next row's doc column into a generic document. ok is
// false once the rows are exhausted.
func (c *Cursor) Next(ctx context.Context) (map[string]any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return nil, false, fmt.Errorf("docstore: cursor: %w", err)
		}
		return nil, false, nil
	}
	var raw []byte
	if err := c.rows.Scan(&raw); err != nil {
		return nil, false, fmt.Errorf("docstore: scan: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("docstore: decode: %w", err)
	}
	return doc, true, nil
}

// Close releases the underlying SQL rows.
func (c *Cursor) Close() error {
	return c.rows.Close()
}

// OpenCursor opens a pull cursor over ns. query, when non-empty, is pushed
// down as a jsonb containment filter (`doc @> query`) the way a Match
// predicate pushed into the initial cursor (spec §6's getInitialQuery)
// narrows what the store has to scan; this core does not interpret
// operators within query beyond this top-level containment translation, so
// a clause using `$`-operators (a `$`-prefixed key, or a field whose value
// is an object with a `$`-prefixed key) is not pushed down and is left for
// a later in-pipeline Match to re-evaluate (out of scope, per stage
// execution semantics not being modeled here).
func (s *Store) OpenCursor(ctx context.Context, ns stage.Namespace, query map[string]any) (*Cursor, error) {
	table := tableName(ns)
	sqlText := fmt.Sprintf("SELECT doc FROM %s", table)
	args := []any{}
	if containment := stripOperatorKeys(query); len(containment) > 0 {
		raw, err := json.Marshal(containment)
		if err != nil {
			return nil, fmt.Errorf("docstore: encode query: %w", err)
		}
		sqlText += " WHERE doc @> $1"
		args = append(args, raw)
	}
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", table, err)
	}
	return &Cursor{rows: rows}, nil
}

// Insert appends doc, JSON-encoded, to ns's backing table. Used by the
// $out sink.
func (s *Store) Insert(ctx context.Context, ns stage.Namespace, doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docstore: encode doc: %w", err)
	}
	table := tableName(ns)
	_, err = s.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (doc) VALUES ($1)", table), raw)
	if err != nil {
		return fmt.Errorf("docstore: insert into %s: %w", table, err)
	}
	return nil
}

func stripOperatorKeys(query map[string]any) map[string]any {
	if len(query) == 0 {
		return nil
	}
	out := make(map[string]any, len(query))
	for k, v := range query {
		if len(k) > 0 && k[0] == '$' {
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			isOperator := false
			for sk := range sub {
				if len(sk) > 0 && sk[0] == '$' {
					isOperator = true
					break
				}
			}
			if isOperator {
				continue
			}
		}
		out[k] = v
	}
	return out
}
