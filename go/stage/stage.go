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

// Package stage defines the closed ontology of aggregation pipeline stage
// kinds, the Pipeline that holds an ordered sequence of them, and the
// dependency-tracking types the rest of the planner (parser, optimizer,
// shard splitter, dependency analyzer) operate over.
package stage

import (
	"fmt"
	"log/slog"
	"sort"
)

// DepStatus is a set of OR-able flags a stage returns from Dependencies,
// describing how authoritative its reported field/metadata demand is.
type DepStatus uint8

const (
	// ExhaustiveFields means the stage's reported fields are a closed
	// function of its output: downstream demand cannot exceed them.
	ExhaustiveFields DepStatus = 1 << iota
	// ExhaustiveMeta means the stage's reported metadata need (text score)
	// is similarly closed.
	ExhaustiveMeta
	// NotSupported means the analyzer cannot see past this stage at all.
	NotSupported
)

// Has reports whether flag is set in status.
func (s DepStatus) Has(flag DepStatus) bool {
	return s&flag != 0
}

// DepsTracker accumulates the field and metadata demand of a pipeline
// suffix. If NeedWholeDocument is true, Fields is semantically irrelevant.
type DepsTracker struct {
	Fields            map[string]struct{}
	NeedWholeDocument bool
	NeedTextScore     bool
}

// NewDepsTracker returns an empty tracker.
func NewDepsTracker() *DepsTracker {
	return &DepsTracker{Fields: map[string]struct{}{}}
}

// AddField records a dotted field path as needed.
func (d *DepsTracker) AddField(path string) {
	if d.Fields == nil {
		d.Fields = map[string]struct{}{}
	}
	d.Fields[path] = struct{}{}
}

// AddFields records every path in paths as needed.
func (d *DepsTracker) AddFields(paths ...string) {
	for _, p := range paths {
		d.AddField(p)
	}
}

// SortedFields returns the field set as a sorted slice, for deterministic
// serialization and tests.
func (d *DepsTracker) SortedFields() []string {
	out := make([]string, 0, len(d.Fields))
	for f := range d.Fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ToProjection renders the tracked fields as a $project-shaped inclusion
// spec. _id is included only if it was explicitly requested.
func (d *DepsTracker) ToProjection() map[string]any {
	proj := make(map[string]any, len(d.Fields))
	for f := range d.Fields {
		proj[f] = 1
	}
	return proj
}

// Namespace identifies a collection a stage reads from or writes to.
type Namespace struct {
	DB         string
	Collection string
}

// Empty reports whether the namespace carries no collection name.
func (n Namespace) Empty() bool {
	return n.Collection == ""
}

// Valid reports whether the namespace is well-formed: a non-empty
// collection name containing neither the NUL byte nor '$', mirroring the
// historical mongoD NamespaceString::isValid checks (error codes 17138 and
// 17139 in the original command layer).
func (n Namespace) Valid() bool {
	if n.Collection == "" {
		return false
	}
	for _, r := range n.Collection {
		if r == 0 || r == '$' {
			return false
		}
	}
	return true
}

// String renders "db.collection" or just "collection" if DB is unset.
func (n Namespace) String() string {
	if n.DB == "" {
		return n.Collection
	}
	return fmt.Sprintf("%s.%s", n.DB, n.Collection)
}

// ExpressionContext carries the per-pipeline settings shared by all stages.
// It is set up at parse time and never mutated during optimization or
// execution; stages hold a reference to it, not ownership.
type ExpressionContext struct {
	// InputNamespace is the collection the pipeline reads from.
	InputNamespace Namespace

	// InShard marks this pipeline as executing shard-side (set from the
	// command's fromRouter option).
	InShard bool

	// AllowDiskUse enables external sort/group spilling. Spilling itself
	// is out of scope for this core; only the flag is tracked.
	AllowDiskUse bool

	// BypassDocumentValidation skips write validation for $out.
	BypassDocumentValidation bool

	// Collation, when non-nil, is an opaque collation spec forwarded to
	// stages that care about string comparison (Sort, Group); this core
	// does not interpret it.
	Collation map[string]any

	// Logger is used by the optimizer and splitter for debug tracing.
	Logger *slog.Logger
}

// Log returns ctx.Logger, or slog.Default() if none was set.
func (ctx *ExpressionContext) Log() *slog.Logger {
	if ctx == nil || ctx.Logger == nil {
		return slog.Default()
	}
	return ctx.Logger
}

// Stage is the closed interface every stage kind implements. Concrete
// stages embed Base to pick up the default ("no-op") behavior and override
// only what their kind requires.
type Stage interface {
	// StageName is the command's single top-level key, e.g. "$match".
	StageName() string

	// Coalesce attempts to absorb next into the receiver in place. It
	// returns true if next has been merged and must be dropped from the
	// pipeline.
	Coalesce(next Stage) bool

	// Optimize returns a possibly-replaced version of the receiver, or
	// ok=false to drop the stage entirely.
	Optimize() (out Stage, ok bool)

	// Dependencies writes this stage's field/metadata demand into out and
	// returns how authoritative that demand is.
	Dependencies(out *DepsTracker) DepStatus

	// InvolvedCollections returns collections other than the pipeline's
	// input namespace that this stage reads.
	InvolvedCollections() []Namespace

	// NeedsPrimaryShard reports whether a merger containing this stage
	// must run on the database's primary shard.
	NeedsPrimaryShard() bool

	// IsSplittable reports whether ShardPart/MergerPart are meaningful.
	IsSplittable() bool

	// ShardPart returns the portion of this stage's work that runs on
	// each shard, if any.
	ShardPart() (Stage, bool)

	// MergerPart returns the portion of this stage's work that runs on
	// the merger, if any.
	MergerPart() (Stage, bool)

	// Serialize renders the stage back to its command-document form, as
	// one or more single-key documents. Most stages return exactly one;
	// a stage that absorbed another during coalesceAdjacent (e.g. a Sort
	// that absorbed a following Limit) returns both, in pipeline order,
	// so parse -> optimize -> serialize round-trips to an equivalent
	// document (spec §4.G). In explain mode, implementations may add
	// verbose stats.
	Serialize(explain bool) []map[string]any
}

// Base provides the default, no-op implementation of every optional Stage
// hook. Concrete stage types embed Base and override only what their
// algebraic profile (spec §4.A) requires.
type Base struct{}

func (Base) Coalesce(Stage) bool                 { return false }
func (Base) InvolvedCollections() []Namespace    { return nil }
func (Base) NeedsPrimaryShard() bool             { return false }
func (Base) IsSplittable() bool                  { return false }
func (Base) ShardPart() (Stage, bool)            { return nil, false }
func (Base) MergerPart() (Stage, bool)           { return nil, false }
