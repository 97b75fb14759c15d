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

package stage

import "strings"

// Accumulator describes one output field of a $group stage: the
// accumulator operator (e.g. "$sum", "$avg", "$push") and the input field
// it reads, if any.
type Accumulator struct {
	Op    string
	Field string
}

// Group is a $group stage. Grouping and accumulation semantics are an
// execution concern out of scope for this core (spec §1); only the
// declared shape — the grouping key and the set of accumulator fields —
// matters for dependency analysis and shard splitting.
type Group struct {
	Base

	// ID is the grouping key expression: either a field reference
	// ("$field") or a compound map of name to field reference.
	ID any

	Accumulators map[string]Accumulator

	// Finalize marks a Group as the merger-side finalization of partial
	// per-shard groups, rather than a from-scratch grouping of raw input
	// documents.
	Finalize bool
}

// NewGroup returns a Group stage.
func NewGroup(id any, accumulators map[string]Accumulator) *Group {
	return &Group{ID: id, Accumulators: accumulators}
}

func (*Group) StageName() string { return "$group" }

func (g *Group) Optimize() (Stage, bool) { return g, true }

// Dependencies reports every field referenced by the grouping key and by
// accumulators as exact dependencies; Group's output fields are exactly
// _id plus the accumulator names, so it reports EXHAUSTIVE_FIELDS.
func (g *Group) Dependencies(out *DepsTracker) DepStatus {
	for _, f := range idFieldRefs(g.ID) {
		out.AddField(f)
	}
	for _, acc := range g.Accumulators {
		if acc.Field != "" {
			out.AddField(strings.TrimPrefix(acc.Field, "$"))
		}
	}
	return ExhaustiveFields
}

func idFieldRefs(id any) []string {
	switch v := id.(type) {
	case string:
		if strings.HasPrefix(v, "$") {
			return []string{strings.TrimPrefix(v, "$")}
		}
		return nil
	case map[string]any:
		var out []string
		for _, sub := range v {
			out = append(out, idFieldRefs(sub)...)
		}
		return out
	default:
		return nil
	}
}

// IsSplittable: a $group factors into a partial aggregation on each shard
// (each shard groups its own input) plus a finalization on the merger
// (which re-groups the shards' partial results by the same key and
// combines their accumulator states).
func (g *Group) IsSplittable() bool { return true }

func (g *Group) ShardPart() (Stage, bool) {
	return &Group{ID: g.ID, Accumulators: g.Accumulators, Finalize: false}, true
}

func (g *Group) MergerPart() (Stage, bool) {
	return &Group{ID: g.ID, Accumulators: g.Accumulators, Finalize: true}, true
}

func (g *Group) Serialize(explain bool) []map[string]any {
	spec := map[string]any{"_id": g.ID}
	for name, acc := range g.Accumulators {
		if acc.Field == "" {
			spec[name] = map[string]any{acc.Op: 1}
		} else {
			spec[name] = map[string]any{acc.Op: "$" + acc.Field}
		}
	}
	doc := map[string]any{"$group": spec}
	if explain {
		doc["stageStats"] = map[string]any{"finalize": g.Finalize}
	}
	return []map[string]any{doc}
}
