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

// Sort is a $sort stage: a blocking stage that orders the document stream
// by keySpec ({field: 1|-1, ...}), optionally bounded by an attached limit
// (the "top-k sort": Coalesce absorbs an immediately following $limit into
// the Sort and drops the Limit stage, and both split halves carry the
// bound so a merger can describe "merge-sort the top N").
type Sort struct {
	Base
	KeySpec map[string]int
	Limit   *int64

	// Merging marks a Sort that runs on the merger as a k-way merge of
	// already-sorted shard streams, rather than a from-scratch sort.
	Merging bool
}

// NewSort returns a Sort stage over keySpec.
func NewSort(keySpec map[string]int) *Sort {
	return &Sort{KeySpec: keySpec}
}

func (*Sort) StageName() string { return "$sort" }

func (s *Sort) Optimize() (Stage, bool) { return s, true }

// Dependencies reports the sort keys as field dependencies. Like Match,
// this is not exhaustive: Sort reorders but never drops fields, so a
// later stage may still need fields this one doesn't reference.
func (s *Sort) Dependencies(out *DepsTracker) DepStatus {
	for k := range s.KeySpec {
		out.AddField(k)
	}
	return 0
}

// IsSplittable: each shard sorts its own stream; the merger performs a
// k-way merge preserving the sort key order (spec §5's ordering guarantee).
func (s *Sort) IsSplittable() bool { return true }

func (s *Sort) ShardPart() (Stage, bool) {
	shard := &Sort{KeySpec: cloneKeySpec(s.KeySpec), Limit: s.Limit}
	return shard, true
}

func (s *Sort) MergerPart() (Stage, bool) {
	merger := &Sort{KeySpec: cloneKeySpec(s.KeySpec), Limit: s.Limit, Merging: true}
	return merger, true
}

// Coalesce absorbs an immediately-following Limit into the sort's bound,
// the way a real sort executor turns "$sort then $limit" into a bounded
// top-k sort instead of a full sort followed by a separate truncation.
// The Limit stage is dropped from the pipeline; Serialize re-expands the
// bound back into a trailing $limit document so the command round-trips.
func (s *Sort) Coalesce(next Stage) bool {
	lim, ok := next.(*Limit)
	if !ok {
		return false
	}
	if s.Limit == nil || lim.N < *s.Limit {
		n := lim.N
		s.Limit = &n
	}
	return true
}

func (s *Sort) Serialize(explain bool) []map[string]any {
	spec := make(map[string]any, len(s.KeySpec))
	for k, v := range s.KeySpec {
		spec[k] = v
	}
	sortDoc := map[string]any{"$sort": spec}
	if explain {
		sortDoc["stageStats"] = map[string]any{"merging": s.Merging}
	}
	docs := []map[string]any{sortDoc}
	if s.Limit != nil {
		docs = append(docs, map[string]any{"$limit": *s.Limit})
	}
	return docs
}

func cloneKeySpec(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
