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

// Skip is a $skip stage: drops the first N documents. It is splittable but
// only runs on the merger — each shard would otherwise skip independently
// and under-deliver.
type Skip struct {
	Base
	N int64
}

// NewSkip returns a Skip stage.
func NewSkip(n int64) *Skip { return &Skip{N: n} }

func (*Skip) StageName() string { return "$skip" }

// Coalesce merges a following Skip by summing the counts.
func (s *Skip) Coalesce(next Stage) bool {
	other, ok := next.(*Skip)
	if !ok {
		return false
	}
	s.N += other.N
	return true
}

func (s *Skip) Optimize() (Stage, bool) { return s, true }

func (s *Skip) Dependencies(out *DepsTracker) DepStatus {
	out.NeedWholeDocument = true
	return NotSupported
}

func (s *Skip) IsSplittable() bool { return true }

// ShardPart is absent: Skip runs only on the merger.
func (s *Skip) ShardPart() (Stage, bool) { return nil, false }

func (s *Skip) MergerPart() (Stage, bool) {
	return NewSkip(s.N), true
}

func (s *Skip) Serialize(bool) []map[string]any {
	return []map[string]any{{"$skip": s.N}}
}

// Limit is a $limit stage: caps the stream at N documents. It is
// splittable and runs on both shard and merger with the same bound,
// since no shard needs to produce more than N documents and the merger
// still needs to cap the union.
type Limit struct {
	Base
	N int64
}

// NewLimit returns a Limit stage.
func NewLimit(n int64) *Limit { return &Limit{N: n} }

func (*Limit) StageName() string { return "$limit" }

// Coalesce merges a following Limit by keeping the smaller (tighter) bound.
func (l *Limit) Coalesce(next Stage) bool {
	other, ok := next.(*Limit)
	if !ok {
		return false
	}
	if other.N < l.N {
		l.N = other.N
	}
	return true
}

func (l *Limit) Optimize() (Stage, bool) { return l, true }

func (l *Limit) Dependencies(out *DepsTracker) DepStatus {
	out.NeedWholeDocument = true
	return NotSupported
}

func (l *Limit) IsSplittable() bool { return true }

func (l *Limit) ShardPart() (Stage, bool) {
	return NewLimit(l.N), true
}

func (l *Limit) MergerPart() (Stage, bool) {
	return NewLimit(l.N), true
}

func (l *Limit) Serialize(bool) []map[string]any {
	return []map[string]any{{"$limit": l.N}}
}
