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

// Unwind is a $unwind stage: flattens an array-valued path into one
// document per element. It is not splittable (Base's default) — a shard
// half running $unwind before a later split point would inflate the
// inter-shard payload, which is exactly what the shard splitter's
// moveFinalUnwindFromShardsToMerger rewrite avoids by migrating trailing
// Unwinds to the merger instead.
type Unwind struct {
	Base
	Path string
}

// NewUnwind returns an Unwind stage over path (a dotted field path,
// optionally prefixed with "$").
func NewUnwind(path string) *Unwind {
	return &Unwind{Path: strings.TrimPrefix(path, "$")}
}

func (*Unwind) StageName() string { return "$unwind" }

func (u *Unwind) Optimize() (Stage, bool) { return u, true }

// Dependencies reports the unwound path as needed but does not claim
// EXHAUSTIVE_FIELDS: Unwind reshapes one field while passing every other
// field of the input document through unchanged, so it cannot bound
// downstream demand.
func (u *Unwind) Dependencies(out *DepsTracker) DepStatus {
	out.AddField(u.Path)
	return 0
}

func (u *Unwind) Serialize(bool) []map[string]any {
	return []map[string]any{{"$unwind": "$" + u.Path}}
}
