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

// Match is a $match stage: a predicate evaluated against each input
// document. Non-text matches commute past Sort, distribute into Redact
// prefixes via RedactSafePortion, and report exact field dependencies.
type Match struct {
	Base
	Predicate map[string]any
}

// NewMatch returns a Match stage over predicate.
func NewMatch(predicate map[string]any) *Match {
	if predicate == nil {
		predicate = map[string]any{}
	}
	return &Match{Predicate: predicate}
}

func (*Match) StageName() string { return "$match" }

// IsTextQuery reports whether the predicate contains a $text clause. Text
// matches are excluded from moveMatchBeforeSort and contribute
// NeedTextScore to the dependency analyzer.
func (m *Match) IsTextQuery() bool {
	_, ok := m.Predicate["$text"]
	return ok
}

// RedactSafePortion returns the largest sub-predicate of m that is
// guaranteed to return the same truth value before and after a preceding
// $redact has dropped fields. Any operator key ($where, $text, and other
// $-prefixed clauses whose truth value may depend on fields a Redact could
// remove) is excluded; the remaining plain field-equality clauses are safe
// because Redact never rewrites the values of fields it keeps.
func (m *Match) RedactSafePortion() map[string]any {
	safe := map[string]any{}
	for k, v := range m.Predicate {
		if strings.HasPrefix(k, "$") {
			continue
		}
		safe[k] = v
	}
	if len(safe) == 0 {
		return nil
	}
	return safe
}

// Coalesce merges an immediately-following Match into the receiver as a
// conjunction: running both in sequence is equivalent to running the AND
// of their predicates.
func (m *Match) Coalesce(next Stage) bool {
	other, ok := next.(*Match)
	if !ok {
		return false
	}
	merged := make(map[string]any, len(m.Predicate)+len(other.Predicate))
	for k, v := range m.Predicate {
		merged[k] = v
	}
	for k, v := range other.Predicate {
		merged[k] = v
	}
	m.Predicate = merged
	return true
}

func (m *Match) Optimize() (Stage, bool) { return m, true }

// Dependencies reports the top-level field names referenced by the
// predicate. This is exact but not exhaustive: Match passes every field
// of a matched document through unchanged, so it cannot bound what a
// later stage might still need from the original input.
func (m *Match) Dependencies(out *DepsTracker) DepStatus {
	for k := range m.Predicate {
		if strings.HasPrefix(k, "$") {
			continue
		}
		out.AddField(k)
	}
	if m.IsTextQuery() {
		out.NeedTextScore = true
	}
	return 0
}

// Match is not a SplittableDocumentSource: it uses Base's IsSplittable
// (false), so findSplitPoint pushes it onto the shard side wholesale and
// keeps walking toward the actual first splittable stage, rather than
// stopping on a leading Match.

func (m *Match) Serialize(bool) []map[string]any {
	return []map[string]any{{"$match": m.Predicate}}
}
