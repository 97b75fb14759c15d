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

// Lookup is a $lookup stage: a left outer join against another collection.
// It reports involvement of the "from" namespace (for caller locking) and,
// since only the primary shard can be relied on to serve a consistent view
// of the foreign collection, pins a merger containing it to the primary
// shard.
type Lookup struct {
	Base
	From         string
	LocalField   string
	ForeignField string
	As           string
}

// NewLookup returns a Lookup stage.
func NewLookup(from, localField, foreignField, as string) *Lookup {
	return &Lookup{From: from, LocalField: localField, ForeignField: foreignField, As: as}
}

func (*Lookup) StageName() string { return "$lookup" }

func (l *Lookup) Optimize() (Stage, bool) { return l, true }

// Dependencies reports LocalField as needed but does not claim any
// exhaustive flag: $lookup preserves every field of the input document
// and appends As, so it cannot bound the fields a downstream stage may
// still need from upstream.
func (l *Lookup) Dependencies(out *DepsTracker) DepStatus {
	out.AddField(l.LocalField)
	return 0
}

func (l *Lookup) InvolvedCollections() []Namespace {
	return []Namespace{{Collection: l.From}}
}

func (l *Lookup) NeedsPrimaryShard() bool { return true }

func (l *Lookup) Serialize(bool) []map[string]any {
	return []map[string]any{{"$lookup": map[string]any{
		"from":         l.From,
		"localField":   l.LocalField,
		"foreignField": l.ForeignField,
		"as":           l.As,
	}}}
}
