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

// Out is a $out stage: a sink that writes the pipeline's output into
// Target. It must occupy the last position of a pipeline (enforced by the
// parser, invariant 1) and forces a shard-split merger to run on the
// database's primary shard, since only the primary may accept the write.
type Out struct {
	Base
	Target Namespace
}

// NewOut returns an Out stage targeting collection.
func NewOut(collection string) *Out {
	return &Out{Target: Namespace{Collection: collection}}
}

func (*Out) StageName() string { return "$out" }

func (o *Out) Optimize() (Stage, bool) { return o, true }

// Dependencies: $out writes the complete document, so it needs everything
// and cannot see past itself.
func (o *Out) Dependencies(out *DepsTracker) DepStatus {
	out.NeedWholeDocument = true
	return NotSupported
}

func (o *Out) NeedsPrimaryShard() bool { return true }

func (o *Out) Serialize(bool) []map[string]any {
	return []map[string]any{{"$out": o.Target.Collection}}
}
