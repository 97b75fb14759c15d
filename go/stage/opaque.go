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

// Opaque represents any stage kind outside the closed set this core
// understands in detail (spec §3: "an open set of other stages treated
// opaquely by this core"). It round-trips unchanged through parse,
// optimize, and serialize, is never splittable, and forces the dependency
// analyzer to stop, since nothing is known about what it reads.
type Opaque struct {
	Base
	Kind    string
	Payload any
}

// NewOpaque returns an Opaque stage for an unrecognized kind/payload pair.
func NewOpaque(kind string, payload any) *Opaque {
	return &Opaque{Kind: kind, Payload: payload}
}

func (o *Opaque) StageName() string { return o.Kind }

func (o *Opaque) Optimize() (Stage, bool) { return o, true }

func (o *Opaque) Dependencies(out *DepsTracker) DepStatus {
	out.NeedWholeDocument = true
	return NotSupported
}

func (o *Opaque) Serialize(bool) []map[string]any {
	return []map[string]any{{o.Kind: o.Payload}}
}
