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

// Project is a $project stage: a field inclusion/exclusion spec. Project
// reports EXHAUSTIVE_FIELDS (its output is exactly the included fields)
// and commutes with Skip and Limit when moved after them, since Project
// never drops documents.
type Project struct {
	Base
	FieldSpec map[string]int
}

// NewProject returns a Project stage over fieldSpec (1 to include, 0 to
// exclude a field).
func NewProject(fieldSpec map[string]int) *Project {
	return &Project{FieldSpec: fieldSpec}
}

func (*Project) StageName() string { return "$project" }

func (p *Project) Optimize() (Stage, bool) { return p, true }

func (p *Project) Dependencies(out *DepsTracker) DepStatus {
	for k, v := range p.FieldSpec {
		if v != 0 {
			out.AddField(k)
		}
	}
	return ExhaustiveFields
}

func (p *Project) Serialize(bool) []map[string]any {
	spec := make(map[string]any, len(p.FieldSpec))
	for k, v := range p.FieldSpec {
		spec[k] = v
	}
	return []map[string]any{{"$project": spec}}
}
