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

// Pipeline is an ordered sequence of stages plus the ExpressionContext they
// share. A Pipeline owns its stages exclusively; stages only hold a
// back-reference to the context.
type Pipeline struct {
	Ctx    *ExpressionContext
	Stages []Stage

	// Explain marks the pipeline as explain-only; Run is disallowed when
	// set.
	Explain bool
}

// NewPipeline returns an empty pipeline bound to ctx.
func NewPipeline(ctx *ExpressionContext) *Pipeline {
	return &Pipeline{Ctx: ctx}
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.Stages)
}

// PopFront removes and returns the first stage.
func (p *Pipeline) PopFront() (Stage, bool) {
	if len(p.Stages) == 0 {
		return nil, false
	}
	s := p.Stages[0]
	p.Stages = p.Stages[1:]
	return s, true
}

// PushBack appends a stage.
func (p *Pipeline) PushBack(s Stage) {
	p.Stages = append(p.Stages, s)
}

// PushFront prepends a stage.
func (p *Pipeline) PushFront(s Stage) {
	p.Stages = append([]Stage{s}, p.Stages...)
}

// PopBack removes and returns the last stage.
func (p *Pipeline) PopBack() (Stage, bool) {
	n := len(p.Stages)
	if n == 0 {
		return nil, false
	}
	s := p.Stages[n-1]
	p.Stages = p.Stages[:n-1]
	return s, true
}

// Clone returns a shallow copy of the pipeline: same context, same stage
// values, independent slice.
func (p *Pipeline) Clone() *Pipeline {
	out := &Pipeline{Ctx: p.Ctx, Explain: p.Explain}
	out.Stages = append(out.Stages, p.Stages...)
	return out
}

// GetInitialQuery returns the predicate of a leading Match stage, used by
// the caller to push a predicate into the input cursor. Returns nil, false
// if the pipeline is empty or does not begin with a Match.
func (p *Pipeline) GetInitialQuery() (map[string]any, bool) {
	if len(p.Stages) == 0 {
		return nil, false
	}
	m, ok := p.Stages[0].(*Match)
	if !ok {
		return nil, false
	}
	return m.Predicate, true
}

// InvolvedCollections returns the union of InvolvedCollections over every
// stage, used by the caller for locking.
func (p *Pipeline) InvolvedCollections() []Namespace {
	seen := map[Namespace]struct{}{}
	var out []Namespace
	for _, s := range p.Stages {
		for _, ns := range s.InvolvedCollections() {
			if _, ok := seen[ns]; ok {
				continue
			}
			seen[ns] = struct{}{}
			out = append(out, ns)
		}
	}
	return out
}

// NeedsPrimaryShardMerger is the disjunction of NeedsPrimaryShard over all
// stages, used when this pipeline is acting as a shard-split merger.
func (p *Pipeline) NeedsPrimaryShardMerger() bool {
	for _, s := range p.Stages {
		if s.NeedsPrimaryShard() {
			return true
		}
	}
	return false
}
