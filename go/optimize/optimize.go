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

// Package optimize applies the local optimizer's six ordered rewrite
// passes to a single pipeline (spec §4.C). The optimizer never observes
// or invents errors (spec §7) — it operates only on already-parsed,
// well-formed pipelines.
package optimize

import "github.com/multigres/aggplan/go/stage"

// Pass names the six rewrite passes, in the fixed order Pipeline runs
// them. A planconfig-style feature flag disables passes by these names,
// so a test harness can assert a pipeline's pre-pass shape.
const (
	PassMoveMatchBeforeSort               = "moveMatchBeforeSort"
	PassMoveSkipAndLimitBeforeProject     = "moveSkipAndLimitBeforeProject"
	PassMoveLimitBeforeSkip               = "moveLimitBeforeSkip"
	PassCoalesceAdjacent                  = "coalesceAdjacent"
	PassOptimizeEachDocumentSource        = "optimizeEachDocumentSource"
	PassDuplicateMatchBeforeInitialRedact = "duplicateMatchBeforeInitialRedact"
)

// PassNames returns the six pass names in the order Pipeline applies them.
func PassNames() []string {
	return []string{
		PassMoveMatchBeforeSort,
		PassMoveSkipAndLimitBeforeProject,
		PassMoveLimitBeforeSkip,
		PassCoalesceAdjacent,
		PassOptimizeEachDocumentSource,
		PassDuplicateMatchBeforeInitialRedact,
	}
}

// Pipeline applies all six passes, in the contractual order, to p in
// place.
func Pipeline(p *stage.Pipeline) {
	PipelineWithOptions(p, nil)
}

// PipelineWithOptions applies the six passes in order, skipping any whose
// name is set to true in disabled. A nil or empty map runs every pass,
// identical to Pipeline.
func PipelineWithOptions(p *stage.Pipeline, disabled map[string]bool) {
	log := p.Ctx.Log()
	before := len(p.Stages)

	type namedPass struct {
		name string
		run  func([]stage.Stage) []stage.Stage
	}
	passes := []namedPass{
		{PassMoveMatchBeforeSort, moveMatchBeforeSort},
		{PassMoveSkipAndLimitBeforeProject, moveSkipAndLimitBeforeProject},
		{PassMoveLimitBeforeSkip, moveLimitBeforeSkip},
		{PassCoalesceAdjacent, coalesceAdjacent},
		{PassOptimizeEachDocumentSource, optimizeEachDocumentSource},
		{PassDuplicateMatchBeforeInitialRedact, duplicateMatchBeforeInitialRedact},
	}

	s := p.Stages
	for _, pass := range passes {
		if disabled[pass.name] {
			continue
		}
		s = pass.run(s)
	}
	p.Stages = s

	log.Debug("pipeline optimized", "stages_before", before, "stages_after", len(p.Stages))
}

// moveMatchBeforeSort is a single left-to-right sweep: for each non-text
// Match immediately preceded by a Sort, swap them. Intentionally a single
// pass — multi-sort hopping is a documented future extension, not a bug
// (spec §9 Open Question 1).
func moveMatchBeforeSort(stages []stage.Stage) []stage.Stage {
	for i := 1; i < len(stages); i++ {
		match, ok := stages[i].(*stage.Match)
		if !ok || match.IsTextQuery() {
			continue
		}
		if _, ok := stages[i-1].(*stage.Sort); !ok {
			continue
		}
		stages[i-1], stages[i] = stages[i], stages[i-1]
	}
	return stages
}

// moveSkipAndLimitBeforeProject is a right-to-left sweep: whenever a
// Project is immediately followed by a Skip or Limit, swap them and
// restart from the tail, so interleaved PLPL-style patterns resolve in
// one invocation.
func moveSkipAndLimitBeforeProject(stages []stage.Stage) []stage.Stage {
	for i := len(stages) - 1; i >= 1; i-- {
		if _, ok := stages[i-1].(*stage.Project); !ok {
			continue
		}
		_, isSkip := stages[i].(*stage.Skip)
		_, isLimit := stages[i].(*stage.Limit)
		if !isSkip && !isLimit {
			continue
		}
		stages[i-1], stages[i] = stages[i], stages[i-1]
		i = len(stages) // decremented before the next pass
	}
	return stages
}

// moveLimitBeforeSkip is a right-to-left sweep: whenever a Skip(k) is
// immediately followed by a Limit(n), it becomes Limit(n+k) followed by
// Skip(k) — the skipped documents still have to pass through the limit,
// so raising the bound keeps the result identical while exposing the
// limit to producers and the shard splitter as early as possible.
func moveLimitBeforeSkip(stages []stage.Stage) []stage.Stage {
	for i := len(stages) - 1; i >= 1; i-- {
		limit, isLimit := stages[i].(*stage.Limit)
		skip, isSkip := stages[i-1].(*stage.Skip)
		if !isLimit || !isSkip {
			continue
		}
		limit.N += skip.N
		stages[i-1], stages[i] = stages[i], stages[i-1]
		i = len(stages) // decremented before the next pass
	}
	return stages
}

// coalesceAdjacent is a single left-to-right pass: each successive stage
// is offered to the growing output list's last stage via Coalesce; a
// successful coalesce drops the stage instead of appending it.
func coalesceAdjacent(stages []stage.Stage) []stage.Stage {
	if len(stages) == 0 {
		return stages
	}
	out := make([]stage.Stage, 0, len(stages))
	out = append(out, stages[0])
	for _, next := range stages[1:] {
		last := out[len(out)-1]
		if !last.Coalesce(next) {
			out = append(out, next)
		}
	}
	return out
}

// optimizeEachDocumentSource replaces each stage with the result of its
// own Optimize; a stage whose Optimize returns ok=false is dropped.
func optimizeEachDocumentSource(stages []stage.Stage) []stage.Stage {
	out := make([]stage.Stage, 0, len(stages))
	for _, s := range stages {
		if opt, ok := s.Optimize(); ok {
			out = append(out, opt)
		}
	}
	return out
}

// duplicateMatchBeforeInitialRedact: if the pipeline begins with a Redact
// followed by a Match, and that Match has a non-empty RedactSafePortion,
// prepend a fresh Match over just that portion — it can run before the
// redact (and use an index) without changing the result.
func duplicateMatchBeforeInitialRedact(stages []stage.Stage) []stage.Stage {
	if len(stages) < 2 {
		return stages
	}
	if _, ok := stages[0].(*stage.Redact); !ok {
		return stages
	}
	match, ok := stages[1].(*stage.Match)
	if !ok {
		return stages
	}
	safe := match.RedactSafePortion()
	if len(safe) == 0 {
		return stages
	}
	out := make([]stage.Stage, 0, len(stages)+1)
	out = append(out, stage.NewMatch(safe))
	out = append(out, stages...)
	return out
}
