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

// Package shardsplit partitions a locally-optimized pipeline into a
// shard half and a merger half (spec §4.E).
package shardsplit

import (
	"github.com/multigres/aggplan/go/depsanalysis"
	"github.com/multigres/aggplan/go/stage"
)

// Split partitions pipeline. mergerP is pipeline mutated in place;
// shardP is a new pipeline sharing the same ExpressionContext.
func Split(pipeline *stage.Pipeline) (shardP, mergerP *stage.Pipeline, err error) {
	mergerP = pipeline
	shardP = stage.NewPipeline(pipeline.Ctx)

	findSplitPoint(shardP, mergerP)
	moveFinalUnwindFromShardsToMerger(shardP, mergerP)
	limitFieldsSentFromShardsToMerger(shardP, mergerP)

	mergerP.Ctx.Log().Debug("pipeline split", "shard_stages", shardP.Len(), "merger_stages", mergerP.Len())
	return shardP, mergerP, nil
}

// findSplitPoint repeatedly pops mergerP's front stage onto shardP's
// back as long as it isn't splittable. The first splittable stage
// contributes its shard part (appended to shardP) and merger part
// (prepended back onto mergerP), and the walk stops there.
func findSplitPoint(shardP, mergerP *stage.Pipeline) {
	for {
		s, ok := mergerP.PopFront()
		if !ok {
			return
		}
		if !s.IsSplittable() {
			shardP.PushBack(s)
			continue
		}
		if shardPart, ok := s.ShardPart(); ok {
			shardP.PushBack(shardPart)
		}
		if mergerPart, ok := s.MergerPart(); ok {
			mergerP.PushFront(mergerPart)
		}
		return
	}
}

// moveFinalUnwindFromShardsToMerger migrates any run of trailing Unwind
// stages from the back of shardP to the front of mergerP: running them
// after the merge avoids inflating the inter-shard payload.
func moveFinalUnwindFromShardsToMerger(shardP, mergerP *stage.Pipeline) {
	for {
		s, ok := shardP.PopBack()
		if !ok {
			return
		}
		if _, isUnwind := s.(*stage.Unwind); !isUnwind {
			shardP.PushBack(s)
			return
		}
		mergerP.PushFront(s)
	}
}

// limitFieldsSentFromShardsToMerger appends a synthetic Project to
// shardP narrowing the inter-shard payload to exactly what mergerP
// demands, unless the merger needs the whole document or a covering
// projection is already present on the shard side.
func limitFieldsSentFromShardsToMerger(shardP, mergerP *stage.Pipeline) {
	initialQuery, _ := shardP.GetInitialQuery()
	mergerDeps := depsanalysis.Analyze(mergerP, initialQuery)
	if mergerDeps.NeedWholeDocument {
		return
	}

	fields := mergerDeps.SortedFields()
	if len(fields) == 0 {
		fields = []string{"_id"}
	}

	for _, s := range shardP.Stages {
		local := stage.NewDepsTracker()
		if s.Dependencies(local).Has(stage.ExhaustiveFields) {
			return
		}
	}

	proj := make(map[string]int, len(fields))
	for _, f := range fields {
		proj[f] = 1
	}
	shardP.PushBack(stage.NewProject(proj))
}
