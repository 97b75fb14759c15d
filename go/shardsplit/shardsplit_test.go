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

package shardsplit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multigres/aggplan/go/stage"
)

func pipelineOf(stages ...stage.Stage) *stage.Pipeline {
	p := stage.NewPipeline(&stage.ExpressionContext{})
	p.Stages = stages
	return p
}

// TestSplitGroupProducesPartialAndFinalHalves exercises the first
// splittable stage found: Group factors into a partial shard-side
// aggregation and a merger-side finalization, and the walk stops there,
// leaving the rest of the pipeline on the merger unchanged.
func TestSplitGroupProducesPartialAndFinalHalves(t *testing.T) {
	p := pipelineOf(
		stage.NewGroup("$customer", map[string]stage.Accumulator{"total": {Op: "$sum", Field: "amount"}}),
		stage.NewSort(map[string]int{"total": -1}),
		stage.NewLimit(5),
	)
	shardP, mergerP, err := Split(p)
	require.NoError(t, err)

	require.Equal(t, 1, shardP.Len())
	shardGroup, ok := shardP.Stages[0].(*stage.Group)
	require.True(t, ok)
	assert.False(t, shardGroup.Finalize)

	require.Equal(t, 3, mergerP.Len())
	mergerGroup, ok := mergerP.Stages[0].(*stage.Group)
	require.True(t, ok)
	assert.True(t, mergerGroup.Finalize)
	_, ok = mergerP.Stages[1].(*stage.Sort)
	assert.True(t, ok)
	_, ok = mergerP.Stages[2].(*stage.Limit)
	assert.True(t, ok)
}

// TestSplitSkipsLeadingMatchToFindRealSplitPoint: Match is not a
// SplittableDocumentSource, so a leading Match is pushed onto the shard
// side wholesale and the walk continues past it to the first stage that
// actually is splittable (Group), rather than stopping on the Match.
func TestSplitSkipsLeadingMatchToFindRealSplitPoint(t *testing.T) {
	p := pipelineOf(
		stage.NewMatch(map[string]any{"q": 1}),
		stage.NewGroup("$customer", map[string]stage.Accumulator{"total": {Op: "$sum", Field: "amount"}}),
		stage.NewSort(map[string]int{"k": 1}),
		stage.NewLimit(5),
	)
	shardP, mergerP, err := Split(p)
	require.NoError(t, err)

	require.Equal(t, 2, shardP.Len())
	_, ok := shardP.Stages[0].(*stage.Match)
	require.True(t, ok)
	shardGroup, ok := shardP.Stages[1].(*stage.Group)
	require.True(t, ok)
	assert.False(t, shardGroup.Finalize)

	require.Equal(t, 3, mergerP.Len())
	mergerGroup, ok := mergerP.Stages[0].(*stage.Group)
	require.True(t, ok)
	assert.True(t, mergerGroup.Finalize)
	_, ok = mergerP.Stages[1].(*stage.Sort)
	assert.True(t, ok)
	_, ok = mergerP.Stages[2].(*stage.Limit)
	assert.True(t, ok)
}

// TestSplitMigratesTrailingUnwindToMerger: a leading Unwind (not
// splittable, so it's pushed onto the shard prefix) ends up at the tail
// of shardP when the split stage (Skip) contributes no shard part at
// all; moveFinalUnwindFromShardsToMerger then migrates it to the front
// of the merger pipeline.
func TestSplitMigratesTrailingUnwindToMerger(t *testing.T) {
	p := pipelineOf(
		stage.NewUnwind("items"),
		stage.NewSkip(5),
	)
	shardP, mergerP, err := Split(p)
	require.NoError(t, err)

	assert.Equal(t, 0, shardP.Len())
	require.Equal(t, 2, mergerP.Len())
	_, ok := mergerP.Stages[0].(*stage.Unwind)
	assert.True(t, ok)
	_, ok = mergerP.Stages[1].(*stage.Skip)
	assert.True(t, ok)
}

// TestSplitLimitsFieldsSentFromShardsToMerger: splitting at a Sort
// (which does not itself report EXHAUSTIVE_FIELDS) leaves the merger
// needing only a bounded field set once it reaches the trailing
// Project, so the heuristic gate does not suppress the optimization and
// a synthetic Project is appended to the shard side.
func TestSplitLimitsFieldsSentFromShardsToMerger(t *testing.T) {
	p := pipelineOf(
		stage.NewSort(map[string]int{"x": 1}),
		stage.NewProject(map[string]int{"x": 1, "y": 1}),
	)
	shardP, _, err := Split(p)
	require.NoError(t, err)

	require.Equal(t, 2, shardP.Len())
	_, ok := shardP.Stages[0].(*stage.Sort)
	require.True(t, ok)
	proj, ok := shardP.Stages[1].(*stage.Project)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"x": 1, "y": 1}, proj.FieldSpec)
}

// TestSplitHeuristicGateSuppressesRedundantProject: when the shard side
// already contains a stage reporting EXHAUSTIVE_FIELDS (here, the
// partial Group itself), no synthetic Project is appended even though
// the merger's own demand is bounded.
func TestSplitHeuristicGateSuppressesRedundantProject(t *testing.T) {
	p := pipelineOf(
		stage.NewGroup("$customer", nil),
		stage.NewProject(map[string]int{"customer": 1}),
	)
	shardP, _, err := Split(p)
	require.NoError(t, err)

	require.Equal(t, 1, shardP.Len())
	_, ok := shardP.Stages[0].(*stage.Group)
	assert.True(t, ok)
}

func TestSplitNeedsPrimaryShardMergerWhenOutOnMerger(t *testing.T) {
	p := pipelineOf(
		stage.NewSkip(3),
		stage.NewOut("results"),
	)
	_, mergerP, err := Split(p)
	require.NoError(t, err)
	assert.True(t, mergerP.NeedsPrimaryShardMerger())
}
