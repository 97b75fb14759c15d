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

package pipelineparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multigres/aggplan/go/mterrors"
	"github.com/multigres/aggplan/go/stage"
)

func TestParseCommandRejectsOutNotLast(t *testing.T) {
	cmd := map[string]any{
		"aggregate": "c",
		"pipeline": []any{
			map[string]any{"$out": "o"},
			map[string]any{"$match": map[string]any{}},
		},
	}
	_, err := ParseCommand(cmd, nil)
	require.Error(t, err)
	var planErr *mterrors.PlanError
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, mterrors.CodeOutNotLast, planErr.Code)
}

func TestParseCommandRejectsWrongTypeAllowDiskUse(t *testing.T) {
	cmd := map[string]any{
		"aggregate":    "c",
		"pipeline":     []any{},
		"allowDiskUse": "yes",
	}
	_, err := ParseCommand(cmd, nil)
	require.Error(t, err)
	var planErr *mterrors.PlanError
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, mterrors.CodeAllowDiskUseWrongType, planErr.Code)
}

func TestParseCommandRejectsUnrecognizedField(t *testing.T) {
	cmd := map[string]any{
		"aggregate": "c",
		"pipeline":  []any{},
		"foo":       1,
	}
	_, err := ParseCommand(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized field 'foo'")
}

func TestParseCommandRejectsNonObjectElement(t *testing.T) {
	cmd := map[string]any{
		"aggregate": "c",
		"pipeline":  []any{"not-an-object"},
	}
	_, err := ParseCommand(cmd, nil)
	require.Error(t, err)
	var planErr *mterrors.PlanError
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, mterrors.CodePipelineElementNotObject, planErr.Code)
}

func TestParseCommandIgnoresRouterAndCommandFields(t *testing.T) {
	cmd := map[string]any{
		"aggregate":  "c",
		"pipeline":   []any{},
		"cursor":     map[string]any{"batchSize": 10},
		"maxTimeMS":  1000,
		"$db":        "test",
		"fromRouter": true,
	}
	p, err := ParseCommand(cmd, nil)
	require.NoError(t, err)
	assert.True(t, p.Ctx.InShard)
}

func TestParseCommandBuildsTypedStages(t *testing.T) {
	cmd := map[string]any{
		"aggregate": "orders",
		"pipeline": []any{
			map[string]any{"$match": map[string]any{"status": "A"}},
			map[string]any{"$sort": map[string]any{"amount": -1}},
			map[string]any{"$limit": 5},
		},
	}
	p, err := ParseCommand(cmd, nil)
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())
	_, ok := p.Stages[0].(*stage.Match)
	assert.True(t, ok)
	_, ok = p.Stages[1].(*stage.Sort)
	assert.True(t, ok)
	_, ok = p.Stages[2].(*stage.Limit)
	assert.True(t, ok)
}

func TestParseCommandWrapsUnknownStageAsOpaque(t *testing.T) {
	cmd := map[string]any{
		"aggregate": "c",
		"pipeline": []any{
			map[string]any{"$bucket": map[string]any{"groupBy": "$x"}},
		},
	}
	p, err := ParseCommand(cmd, nil)
	require.NoError(t, err)
	op, ok := p.Stages[0].(*stage.Opaque)
	require.True(t, ok)
	assert.Equal(t, "$bucket", op.Kind)
}

func TestParseCommandDecodesLookupViaMapstructure(t *testing.T) {
	cmd := map[string]any{
		"aggregate": "orders",
		"pipeline": []any{
			map[string]any{"$lookup": map[string]any{
				"from":         "customers",
				"localField":   "customerId",
				"foreignField": "_id",
				"as":           "customer",
			}},
		},
	}
	p, err := ParseCommand(cmd, nil)
	require.NoError(t, err)
	lookup, ok := p.Stages[0].(*stage.Lookup)
	require.True(t, ok)
	assert.Equal(t, "customers", lookup.From)
	assert.Equal(t, "customerId", lookup.LocalField)
}
