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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchRedactSafePortion(t *testing.T) {
	cases := []struct {
		name      string
		predicate map[string]any
		want      map[string]any
	}{
		{
			name:      "plain fields only",
			predicate: map[string]any{"a": 1, "b": 2},
			want:      map[string]any{"a": 1, "b": 2},
		},
		{
			name:      "where clause excluded",
			predicate: map[string]any{"a": 1, "$where": "this.a > 0"},
			want:      map[string]any{"a": 1},
		},
		{
			name:      "only operators",
			predicate: map[string]any{"$where": "true"},
			want:      nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMatch(tc.predicate)
			assert.Equal(t, tc.want, m.RedactSafePortion())
		})
	}
}

func TestMatchIsTextQuery(t *testing.T) {
	assert.True(t, NewMatch(map[string]any{"$text": map[string]any{"$search": "foo"}}).IsTextQuery())
	assert.False(t, NewMatch(map[string]any{"a": 1}).IsTextQuery())
}

func TestMatchCoalesceConjoinsPredicates(t *testing.T) {
	m1 := NewMatch(map[string]any{"a": 1})
	m2 := NewMatch(map[string]any{"b": 2})
	require.True(t, m1.Coalesce(m2))
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, m1.Predicate)
}

func TestSkipCoalesceSums(t *testing.T) {
	s1 := NewSkip(2)
	s2 := NewSkip(4)
	require.True(t, s1.Coalesce(s2))
	assert.Equal(t, int64(6), s1.N)
}

func TestLimitCoalesceKeepsMinimum(t *testing.T) {
	l1 := NewLimit(10)
	l2 := NewLimit(3)
	require.True(t, l1.Coalesce(l2))
	assert.Equal(t, int64(3), l1.N)
}

func TestLimitSkipDoNotCoalesce(t *testing.T) {
	l := NewLimit(10)
	assert.False(t, l.Coalesce(NewSkip(1)))
}

func TestNamespaceValid(t *testing.T) {
	assert.True(t, Namespace{Collection: "orders"}.Valid())
	assert.False(t, Namespace{}.Valid())
}

func TestDepsTrackerAddField(t *testing.T) {
	d := NewDepsTracker()
	d.AddFields("b", "a", "a")
	assert.Equal(t, []string{"a", "b"}, d.SortedFields())
}

func TestPipelineGetInitialQuery(t *testing.T) {
	p := NewPipeline(&ExpressionContext{})
	p.PushBack(NewMatch(map[string]any{"x": 1}))
	p.PushBack(NewSort(map[string]int{"x": 1}))

	q, ok := p.GetInitialQuery()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"x": 1}, q)

	p2 := NewPipeline(&ExpressionContext{})
	p2.PushBack(NewSort(map[string]int{"x": 1}))
	_, ok = p2.GetInitialQuery()
	assert.False(t, ok)
}

func TestPipelineInvolvedCollections(t *testing.T) {
	p := NewPipeline(&ExpressionContext{})
	p.PushBack(NewLookup("orders", "id", "orderId", "orders"))
	p.PushBack(NewLookup("orders", "id", "orderId", "orders2"))
	cols := p.InvolvedCollections()
	require.Len(t, cols, 1)
	assert.Equal(t, "orders", cols[0].Collection)
}

func TestSortCoalescesFollowingLimit(t *testing.T) {
	s := NewSort(map[string]int{"x": 1})
	require.True(t, s.Coalesce(NewLimit(5)))
	require.NotNil(t, s.Limit)
	assert.Equal(t, int64(5), *s.Limit)

	docs := s.Serialize(false)
	require.Len(t, docs, 2)
	assert.Contains(t, docs[0], "$sort")
	assert.Equal(t, map[string]any{"$limit": int64(5)}, docs[1])
}

func TestOutNeedsPrimaryShard(t *testing.T) {
	assert.True(t, NewOut("target").NeedsPrimaryShard())
	assert.True(t, NewLookup("from", "l", "f", "as").NeedsPrimaryShard())
	assert.False(t, NewMatch(nil).NeedsPrimaryShard())
}
