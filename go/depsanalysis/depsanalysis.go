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

// Package depsanalysis computes the field and metadata demand of a
// pipeline suffix (spec §4.D), used by the shard splitter to build a
// field-limiting projection and exported for other callers.
package depsanalysis

import "github.com/multigres/aggplan/go/stage"

// Analyze walks pipeline left to right, accumulating field and metadata
// demand, and stops early once both have become exhaustively known.
// initialQuery is the predicate driving the pipeline's input cursor (or
// nil); it only affects whether a still-unresolved text-score need is
// cleared at the end, since a non-text input can never produce one.
func Analyze(pipeline *stage.Pipeline, initialQuery map[string]any) *stage.DepsTracker {
	deps := stage.NewDepsTracker()
	knowFields := false
	knowMeta := false

	for _, s := range pipeline.Stages {
		if knowFields && knowMeta {
			break
		}

		local := stage.NewDepsTracker()
		status := s.Dependencies(local)
		if status.Has(stage.NotSupported) {
			break
		}

		if !knowFields {
			for f := range local.Fields {
				deps.AddField(f)
			}
			deps.NeedWholeDocument = deps.NeedWholeDocument || local.NeedWholeDocument
			knowFields = status.Has(stage.ExhaustiveFields)
		}
		if !knowMeta {
			deps.NeedTextScore = deps.NeedTextScore || local.NeedTextScore
			knowMeta = status.Has(stage.ExhaustiveMeta)
		}
	}

	if !knowFields {
		deps.NeedWholeDocument = true
	}

	if isTextQuery(initialQuery) {
		if !knowMeta {
			deps.NeedTextScore = true
		}
	} else {
		deps.NeedTextScore = false
	}

	return deps
}

func isTextQuery(predicate map[string]any) bool {
	if predicate == nil {
		return false
	}
	_, ok := predicate["$text"]
	return ok
}
