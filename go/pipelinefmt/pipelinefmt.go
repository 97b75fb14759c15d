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

// Package pipelinefmt renders a Pipeline back to its command-document form
// (Serialize) or to a verbose explain array (WriteExplainOps).
package pipelinefmt

import "github.com/multigres/aggplan/go/stage"

// Serialize emits a command-shaped document: aggregate, pipeline, and the
// explain/allowDiskUse/bypassDocumentValidation flags, each included only
// when set. A coalesced stage that serializes to more than one document
// (e.g. a Sort that absorbed a trailing Limit) contributes all of them, in
// order, so parse -> optimize -> serialize round-trips to an equivalent
// command.
func Serialize(p *stage.Pipeline) map[string]any {
	cmd := map[string]any{
		"aggregate": p.Ctx.InputNamespace.Collection,
		"pipeline":  serializeStages(p, false),
	}
	if p.Explain {
		cmd["explain"] = true
	}
	if p.Ctx.AllowDiskUse {
		cmd["allowDiskUse"] = true
	}
	if p.Ctx.BypassDocumentValidation {
		cmd["bypassDocumentValidation"] = true
	}
	return cmd
}

// WriteExplainOps renders the pipeline's stages in their verbose explain
// form, one array entry per serialized document a stage contributes.
func WriteExplainOps(p *stage.Pipeline) []map[string]any {
	return serializeStages(p, true)
}

func serializeStages(p *stage.Pipeline, explain bool) []map[string]any {
	docs := make([]map[string]any, 0, p.Len())
	for _, s := range p.Stages {
		docs = append(docs, s.Serialize(explain)...)
	}
	return docs
}
