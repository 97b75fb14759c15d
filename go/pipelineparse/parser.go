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
	"strings"

	"github.com/multigres/aggplan/go/mterrors"
	"github.com/multigres/aggplan/go/stage"
)

// ignoredTopLevelFields are command-document fields the unrecognized-field
// check lets through (spec §4.B, §6); allowDiskUse and
// bypassDocumentValidation are let through separately. Any other
// non-"$"-prefixed field is rejected.
var ignoredTopLevelFields = map[string]struct{}{
	"cursor":     {},
	"maxTimeMS":  {},
	"aggregate":  {},
	"pipeline":   {},
	"explain":    {},
	"fromRouter": {},
}

// ParseCommand parses cmd into an unoptimized Pipeline. reg supplies the
// stage constructors; pass nil to use NewRegistry().
func ParseCommand(cmd map[string]any, reg *Registry) (*stage.Pipeline, error) {
	if reg == nil {
		reg = NewRegistry()
	}

	ctx := &stage.ExpressionContext{}

	collection, ok := cmd["aggregate"].(string)
	if !ok || collection == "" {
		return nil, mterrors.ParseErrorf(0, "'aggregate' is required and must be a non-empty string")
	}
	ctx.InputNamespace = stage.Namespace{Collection: collection}

	rawPipeline, ok := cmd["pipeline"]
	if !ok {
		return nil, mterrors.ParseErrorf(0, "'pipeline' is required")
	}
	elements, ok := rawPipeline.([]any)
	if !ok {
		return nil, mterrors.TypeMismatchf(0, "'pipeline' must be an array")
	}

	if explain, ok := cmd["explain"]; ok {
		if _, ok := explain.(bool); !ok {
			return nil, mterrors.TypeMismatchf(0, "'explain' must be a bool")
		}
	}

	if fromRouter, ok := cmd["fromRouter"]; ok {
		b, ok := fromRouter.(bool)
		if !ok {
			return nil, mterrors.TypeMismatchf(0, "'fromRouter' must be a bool")
		}
		ctx.InShard = b
	}

	if allowDiskUse, ok := cmd["allowDiskUse"]; ok {
		b, ok := allowDiskUse.(bool)
		if !ok {
			return nil, mterrors.TypeMismatchf(
				mterrors.CodeAllowDiskUseWrongType,
				"allowDiskUse must be a bool, not a %T", allowDiskUse,
			)
		}
		ctx.AllowDiskUse = b
	}

	if bdv, ok := cmd["bypassDocumentValidation"]; ok {
		ctx.BypassDocumentValidation = truthy(bdv)
	}

	for k := range cmd {
		if strings.HasPrefix(k, "$") {
			continue
		}
		if _, ok := ignoredTopLevelFields[k]; ok {
			continue
		}
		if k == "allowDiskUse" || k == "bypassDocumentValidation" {
			continue
		}
		return nil, mterrors.ParseErrorf(0, "unrecognized field '%s'", k)
	}

	pipeline := stage.NewPipeline(ctx)
	if explain, _ := cmd["explain"].(bool); explain {
		pipeline.Explain = true
	}

	nSteps := len(elements)
	for i, elem := range elements {
		obj, ok := elem.(map[string]any)
		if !ok {
			return nil, mterrors.TypeMismatchf(
				mterrors.CodePipelineElementNotObject,
				"pipeline element %d is not an object", i,
			)
		}
		if len(obj) != 1 {
			return nil, mterrors.ParseErrorf(0, "pipeline element %d must have exactly one field", i)
		}
		var key string
		var payload any
		for k, v := range obj {
			key, payload = k, v
		}

		s, err := reg.Build(key, payload)
		if err != nil {
			return nil, err
		}
		pipeline.PushBack(s)

		if _, isOut := s.(*stage.Out); isOut && i != nSteps-1 {
			return nil, mterrors.BadValuef(
				mterrors.CodeOutNotLast,
				"$out can only be the final stage in the pipeline",
			)
		}
	}

	return pipeline, nil
}

// truthy mirrors the command layer's "truthy" option parsing: any value
// other than false, 0, "", or nil counts as true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
