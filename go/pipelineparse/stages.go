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

	"github.com/mitchellh/mapstructure"

	"github.com/multigres/aggplan/go/stage"
)

func decodeMatch(payload any) (stage.Stage, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, typeMismatch("$match", "an object", payload)
	}
	return stage.NewMatch(obj), nil
}

func decodeSort(payload any) (stage.Stage, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, typeMismatch("$sort", "an object", payload)
	}
	spec := make(map[string]int, len(obj))
	for k, v := range obj {
		n, ok := toInt(v)
		if !ok {
			return nil, typeMismatch("$sort."+k, "1 or -1", v)
		}
		spec[k] = n
	}
	return stage.NewSort(spec), nil
}

func decodeProject(payload any) (stage.Stage, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, typeMismatch("$project", "an object", payload)
	}
	spec := make(map[string]int, len(obj))
	for k, v := range obj {
		switch t := v.(type) {
		case bool:
			if t {
				spec[k] = 1
			} else {
				spec[k] = 0
			}
		default:
			n, ok := toInt(v)
			if !ok {
				return nil, typeMismatch("$project."+k, "0, 1, or a bool", v)
			}
			spec[k] = n
		}
	}
	return stage.NewProject(spec), nil
}

func decodeSkip(payload any) (stage.Stage, error) {
	n, ok := toInt64(payload)
	if !ok {
		return nil, typeMismatch("$skip", "a number", payload)
	}
	return stage.NewSkip(n), nil
}

func decodeLimit(payload any) (stage.Stage, error) {
	n, ok := toInt64(payload)
	if !ok {
		return nil, typeMismatch("$limit", "a number", payload)
	}
	return stage.NewLimit(n), nil
}

func decodeUnwind(payload any) (stage.Stage, error) {
	switch v := payload.(type) {
	case string:
		return stage.NewUnwind(v), nil
	case map[string]any:
		path, ok := v["path"].(string)
		if !ok {
			return nil, typeMismatch("$unwind.path", "a string", v["path"])
		}
		return stage.NewUnwind(path), nil
	default:
		return nil, typeMismatch("$unwind", "a string or an object", payload)
	}
}

func decodeRedact(payload any) (stage.Stage, error) {
	return stage.NewRedact(payload), nil
}

func decodeOut(payload any) (stage.Stage, error) {
	name, ok := payload.(string)
	if !ok {
		return nil, typeMismatch("$out", "a string", payload)
	}
	return stage.NewOut(name), nil
}

// lookupSpec mirrors the $lookup payload shape; mapstructure decodes the
// incoming map[string]any into it directly.
type lookupSpec struct {
	From         string `mapstructure:"from"`
	LocalField   string `mapstructure:"localField"`
	ForeignField string `mapstructure:"foreignField"`
	As           string `mapstructure:"as"`
}

func decodeLookup(payload any) (stage.Stage, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, typeMismatch("$lookup", "an object", payload)
	}
	var spec lookupSpec
	if err := mapstructure.Decode(obj, &spec); err != nil {
		return nil, typeMismatch("$lookup", "a lookup spec", payload)
	}
	return stage.NewLookup(spec.From, spec.LocalField, spec.ForeignField, spec.As), nil
}

func decodeGroup(payload any) (stage.Stage, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, typeMismatch("$group", "an object", payload)
	}
	id, hasID := obj["_id"]
	if !hasID {
		return nil, typeMismatch("$group._id", "a required field", nil)
	}
	accumulators := map[string]stage.Accumulator{}
	for name, raw := range obj {
		if name == "_id" {
			continue
		}
		spec, ok := raw.(map[string]any)
		if !ok || len(spec) != 1 {
			return nil, typeMismatch("$group."+name, "a single-operator accumulator spec", raw)
		}
		for op, arg := range spec {
			field := ""
			if s, ok := arg.(string); ok {
				field = strings.TrimPrefix(s, "$")
			}
			accumulators[name] = stage.Accumulator{Op: op, Field: field}
		}
	}
	return stage.NewGroup(id, accumulators), nil
}

func toInt(v any) (int, bool) {
	n, ok := toInt64(v)
	if !ok {
		return 0, false
	}
	return int(n), true
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
