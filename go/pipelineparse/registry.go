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

// Package pipelineparse turns a command document into a validated,
// unoptimized stage.Pipeline (spec §4.B). Each pipeline element is a
// single-key document dispatched, by that key, to a constructor in a
// Registry.
package pipelineparse

import (
	"github.com/multigres/aggplan/go/mterrors"
	"github.com/multigres/aggplan/go/stage"
)

// Constructor builds a Stage from its payload — the value of the stage's
// single top-level key.
type Constructor func(payload any) (stage.Stage, error)

// Registry maps a stage's top-level key (e.g. "$match") to the
// Constructor that builds it. A key with no registered constructor is not
// an error: it is wrapped in stage.Opaque, per the open set of "other
// stages" spec.md §3 describes.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns a Registry pre-populated with the closed set of
// stage kinds spec.md §3 names.
func NewRegistry() *Registry {
	r := &Registry{constructors: map[string]Constructor{}}
	r.Register("$match", decodeMatch)
	r.Register("$sort", decodeSort)
	r.Register("$project", decodeProject)
	r.Register("$skip", decodeSkip)
	r.Register("$limit", decodeLimit)
	r.Register("$unwind", decodeUnwind)
	r.Register("$group", decodeGroup)
	r.Register("$redact", decodeRedact)
	r.Register("$out", decodeOut)
	r.Register("$lookup", decodeLookup)
	return r
}

// Register adds or replaces the constructor for key.
func (r *Registry) Register(key string, ctor Constructor) {
	r.constructors[key] = ctor
}

// Build dispatches payload to the constructor registered for key, or
// returns an Opaque stage if key is unregistered.
func (r *Registry) Build(key string, payload any) (stage.Stage, error) {
	ctor, ok := r.constructors[key]
	if !ok {
		return stage.NewOpaque(key, payload), nil
	}
	return ctor(payload)
}

func typeMismatch(key, want string, got any) error {
	return mterrors.TypeMismatchf(0, "%s must be %s, not %T", key, want, got)
}
