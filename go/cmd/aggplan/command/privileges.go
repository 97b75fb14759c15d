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

package command

import (
	"fmt"

	"github.com/multigres/aggplan/go/mterrors"
	"github.com/multigres/aggplan/go/stage"
)

// Action is one of the privilege verbs checkAuthForCommand reasons about.
type Action string

const (
	ActionFind   Action = "find"
	ActionInsert Action = "insert"
	ActionRemove Action = "remove"
)

// Privilege is one (namespace, action) pair a command requires. An actual
// authorization decision is out of scope (spec.md §1's "external
// collaborators"); this just computes the set a real AuthorizationSession
// would be asked to check.
type Privilege struct {
	Namespace stage.Namespace
	Action    Action
}

// requiredPrivileges mirrors checkAuthForCommand (spec.md §6): find on the
// input namespace, insert+remove on a $out target (the write is a
// replace-collection operation), and find on each $lookup.from.
func requiredPrivileges(p *stage.Pipeline) []Privilege {
	privs := []Privilege{{Namespace: p.Ctx.InputNamespace, Action: ActionFind}}

	for _, s := range p.Stages {
		switch t := s.(type) {
		case *stage.Out:
			privs = append(privs,
				Privilege{Namespace: t.Target, Action: ActionInsert},
				Privilege{Namespace: t.Target, Action: ActionRemove},
			)
		case *stage.Lookup:
			privs = append(privs, Privilege{Namespace: stage.Namespace{Collection: t.From}, Action: ActionFind})
		}
	}
	return privs
}

// validateNamespaces checks every namespace a command touches for the
// well-formedness invariant stage.Namespace.Valid enforces, returning the
// historical 17138 (input) / 17139 (output, and everywhere else) codes on
// failure — the one feature spec.md's distillation dropped that the
// original pipeline layer still enforces (SPEC_FULL.md §3.3).
func validateNamespaces(p *stage.Pipeline) error {
	if !p.Ctx.InputNamespace.Valid() {
		return mterrors.BadValuef(mterrors.CodeInvalidInputNamespace,
			"invalid input namespace %q", p.Ctx.InputNamespace)
	}
	for _, priv := range requiredPrivileges(p) {
		if priv.Namespace == p.Ctx.InputNamespace {
			continue
		}
		if !priv.Namespace.Valid() {
			return mterrors.BadValuef(mterrors.CodeInvalidOutputNamespace,
				"invalid namespace %q", priv.Namespace)
		}
	}
	return nil
}

func (p Privilege) String() string {
	return fmt.Sprintf("%s on %s", p.Action, p.Namespace)
}
