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

// Redact is a $redact stage: evaluates expr per (sub)document and either
// keeps, drops, or descends into it. Redact is not generally splittable —
// its expression may read any field of the document — but it accepts
// being preceded by a Match built from a prior Match's RedactSafePortion,
// since that portion is guaranteed safe to evaluate first.
type Redact struct {
	Base
	Expr any
}

// NewRedact returns a Redact stage over expr.
func NewRedact(expr any) *Redact {
	return &Redact{Expr: expr}
}

func (*Redact) StageName() string { return "$redact" }

func (r *Redact) Optimize() (Stage, bool) { return r, true }

// Dependencies: a redact expression may read any field of the document,
// so Redact cannot bound downstream demand and is NOT_SUPPORTED.
func (r *Redact) Dependencies(out *DepsTracker) DepStatus {
	out.NeedWholeDocument = true
	return NotSupported
}

func (r *Redact) Serialize(bool) []map[string]any {
	return []map[string]any{{"$redact": r.Expr}}
}
