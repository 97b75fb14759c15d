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

// Package mterrors implements the planner's tagged error type: every error
// the core returns carries a Kind (spec §7) and a stable numeric Code
// (spec §6), so callers can branch on either without string-matching
// messages.
package mterrors

import "fmt"

// Kind classifies a PlanError the way spec.md §7 does.
type Kind string

const (
	KindParseError            Kind = "ParseError"
	KindTypeMismatch          Kind = "TypeMismatch"
	KindBadValue              Kind = "BadValue"
	KindUnauthorized          Kind = "Unauthorized"
	KindRemoteValidationError Kind = "RemoteValidationError"
	KindResourceExceeded      Kind = "ResourceExceeded"
	KindInterrupted           Kind = "Interrupted"
	KindInternalError         Kind = "InternalError"
)

// Stable numeric codes carried over from the historical command layer
// (spec §6). Implementations may renumber but must keep stable identifiers;
// we keep the original numbers so error messages remain greppable against
// the spec and any existing tooling built around them.
const (
	CodePipelineElementNotObject = 15942
	CodeResultTooLarge           = 16389
	CodeEmptyPipelineAtStitch    = 16600
	CodeCursorAbsent             = 16625
	CodeAllowDiskUseWrongType    = 16949
	CodeOutNotLast               = 16991
	CodeInvalidInputNamespace    = 17138
	CodeInvalidOutputNamespace   = 17139
)

// PlanError is the error type returned throughout the planner core.
type PlanError struct {
	Kind    Kind
	Code    int
	Message string
}

func (e *PlanError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is supports errors.Is matching against a *PlanError target: by Code when
// the target's Code is set, otherwise by Kind (e.g.
// errors.Is(err, &PlanError{Kind: KindBadValue})).
func (e *PlanError) Is(target error) bool {
	other, ok := target.(*PlanError)
	if !ok {
		return false
	}
	if other.Code != 0 {
		return other.Code == e.Code
	}
	return other.Kind == e.Kind
}

func newError(kind Kind, code int, format string, args ...any) *PlanError {
	return &PlanError{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// ParseErrorf builds a ParseError: a malformed command or stage shape.
func ParseErrorf(code int, format string, args ...any) *PlanError {
	return newError(KindParseError, code, format, args...)
}

// TypeMismatchf builds a TypeMismatch: an option of the wrong type.
func TypeMismatchf(code int, format string, args ...any) *PlanError {
	return newError(KindTypeMismatch, code, format, args...)
}

// BadValuef builds a BadValue: a semantically invalid value or position.
func BadValuef(code int, format string, args ...any) *PlanError {
	return newError(KindBadValue, code, format, args...)
}

// Unauthorizedf builds an Unauthorized error.
func Unauthorizedf(format string, args ...any) *PlanError {
	return newError(KindUnauthorized, 0, format, args...)
}

// RemoteValidationErrorf builds a RemoteValidationError, e.g. a merger
// constraint violated at shard-split time.
func RemoteValidationErrorf(format string, args ...any) *PlanError {
	return newError(KindRemoteValidationError, 0, format, args...)
}

// ResourceExceededf builds a ResourceExceeded error (result size).
func ResourceExceededf(code int, format string, args ...any) *PlanError {
	return newError(KindResourceExceeded, code, format, args...)
}

// Interruptedf builds an Interrupted error (cancellation observed at a
// stage boundary).
func Interruptedf(format string, args ...any) *PlanError {
	return newError(KindInterrupted, 0, format, args...)
}

// InternalErrorf builds an InternalError: an invariant violation. These
// are assertions, not recoverable errors (spec §7) — callers should treat
// them as bugs, not input validation failures.
func InternalErrorf(code int, format string, args ...any) *PlanError {
	return newError(KindInternalError, code, format, args...)
}
