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

// Package pipelinerun stitches an optimized pipeline into a single-threaded
// cooperative pull chain and drains it into a result document. Execution
// semantics of individual stages (matching, grouping, sorting) are out of
// scope; every stage except Out passes its upstream documents through
// unchanged, so what this package actually exercises is the stitching,
// cancellation, and resource-bound machinery around the one stage kind
// (Out) that does real I/O here, plus the store-backed initial cursor.
package pipelinerun

import (
	"context"
	"encoding/json"

	"github.com/multigres/aggplan/go/mterrors"
	"github.com/multigres/aggplan/go/stage"
)

// DefaultMaxResultBytes and headerReserveBytes mirror the historical
// command layer's BSONObjectMaxInternalSize / 16KiB reserve: a round,
// realistic cap rather than an arbitrary test constant.
const (
	DefaultMaxResultBytes = 16 * 1024 * 1024
	headerReserveBytes    = 16 * 1024
)

// Cursor is a single-document pull source: the "produce next or none"
// operation spec §9's design notes call for, with an interrupt check at
// the boundary.
type Cursor interface {
	Next(ctx context.Context) (doc map[string]any, ok bool, err error)
}

// DocStore is the I/O collaborator a pipeline is stitched against: an
// initial cursor over the input namespace, and a sink for $out. Defined
// here (not in go/docstore) so this package depends on an interface it
// owns, not a concrete storage backend; go/docstore.Store satisfies this
// structurally.
type DocStore interface {
	OpenCursor(ctx context.Context, ns stage.Namespace, query map[string]any) (Cursor, error)
	Insert(ctx context.Context, ns stage.Namespace, doc map[string]any) error
}

// Stitch links pipeline's stages into a pull chain rooted at a store
// cursor over the input namespace, pushing the pipeline's initial query
// (if the first stage is a Match) down to the store. Fails if the
// pipeline is empty.
func Stitch(ctx context.Context, pipeline *stage.Pipeline, store DocStore) (Cursor, error) {
	if pipeline.Len() == 0 {
		return nil, mterrors.InternalErrorf(mterrors.CodeEmptyPipelineAtStitch, "cannot stitch an empty pipeline")
	}

	initialQuery, _ := pipeline.GetInitialQuery()
	cur, err := store.OpenCursor(ctx, pipeline.Ctx.InputNamespace, initialQuery)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, mterrors.InternalErrorf(mterrors.CodeCursorAbsent, "document store returned no cursor for %s", pipeline.Ctx.InputNamespace)
	}

	for _, s := range pipeline.Stages {
		cur = wrapStage(s, cur, store)
	}
	return cur, nil
}

// wrapStage returns the Cursor that runs s over upstream. Only Out does
// real per-document work here (a write-through tee to store); every other
// stage kind is a pass-through, per the package doc's scope note.
func wrapStage(s stage.Stage, upstream Cursor, store DocStore) Cursor {
	if out, ok := s.(*stage.Out); ok {
		return &sinkCursor{upstream: upstream, store: store, target: out.Target}
	}
	return &passthroughCursor{upstream: upstream}
}

type passthroughCursor struct {
	upstream Cursor
}

func (c *passthroughCursor) Next(ctx context.Context) (map[string]any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, mterrors.Interruptedf("pipeline interrupted: %v", err)
	}
	return c.upstream.Next(ctx)
}

// sinkCursor writes each document it pulls to store before handing it
// back upstream, the way $out tees its input to the target collection.
type sinkCursor struct {
	upstream Cursor
	store    DocStore
	target   stage.Namespace
}

func (c *sinkCursor) Next(ctx context.Context) (map[string]any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, mterrors.Interruptedf("pipeline interrupted: %v", err)
	}
	doc, ok, err := c.upstream.Next(ctx)
	if err != nil || !ok {
		return doc, ok, err
	}
	if err := c.store.Insert(ctx, c.target, doc); err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

type drainResult struct {
	doc map[string]any
	ok  bool
	err error
}

// drain repeatedly calls cur.Next and forwards results on out, stopping
// once it's exhausted, errors, or ctx is done. It always closes out, which
// is what lets Run's consumer loop detect the end of the stream from a
// closed channel.
func drain(ctx context.Context, cur Cursor, out chan<- drainResult) {
	defer close(out)
	for {
		doc, ok, err := cur.Next(ctx)
		select {
		case out <- drainResult{doc: doc, ok: ok, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil || !ok {
			return
		}
	}
}

// Run stitches pipeline and pulls every document from the tail into a
// result array, enforcing maxResultBytes (document corpus max minus a
// small header reserve) as a running bound. Disallowed for explain
// pipelines. The drain itself runs in a background goroutine so a stage
// blocked in I/O is abandoned promptly on cancellation rather than only
// being noticed at its own next boundary check.
func Run(ctx context.Context, pipeline *stage.Pipeline, store DocStore, maxResultBytes int) (map[string]any, error) {
	if pipeline.Explain {
		return nil, mterrors.BadValuef(0, "run is not permitted for an explain pipeline")
	}
	if maxResultBytes <= 0 {
		maxResultBytes = DefaultMaxResultBytes
	}

	cur, err := Stitch(ctx, pipeline, store)
	if err != nil {
		return nil, err
	}

	drainCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	results := make(chan drainResult)
	go drain(drainCtx, cur, results)

	limit := maxResultBytes - headerReserveBytes
	size := 0
	var out []map[string]any

	for {
		// Checked twice: once alone so an already-cancelled context is
		// never raced against a ready results value, then again as part
		// of the blocking select below.
		select {
		case <-ctx.Done():
			return nil, mterrors.Interruptedf("pipeline interrupted: %v", ctx.Err())
		default:
		}

		select {
		case <-ctx.Done():
			return nil, mterrors.Interruptedf("pipeline interrupted: %v", ctx.Err())
		case r, chOpen := <-results:
			if !chOpen {
				return map[string]any{"result": out}, nil
			}
			if r.err != nil {
				return nil, r.err
			}
			if !r.ok {
				return map[string]any{"result": out}, nil
			}
			n, err := approximateSize(r.doc)
			if err != nil {
				return nil, mterrors.InternalErrorf(0, "result document is not encodable: %v", err)
			}
			size += n
			if size > limit {
				return nil, mterrors.ResourceExceededf(mterrors.CodeResultTooLarge,
					"result exceeds maximum document size of %dMB", maxResultBytes/(1<<20))
			}
			out = append(out, r.doc)
		}
	}
}

// approximateSize stands in for a BSON object's byte size (the BSON codec
// itself is out of scope); JSON encoding length is a reasonable proxy for
// enforcing a running result-size bound.
func approximateSize(doc map[string]any) (int, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}
