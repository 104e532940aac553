// Package stages implements the Pipeline Runtime (§4.6): a pull-based
// stage machine that composes $match through $out into a streaming
// (and, where required, blocking) execution plan over a document
// iterator.
package stages

import (
	"context"

	"go.uber.org/zap"

	"github.com/docbase/docbase/internal/metrics"
	"github.com/docbase/docbase/internal/storage"
	"github.com/docbase/docbase/internal/types"
)

// DocIter is a pull iterator over documents, shared with internal/storage
// so a Collaborator's Scan result needs no adaptation to feed a pipeline.
type DocIter = storage.DocIter

// Stage is one streaming or blocking document-to-documents
// transformation. Process pulls from in lazily where possible
// (streaming stages) or drains it eagerly (blocking stages), returning
// a new iterator for the downstream stage to pull from in turn.
type Stage interface {
	Process(ctx context.Context, in DocIter) (DocIter, error)
}

// Context carries everything a stage needs besides its own compiled
// spec and upstream iterator: the pipeline's single captured NOW (so
// every stage and expression in one run agrees on the current time),
// the storage catalog for $lookup/$unionWith/$merge/$out, a shared
// $lookup result cache, and an optional logger (nil-safe: defaults to
// a no-op logger so callers never need to guard against a nil field).
type Context struct {
	Now     types.DateTime
	Catalog storage.Catalog
	Lookups *storage.LookupCache
	Logger  *zap.Logger

	// Metrics is optional; every recording method on *metrics.PipelineMetrics
	// is nil-safe, so a nil Metrics field disables instrumentation with no
	// caller-side guards required.
	Metrics *metrics.PipelineMetrics
}

// logger returns c.Logger, or a no-op logger if c is nil or unset.
func (c *Context) logger() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}

	return c.Logger
}

// metrics returns c.Metrics, which is nil-safe to call methods on even
// when c itself is nil.
func (c *Context) metrics() *metrics.PipelineMetrics {
	if c == nil {
		return nil
	}

	return c.Metrics
}

// sliceIter returns a DocIter over an in-memory slice, used by blocking
// stages to hand their materialized output downstream.
func sliceIter(docs []*types.Document) DocIter {
	return newSliceDocIter(docs)
}

// drain pulls every document out of in and closes it, used by blocking
// stages that must see their entire input before producing output.
func drain(in DocIter) ([]*types.Document, error) {
	defer in.Close()

	var docs []*types.Document

	for {
		_, doc, err := in.Next()
		if err != nil {
			if isIterDone(err) {
				return docs, nil
			}

			return nil, err
		}

		docs = append(docs, doc)
	}
}
