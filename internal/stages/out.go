package stages

import (
	"context"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/storage"
	"github.com/docbase/docbase/internal/types"
)

// outStage atomically replaces the entire target collection with the
// pipeline's output and emits the empty stream (§4.6).
type outStage struct {
	coll string
	pc   *Context
}

func compileOut(body any, pc *Context) (Stage, error) {
	if name, ok := body.(string); ok {
		return &outStage{coll: name, pc: pc}, nil
	}

	spec, ok := body.(*types.Document)
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$out requires a string or a document argument")
	}

	collRaw, ok := spec.Get("coll")
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$out requires 'coll'")
	}

	coll, ok := collRaw.(string)
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$out 'coll' must be a string")
	}

	return &outStage{coll: coll, pc: pc}, nil
}

func (s *outStage) Process(_ context.Context, in DocIter) (DocIter, error) {
	docs, err := drain(in)
	if err != nil {
		return nil, err
	}

	target, err := s.pc.Catalog.Collection(s.coll)
	if err != nil {
		target = storage.EnsureCollection(s.pc.Catalog, s.coll)
	}

	if err := target.BulkReplace(docs); err != nil {
		return nil, err
	}

	return newSliceDocIter(nil), nil
}
