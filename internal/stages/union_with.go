package stages

import (
	"context"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

// unionWithStage appends documents scanned from another collection,
// optionally transformed by a sub-pipeline, to the current stream.
// Ordering between the original and unioned documents is unspecified
// (§4.6), so it simply concatenates: original stream first, then union.
type unionWithStage struct {
	coll     string
	pipeline *Pipeline
	pc       *Context
}

func compileUnionWith(body any, pc *Context) (Stage, error) {
	if name, ok := body.(string); ok {
		return &unionWithStage{coll: name, pc: pc}, nil
	}

	spec, ok := body.(*types.Document)
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$unionWith requires a string or a document argument")
	}

	collRaw, ok := spec.Get("coll")
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$unionWith requires 'coll'")
	}

	coll, ok := collRaw.(string)
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$unionWith 'coll' must be a string")
	}

	s := &unionWithStage{coll: coll, pc: pc}

	if pipelineRaw, ok := spec.Get("pipeline"); ok {
		arr, ok := pipelineRaw.(*types.Array)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$unionWith 'pipeline' must be an array")
		}

		p, err := Compile(arr, pc)
		if err != nil {
			return nil, err
		}

		s.pipeline = p
	}

	return s, nil
}

func (s *unionWithStage) Process(ctx context.Context, in DocIter) (DocIter, error) {
	original, err := drain(in)
	if err != nil {
		return nil, err
	}

	other, err := s.pc.Catalog.Collection(s.coll)
	if err != nil {
		return nil, err
	}

	iter, err := other.Scan()
	if err != nil {
		return nil, err
	}

	if s.pipeline != nil {
		iter, err = s.pipeline.Run(ctx, iter)
		if err != nil {
			return nil, err
		}
	}

	unioned, err := drain(iter)
	if err != nil {
		return nil, err
	}

	return newSliceDocIter(append(original, unioned...)), nil
}
