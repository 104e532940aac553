package stages

import (
	"context"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/projection"
	"github.com/docbase/docbase/internal/types"
)

// projectionStage wraps a compiled Projection Engine entry point
// ($project, $addFields/$set, $unset, $replaceRoot/$replaceWith) as a
// streaming one-to-one stage.
type projectionStage struct {
	proj *projection.Projection
	now  types.DateTime
}

func (s *projectionStage) Process(_ context.Context, in DocIter) (DocIter, error) {
	return newMapIter(in, func(doc *types.Document) ([]*types.Document, error) {
		out, err := s.proj.Apply(doc, s.now)
		if err != nil {
			return nil, err
		}

		d, ok := out.(*types.Document)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "stage produced a non-document result")
		}

		return []*types.Document{d}, nil
	}), nil
}

func compileProject(spec *types.Document, now types.DateTime) (Stage, error) {
	p, err := projection.CompileProject(spec)
	if err != nil {
		return nil, err
	}

	return &projectionStage{proj: p, now: now}, nil
}

func compileAddFields(spec *types.Document, now types.DateTime) (Stage, error) {
	p, err := projection.CompileAddFields(spec)
	if err != nil {
		return nil, err
	}

	return &projectionStage{proj: p, now: now}, nil
}

func compileReplaceRoot(newRoot any, now types.DateTime) (Stage, error) {
	p, err := projection.CompileReplaceRoot(newRoot)
	if err != nil {
		return nil, err
	}

	return &projectionStage{proj: p, now: now}, nil
}

func compileUnset(raw any, now types.DateTime) (Stage, error) {
	var paths []string

	switch v := raw.(type) {
	case string:
		paths = []string{v}
	case *types.Array:
		for _, e := range v.Slice() {
			s, ok := e.(string)
			if !ok {
				return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$unset array elements must be strings")
			}

			paths = append(paths, s)
		}
	default:
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$unset requires a string or array of strings")
	}

	return &projectionStage{proj: projection.CompileUnset(paths), now: now}, nil
}
