package stages

import (
	"context"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

type limitStage struct{ n int64 }

func compileLimit(raw any) (Stage, error) {
	n, ok := asNonNegativeInt(raw)
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$limit requires a non-negative integer")
	}

	return &limitStage{n: n}, nil
}

func (s *limitStage) Process(_ context.Context, in DocIter) (DocIter, error) {
	remaining := s.n

	return newMapIter(in, func(doc *types.Document) ([]*types.Document, error) {
		if remaining <= 0 {
			return nil, iterDoneErr()
		}

		remaining--

		return []*types.Document{doc}, nil
	}), nil
}

type skipStage struct{ n int64 }

func compileSkip(raw any) (Stage, error) {
	n, ok := asNonNegativeInt(raw)
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$skip requires a non-negative integer")
	}

	return &skipStage{n: n}, nil
}

func (s *skipStage) Process(_ context.Context, in DocIter) (DocIter, error) {
	remaining := s.n

	return newMapIter(in, func(doc *types.Document) ([]*types.Document, error) {
		if remaining > 0 {
			remaining--
			return nil, nil
		}

		return []*types.Document{doc}, nil
	}), nil
}

func asNonNegativeInt(raw any) (int64, bool) {
	var n int64

	switch v := raw.(type) {
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float64:
		n = int64(v)
	default:
		return 0, false
	}

	if n < 0 {
		return 0, false
	}

	return n, true
}
