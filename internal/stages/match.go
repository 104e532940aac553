package stages

import (
	"context"

	"github.com/docbase/docbase/internal/matcher"
	"github.com/docbase/docbase/internal/types"
)

// matchStage streams only documents satisfying a compiled predicate (§4.4).
type matchStage struct {
	pred *matcher.Matcher
}

func compileMatch(spec *types.Document) (Stage, error) {
	m, err := matcher.Compile(spec)
	if err != nil {
		return nil, err
	}

	return &matchStage{pred: m}, nil
}

func (s *matchStage) Process(_ context.Context, in DocIter) (DocIter, error) {
	return newMapIter(in, func(doc *types.Document) ([]*types.Document, error) {
		ok, err := s.pred.Matches(doc)
		if err != nil {
			return nil, err
		}

		if !ok {
			return nil, nil
		}

		return []*types.Document{doc}, nil
	}), nil
}
