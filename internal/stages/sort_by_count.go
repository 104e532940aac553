package stages

import (
	"context"

	"github.com/docbase/docbase/internal/expr"
	"github.com/docbase/docbase/internal/stages/accumulators"
	"github.com/docbase/docbase/internal/types"
)

// sortByCountStage is sugar (§4.6): group by expr, add count:$sum:1,
// sort descending by count. Implemented directly rather than as two
// composed stages, since its count accumulator never varies.
type sortByCountStage struct {
	key *expr.Expression
	now types.DateTime
}

func compileSortByCount(body any, now types.DateTime) (Stage, error) {
	key, err := expr.Compile(body)
	if err != nil {
		return nil, err
	}

	return &sortByCountStage{key: key, now: now}, nil
}

func (s *sortByCountStage) Process(ctx context.Context, in DocIter) (DocIter, error) {
	docs, err := drain(in)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*groupBucket)
	order := make([]string, 0)

	for _, doc := range docs {
		scope := expr.NewRootScope(doc, s.now)

		idValue, err := s.key.EvalInScope(scope)
		if err != nil {
			return nil, err
		}

		key := groupKeyString(idValue)

		b, ok := buckets[key]
		if !ok {
			acc, _ := accumulators.New("$sum")
			b = &groupBucket{idValue: idValue, accs: []accumulators.Accumulator{acc}}
			buckets[key] = b
			order = append(order, key)
		}

		if err := b.accs[0].Add(int32(1)); err != nil {
			return nil, err
		}
	}

	results := make([]*types.Document, 0, len(order))

	for _, key := range order {
		b := buckets[key]

		out := types.MakeDocument(2)
		out.Set("_id", b.idValue)
		out.Set("count", b.accs[0].Result())

		results = append(results, out)
	}

	sorted := &sortStage{keys: []sortKey{{path: []string{"count"}, desc: true}}}

	return sorted.Process(ctx, newSliceDocIter(results))
}
