package stages

import (
	"context"
	"sort"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/expr"
	"github.com/docbase/docbase/internal/stages/accumulators"
	"github.com/docbase/docbase/internal/types"
)

// bucketAutoStage divides input into `buckets` roughly equal-count
// ranges over groupBy's ordered values; each output _id is {min, max}.
type bucketAutoStage struct {
	groupBy *expr.Expression
	buckets int
	outputs []groupOutput
	now     types.DateTime
}

func compileBucketAuto(spec *types.Document, now types.DateTime) (Stage, error) {
	groupByRaw, ok := spec.Get("groupBy")
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$bucketAuto requires 'groupBy'")
	}

	groupBy, err := expr.Compile(groupByRaw)
	if err != nil {
		return nil, err
	}

	n, ok := asNonNegativeInt(mustGet(spec, "buckets"))
	if !ok || n <= 0 {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$bucketAuto requires a positive integer 'buckets'")
	}

	outputRaw, hasOutput := spec.Get("output")

	outputs, err := compileBucketOutput(outputRaw, hasOutput)
	if err != nil {
		return nil, err
	}

	return &bucketAutoStage{groupBy: groupBy, buckets: int(n), outputs: outputs, now: now}, nil
}

func mustGet(doc *types.Document, name string) any {
	v, _ := doc.Get(name)
	return v
}

type valuedDoc struct {
	value any
	doc   *types.Document
}

func (s *bucketAutoStage) Process(_ context.Context, in DocIter) (DocIter, error) {
	docs, err := drain(in)
	if err != nil {
		return nil, err
	}

	items := make([]valuedDoc, 0, len(docs))

	for _, doc := range docs {
		v, err := s.groupBy.EvalInScope(expr.NewRootScope(doc, s.now))
		if err != nil {
			return nil, err
		}

		items = append(items, valuedDoc{value: v, doc: doc})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return types.Compare(items[i].value, items[j].value) == types.Less
	})

	if len(items) == 0 {
		return newSliceDocIter(nil), nil
	}

	numBuckets := s.buckets
	if numBuckets > len(items) {
		numBuckets = len(items)
	}

	perBucket := len(items) / numBuckets
	rem := len(items) % numBuckets

	results := make([]*types.Document, 0, numBuckets)
	idx := 0

	for b := 0; b < numBuckets; b++ {
		size := perBucket
		if b < rem {
			size++
		}

		if size == 0 {
			continue
		}

		chunk := items[idx : idx+size]
		idx += size

		minVal := chunk[0].value
		maxVal := chunk[len(chunk)-1].value

		accs := make([]accumulators.Accumulator, len(s.outputs))

		for i, out := range s.outputs {
			acc, err := accumulators.New(out.op)
			if err != nil {
				return nil, err
			}

			accs[i] = acc
		}

		for _, it := range chunk {
			scope := expr.NewRootScope(it.doc, s.now)

			for i, out := range s.outputs {
				argV, err := out.arg.EvalInScope(scope)
				if err != nil {
					return nil, err
				}

				if err := accs[i].Add(argV); err != nil {
					return nil, err
				}
			}
		}

		idDoc := types.MakeDocument(2)
		idDoc.Set("min", minVal)
		idDoc.Set("max", maxVal)

		out := types.MakeDocument(len(s.outputs) + 1)
		out.Set("_id", idDoc)

		for i, spec := range s.outputs {
			out.Set(spec.field, accs[i].Result())
		}

		results = append(results, out)
	}

	return newSliceDocIter(results), nil
}
