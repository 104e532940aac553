package stages

import (
	"context"
	"sort"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/expr"
	"github.com/docbase/docbase/internal/stages/accumulators"
	"github.com/docbase/docbase/internal/types"
)

// bucketStage partitions input into explicit half-open boundary
// ranges [b_i, b_{i+1}), with a default bucket for out-of-range values.
type bucketStage struct {
	groupBy     *expr.Expression
	boundaries  []any
	hasDefault  bool
	defaultKey  any
	outputs     []groupOutput
	now         types.DateTime
}

func compileBucket(spec *types.Document, now types.DateTime) (Stage, error) {
	groupByRaw, ok := spec.Get("groupBy")
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$bucket requires 'groupBy'")
	}

	groupBy, err := expr.Compile(groupByRaw)
	if err != nil {
		return nil, err
	}

	boundsRaw, ok := spec.Get("boundaries")
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$bucket requires 'boundaries'")
	}

	boundsArr, ok := boundsRaw.(*types.Array)
	if !ok || boundsArr.Len() < 2 {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$bucket 'boundaries' must be an array of at least 2 values")
	}

	boundaries := boundsArr.Slice()

	for i := 1; i < len(boundaries); i++ {
		if types.Compare(boundaries[i-1], boundaries[i]) != types.Less {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$bucket 'boundaries' must be strictly increasing")
		}
	}

	b := &bucketStage{groupBy: groupBy, boundaries: boundaries, now: now}

	if def, ok := spec.Get("default"); ok {
		b.hasDefault = true
		b.defaultKey = def
	}

	outputRaw, hasOutput := spec.Get("output")

	outputs, err := compileBucketOutput(outputRaw, hasOutput)
	if err != nil {
		return nil, err
	}

	b.outputs = outputs

	return b, nil
}

func compileBucketOutput(outputRaw any, hasOutput bool) ([]groupOutput, error) {
	if !hasOutput {
		countExpr, _ := expr.Compile(int32(1))
		return []groupOutput{{field: "count", op: "$sum", arg: countExpr}}, nil
	}

	outputDoc, ok := outputRaw.(*types.Document)
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$bucket 'output' must be a document")
	}

	outputs := make([]groupOutput, 0, outputDoc.Len())

	for _, name := range outputDoc.Keys() {
		fieldSpec, _ := outputDoc.Get(name)

		doc, ok := fieldSpec.(*types.Document)
		if !ok || doc.Len() != 1 {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$bucket output field %q must name exactly one accumulator", name)
		}

		op := doc.Keys()[0]
		argRaw, _ := doc.Get(op)

		argExpr, err := expr.Compile(argRaw)
		if err != nil {
			return nil, err
		}

		outputs = append(outputs, groupOutput{field: name, op: op, arg: argExpr})
	}

	return outputs, nil
}

func (s *bucketStage) Process(_ context.Context, in DocIter) (DocIter, error) {
	docs, err := drain(in)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*groupBucket)
	order := make([]any, 0)

	for _, doc := range docs {
		scope := expr.NewRootScope(doc, s.now)

		v, err := s.groupBy.EvalInScope(scope)
		if err != nil {
			return nil, err
		}

		boundaryKey, err := s.boundaryFor(v)
		if err != nil {
			return nil, err
		}

		key := groupKeyString(boundaryKey)

		b, ok := buckets[key]
		if !ok {
			b = &groupBucket{idValue: boundaryKey, accs: make([]accumulators.Accumulator, len(s.outputs))}

			for i, out := range s.outputs {
				acc, err := accumulators.New(out.op)
				if err != nil {
					return nil, err
				}

				b.accs[i] = acc
			}

			buckets[key] = b
			order = append(order, boundaryKey)
		}

		for i, out := range s.outputs {
			argV, err := out.arg.EvalInScope(scope)
			if err != nil {
				return nil, err
			}

			if err := b.accs[i].Add(argV); err != nil {
				return nil, err
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return types.Compare(order[i], order[j]) == types.Less
	})

	results := make([]*types.Document, 0, len(order))

	for _, k := range order {
		b := buckets[groupKeyString(k)]

		out := types.MakeDocument(len(s.outputs) + 1)
		out.Set("_id", b.idValue)

		for i, spec := range s.outputs {
			out.Set(spec.field, b.accs[i].Result())
		}

		results = append(results, out)
	}

	return newSliceDocIter(results), nil
}

// boundaryFor returns the lower bound of the half-open interval
// containing v, or the default key if v falls outside every boundary.
func (s *bucketStage) boundaryFor(v any) (any, error) {
	for i := 0; i < len(s.boundaries)-1; i++ {
		lo, hi := s.boundaries[i], s.boundaries[i+1]

		if types.Compare(v, lo) != types.Less && types.Compare(v, hi) == types.Less {
			return lo, nil
		}
	}

	if s.hasDefault {
		return s.defaultKey, nil
	}

	return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$bucket: value does not fall within any boundary and no default was specified")
}
