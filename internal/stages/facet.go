package stages

import (
	"context"
	"math/rand"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

// facetStage runs multiple named sub-pipelines over the same buffered
// input, emitting one document whose fields are each sub-pipeline's
// output array (§4.6). Sub-pipelines may not contain $out/$merge/$facet.
type facetStage struct {
	names     []string
	pipelines []*Pipeline
}

func compileFacet(spec *types.Document, pc *Context) (Stage, error) {
	names := make([]string, 0, spec.Len())
	pipelines := make([]*Pipeline, 0, spec.Len())

	for _, name := range spec.Keys() {
		raw, _ := spec.Get(name)

		arr, ok := raw.(*types.Array)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$facet sub-pipeline %q must be an array", name)
		}

		if err := forbidNestedFacetStages(arr); err != nil {
			return nil, err
		}

		p, err := Compile(arr, pc)
		if err != nil {
			return nil, err
		}

		names = append(names, name)
		pipelines = append(pipelines, p)
	}

	return &facetStage{names: names, pipelines: pipelines}, nil
}

func forbidNestedFacetStages(arr *types.Array) error {
	for i := 0; i < arr.Len(); i++ {
		v, _ := arr.Get(i)

		doc, ok := v.(*types.Document)
		if !ok || doc.Len() != 1 {
			continue
		}

		switch doc.Keys()[0] {
		case "$out", "$merge", "$facet":
			return dberrors.NewCommandError(dberrors.CodeBadValue, "$facet sub-pipelines may not contain %s", doc.Keys()[0])
		}
	}

	return nil
}

func (s *facetStage) Process(ctx context.Context, in DocIter) (DocIter, error) {
	docs, err := drain(in)
	if err != nil {
		return nil, err
	}

	out := types.MakeDocument(len(s.names))

	for i, name := range s.names {
		results, err := drain2(ctx, s.pipelines[i], docs)
		if err != nil {
			return nil, err
		}

		arr := types.MakeArray(len(results))

		for _, d := range results {
			_ = arr.Append(d)
		}

		out.Set(name, arr)
	}

	return newSliceDocIter([]*types.Document{out}), nil
}

// drain2 runs pipeline over a fresh copy of docs and collects its output.
func drain2(ctx context.Context, p *Pipeline, docs []*types.Document) ([]*types.Document, error) {
	copies := make([]*types.Document, len(docs))
	for i, d := range docs {
		copies[i] = d.DeepCopy()
	}

	out, err := p.Run(ctx, newSliceDocIter(copies))
	if err != nil {
		return nil, err
	}

	return drain(out)
}

// sampleStage returns a random-without-replacement subset of the
// input; size > available returns all, size = 0 returns empty (§4.6,
// an implementer's-choice resolved toward the more forgiving reading).
type sampleStage struct {
	size int64
}

func compileSample(spec *types.Document) (Stage, error) {
	n, ok := asNonNegativeInt(mustGet(spec, "size"))
	if !ok {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$sample requires a non-negative integer 'size'")
	}

	return &sampleStage{size: n}, nil
}

func (s *sampleStage) Process(_ context.Context, in DocIter) (DocIter, error) {
	docs, err := drain(in)
	if err != nil {
		return nil, err
	}

	if s.size >= int64(len(docs)) {
		return newSliceDocIter(docs), nil
	}

	shuffled := append([]*types.Document(nil), docs...)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	return newSliceDocIter(shuffled[:s.size]), nil
}
