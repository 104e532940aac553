package stages

import (
	"context"
	"sort"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

// sortKey is one compound-key component: a field path and direction
// (1 ascending, -1 descending).
type sortKey struct {
	path []string
	desc bool
}

// sortStage is blocking: it must see every input document before it can
// emit the first (possibly smallest-key) output document. The sort is
// stable, so ties preserve arrival order (§4.6, §8).
type sortStage struct {
	keys []sortKey
}

func compileSortSpec(spec *types.Document) ([]sortKey, error) {
	keys := make([]sortKey, 0, spec.Len())

	for _, name := range spec.Keys() {
		v, _ := spec.Get(name)

		desc, err := sortDirection(name, v)
		if err != nil {
			return nil, err
		}

		keys = append(keys, sortKey{path: types.SplitPath(name), desc: desc})
	}

	return keys, nil
}

func sortDirection(name string, v any) (bool, error) {
	switch n := v.(type) {
	case int32:
		return n < 0, nil
	case int64:
		return n < 0, nil
	case float64:
		return n < 0, nil
	default:
		return false, dberrors.NewCommandError(dberrors.CodeBadValue, "$sort key %q must be 1 or -1", name)
	}
}

func compileSort(spec *types.Document) (Stage, error) {
	keys, err := compileSortSpec(spec)
	if err != nil {
		return nil, err
	}

	return &sortStage{keys: keys}, nil
}

func (s *sortStage) Process(_ context.Context, in DocIter) (DocIter, error) {
	docs, err := drain(in)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return s.less(docs[i], docs[j])
	})

	return newSliceDocIter(docs), nil
}

// less compares by each key in turn; a field missing from a document
// ranks as Null, per §4.6.
func (s *sortStage) less(a, b *types.Document) bool {
	for _, k := range s.keys {
		va := types.ResolvePath(a, k.path)
		vb := types.ResolvePath(b, k.path)

		if _, ok := va.(types.MissingType); ok {
			va = types.Null
		}

		if _, ok := vb.(types.MissingType); ok {
			vb = types.Null
		}

		c := types.Compare(va, vb)
		if c == types.Equal {
			continue
		}

		if k.desc {
			return c == types.Greater
		}

		return c == types.Less
	}

	return false
}
