package stages

import (
	"context"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

// countStage emits exactly one document {field: count}; equivalent to
// $group + $project (§4.6), implemented directly since it needs no
// accumulator machinery.
type countStage struct{ field string }

func compileCount(raw any) (Stage, error) {
	field, ok := raw.(string)
	if !ok || field == "" {
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$count requires a non-empty string field name")
	}

	return &countStage{field: field}, nil
}

func (s *countStage) Process(_ context.Context, in DocIter) (DocIter, error) {
	docs, err := drain(in)
	if err != nil {
		return nil, err
	}

	out, _ := types.NewDocument(s.field, int32(len(docs)))

	return newSliceDocIter([]*types.Document{out}), nil
}

// unwindStage emits one clone per element of the named array field, or
// (per options) once for a missing/null/empty-array field.
type unwindStage struct {
	path                       []string
	fieldName                  string
	preserveNullAndEmptyArrays bool
	includeArrayIndex          string
}

func compileUnwind(raw any) (Stage, error) {
	u := &unwindStage{}

	switch v := raw.(type) {
	case string:
		u.fieldName = trimFieldPrefix(v)
	case *types.Document:
		pathRaw, ok := v.Get("path")
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$unwind requires a 'path' field")
		}

		path, ok := pathRaw.(string)
		if !ok {
			return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$unwind path must be a string")
		}

		u.fieldName = trimFieldPrefix(path)

		if p, ok := v.Get("preserveNullAndEmptyArrays"); ok {
			u.preserveNullAndEmptyArrays = types.Truthy(p)
		}

		if idx, ok := v.Get("includeArrayIndex"); ok {
			s, ok := idx.(string)
			if !ok {
				return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "includeArrayIndex must be a string")
			}

			u.includeArrayIndex = s
		}
	default:
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "$unwind requires a string path or options document")
	}

	u.path = types.SplitPath(u.fieldName)

	return u, nil
}

func trimFieldPrefix(s string) string {
	if len(s) > 0 && s[0] == '$' {
		return s[1:]
	}

	return s
}

func (s *unwindStage) Process(_ context.Context, in DocIter) (DocIter, error) {
	return newMapIter(in, func(doc *types.Document) ([]*types.Document, error) {
		v := types.ResolvePath(doc, s.path)

		elems, isEmptyOrAbsent := s.elementsOf(v)

		if isEmptyOrAbsent {
			if !s.preserveNullAndEmptyArrays {
				return nil, nil
			}

			return []*types.Document{doc.DeepCopy()}, nil
		}

		out := make([]*types.Document, len(elems))

		for i, el := range elems {
			clone := doc.DeepCopy()
			types.SetByPath(clone, s.path, el)

			if s.includeArrayIndex != "" {
				clone.Set(s.includeArrayIndex, int64(i))
			}

			out[i] = clone
		}

		return out, nil
	}), nil
}

// elementsOf returns the elements to unwind over, and whether v counts
// as missing/null/empty (per §4.6, a non-array non-missing value is
// unwound as a single-element array).
func (s *unwindStage) elementsOf(v any) ([]any, bool) {
	switch x := v.(type) {
	case types.MissingType:
		return nil, true
	case types.NullType:
		return nil, true
	case *types.Array:
		if x.Len() == 0 {
			return nil, true
		}

		return x.Slice(), false
	default:
		return []any{v}, false
	}
}
