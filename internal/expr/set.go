package expr

import (
	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

func init() {
	simple("$setUnion", opSetUnion)
	simple("$setIntersection", opSetIntersection)
	binary("$setDifference", opSetDifference)
	simple("$setEquals", opSetEquals)
	binary("$setIsSubset", opSetIsSubset)
	unary("$allElementsTrue", opAllElementsTrue)
	unary("$anyElementTrue", opAnyElementTrue)
}

// setOf converts an array argument to a slice, deduplicated by
// StrictEqual (sets have no defined order; spec §4.4 fixes none).
func setOf(op string, v any) ([]any, error) {
	arr, ok := asArray(v)
	if !ok {
		return nil, dberrors.Errorf(op, "%s only supports arrays", op)
	}

	var out []any

	for _, v := range arr.Slice() {
		found := false

		for _, e := range out {
			if types.StrictEqual(e, v) {
				found = true
				break
			}
		}

		if !found {
			out = append(out, v)
		}
	}

	return out, nil
}

func setContains(s []any, v any) bool {
	for _, e := range s {
		if types.StrictEqual(e, v) {
			return true
		}
	}

	return false
}

func opSetUnion(args []any) (any, error) {
	var out []any

	for _, a := range args {
		s, err := setOf("$setUnion", a)
		if err != nil {
			return nil, err
		}

		for _, v := range s {
			if !setContains(out, v) {
				out = append(out, v)
			}
		}
	}

	return toArray(out), nil
}

func opSetIntersection(args []any) (any, error) {
	if len(args) == 0 {
		return toArray(nil), nil
	}

	acc, err := setOf("$setIntersection", args[0])
	if err != nil {
		return nil, err
	}

	for _, a := range args[1:] {
		s, err := setOf("$setIntersection", a)
		if err != nil {
			return nil, err
		}

		var next []any

		for _, v := range acc {
			if setContains(s, v) {
				next = append(next, v)
			}
		}

		acc = next
	}

	return toArray(acc), nil
}

func opSetDifference(a, b any) (any, error) {
	sa, err := setOf("$setDifference", a)
	if err != nil {
		return nil, err
	}

	sb, err := setOf("$setDifference", b)
	if err != nil {
		return nil, err
	}

	var out []any

	for _, v := range sa {
		if !setContains(sb, v) {
			out = append(out, v)
		}
	}

	return toArray(out), nil
}

func opSetEquals(args []any) (any, error) {
	if len(args) < 2 {
		return nil, dberrors.Errorf("$setEquals", "$setEquals requires at least 2 arguments")
	}

	first, err := setOf("$setEquals", args[0])
	if err != nil {
		return nil, err
	}

	for _, a := range args[1:] {
		s, err := setOf("$setEquals", a)
		if err != nil {
			return nil, err
		}

		if len(s) != len(first) {
			return false, nil
		}

		for _, v := range first {
			if !setContains(s, v) {
				return false, nil
			}
		}
	}

	return true, nil
}

func opSetIsSubset(a, b any) (any, error) {
	sa, err := setOf("$setIsSubset", a)
	if err != nil {
		return nil, err
	}

	sb, err := setOf("$setIsSubset", b)
	if err != nil {
		return nil, err
	}

	for _, v := range sa {
		if !setContains(sb, v) {
			return false, nil
		}
	}

	return true, nil
}

func opAllElementsTrue(v any) (any, error) {
	arr, ok := asArray(v)
	if !ok {
		return nil, dberrors.Errorf("$allElementsTrue", "$allElementsTrue requires an array")
	}

	for _, e := range arr.Slice() {
		if !types.Truthy(e) {
			return false, nil
		}
	}

	return true, nil
}

func opAnyElementTrue(v any) (any, error) {
	arr, ok := asArray(v)
	if !ok {
		return nil, dberrors.Errorf("$anyElementTrue", "$anyElementTrue requires an array")
	}

	for _, e := range arr.Slice() {
		if types.Truthy(e) {
			return true, nil
		}
	}

	return false, nil
}

func toArray(s []any) *types.Array {
	out := types.MakeArray(len(s))
	for _, v := range s {
		_ = out.Append(v)
	}

	return out
}
