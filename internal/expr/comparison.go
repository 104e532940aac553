package expr

import "github.com/docbase/docbase/internal/types"

func init() {
	binary("$eq", func(a, b any) (any, error) { return types.StrictEqual(a, b), nil })
	binary("$ne", func(a, b any) (any, error) { return !types.StrictEqual(a, b), nil })
	binary("$gt", func(a, b any) (any, error) { return types.Compare(a, b) == types.Greater, nil })
	binary("$gte", func(a, b any) (any, error) { return types.Compare(a, b) != types.Less, nil })
	binary("$lt", func(a, b any) (any, error) { return types.Compare(a, b) == types.Less, nil })
	binary("$lte", func(a, b any) (any, error) { return types.Compare(a, b) != types.Greater, nil })
	binary("$cmp", func(a, b any) (any, error) {
		switch types.Compare(a, b) {
		case types.Less:
			return int32(-1), nil
		case types.Greater:
			return int32(1), nil
		default:
			return int32(0), nil
		}
	})
}
