package expr

import (
	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

func init() {
	rangeArity("$arrayElemAt", 2, 2, opArrayElemAt)
	rangeArity("$slice", 2, 3, opSlice)
	simple("$concatArrays", opConcatArrays)
	unary("$size", opSize)
	unary("$isArray", opIsArray)
	unary("$first", opFirst)
	unary("$last", opLast)
	unary("$reverseArray", opReverseArray)
	unary("$arrayToObject", opArrayToObject)
	unary("$objectToArray", opObjectToArray)
	rangeArity("$indexOfArray", 2, 4, opIndexOfArray)
	rangeArity("$range", 2, 3, opRange)
	binary("$in", opIn)
	binary("$firstN", opFirstN)
	binary("$lastN", opLastN)
	binary("$minN", opMinN)
	binary("$maxN", opMaxN)
	simple("$zip", opZip)

	register("$filter", buildFilter)
	register("$map", buildMap)
	register("$reduce", buildReduce)
	register("$sortArray", buildSortArray)
	register("$let", buildLet)
}

func asArray(v any) (*types.Array, bool) {
	arr, ok := v.(*types.Array)
	return arr, ok
}

func opArrayElemAt(args []any) (any, error) {
	if anyNullish(args...) {
		return types.Null, nil
	}

	arr, ok := asArray(args[0])
	if !ok {
		return nil, dberrors.Errorf("$arrayElemAt", "$arrayElemAt requires an array as the first argument")
	}

	idx, ok := asInt(args[1])
	if !ok {
		return nil, dberrors.Errorf("$arrayElemAt", "$arrayElemAt requires a numeric index")
	}

	n := int64(arr.Len())
	if idx < 0 {
		idx += n
	}

	if idx < 0 || idx >= n {
		return types.Missing, nil
	}

	v, _ := arr.Get(int(idx))

	return v, nil
}

func opSlice(args []any) (any, error) {
	if isNullish(args[0]) {
		return types.Null, nil
	}

	arr, ok := asArray(args[0])
	if !ok {
		return nil, dberrors.Errorf("$slice", "$slice requires an array as the first argument")
	}

	n := arr.Len()

	if len(args) == 2 {
		count, ok := asInt(args[1])
		if !ok {
			return nil, dberrors.Errorf("$slice", "$slice requires a numeric count")
		}

		if count >= 0 {
			end := int(count)
			if end > n {
				end = n
			}

			return arr.Subslice(0, end), nil
		}

		start := n + int(count)
		if start < 0 {
			start = 0
		}

		return arr.Subslice(start, n), nil
	}

	position, ok := asInt(args[1])
	if !ok {
		return nil, dberrors.Errorf("$slice", "$slice requires a numeric position")
	}

	count, ok := asInt(args[2])
	if !ok {
		return nil, dberrors.Errorf("$slice", "$slice requires a numeric count")
	}

	start := int(position)
	if start < 0 {
		start += n
		if start < 0 {
			start = 0
		}
	}

	if start > n {
		start = n
	}

	end := start + int(count)
	if count < 0 {
		end = start
		start += int(count)

		if start < 0 {
			start = 0
		}
	}

	if end > n {
		end = n
	}

	if start > end {
		start = end
	}

	return arr.Subslice(start, end), nil
}

func opConcatArrays(args []any) (any, error) {
	if anyNullish(args...) {
		return types.Null, nil
	}

	out := types.MakeArray(0)

	for _, a := range args {
		arr, ok := asArray(a)
		if !ok {
			return nil, dberrors.Errorf("$concatArrays", "$concatArrays only supports arrays")
		}

		for _, v := range arr.Slice() {
			_ = out.Append(v)
		}
	}

	return out, nil
}

func opSize(v any) (any, error) {
	arr, ok := asArray(v)
	if !ok {
		return nil, dberrors.Errorf("$size", "$size requires an array")
	}

	return int32(arr.Len()), nil
}

func opIsArray(v any) (any, error) {
	_, ok := asArray(v)
	return ok, nil
}

func opFirst(v any) (any, error) {
	if isNullish(v) {
		return types.Null, nil
	}

	arr, ok := asArray(v)
	if !ok {
		return nil, dberrors.Errorf("$first", "$first requires an array")
	}

	if arr.Len() == 0 {
		return types.Missing, nil
	}

	e, _ := arr.Get(0)

	return e, nil
}

func opLast(v any) (any, error) {
	if isNullish(v) {
		return types.Null, nil
	}

	arr, ok := asArray(v)
	if !ok {
		return nil, dberrors.Errorf("$last", "$last requires an array")
	}

	if arr.Len() == 0 {
		return types.Missing, nil
	}

	e, _ := arr.Get(arr.Len() - 1)

	return e, nil
}

func opReverseArray(v any) (any, error) {
	if isNullish(v) {
		return types.Null, nil
	}

	arr, ok := asArray(v)
	if !ok {
		return nil, dberrors.Errorf("$reverseArray", "$reverseArray requires an array")
	}

	src := arr.Slice()
	out := types.MakeArray(len(src))

	for i := len(src) - 1; i >= 0; i-- {
		_ = out.Append(src[i])
	}

	return out, nil
}

// opArrayToObject is the left inverse of $objectToArray: an array of
// {k, v} pairs (or 2-element [k, v] arrays) becomes a document.
func opArrayToObject(v any) (any, error) {
	arr, ok := asArray(v)
	if !ok {
		return nil, dberrors.Errorf("$arrayToObject", "$arrayToObject requires an array")
	}

	doc := types.MakeDocument(arr.Len())

	for _, el := range arr.Slice() {
		var key string

		var val any

		switch e := el.(type) {
		case *types.Document:
			k, ok := e.Get("k")
			if !ok {
				return nil, dberrors.Errorf("$arrayToObject", "$arrayToObject requires 'k' and 'v' fields")
			}

			ks, ok := k.(string)
			if !ok {
				return nil, dberrors.Errorf("$arrayToObject", "$arrayToObject 'k' must be a string")
			}

			key = ks
			val, _ = e.Get("v")
		case *types.Array:
			if e.Len() != 2 {
				return nil, dberrors.Errorf("$arrayToObject", "$arrayToObject array elements must have exactly 2 elements")
			}

			k, _ := e.Get(0)

			ks, ok := k.(string)
			if !ok {
				return nil, dberrors.Errorf("$arrayToObject", "$arrayToObject key must be a string")
			}

			key = ks
			val, _ = e.Get(1)
		default:
			return nil, dberrors.Errorf("$arrayToObject", "$arrayToObject requires an array of {k,v} documents or [k,v] pairs")
		}

		doc.Set(key, val)
	}

	return doc, nil
}

func opObjectToArray(v any) (any, error) {
	doc, ok := v.(*types.Document)
	if !ok {
		return nil, dberrors.Errorf("$objectToArray", "$objectToArray requires a document")
	}

	out := types.MakeArray(doc.Len())

	for _, k := range doc.Keys() {
		val, _ := doc.Get(k)

		pair := types.MakeDocument(2)
		pair.Set("k", k)
		pair.Set("v", val)

		_ = out.Append(pair)
	}

	return out, nil
}

func opIndexOfArray(args []any) (any, error) {
	start := 0
	end := -1

	if len(args) > 2 {
		n, ok := asInt(args[2])
		if !ok {
			return nil, dberrors.Errorf("$indexOfArray", "$indexOfArray requires a numeric start index")
		}

		start = int(n)
	}

	if len(args) > 3 {
		n, ok := asInt(args[3])
		if !ok {
			return nil, dberrors.Errorf("$indexOfArray", "$indexOfArray requires a numeric end index")
		}

		end = int(n)
	}

	return findInArray(args[0], args[1], start, end)
}

func findInArray(a, target any, start, end int) (any, error) {
	if isNullish(a) {
		return types.Null, nil
	}

	arr, ok := asArray(a)
	if !ok {
		return nil, dberrors.Errorf("$indexOfArray", "$indexOfArray requires an array")
	}

	if end < 0 || end > arr.Len() {
		end = arr.Len()
	}

	if start < 0 {
		start = 0
	}

	for i := start; i < end; i++ {
		v, _ := arr.Get(i)
		if types.StrictEqual(v, target) {
			return int32(i), nil
		}
	}

	return int32(-1), nil
}

func opRange(args []any) (any, error) {
	start, ok := asInt(args[0])
	if !ok {
		return nil, dberrors.Errorf("$range", "$range requires a numeric start")
	}

	end, ok := asInt(args[1])
	if !ok {
		return nil, dberrors.Errorf("$range", "$range requires a numeric end")
	}

	step := int64(1)

	if len(args) == 3 {
		s, ok := asInt(args[2])
		if !ok {
			return nil, dberrors.Errorf("$range", "$range requires a numeric step")
		}

		step = s
	}

	if step == 0 {
		return nil, dberrors.Errorf("$range", "$range requires a non-zero step")
	}

	out := types.MakeArray(0)

	if step > 0 {
		for i := start; i < end; i += step {
			_ = out.Append(int32(i))
		}
	} else {
		for i := start; i > end; i += step {
			_ = out.Append(int32(i))
		}
	}

	return out, nil
}

func opIn(needle, haystack any) (any, error) {
	arr, ok := asArray(haystack)
	if !ok {
		return nil, dberrors.Errorf("$in", "$in requires an array as the second argument")
	}

	for _, v := range arr.Slice() {
		if types.StrictEqual(v, needle) {
			return true, nil
		}
	}

	return false, nil
}

func topN(v, n any, op string, less func(a, b any) bool) (any, error) {
	arr, ok := asArray(v)
	if !ok {
		return nil, dberrors.Errorf(op, "%s requires an array", op)
	}

	count, ok := asInt(n)
	if !ok || count < 0 {
		return nil, dberrors.Errorf(op, "%s requires a non-negative numeric count", op)
	}

	src := append([]any(nil), arr.Slice()...)

	if less != nil {
		sortValues(src, less)
	}

	if int64(len(src)) > count {
		src = src[:count]
	}

	out := types.MakeArray(len(src))
	for _, v := range src {
		_ = out.Append(v)
	}

	return out, nil
}

func opFirstN(v, n any) (any, error) { return topN(v, n, "$firstN", nil) }

func opLastN(v, n any) (any, error) {
	arr, ok := asArray(v)
	if !ok {
		return nil, dberrors.Errorf("$lastN", "$lastN requires an array")
	}

	count, ok := asInt(n)
	if !ok || count < 0 {
		return nil, dberrors.Errorf("$lastN", "$lastN requires a non-negative numeric count")
	}

	src := arr.Slice()
	if int64(len(src)) > count {
		src = src[len(src)-int(count):]
	}

	out := types.MakeArray(len(src))
	for _, v := range src {
		_ = out.Append(v)
	}

	return out, nil
}

func opMinN(v, n any) (any, error) {
	return topN(v, n, "$minN", func(a, b any) bool { return types.Compare(a, b) == types.Less })
}

func opMaxN(v, n any) (any, error) {
	return topN(v, n, "$maxN", func(a, b any) bool { return types.Compare(a, b) == types.Greater })
}

// sortValues is a simple insertion sort (arrays here are small
// accumulator inputs, not bulk collection data) ordered so that less(a,
// b) true means a sorts before b.
func sortValues(s []any, less func(a, b any) bool) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && less(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func opZip(args []any) (any, error) {
	if len(args) == 0 {
		return nil, dberrors.Errorf("$zip", "$zip requires a document with an 'inputs' array")
	}

	doc, ok := args[0].(*types.Document)
	if !ok {
		return nil, dberrors.Errorf("$zip", "$zip requires a document argument")
	}

	inputsRaw, ok := doc.Get("inputs")
	if !ok {
		return nil, dberrors.Errorf("$zip", "$zip requires an 'inputs' array")
	}

	inputsArr, ok := asArray(inputsRaw)
	if !ok {
		return nil, dberrors.Errorf("$zip", "$zip 'inputs' must be an array of arrays")
	}

	useLongest := false
	if ul, ok := doc.Get("useLongestLength"); ok {
		useLongest, _ = ul.(bool)
	}

	inputs := make([][]any, inputsArr.Len())

	maxLen, minLen := 0, -1

	for i := 0; i < inputsArr.Len(); i++ {
		v, _ := inputsArr.Get(i)

		a, ok := asArray(v)
		if !ok {
			return nil, dberrors.Errorf("$zip", "$zip 'inputs' must be an array of arrays")
		}

		inputs[i] = a.Slice()

		if len(inputs[i]) > maxLen {
			maxLen = len(inputs[i])
		}

		if minLen < 0 || len(inputs[i]) < minLen {
			minLen = len(inputs[i])
		}
	}

	length := minLen
	if useLongest {
		length = maxLen
	}

	if length < 0 {
		length = 0
	}

	out := types.MakeArray(length)

	for i := 0; i < length; i++ {
		row := types.MakeArray(len(inputs))

		for _, in := range inputs {
			if i < len(in) {
				_ = row.Append(in[i])
			} else {
				_ = row.Append(types.Null)
			}
		}

		_ = out.Append(row)
	}

	return out, nil
}
