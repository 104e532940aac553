package expr

import (
	"math"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

func init() {
	simple("$add", opAdd)
	fixed("$subtract", 2, opSubtract)
	simple("$multiply", opMultiply)
	binary("$divide", opDivide)
	binary("$mod", opMod)
	unary("$abs", opAbs)
	unary("$ceil", func(v any) (any, error) { return unaryMath("$ceil", v, math.Ceil) })
	unary("$floor", func(v any) (any, error) { return unaryMath("$floor", v, math.Floor) })
	rangeArity("$round", 1, 2, opRound)
	rangeArity("$trunc", 1, 2, opTrunc)
	binary("$pow", opPow)
	unary("$sqrt", func(v any) (any, error) { return unaryMath("$sqrt", v, math.Sqrt) })
	unary("$exp", func(v any) (any, error) { return unaryMath("$exp", v, math.Exp) })
	unary("$ln", func(v any) (any, error) { return unaryMath("$ln", v, math.Log) })
	unary("$log10", func(v any) (any, error) { return unaryMath("$log10", v, math.Log10) })
	binary("$log", opLog)
}

func opAdd(args []any) (any, error) {
	var (
		dateBase  types.DateTime
		haveDate  bool
		anyDouble bool
		sum       float64
		nums      []any
	)

	for _, a := range args {
		if isNullish(a) {
			return types.Null, nil
		}

		if dt, ok := a.(types.DateTime); ok {
			if haveDate {
				return nil, dberrors.Errorf("$add", "$add only supports one date per operation")
			}

			dateBase = dt
			haveDate = true

			continue
		}

		nums = append(nums, a)
	}

	floats, anyD, err := requireNumbers("$add", nums...)
	if err != nil {
		return nil, err
	}

	anyDouble = anyD

	for _, f := range floats {
		sum += f
	}

	if haveDate {
		return dateBase.AddMillis(int64(sum)), nil
	}

	return narrow(sum, anyDouble), nil
}

func opSubtract(args []any) (any, error) {
	a, b := args[0], args[1]

	if isNullish(a) || isNullish(b) {
		return types.Null, nil
	}

	da, aIsDate := a.(types.DateTime)
	db, bIsDate := b.(types.DateTime)

	switch {
	case aIsDate && bIsDate:
		return int64(da) - int64(db), nil
	case aIsDate && !bIsDate:
		f, ok := asFloat(b)
		if !ok {
			return nil, numericTypeError("$subtract")
		}

		return da.AddMillis(int64(-f)), nil
	default:
		floats, anyDouble, err := requireNumbers("$subtract", a, b)
		if err != nil {
			return nil, err
		}

		return narrow(floats[0]-floats[1], anyDouble), nil
	}
}

func opMultiply(args []any) (any, error) {
	if anyNullish(args...) {
		return types.Null, nil
	}

	return foldNumeric("$multiply", args, 1, func(acc, v float64) float64 { return acc * v })
}

func opDivide(a, b any) (any, error) {
	if isNullish(a) || isNullish(b) {
		return types.Null, nil
	}

	floats, _, err := requireNumbers("$divide", a, b)
	if err != nil {
		return nil, err
	}

	if floats[1] == 0 {
		return nil, dberrors.Errorf("$divide", "$divide by zero")
	}

	return floats[0] / floats[1], nil
}

func opMod(a, b any) (any, error) {
	if isNullish(a) || isNullish(b) {
		return types.Null, nil
	}

	floats, anyDouble, err := requireNumbers("$mod", a, b)
	if err != nil {
		return nil, err
	}

	if floats[1] == 0 {
		return nil, dberrors.Errorf("$mod", "$mod by zero")
	}

	return narrow(math.Mod(floats[0], floats[1]), anyDouble), nil
}

func opAbs(v any) (any, error) {
	if isNullish(v) {
		return types.Null, nil
	}

	switch n := v.(type) {
	case int32:
		if n == math.MinInt32 {
			return int64(-int64(n)), nil
		}

		return int32(absInt(int64(n))), nil
	case int64:
		return absInt(n), nil
	case float64:
		return math.Abs(n), nil
	default:
		return nil, numericTypeError("$abs")
	}
}

func absInt(n int64) int64 {
	if n < 0 {
		return -n
	}

	return n
}

func unaryMath(op string, v any, fn func(float64) float64) (any, error) {
	if isNullish(v) {
		return types.Null, nil
	}

	f, ok := asFloat(v)
	if !ok {
		return nil, numericTypeError(op)
	}

	return fn(f), nil
}

func opRound(args []any) (any, error) {
	return roundOrTrunc("$round", args, math.RoundToEven)
}

func opTrunc(args []any) (any, error) {
	return roundOrTrunc("$trunc", args, math.Trunc)
}

func roundOrTrunc(op string, args []any, fn func(float64) float64) (any, error) {
	v := args[0]
	if isNullish(v) {
		return types.Null, nil
	}

	places := int32(0)

	if len(args) == 2 {
		if isNullish(args[1]) {
			return types.Null, nil
		}

		p, ok := asInt(args[1])
		if !ok {
			return nil, dberrors.Errorf(op, "%s requires an integer argument for places", op)
		}

		places = int32(p)
	}

	switch n := v.(type) {
	case int32, int64:
		if places >= 0 {
			return n, nil
		}
	case float64:
		// fall through to float rounding below
	default:
		return nil, numericTypeError(op)
	}

	f, _ := asFloat(v)
	shift := math.Pow(10, float64(places))
	result := fn(f*shift) / shift

	if _, isFloat := v.(float64); !isFloat {
		return narrow(result, false), nil
	}

	return result, nil
}

func opPow(a, b any) (any, error) {
	if isNullish(a) || isNullish(b) {
		return types.Null, nil
	}

	floats, anyDouble, err := requireNumbers("$pow", a, b)
	if err != nil {
		return nil, err
	}

	return narrow(math.Pow(floats[0], floats[1]), anyDouble), nil
}

func opLog(a, b any) (any, error) {
	if isNullish(a) || isNullish(b) {
		return types.Null, nil
	}

	floats, _, err := requireNumbers("$log", a, b)
	if err != nil {
		return nil, err
	}

	return math.Log(floats[0]) / math.Log(floats[1]), nil
}

