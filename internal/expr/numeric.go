package expr

import (
	"math"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

// isNullish reports whether v is Null (Missing is coerced to Null before
// operators see it, so this alone is enough at the operator boundary).
func isNullish(v any) bool {
	_, ok := v.(types.NullType)
	return ok
}

// anyNullish reports whether any of args is Null.
func anyNullish(args ...any) bool {
	for _, a := range args {
		if isNullish(a) {
			return true
		}
	}

	return false
}

// asFloat converts a numeric Value to float64, reporting false for non-numbers.
func asFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// asInt converts a numeric Value to int64, truncating toward zero for doubles.
func asInt(v any) (int64, bool) {
	switch v := v.(type) {
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// numericTypeError builds the "$op only supports numeric types" error the
// external contract names for every arithmetic/trig operator.
func numericTypeError(op string) error {
	return dberrors.Errorf(op, "%s only supports numeric types", op)
}

// requireNumbers converts every arg to float64 or fails with the
// standard numeric-type error, also returning whether any arg was a
// float64 (as opposed to int32/int64) so the caller can decide whether
// to keep an integer result or promote to double.
func requireNumbers(op string, args ...any) (floats []float64, anyDouble bool, err error) {
	floats = make([]float64, len(args))

	for i, a := range args {
		f, ok := asFloat(a)
		if !ok {
			return nil, false, numericTypeError(op)
		}

		floats[i] = f

		if _, isF := a.(float64); isF {
			anyDouble = true
		}
	}

	return floats, anyDouble, nil
}

// narrow returns f as int32 if it fits, else int64, else leaves it a
// float64 -- used when every input was an integer subtype and keeping
// an integer result is both possible and expected (sums, products).
// A magnitude above 2^62 stays a double rather than risking int64
// wrap-around; an integral value within that bound but outside int32
// narrows to int64 (the "long" subtype).
func narrow(f float64, anyDouble bool) any {
	if anyDouble || math.IsInf(f, 0) || math.IsNaN(f) {
		return f
	}

	if f != math.Trunc(f) || math.Abs(f) > 1<<62 {
		return f
	}

	i := int64(f)
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return int32(i)
	}

	return i
}

// foldNumeric reduces args pairwise through fold, narrowing the result
// back to an integer subtype when every input was an integer and the
// accumulated value stays representable; used by $multiply.
func foldNumeric(op string, args []any, identity float64, fold func(acc, v float64) float64) (any, error) {
	floats, anyDouble, err := requireNumbers(op, args...)
	if err != nil {
		return nil, err
	}

	acc := identity
	for _, f := range floats {
		acc = fold(acc, f)
	}

	return narrow(acc, anyDouble), nil
}
