package expr

import (
	"math"

	"github.com/docbase/docbase/internal/types"
)

// trig registers a family of operators sharing the out-of-domain-returns-NaN
// contract (never an error) described in §4.3's Trigonometric row.
func trig(name string, fn func(float64) float64) {
	unary(name, func(v any) (any, error) { return unaryMath(name, v, fn) })
}

func init() {
	trig("$sin", math.Sin)
	trig("$cos", math.Cos)
	trig("$tan", math.Tan)
	trig("$asin", math.Asin)
	trig("$acos", math.Acos)
	trig("$atan", math.Atan)
	trig("$sinh", math.Sinh)
	trig("$cosh", math.Cosh)
	trig("$tanh", math.Tanh)
	trig("$asinh", math.Asinh)
	trig("$acosh", math.Acosh)
	trig("$atanh", math.Atanh)
	trig("$degreesToRadians", func(d float64) float64 { return d * math.Pi / 180 })
	trig("$radiansToDegrees", func(r float64) float64 { return r * 180 / math.Pi })
	binary("$atan2", func(a, b any) (any, error) {
		if isNullish(a) || isNullish(b) {
			return types.Null, nil
		}

		fa, ok1 := asFloat(a)
		fb, ok2 := asFloat(b)

		if !ok1 || !ok2 {
			return nil, numericTypeError("$atan2")
		}

		return math.Atan2(fa, fb), nil
	})
}
