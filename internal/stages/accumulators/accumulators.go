// Package accumulators implements the fold functions used by $group
// and $setWindowFields output (§4.6): $sum, $avg, $min, $max, $first,
// $last, $push, $addToSet, $mergeObjects, $stdDevPop, $stdDevSamp, and
// $count. Each accumulator is initialized once per group and folded in
// arrival order.
package accumulators

import (
	"math"

	"github.com/docbase/docbase/internal/dberrors"
	"github.com/docbase/docbase/internal/types"
)

// Accumulator folds a stream of values (one per document in arrival
// order) into a single result.
type Accumulator interface {
	Add(v any) error
	Result() any
}

// New constructs a fresh accumulator for the named operator.
func New(op string) (Accumulator, error) {
	switch op {
	case "$sum":
		return &sumAcc{}, nil
	case "$avg":
		return &avgAcc{}, nil
	case "$min":
		return &minMaxAcc{keep: func(c types.CompareResult) bool { return c == types.Less }}, nil
	case "$max":
		return &minMaxAcc{keep: func(c types.CompareResult) bool { return c == types.Greater }}, nil
	case "$first":
		return &firstAcc{}, nil
	case "$last":
		return &lastAcc{}, nil
	case "$push":
		return &pushAcc{}, nil
	case "$addToSet":
		return &addToSetAcc{}, nil
	case "$mergeObjects":
		return &mergeObjectsAcc{}, nil
	case "$stdDevPop":
		return &stdDevAcc{sample: false}, nil
	case "$stdDevSamp":
		return &stdDevAcc{sample: true}, nil
	case "$count":
		return &countAcc{}, nil
	default:
		return nil, dberrors.NewCommandError(dberrors.CodeBadValue, "unknown accumulator %q", op)
	}
}

// sumAcc implements $sum: Null/Missing/non-numeric inputs contribute
// zero (§4.6 "$sum:1 counts documents" generalizes to "non-numeric
// contributes nothing").
type sumAcc struct {
	asInt    bool
	intSum   int64
	floatSum float64
	anyFloat bool
	seen     bool
}

func (a *sumAcc) Add(v any) error {
	n, isFloat, ok := numeric(v)
	if !ok {
		return nil
	}

	a.seen = true

	if isFloat {
		a.anyFloat = true
		a.floatSum += n
	} else {
		a.intSum += int64(n)
		a.floatSum += n
	}

	return nil
}

func (a *sumAcc) Result() any {
	if !a.seen {
		return int32(0)
	}

	if a.anyFloat {
		return a.floatSum
	}

	return normalizeInt(a.intSum)
}

// countAcc implements $count: {c:{$count:{}}} counts documents
// unconditionally, regardless of its (always empty-document) argument --
// unlike $sum, a non-numeric Add input still contributes one.
type countAcc struct {
	n int64
}

func (a *countAcc) Add(any) error {
	a.n++
	return nil
}

func (a *countAcc) Result() any {
	return normalizeInt(a.n)
}

// avgAcc implements $avg: Null when no numeric inputs were seen (§4.6).
type avgAcc struct {
	sum   float64
	count int64
}

func (a *avgAcc) Add(v any) error {
	n, _, ok := numeric(v)
	if !ok {
		return nil
	}

	a.sum += n
	a.count++

	return nil
}

func (a *avgAcc) Result() any {
	if a.count == 0 {
		return types.Null
	}

	return a.sum / float64(a.count)
}

// minMaxAcc implements $min/$max via the Value Model's total order;
// Null/Missing inputs are ignored unless no value is ever seen, in
// which case the result is Null.
type minMaxAcc struct {
	keep   func(types.CompareResult) bool
	value  any
	seen   bool
}

func (a *minMaxAcc) Add(v any) error {
	if _, missing := v.(types.MissingType); missing {
		return nil
	}

	if _, null := v.(types.NullType); null {
		return nil
	}

	if !a.seen {
		a.value = v
		a.seen = true

		return nil
	}

	if a.keep(types.Compare(v, a.value)) {
		a.value = v
	}

	return nil
}

func (a *minMaxAcc) Result() any {
	if !a.seen {
		return types.Null
	}

	return a.value
}

type firstAcc struct {
	value any
	seen  bool
}

func (a *firstAcc) Add(v any) error {
	if !a.seen {
		a.value = coerceMissing(v)
		a.seen = true
	}

	return nil
}

func (a *firstAcc) Result() any {
	if !a.seen {
		return types.Null
	}

	return a.value
}

type lastAcc struct {
	value any
	seen  bool
}

func (a *lastAcc) Add(v any) error {
	a.value = coerceMissing(v)
	a.seen = true

	return nil
}

func (a *lastAcc) Result() any {
	if !a.seen {
		return types.Null
	}

	return a.value
}

type pushAcc struct {
	values []any
}

func (a *pushAcc) Add(v any) error {
	a.values = append(a.values, coerceMissing(v))
	return nil
}

func (a *pushAcc) Result() any {
	arr, _ := types.NewArray(a.values...)
	return arr
}

// addToSetAcc implements $addToSet: deduplicated, with no defined
// element order (§4.4's set semantics apply here too).
type addToSetAcc struct {
	values []any
}

func (a *addToSetAcc) Add(v any) error {
	v = coerceMissing(v)

	for _, existing := range a.values {
		if types.StrictEqual(existing, v) {
			return nil
		}
	}

	a.values = append(a.values, v)

	return nil
}

func (a *addToSetAcc) Result() any {
	arr, _ := types.NewArray(a.values...)
	return arr
}

// mergeObjectsAcc folds documents left-to-right, later fields
// overwriting earlier ones of the same name; non-document inputs are
// skipped.
type mergeObjectsAcc struct {
	out *types.Document
}

func (a *mergeObjectsAcc) Add(v any) error {
	doc, ok := v.(*types.Document)
	if !ok {
		return nil
	}

	if a.out == nil {
		a.out = types.MakeDocument(doc.Len())
	}

	for _, k := range doc.Keys() {
		fv, _ := doc.Get(k)
		a.out.Set(k, fv)
	}

	return nil
}

func (a *mergeObjectsAcc) Result() any {
	if a.out == nil {
		return types.MakeDocument(0)
	}

	return a.out
}

// stdDevAcc computes population or sample standard deviation via
// Welford's online algorithm; $stdDevSamp of fewer than two values
// returns Null (§4.6).
type stdDevAcc struct {
	sample bool
	count  int64
	mean   float64
	m2     float64
}

func (a *stdDevAcc) Add(v any) error {
	n, _, ok := numeric(v)
	if !ok {
		return nil
	}

	a.count++
	delta := n - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (n - a.mean)

	return nil
}

func (a *stdDevAcc) Result() any {
	if a.sample {
		if a.count < 2 {
			return types.Null
		}

		return math.Sqrt(a.m2 / float64(a.count-1))
	}

	if a.count == 0 {
		return types.Null
	}

	return math.Sqrt(a.m2 / float64(a.count))
}

func coerceMissing(v any) any {
	if _, ok := v.(types.MissingType); ok {
		return types.Null
	}

	return v
}

// numeric normalizes any of the three numeric Value kinds to a float64
// for folding, reporting whether v was a double (isFloat) so
// sumAcc can decide its result's representation.
func numeric(v any) (n float64, isFloat bool, ok bool) {
	switch x := v.(type) {
	case int32:
		return float64(x), false, true
	case int64:
		return float64(x), false, true
	case float64:
		return x, true, true
	default:
		return 0, false, false
	}
}

// normalizeInt returns n as int32 if it fits, else int64, matching the
// Expression Evaluator's own integer-widening convention.
func normalizeInt(n int64) any {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return int32(n)
	}

	return n
}
