package expr_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/expr"
	"github.com/docbase/docbase/internal/types"
)

var fixedNow = types.NewDateTime(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))

func eval(t *testing.T, doc any, raw any) any {
	t.Helper()

	e, err := expr.Compile(raw)
	require.NoError(t, err)

	v, err := e.Eval(doc, fixedNow)
	require.NoError(t, err)

	return v
}

func mustDoc(t *testing.T, pairs ...any) *types.Document {
	t.Helper()

	d, err := types.NewDocument(pairs...)
	require.NoError(t, err)

	return d
}

func mustArr(t *testing.T, values ...any) *types.Array {
	t.Helper()

	a, err := types.NewArray(values...)
	require.NoError(t, err)

	return a
}

func TestArithmetic(t *testing.T) {
	doc := mustDoc(t, "a", int32(10), "b", int32(3))

	assert.EqualValues(t, 13, eval(t, doc, mustDoc(t, "$add", mustArr(t, "$a", "$b"))))
	assert.EqualValues(t, 7, eval(t, doc, mustDoc(t, "$subtract", mustArr(t, "$a", "$b"))))
	assert.EqualValues(t, 30, eval(t, doc, mustDoc(t, "$multiply", mustArr(t, "$a", "$b"))))
	assert.InDelta(t, 3.3333333333333335, eval(t, doc, mustDoc(t, "$divide", mustArr(t, "$a", "$b"))).(float64), 1e-9)
	assert.EqualValues(t, 1, eval(t, doc, mustDoc(t, "$mod", mustArr(t, "$a", "$b"))))
}

func TestModSignsMatchDividend(t *testing.T) {
	doc := mustDoc(t)

	assert.EqualValues(t, -1, eval(t, doc, mustDoc(t, "$mod", mustArr(t, int32(-10), int32(3)))))
	assert.EqualValues(t, 1, eval(t, doc, mustDoc(t, "$mod", mustArr(t, int32(10), int32(-3)))))
}

func TestDivideAndModByZero(t *testing.T) {
	doc := mustDoc(t)

	e, err := expr.Compile(mustDoc(t, "$divide", mustArr(t, int32(1), int32(0))))
	require.NoError(t, err)
	_, err = e.Eval(doc, fixedNow)
	assert.ErrorContains(t, err, "$divide by zero")

	e, err = expr.Compile(mustDoc(t, "$mod", mustArr(t, int32(1), int32(0))))
	require.NoError(t, err)
	_, err = e.Eval(doc, fixedNow)
	assert.ErrorContains(t, err, "$mod by zero")
}

func TestRoundBankersRounding(t *testing.T) {
	doc := mustDoc(t)

	assert.EqualValues(t, 2, eval(t, doc, mustDoc(t, "$round", 2.5)))
	assert.EqualValues(t, 4, eval(t, doc, mustDoc(t, "$round", 3.5)))
	assert.InDelta(t, 2.57, eval(t, doc, mustDoc(t, "$round", mustArr(t, 2.567, int32(2)))).(float64), 1e-9)
	assert.EqualValues(t, 1200, eval(t, doc, mustDoc(t, "$round", mustArr(t, int32(1234), int32(-2)))))
}

func TestTrigIdentities(t *testing.T) {
	doc := mustDoc(t)

	degrees := 37.0

	rad := eval(t, doc, mustDoc(t, "$degreesToRadians", degrees)).(float64)
	back := eval(t, doc, mustDoc(t, "$radiansToDegrees", rad)).(float64)
	assert.InDelta(t, degrees, back, 1e-9)

	sin := eval(t, doc, mustDoc(t, "$sin", rad)).(float64)
	cos := eval(t, doc, mustDoc(t, "$cos", rad)).(float64)
	assert.InDelta(t, 1.0, sin*sin+cos*cos, 1e-9)
}

func TestComparisonAndLogical(t *testing.T) {
	doc := mustDoc(t, "a", int32(5))

	assert.Equal(t, true, eval(t, doc, mustDoc(t, "$gt", mustArr(t, "$a", int32(3)))))
	assert.Equal(t, true, eval(t, doc, mustDoc(t, "$and", mustArr(t, true, true))))
	assert.Equal(t, false, eval(t, doc, mustDoc(t, "$and", mustArr(t, true, false))))
	assert.Equal(t, true, eval(t, doc, mustDoc(t, "$or", mustArr(t, false, true))))
	assert.Equal(t, true, eval(t, doc, mustDoc(t, "$and", mustArr(t))))
	assert.Equal(t, false, eval(t, doc, mustDoc(t, "$or", mustArr(t))))
}

func TestCondAndSwitch(t *testing.T) {
	doc := mustDoc(t, "score", int32(85))

	grade := eval(t, doc, mustDoc(t, "$switch", mustDoc(t,
		"branches", mustArr(t,
			mustDoc(t, "case", mustDoc(t, "$gte", mustArr(t, "$score", int32(90))), "then", "A"),
			mustDoc(t, "case", mustDoc(t, "$gte", mustArr(t, "$score", int32(80))), "then", "B"),
		),
		"default", "F",
	)))
	assert.Equal(t, "B", grade)

	e, _ := expr.Compile(mustDoc(t, "$switch", mustDoc(t,
		"branches", mustArr(t, mustDoc(t, "case", false, "then", "X")),
	)))
	_, err := e.Eval(doc, fixedNow)
	assert.ErrorContains(t, err, "$switch could not find a matching branch")
}

func TestIfNull(t *testing.T) {
	doc := mustDoc(t, "a", types.Null)

	assert.Equal(t, "fallback", eval(t, doc, mustDoc(t, "$ifNull", mustArr(t, "$a", "fallback"))))
	assert.Equal(t, "fallback", eval(t, doc, mustDoc(t, "$ifNull", mustArr(t, "$missing", "fallback"))))
}

func TestStringFamily(t *testing.T) {
	doc := mustDoc(t, "s", "Hello, World")

	assert.Equal(t, "HELLO, WORLD", eval(t, doc, mustDoc(t, "$toUpper", "$s")))
	assert.Equal(t, "", eval(t, doc, mustDoc(t, "$toUpper", types.Null)))
	assert.EqualValues(t, 12, eval(t, doc, mustDoc(t, "$strLenCP", "$s")))
	assert.Equal(t, "World", eval(t, doc, mustDoc(t, "$substrCP", mustArr(t, "$s", int32(7), int32(-1)))))
	assert.Equal(t, "", eval(t, doc, mustDoc(t, "$substrCP", mustArr(t, "$s", int32(100), int32(2)))))
	assert.Equal(t, "a-b-c", eval(t, doc, mustDoc(t, "$concat", mustArr(t, "a", "-", "b", "-", "c"))))
	assert.Equal(t, types.Null, eval(t, doc, mustDoc(t, "$concat", mustArr(t, "a", types.Null))))
}

func TestSplitOfNullIsNull(t *testing.T) {
	doc := mustDoc(t)
	assert.Equal(t, types.Null, eval(t, doc, mustDoc(t, "$split", mustArr(t, types.Null, ","))))
}

func TestRegexFind(t *testing.T) {
	doc := mustDoc(t, "s", "order-42")

	result := eval(t, doc, mustDoc(t, "$regexFind", mustDoc(t,
		"input", "$s",
		"regex", `order-(\d+)`,
	)))

	matchDoc, ok := result.(*types.Document)
	require.True(t, ok)

	m, _ := matchDoc.Get("match")
	assert.Equal(t, "order-42", m)

	captures, _ := matchDoc.Get("captures")
	capArr, ok := captures.(*types.Array)
	require.True(t, ok)

	first, _ := capArr.Get(0)
	assert.Equal(t, "42", first)
}

func TestReverseArrayInvolution(t *testing.T) {
	doc := mustDoc(t)
	arr := mustArr(t, int32(1), int32(2), int32(3))

	once := eval(t, doc, mustDoc(t, "$reverseArray", mustArr(t, arr)))
	twice := eval(t, doc, mustDoc(t, "$reverseArray", mustArr(t, once)))

	assert.Equal(t, arr.Slice(), twice.(*types.Array).Slice())
}

func TestArrayToObjectRoundTrip(t *testing.T) {
	doc := mustDoc(t)
	original := mustDoc(t, "x", int32(1), "y", int32(2))

	asArray := eval(t, doc, mustDoc(t, "$objectToArray", original))
	back := eval(t, doc, mustDoc(t, "$arrayToObject", mustArr(t, asArray)))

	backDoc, ok := back.(*types.Document)
	require.True(t, ok)
	assert.Equal(t, original.Keys(), backDoc.Keys())
}

func TestFilterMapReduce(t *testing.T) {
	doc := mustDoc(t, "nums", mustArr(t, int32(1), int32(2), int32(3), int32(4), int32(5)))

	filtered := eval(t, doc, mustDoc(t, "$filter", mustDoc(t,
		"input", "$nums",
		"cond", mustDoc(t, "$gt", mustArr(t, "$$this", int32(2))),
	)))
	assert.Equal(t, []any{int32(3), int32(4), int32(5)}, filtered.(*types.Array).Slice())

	mapped := eval(t, doc, mustDoc(t, "$map", mustDoc(t,
		"input", "$nums",
		"in", mustDoc(t, "$multiply", mustArr(t, "$$this", int32(2))),
	)))
	assert.Equal(t, []any{int32(2), int32(4), int32(6), int32(8), int32(10)}, mapped.(*types.Array).Slice())

	sum := eval(t, doc, mustDoc(t, "$reduce", mustDoc(t,
		"input", "$nums",
		"initialValue", int32(0),
		"in", mustDoc(t, "$add", mustArr(t, "$$value", "$$this")),
	)))
	assert.EqualValues(t, 15, sum)
}

func TestLetShadowing(t *testing.T) {
	doc := mustDoc(t)

	result := eval(t, doc, mustDoc(t, "$let", mustDoc(t,
		"vars", mustDoc(t, "item", "outer"),
		"in", mustDoc(t, "$map", mustDoc(t,
			"input", mustArr(t, int32(1)),
			"as", "item",
			"in", "$$item",
		)),
	)))

	arr, ok := result.(*types.Array)
	require.True(t, ok)
	assert.Equal(t, []any{int32(1)}, arr.Slice())
}

func TestSetOperations(t *testing.T) {
	doc := mustDoc(t)
	a := mustArr(t, int32(1), int32(2), int32(3))

	union := eval(t, doc, mustDoc(t, "$setUnion", mustArr(t, a, a)))
	assert.ElementsMatch(t, a.Slice(), union.(*types.Array).Slice())

	inter := eval(t, doc, mustDoc(t, "$setIntersection", mustArr(t, a, a)))
	assert.ElementsMatch(t, a.Slice(), inter.(*types.Array).Slice())

	assert.Equal(t, true, eval(t, doc, mustDoc(t, "$setEquals", mustArr(t, a, mustArr(t, int32(3), int32(2), int32(1))))))
}

func TestMergeObjectsAndGetSetField(t *testing.T) {
	doc := mustDoc(t, "obj", mustDoc(t, "a", int32(1)))

	merged := eval(t, doc, mustDoc(t, "$mergeObjects", mustArr(t, mustDoc(t, "a", int32(1)), mustDoc(t, "b", int32(2)))))
	mergedDoc, ok := merged.(*types.Document)
	require.True(t, ok)

	b, ok := mergedDoc.Get("b")
	require.True(t, ok)
	assert.EqualValues(t, 2, b)

	gotten := eval(t, doc, mustDoc(t, "$getField", mustDoc(t, "field", "a", "input", "$obj")))
	assert.EqualValues(t, 1, gotten)

	missing := eval(t, doc, mustDoc(t, "$getField", mustDoc(t, "field", "nope", "input", "$obj")))
	assert.Equal(t, types.Missing, missing)
}

func TestTypeObservesMissingDirectly(t *testing.T) {
	doc := mustDoc(t, "present", types.Null)

	assert.Equal(t, "null", eval(t, doc, mustDoc(t, "$type", "$present")))
	assert.Equal(t, "missing", eval(t, doc, mustDoc(t, "$type", "$absent")))
}

func TestDateExtraction(t *testing.T) {
	doc := mustDoc(t, "d", fixedNow)

	assert.EqualValues(t, 2024, eval(t, doc, mustDoc(t, "$year", "$d")))
	assert.EqualValues(t, 3, eval(t, doc, mustDoc(t, "$month", "$d")))
	assert.EqualValues(t, 15, eval(t, doc, mustDoc(t, "$dayOfMonth", "$d")))
}

func TestIsoWeekBoundary(t *testing.T) {
	doc := mustDoc(t)

	dec31 := types.NewDateTime(time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC))
	assert.EqualValues(t, 53, eval(t, doc, mustDoc(t, "$isoWeek", dec31)))

	jan1 := types.NewDateTime(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.EqualValues(t, 2020, eval(t, doc, mustDoc(t, "$isoWeekYear", jan1)))
}

func TestDateToStringFromStringRoundTrip(t *testing.T) {
	doc := mustDoc(t)

	asString := eval(t, doc, mustDoc(t, "$dateToString", mustDoc(t, "date", fixedNow)))
	back := eval(t, doc, mustDoc(t, "$dateFromString", mustDoc(t, "dateString", asString)))

	assert.Equal(t, fixedNow, back)
}

func TestDateAddSubtract(t *testing.T) {
	doc := mustDoc(t)

	plusDay := eval(t, doc, mustDoc(t, "$dateAdd", mustDoc(t, "startDate", fixedNow, "unit", "day", "amount", int32(1))))
	diff := eval(t, doc, mustDoc(t, "$dateDiff", mustDoc(t, "startDate", fixedNow, "endDate", plusDay, "unit", "hour")))
	assert.EqualValues(t, 24, diff)
}

func TestToIntConversions(t *testing.T) {
	doc := mustDoc(t)

	assert.EqualValues(t, 3, eval(t, doc, mustDoc(t, "$toInt", "3.9")))

	e, _ := expr.Compile(mustDoc(t, "$toInt", "Infinity"))
	_, err := e.Eval(doc, fixedNow)
	assert.ErrorContains(t, err, "Failed to parse")
}

func TestToBoolEmptyStringIsTrue(t *testing.T) {
	doc := mustDoc(t)
	assert.Equal(t, true, eval(t, doc, mustDoc(t, "$toBool", "")))
}

func TestAbsMinInt32Edge(t *testing.T) {
	doc := mustDoc(t)
	result := eval(t, doc, mustDoc(t, "$abs", int32(math.MinInt32)))
	assert.EqualValues(t, int64(math.MaxInt32)+1, result)
}
