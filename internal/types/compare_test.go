package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/util/must"
)

func TestCompareRank(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		a, b     any
		expected CompareResult
	}{
		"MissingLessThanNull":  {Missing, Null, Less},
		"NullLessThanNumber":   {Null, int32(0), Less},
		"NumberLessThanString": {int32(1), "a", Less},
		"IntEqualsDouble":      {int32(2), float64(2), Equal},
		"IntLessThanLong":      {int32(2), int64(3), Less},
		"StringByteWise":       {"abc", "abd", Less},
		"BoolFalseLessTrue":    {false, true, Less},
		"ArrayPrefixShorter":   {must.NotFail(NewArray(int32(1))), must.NotFail(NewArray(int32(1), int32(2))), Less},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Compare(tc.a, tc.b))
		})
	}
}

func TestCompareNaN(t *testing.T) {
	t.Parallel()

	nan := math.NaN()

	require.Equal(t, Equal, Compare(nan, nan))
	require.False(t, StrictEqual(nan, nan))
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	falsy := []any{Null, Missing, false, int32(0), int64(0), float64(0)}
	for _, v := range falsy {
		assert.False(t, Truthy(v), "%#v should be falsy", v)
	}

	truthy := []any{true, int32(1), "", must.NotFail(NewArray()), "x"}
	for _, v := range truthy {
		assert.True(t, Truthy(v), "%#v should be truthy", v)
	}
}

func TestResolvePathArrayTraversal(t *testing.T) {
	t.Parallel()

	doc := must.NotFail(NewDocument(
		"items", must.NotFail(NewArray(
			must.NotFail(NewDocument("x", int32(1))),
			must.NotFail(NewDocument("x", int32(2))),
			must.NotFail(NewDocument("y", int32(3))),
		)),
	))

	res := ResolvePath(doc, SplitPath("items.x"))
	arr, ok := res.(*Array)
	require.True(t, ok)
	assert.Equal(t, 2, arr.Len())

	v0, _ := arr.Get(0)
	assert.Equal(t, int32(1), v0)

	res = ResolvePath(doc, SplitPath("items.2"))
	_, isDoc := res.(*Document)
	assert.True(t, isDoc)

	res = ResolvePath(doc, SplitPath("missing.field"))
	assert.Equal(t, Missing, res)
}
