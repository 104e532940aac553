package matcher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/matcher"
	"github.com/docbase/docbase/internal/types"
)

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

func matches(t *testing.T, filter, doc *types.Document) bool {
	t.Helper()

	m, err := matcher.Compile(filter)
	require.NoError(t, err)

	ok, err := m.Matches(doc)
	require.NoError(t, err)

	return ok
}

func TestLiteralEquality(t *testing.T) {
	doc := mustDoc(t, "status", "A")

	assert.True(t, matches(t, mustDoc(t, "status", "A"), doc))
	assert.False(t, matches(t, mustDoc(t, "status", "B"), doc))
}

func TestComparisonOperators(t *testing.T) {
	doc := mustDoc(t, "qty", int32(25))

	assert.True(t, matches(t, mustDoc(t, "qty", mustDoc(t, "$gt", int32(10))), doc))
	assert.False(t, matches(t, mustDoc(t, "qty", mustDoc(t, "$lt", int32(10))), doc))
	assert.True(t, matches(t, mustDoc(t, "qty", mustDoc(t, "$gte", int32(25))), doc))
}

func TestArrayAwareMatching(t *testing.T) {
	doc := mustDoc(t, "tags", mustArr(t, "red", "blue"))

	assert.True(t, matches(t, mustDoc(t, "tags", "red"), doc))
	assert.False(t, matches(t, mustDoc(t, "tags", "green"), doc))
}

func TestExists(t *testing.T) {
	doc := mustDoc(t, "a", types.Null)

	assert.True(t, matches(t, mustDoc(t, "a", mustDoc(t, "$exists", true)), doc))
	assert.False(t, matches(t, mustDoc(t, "b", mustDoc(t, "$exists", true)), doc))
	assert.True(t, matches(t, mustDoc(t, "b", mustDoc(t, "$exists", false)), doc))
}

func TestInNin(t *testing.T) {
	doc := mustDoc(t, "status", "B")

	assert.True(t, matches(t, mustDoc(t, "status", mustDoc(t, "$in", mustArr(t, "A", "B"))), doc))
	assert.False(t, matches(t, mustDoc(t, "status", mustDoc(t, "$nin", mustArr(t, "A", "B"))), doc))
}

func TestAndOrNor(t *testing.T) {
	doc := mustDoc(t, "a", int32(1), "b", int32(2))

	assert.True(t, matches(t, mustDoc(t, "$and", mustArr(t,
		mustDoc(t, "a", int32(1)), mustDoc(t, "b", int32(2)),
	)), doc))

	assert.True(t, matches(t, mustDoc(t, "$or", mustArr(t,
		mustDoc(t, "a", int32(99)), mustDoc(t, "b", int32(2)),
	)), doc))

	assert.True(t, matches(t, mustDoc(t, "$nor", mustArr(t,
		mustDoc(t, "a", int32(99)), mustDoc(t, "b", int32(99)),
	)), doc))
}

func TestAllAndElemMatch(t *testing.T) {
	doc := mustDoc(t, "scores", mustArr(t, int32(80), int32(90), int32(95)))

	assert.True(t, matches(t, mustDoc(t, "scores", mustDoc(t, "$all", mustArr(t, int32(80), int32(95)))), doc))
	assert.False(t, matches(t, mustDoc(t, "scores", mustDoc(t, "$all", mustArr(t, int32(80), int32(100)))), doc))

	assert.True(t, matches(t, mustDoc(t, "scores", mustDoc(t,
		"$elemMatch", mustDoc(t, "$gt", int32(94)),
	)), doc))
}

func TestSizeAndMod(t *testing.T) {
	doc := mustDoc(t, "tags", mustArr(t, "a", "b", "c"), "n", int32(10))

	assert.True(t, matches(t, mustDoc(t, "tags", mustDoc(t, "$size", int32(3))), doc))
	assert.False(t, matches(t, mustDoc(t, "tags", mustDoc(t, "$size", int32(2))), doc))
	assert.True(t, matches(t, mustDoc(t, "n", mustDoc(t, "$mod", mustArr(t, int32(5), int32(0)))), doc))
}

func TestRegex(t *testing.T) {
	doc := mustDoc(t, "name", "Alice")

	assert.True(t, matches(t, mustDoc(t, "name", mustDoc(t, "$regex", "^A")), doc))
	assert.False(t, matches(t, mustDoc(t, "name", mustDoc(t, "$regex", "^Z")), doc))
}

func TestRegexWithOptions(t *testing.T) {
	doc := mustDoc(t, "name", "Alice")

	assert.True(t, matches(t, mustDoc(t, "name", mustDoc(t, "$regex", "^a", "$options", "i")), doc))
}

func TestOptionsWithoutRegexErrors(t *testing.T) {
	_, err := matcher.Compile(mustDoc(t, "name", mustDoc(t, "$options", "i")))
	assert.Error(t, err)
}

func TestBitwise(t *testing.T) {
	doc := mustDoc(t, "flags", int32(0b0110))

	assert.True(t, matches(t, mustDoc(t, "flags", mustDoc(t, "$bitsAllSet", int32(0b0010))), doc))
	assert.False(t, matches(t, mustDoc(t, "flags", mustDoc(t, "$bitsAllSet", int32(0b1000))), doc))
	assert.True(t, matches(t, mustDoc(t, "flags", mustDoc(t, "$bitsAnyClear", int32(0b1110))), doc))
}

func TestExprFilter(t *testing.T) {
	doc := mustDoc(t, "a", int32(5), "b", int32(3))

	assert.True(t, matches(t, mustDoc(t, "$expr", mustDoc(t,
		"$gt", mustArr(t, "$a", "$b"),
	)), doc))
}
