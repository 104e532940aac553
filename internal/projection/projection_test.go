package projection_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/projection"
	"github.com/docbase/docbase/internal/types"
)

var fixedNow = types.NewDateTime(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))

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

func TestProjectInclusion(t *testing.T) {
	doc := mustDoc(t, "_id", int32(1), "a", int32(1), "b", int32(2), "c", int32(3))

	p, err := projection.CompileProject(mustDoc(t, "a", int32(1), "b", int32(1)))
	require.NoError(t, err)

	out, err := p.Apply(doc, fixedNow)
	require.NoError(t, err)

	got := out.(*types.Document)
	assert.Equal(t, 3, got.Len())

	id, ok := got.Get("_id")
	assert.True(t, ok)
	assert.Equal(t, int32(1), id)

	_, hasC := got.Get("c")
	assert.False(t, hasC)
}

func TestProjectInclusionExcludingID(t *testing.T) {
	doc := mustDoc(t, "_id", int32(1), "a", int32(1))

	p, err := projection.CompileProject(mustDoc(t, "a", int32(1), "_id", int32(0)))
	require.NoError(t, err)

	out, err := p.Apply(doc, fixedNow)
	require.NoError(t, err)

	got := out.(*types.Document)
	_, hasID := got.Get("_id")
	assert.False(t, hasID)
	assert.Equal(t, 1, got.Len())
}

func TestProjectExclusion(t *testing.T) {
	doc := mustDoc(t, "_id", int32(1), "a", int32(1), "b", int32(2))

	p, err := projection.CompileProject(mustDoc(t, "b", int32(0)))
	require.NoError(t, err)

	out, err := p.Apply(doc, fixedNow)
	require.NoError(t, err)

	got := out.(*types.Document)
	assert.Equal(t, 2, got.Len())

	_, hasB := got.Get("b")
	assert.False(t, hasB)
}

func TestProjectComputedField(t *testing.T) {
	doc := mustDoc(t, "_id", int32(1), "price", int32(10), "qty", int32(3))

	p, err := projection.CompileProject(mustDoc(t, "total", mustDoc(t, "$multiply", mustArr(t, "$price", "$qty"))))
	require.NoError(t, err)

	out, err := p.Apply(doc, fixedNow)
	require.NoError(t, err)

	got := out.(*types.Document)
	total, ok := got.Get("total")
	require.True(t, ok)
	assert.Equal(t, int32(30), total)
}

func TestProjectMixedModeErrors(t *testing.T) {
	_, err := projection.CompileProject(mustDoc(t, "a", int32(1), "b", int32(0)))
	assert.Error(t, err)
}

func TestAddFieldsSequentialVisibility(t *testing.T) {
	doc := mustDoc(t, "a", int32(2))

	p, err := projection.CompileAddFields(mustDoc(t,
		"b", mustDoc(t, "$multiply", mustArr(t, "$a", int32(10))),
		"c", mustDoc(t, "$add", mustArr(t, "$b", int32(1))),
	))
	require.NoError(t, err)

	out, err := p.Apply(doc, fixedNow)
	require.NoError(t, err)

	got := out.(*types.Document)

	b, _ := got.Get("b")
	assert.Equal(t, int32(20), b)

	c, _ := got.Get("c")
	assert.Equal(t, int32(21), c)

	a, _ := got.Get("a")
	assert.Equal(t, int32(2), a)
}

func TestAddFieldsMissingOmitsField(t *testing.T) {
	doc := mustDoc(t, "a", int32(1))

	p, err := projection.CompileAddFields(mustDoc(t, "b", "$nonexistent"))
	require.NoError(t, err)

	out, err := p.Apply(doc, fixedNow)
	require.NoError(t, err)

	got := out.(*types.Document)
	_, hasB := got.Get("b")
	assert.False(t, hasB)
}

func TestUnsetNested(t *testing.T) {
	inner := mustDoc(t, "x", int32(1), "y", int32(2))
	doc := mustDoc(t, "a", int32(1), "nested", inner)

	p := projection.CompileUnset([]string{"a", "nested.y"})

	out, err := p.Apply(doc, fixedNow)
	require.NoError(t, err)

	got := out.(*types.Document)
	_, hasA := got.Get("a")
	assert.False(t, hasA)

	nested, ok := got.Get("nested")
	require.True(t, ok)

	nestedDoc := nested.(*types.Document)
	_, hasY := nestedDoc.Get("y")
	assert.False(t, hasY)

	x, ok := nestedDoc.Get("x")
	require.True(t, ok)
	assert.Equal(t, int32(1), x)
}

func TestReplaceRootRequiresObject(t *testing.T) {
	doc := mustDoc(t, "a", mustDoc(t, "x", int32(1)))

	p, err := projection.CompileReplaceRoot("$a")
	require.NoError(t, err)

	out, err := p.Apply(doc, fixedNow)
	require.NoError(t, err)

	got := out.(*types.Document)
	x, ok := got.Get("x")
	require.True(t, ok)
	assert.Equal(t, int32(1), x)

	p2, err := projection.CompileReplaceRoot("$missing")
	require.NoError(t, err)

	_, err = p2.Apply(doc, fixedNow)
	assert.ErrorContains(t, err, "newRoot")
}

func TestProjectNestedInclusionDescendsIntoSubObject(t *testing.T) {
	doc := mustDoc(t, "_id", int32(1), "a", mustDoc(t, "b", int32(1), "c", int32(2)))

	p, err := projection.CompileProject(mustDoc(t, "a.b", int32(1)))
	require.NoError(t, err)

	out, err := p.Apply(doc, fixedNow)
	require.NoError(t, err)

	got := out.(*types.Document)
	a, ok := got.Get("a")
	require.True(t, ok)

	aDoc := a.(*types.Document)
	assert.Equal(t, 1, aDoc.Len())

	b, ok := aDoc.Get("b")
	require.True(t, ok)
	assert.Equal(t, int32(1), b)

	_, hasC := aDoc.Get("c")
	assert.False(t, hasC)
}

func TestProjectNestedInclusionPreservesArrayStructure(t *testing.T) {
	arr := mustArr(t,
		mustDoc(t, "b", int32(1), "c", int32(2)),
		mustDoc(t, "b", int32(3), "c", int32(4)),
	)
	doc := mustDoc(t, "_id", int32(1), "a", arr)

	p, err := projection.CompileProject(mustDoc(t, "a.b", int32(1)))
	require.NoError(t, err)

	out, err := p.Apply(doc, fixedNow)
	require.NoError(t, err)

	got := out.(*types.Document)
	a, ok := got.Get("a")
	require.True(t, ok)

	aArr := a.(*types.Array)
	require.Equal(t, 2, aArr.Len())

	for i, want := range []int32{1, 3} {
		elem, err := aArr.Get(i)
		require.NoError(t, err)

		elemDoc := elem.(*types.Document)
		assert.Equal(t, 1, elemDoc.Len())

		b, ok := elemDoc.Get("b")
		require.True(t, ok)
		assert.Equal(t, want, b)
	}
}

func TestProjectNestedExclusionDescendsIntoSubObject(t *testing.T) {
	doc := mustDoc(t, "_id", int32(1), "a", mustDoc(t, "b", int32(1), "c", int32(2)))

	p, err := projection.CompileProject(mustDoc(t, "a.c", int32(0)))
	require.NoError(t, err)

	out, err := p.Apply(doc, fixedNow)
	require.NoError(t, err)

	got := out.(*types.Document)
	a, ok := got.Get("a")
	require.True(t, ok)

	aDoc := a.(*types.Document)
	assert.Equal(t, 1, aDoc.Len())

	b, ok := aDoc.Get("b")
	require.True(t, ok)
	assert.Equal(t, int32(1), b)

	_, hasC := aDoc.Get("c")
	assert.False(t, hasC)
}
