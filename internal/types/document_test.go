package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/util/iterator"
	"github.com/docbase/docbase/internal/util/must"
)

func TestDocumentBasics(t *testing.T) {
	t.Parallel()

	doc := must.NotFail(NewDocument("a", int32(1), "b", "two"))
	assert.Equal(t, 2, doc.Len())
	assert.True(t, doc.Has("a"))
	assert.False(t, doc.Has("c"))

	v, ok := doc.Get("b")
	require.True(t, ok)
	assert.Equal(t, "two", v)

	_, ok = doc.Get("z")
	assert.False(t, ok)

	doc.Set("a", int32(99))
	v, _ = doc.Get("a")
	assert.Equal(t, int32(99), v)
	assert.Equal(t, []string{"a", "b"}, doc.Keys(), "Set on an existing field must preserve position")

	doc.Set("c", true)
	assert.Equal(t, []string{"a", "b", "c"}, doc.Keys())

	doc.Remove("b")
	assert.Equal(t, []string{"a", "c"}, doc.Keys())
}

func TestDocumentDuplicateField(t *testing.T) {
	t.Parallel()

	_, err := NewDocument("a", int32(1), "a", int32(2))
	require.Error(t, err)
}

func TestDocumentIterator(t *testing.T) {
	t.Parallel()

	doc := must.NotFail(NewDocument("a", int32(1), "b", int32(2)))

	iter := doc.Iterator()
	defer iter.Close()

	var keys []string

	for {
		k, _, err := iter.Next()
		if err != nil {
			require.ErrorIs(t, err, iterator.ErrIteratorDone)
			break
		}

		keys = append(keys, k)
	}

	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestDocumentDeepCopy(t *testing.T) {
	t.Parallel()

	nested := must.NotFail(NewArray(int32(1), int32(2)))
	doc := must.NotFail(NewDocument("items", nested))

	cp := doc.DeepCopy()

	cpItems, _ := cp.Get("items")
	require.NoError(t, cpItems.(*Array).Set(0, int32(100)))

	origItems, _ := doc.Get("items")
	v, _ := origItems.(*Array).Get(0)
	assert.Equal(t, int32(1), v, "deep copy must not share array backing storage")
}
