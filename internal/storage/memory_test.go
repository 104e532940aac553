package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/storage"
	"github.com/docbase/docbase/internal/types"
	"github.com/docbase/docbase/internal/util/iterator"
)

func mustDoc(t *testing.T, pairs ...any) *types.Document {
	t.Helper()

	d, err := types.NewDocument(pairs...)
	require.NoError(t, err)

	return d
}

func TestMemoryInsertAndScan(t *testing.T) {
	m := storage.NewMemory("widgets")

	require.NoError(t, m.Insert(mustDoc(t, "_id", int32(1), "name", "a")))
	require.NoError(t, m.Insert(mustDoc(t, "_id", int32(2), "name", "b")))

	iter, err := m.Scan()
	require.NoError(t, err)

	docs, err := iterator.ConsumeValues[struct{}, *types.Document](iter)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestMemoryFindByKey(t *testing.T) {
	m := storage.NewMemory("widgets")
	require.NoError(t, m.Insert(mustDoc(t, "_id", int32(7), "name", "x")))

	doc, ok, err := m.FindByKey(int32(7))
	require.NoError(t, err)
	require.True(t, ok)

	name, _ := doc.Get("name")
	assert.Equal(t, "x", name)

	_, ok, err = m.FindByKey(int32(99))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryReplacePreservesKey(t *testing.T) {
	m := storage.NewMemory("widgets")
	require.NoError(t, m.Insert(mustDoc(t, "_id", int32(1), "v", int32(10))))

	require.NoError(t, m.Replace(int32(1), mustDoc(t, "_id", int32(999), "v", int32(20))))

	doc, ok, err := m.FindByKey(int32(1))
	require.NoError(t, err)
	require.True(t, ok)

	id, _ := doc.Get("_id")
	assert.Equal(t, int32(1), id)

	v, _ := doc.Get("v")
	assert.Equal(t, int32(20), v)
}

func TestMemoryBulkReplace(t *testing.T) {
	m := storage.NewMemory("widgets")
	require.NoError(t, m.Insert(mustDoc(t, "_id", int32(1))))

	require.NoError(t, m.BulkReplace([]*types.Document{
		mustDoc(t, "_id", int32(2)),
		mustDoc(t, "_id", int32(3)),
	}))

	iter, err := m.Scan()
	require.NoError(t, err)

	docs, err := iterator.ConsumeValues[struct{}, *types.Document](iter)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestIndexCatalogUniqueOnField(t *testing.T) {
	cat := storage.NewIndexCatalog(storage.IndexSpec{
		Name:   "sku_1",
		Keys:   []storage.IndexKey{{Field: "sku", Direction: int32(1)}},
		Unique: true,
	})

	assert.True(t, cat.UniqueOnField("_id"))
	assert.True(t, cat.UniqueOnField("sku"))
	assert.False(t, cat.UniqueOnField("name"))
}

func TestLookupCacheRoundTrip(t *testing.T) {
	c := storage.NewLookupCache()
	docs := []*types.Document{mustDoc(t, "_id", int32(1))}

	c.Set(context.Background(), "inventory", "almonds", docs)

	got, ok := c.Get(context.Background(), "inventory", "almonds")
	require.True(t, ok)
	assert.Len(t, got, 1)

	_, ok = c.Get(context.Background(), "inventory", "cashews")
	assert.False(t, ok)
}
