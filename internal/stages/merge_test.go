package stages_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/stages"
	"github.com/docbase/docbase/internal/storage"
	"github.com/docbase/docbase/internal/types"
	"github.com/docbase/docbase/internal/util/iterator"
)

// TestMergePipelineWithNew is spec's scenario 5: $merge with a pipeline
// whenMatched referencing $$new.
func TestMergePipelineWithNew(t *testing.T) {
	cat := storage.NewCatalog()
	target := storage.EnsureCollection(cat, "targets")
	require.NoError(t, target.Insert(mustDoc(t, "_id", int32(1), "value", int32(10), "originalValue", int32(10))))

	pc := &stages.Context{Now: fixedNow, Catalog: cat}

	pipeline := mustArr(t, mustDoc(t, "$merge", mustDoc(t,
		"into", "targets",
		"whenMatched", mustArr(t,
			mustDoc(t, "$set", mustDoc(t, "value", "$$new.value", "updated", true)),
		),
		"whenNotMatched", "insert",
	)))

	source := []*types.Document{mustDoc(t, "_id", int32(1), "value", int32(25))}

	results := runPipeline(t, pc, pipeline, source)
	assert.Empty(t, results)

	merged, ok, err := target.FindByKey(int32(1))
	require.NoError(t, err)
	require.True(t, ok)

	value, _ := merged.Get("value")
	assert.Equal(t, int32(25), value)

	original, _ := merged.Get("originalValue")
	assert.Equal(t, int32(10), original)

	updated, _ := merged.Get("updated")
	assert.Equal(t, true, updated)
}

func TestMergeReplaceAndInsert(t *testing.T) {
	cat := storage.NewCatalog()
	target := storage.EnsureCollection(cat, "targets")
	require.NoError(t, target.Insert(mustDoc(t, "_id", int32(1), "a", int32(1), "b", int32(2))))

	pc := &stages.Context{Now: fixedNow, Catalog: cat}

	pipeline := mustArr(t, mustDoc(t, "$merge", mustDoc(t, "into", "targets", "whenMatched", "replace", "whenNotMatched", "insert")))

	source := []*types.Document{
		mustDoc(t, "_id", int32(1), "a", int32(99)),
		mustDoc(t, "_id", int32(2), "c", int32(3)),
	}

	results := runPipeline(t, pc, pipeline, source)
	assert.Empty(t, results)

	d1, ok, err := target.FindByKey(int32(1))
	require.NoError(t, err)
	require.True(t, ok)

	_, hasB := d1.Get("b")
	assert.False(t, hasB, "replace should drop fields not present in the source")

	d2, ok, err := target.FindByKey(int32(2))
	require.NoError(t, err)
	require.True(t, ok)

	c, _ := d2.Get("c")
	assert.Equal(t, int32(3), c)
}

func TestMergeOnNonIDFieldRequiresUniqueIndex(t *testing.T) {
	cat := storage.NewCatalog()
	_ = storage.EnsureCollection(cat, "targets")

	pc := &stages.Context{Now: fixedNow, Catalog: cat}

	pipeline := mustArr(t, mustDoc(t, "$merge", mustDoc(t, "into", "targets", "on", "sku", "whenMatched", "replace", "whenNotMatched", "insert")))

	_, err := stages.Compile(pipeline, pc)
	require.Error(t, err)
	assert.ErrorContains(t, err, "unique index")
}

func TestMergeOnNonIDFieldWithUniqueIndex(t *testing.T) {
	cat := storage.NewCatalog()
	target := storage.EnsureCollection(cat, "targets")
	require.NoError(t, target.Insert(mustDoc(t, "_id", int32(1), "sku", "almonds", "instock", int32(120))))

	cat.Indexes("targets").Add(storage.IndexSpec{
		Name:   "sku_1",
		Keys:   []storage.IndexKey{{Field: "sku", Direction: int32(1)}},
		Unique: true,
	})

	pc := &stages.Context{Now: fixedNow, Catalog: cat}

	pipeline := mustArr(t, mustDoc(t, "$merge", mustDoc(t, "into", "targets", "on", "sku", "whenMatched", "merge", "whenNotMatched", "insert")))

	source := []*types.Document{mustDoc(t, "sku", "almonds", "instock", int32(90))}

	results := runPipeline(t, pc, pipeline, source)
	assert.Empty(t, results)

	merged, ok, err := target.FindByKey(int32(1))
	require.NoError(t, err)
	require.True(t, ok)

	instock, _ := merged.Get("instock")
	assert.Equal(t, int32(90), instock)
}

func TestMergeFailOnMatch(t *testing.T) {
	cat := storage.NewCatalog()
	target := storage.EnsureCollection(cat, "targets")
	require.NoError(t, target.Insert(mustDoc(t, "_id", int32(1))))

	pc := &stages.Context{Now: fixedNow, Catalog: cat}

	pipeline := mustArr(t, mustDoc(t, "$merge", mustDoc(t, "into", "targets", "whenMatched", "fail", "whenNotMatched", "insert")))

	p, err := stages.Compile(pipeline, pc)
	require.NoError(t, err)

	in := iterator.Values[int, *types.Document](iterator.ForSlice([]*types.Document{mustDoc(t, "_id", int32(1))}))

	_, err = p.Run(context.Background(), in)
	require.Error(t, err)
	assert.ErrorContains(t, err, "$merge")
	assert.ErrorContains(t, err, "match")
}
