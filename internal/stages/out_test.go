package stages_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/stages"
	"github.com/docbase/docbase/internal/storage"
	"github.com/docbase/docbase/internal/types"
	"github.com/docbase/docbase/internal/util/iterator"
)

func TestOutReplacesTargetAtomicallyAndEmitsEmpty(t *testing.T) {
	cat := storage.NewCatalog()
	target := storage.EnsureCollection(cat, "snapshot")
	require.NoError(t, target.Insert(mustDoc(t, "_id", int32(1), "stale", true)))

	pc := &stages.Context{Now: fixedNow, Catalog: cat}

	pipeline := mustArr(t, mustDoc(t, "$out", "snapshot"))

	docs := []*types.Document{
		mustDoc(t, "_id", int32(2), "fresh", true),
		mustDoc(t, "_id", int32(3), "fresh", true),
	}

	results := runPipeline(t, pc, pipeline, docs)
	assert.Empty(t, results)

	scan, err := target.Scan()
	require.NoError(t, err)

	final, err := iterator.ConsumeValues[struct{}, *types.Document](scan)
	require.NoError(t, err)
	assert.Len(t, final, 2)

	for _, d := range final {
		_, hasStale := d.Get("stale")
		assert.False(t, hasStale)
	}
}
