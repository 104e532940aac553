package stages_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/stages"
	"github.com/docbase/docbase/internal/storage"
	"github.com/docbase/docbase/internal/types"
)

func TestUnionWithAppendsOtherCollection(t *testing.T) {
	cat := storage.NewCatalog()
	other := storage.EnsureCollection(cat, "archive")
	require.NoError(t, other.Insert(mustDoc(t, "_id", int32(10), "name", "old")))
	require.NoError(t, other.Insert(mustDoc(t, "_id", int32(11), "name", "older")))

	pc := &stages.Context{Now: fixedNow, Catalog: cat}

	pipeline := mustArr(t, mustDoc(t, "$unionWith", "archive"))

	docs := []*types.Document{mustDoc(t, "_id", int32(1), "name", "current")}

	results := runPipeline(t, pc, pipeline, docs)
	require.Len(t, results, 3)
}

func TestUnionWithPipeline(t *testing.T) {
	cat := storage.NewCatalog()
	other := storage.EnsureCollection(cat, "archive")
	require.NoError(t, other.Insert(mustDoc(t, "_id", int32(10), "value", int32(5))))

	pc := &stages.Context{Now: fixedNow, Catalog: cat}

	pipeline := mustArr(t, mustDoc(t, "$unionWith", mustDoc(t,
		"coll", "archive",
		"pipeline", mustArr(t, mustDoc(t, "$match", mustDoc(t, "value", mustDoc(t, "$gt", int32(1))))),
	)))

	docs := []*types.Document{mustDoc(t, "_id", int32(1), "value", int32(1))}

	results := runPipeline(t, pc, pipeline, docs)
	require.Len(t, results, 2)
}
