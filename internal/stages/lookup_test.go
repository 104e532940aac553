package stages_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/stages"
	"github.com/docbase/docbase/internal/storage"
	"github.com/docbase/docbase/internal/types"
)

func TestLookupSimple(t *testing.T) {
	cat := storage.NewCatalog()
	inv := storage.EnsureCollection(cat, "inventory")
	require.NoError(t, inv.Insert(mustDoc(t, "sku", "almonds", "instock", int32(120))))
	require.NoError(t, inv.Insert(mustDoc(t, "sku", "bread", "instock", int32(80))))

	orders := []*types.Document{mustDoc(t, "_id", int32(1), "item", "almonds")}

	pc := &stages.Context{Now: fixedNow, Catalog: cat, Lookups: storage.NewLookupCache()}

	pipeline := mustArr(t, mustDoc(t, "$lookup", mustDoc(t,
		"from", "inventory",
		"localField", "item",
		"foreignField", "sku",
		"as", "fromItems",
	)))

	results := runPipeline(t, pc, pipeline, orders)
	require.Len(t, results, 1)

	fromItemsRaw, ok := results[0].Get("fromItems")
	require.True(t, ok)

	fromItems := fromItemsRaw.(*types.Array)
	require.Equal(t, 1, fromItems.Len())

	first, _ := fromItems.Get(0)
	sku, _ := first.(*types.Document).Get("sku")
	assert.Equal(t, "almonds", sku)
}

// TestLookupPipelineWithLet is spec's scenario 4: a pipeline $lookup
// joining orders to inventory via $sku == $$orderItem.
func TestLookupPipelineWithLet(t *testing.T) {
	cat := storage.NewCatalog()
	inv := storage.EnsureCollection(cat, "inventory")
	require.NoError(t, inv.Insert(mustDoc(t, "sku", "almonds", "description", "product 1", "instock", int32(120))))
	require.NoError(t, inv.Insert(mustDoc(t, "sku", "bread", "description", "product 2", "instock", int32(80))))
	require.NoError(t, inv.Insert(mustDoc(t, "sku", "cashews", "description", "product 3", "instock", int32(60))))

	orders := []*types.Document{mustDoc(t, "_id", int32(1), "item", "almonds", "price", int32(12), "quantity", int32(2))}

	pc := &stages.Context{Now: fixedNow, Catalog: cat, Lookups: storage.NewLookupCache()}

	pipeline := mustArr(t, mustDoc(t, "$lookup", mustDoc(t,
		"from", "inventory",
		"let", mustDoc(t, "orderItem", "$item"),
		"pipeline", mustArr(t,
			mustDoc(t, "$match", mustDoc(t, "$expr", mustDoc(t, "$eq", mustArr(t, "$sku", "$$orderItem")))),
		),
		"as", "fromItems",
	)))

	results := runPipeline(t, pc, pipeline, orders)
	require.Len(t, results, 1)

	fromItemsRaw, ok := results[0].Get("fromItems")
	require.True(t, ok)

	fromItems := fromItemsRaw.(*types.Array)
	require.Equal(t, 1, fromItems.Len())

	first, _ := fromItems.Get(0)
	sku, _ := first.(*types.Document).Get("sku")
	assert.Equal(t, "almonds", sku)
}
