package stages_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/stages"
	"github.com/docbase/docbase/internal/storage"
	"github.com/docbase/docbase/internal/types"
	"github.com/docbase/docbase/internal/util/iterator"
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

func runPipeline(t *testing.T, pc *stages.Context, raw *types.Array, docs []*types.Document) []*types.Document {
	t.Helper()

	p, err := stages.Compile(raw, pc)
	require.NoError(t, err)

	out, err := p.Run(context.Background(), iterator.Values[int, *types.Document](iterator.ForSlice(docs)))
	require.NoError(t, err)

	results, err := iterator.ConsumeValues[struct{}, *types.Document](out)
	require.NoError(t, err)

	return results
}

func newTestContext() *stages.Context {
	return &stages.Context{Now: fixedNow, Catalog: storage.NewCatalog(), Lookups: storage.NewLookupCache()}
}

// TestRevenueByCategory exercises $match + $group + $sort + $project,
// spec's e-commerce revenue by category scenario.
func TestRevenueByCategory(t *testing.T) {
	docs := []*types.Document{
		mustDoc(t, "_id", int32(1), "category", "Electronics", "price", int32(1000), "qty", int32(2)),
		mustDoc(t, "_id", int32(2), "category", "Electronics", "price", int32(500), "qty", int32(5)),
		mustDoc(t, "_id", int32(3), "category", "Clothing", "price", int32(30), "qty", int32(10)),
		mustDoc(t, "_id", int32(4), "category", "Clothing", "price", int32(50), "qty", int32(8)),
		mustDoc(t, "_id", int32(5), "category", "Electronics", "price", int32(300), "qty", int32(3)),
	}

	pipeline := mustArr(t,
		mustDoc(t, "$match", mustDoc(t, "price", mustDoc(t, "$gt", int32(40)))),
		mustDoc(t, "$group", mustDoc(t,
			"_id", "$category",
			"totalRevenue", mustDoc(t, "$sum", mustDoc(t, "$multiply", mustArr(t, "$price", "$qty"))),
			"avgPrice", mustDoc(t, "$avg", "$price"),
			"count", mustDoc(t, "$sum", int32(1)),
		)),
		mustDoc(t, "$sort", mustDoc(t, "totalRevenue", int32(-1))),
		mustDoc(t, "$project", mustDoc(t,
			"category", "$_id",
			"totalRevenue", int32(1),
			"avgPrice", mustDoc(t, "$round", mustArr(t, "$avgPrice", int32(2))),
			"count", int32(1),
			"_id", int32(0),
		)),
	)

	results := runPipeline(t, newTestContext(), pipeline, docs)
	require.Len(t, results, 2)

	cat0, _ := results[0].Get("category")
	assert.Equal(t, "Electronics", cat0)

	rev0, _ := results[0].Get("totalRevenue")
	assert.Equal(t, int32(5400), rev0)

	cat1, _ := results[1].Get("category")
	assert.Equal(t, "Clothing", cat1)

	rev1, _ := results[1].Get("totalRevenue")
	assert.Equal(t, int32(400), rev1)
}

// TestGradeSwitch exercises $project with $switch, spec's grade scenario.
func TestGradeSwitch(t *testing.T) {
	switchExpr := mustDoc(t, "$switch", mustDoc(t,
		"branches", mustArr(t,
			mustDoc(t, "case", mustDoc(t, "$gte", mustArr(t, "$score", int32(90))), "then", "A"),
			mustDoc(t, "case", mustDoc(t, "$gte", mustArr(t, "$score", int32(80))), "then", "B"),
			mustDoc(t, "case", mustDoc(t, "$gte", mustArr(t, "$score", int32(70))), "then", "C"),
		),
		"default", "F",
	))

	pipeline := mustArr(t, mustDoc(t, "$project", mustDoc(t, "grade", switchExpr)))

	results := runPipeline(t, newTestContext(), pipeline, []*types.Document{mustDoc(t, "_id", int32(1), "score", int32(85))})
	require.Len(t, results, 1)

	grade, _ := results[0].Get("grade")
	assert.Equal(t, "B", grade)

	results = runPipeline(t, newTestContext(), pipeline, []*types.Document{mustDoc(t, "_id", int32(2), "score", int32(50))})
	require.Len(t, results, 1)

	grade, _ = results[0].Get("grade")
	assert.Equal(t, "F", grade)
}

func TestLimitSkipCountUnwind(t *testing.T) {
	docs := []*types.Document{
		mustDoc(t, "_id", int32(1), "tags", mustArr(t, "a", "b")),
		mustDoc(t, "_id", int32(2), "tags", mustArr(t, "c")),
	}

	pipeline := mustArr(t, mustDoc(t, "$unwind", "$tags"))
	results := runPipeline(t, newTestContext(), pipeline, docs)
	require.Len(t, results, 3)

	pipeline = mustArr(t, mustDoc(t, "$skip", int32(1)), mustDoc(t, "$limit", int32(1)))
	results = runPipeline(t, newTestContext(), pipeline, docs)
	require.Len(t, results, 1)

	id, _ := results[0].Get("_id")
	assert.Equal(t, int32(2), id)

	pipeline = mustArr(t, mustDoc(t, "$count", "total"))
	results = runPipeline(t, newTestContext(), pipeline, docs)
	require.Len(t, results, 1)

	total, _ := results[0].Get("total")
	assert.Equal(t, int32(2), total)
}
