package docdb_test

import (
	"context"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/docbase/docbase/internal/docdb"
	"github.com/docbase/docbase/internal/metrics"
	"github.com/docbase/docbase/internal/storage"
)

func newCollection(t *testing.T) *docdb.Collection {
	t.Helper()

	client := docdb.NewClient(nil, nil)
	db := client.Database("test")

	return db.Collection("widgets")
}

func TestInsertAndFind(t *testing.T) {
	ctx := context.Background()
	col := newCollection(t)

	_, err := col.InsertOne(ctx, bson.D{{Key: "_id", Value: int32(1)}, {Key: "name", Value: "sprocket"}})
	require.NoError(t, err)

	_, err = col.InsertOne(ctx, bson.D{{Key: "_id", Value: int32(2)}, {Key: "name", Value: "widget"}})
	require.NoError(t, err)

	cur, err := col.Find(ctx, bson.D{{Key: "name", Value: "widget"}}, nil)
	require.NoError(t, err)

	doc, ok := cur.Next()
	require.True(t, ok)

	name, _ := doc.Get("name")
	assert.Equal(t, "widget", name)

	_, ok = cur.Next()
	assert.False(t, ok)
}

func TestUpdateOneSet(t *testing.T) {
	ctx := context.Background()
	col := newCollection(t)

	_, err := col.InsertOne(ctx, bson.D{{Key: "_id", Value: int32(1)}, {Key: "n", Value: int32(1)}})
	require.NoError(t, err)

	res, err := col.UpdateOne(ctx, bson.D{{Key: "_id", Value: int32(1)}}, bson.D{
		{Key: "$set", Value: bson.D{{Key: "n", Value: int32(2)}}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ModifiedCount)

	doc, err := col.FindOne(ctx, bson.D{{Key: "_id", Value: int32(1)}})
	require.NoError(t, err)
	require.NotNil(t, doc)

	n, _ := doc.Get("n")
	assert.Equal(t, int32(2), n)
}

func TestDeleteMany(t *testing.T) {
	ctx := context.Background()
	col := newCollection(t)

	for i := int32(0); i < 3; i++ {
		_, err := col.InsertOne(ctx, bson.D{{Key: "_id", Value: i}, {Key: "even", Value: i%2 == 0}})
		require.NoError(t, err)
	}

	res, err := col.DeleteMany(ctx, bson.D{{Key: "even", Value: true}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.DeletedCount)

	n, err := col.EstimatedDocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAggregateCountPipeline(t *testing.T) {
	ctx := context.Background()
	col := newCollection(t)

	for i := int32(0); i < 4; i++ {
		_, err := col.InsertOne(ctx, bson.D{{Key: "_id", Value: i}})
		require.NoError(t, err)
	}

	pipeline := bson.A{
		bson.D{{Key: "$count", Value: "total"}},
	}

	cur, err := col.Aggregate(ctx, pipeline, nil)
	require.NoError(t, err)

	doc, ok := cur.Next()
	require.True(t, ok)

	total, _ := doc.Get("total")
	assert.Equal(t, int32(4), total)
}

func TestCreateAndDropIndex(t *testing.T) {
	col := newCollection(t)

	name, err := col.CreateIndex(storage.IndexSpec{
		Name:   "name_1",
		Keys:   []storage.IndexKey{{Field: "name", Direction: int32(1)}},
		Unique: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "name_1", name)

	assert.Len(t, col.Indexes(), 1)

	require.NoError(t, col.DropIndex("name_1"))
	assert.Empty(t, col.Indexes())

	err = col.DropIndex("missing")
	assert.Error(t, err)
}

func TestRenameCollection(t *testing.T) {
	ctx := context.Background()
	client := docdb.NewClient(nil, nil)
	db := client.Database("test")
	col := db.Collection("old")

	_, err := col.InsertOne(ctx, bson.D{{Key: "_id", Value: int32(1)}})
	require.NoError(t, err)

	require.NoError(t, col.Rename("new"))
	assert.Equal(t, "new", col.Name())

	assert.Contains(t, db.ListCollections(), "new")
	assert.NotContains(t, db.ListCollections(), "old")

	doc, err := col.FindOne(ctx, bson.D{{Key: "_id", Value: int32(1)}})
	require.NoError(t, err)
	require.NotNil(t, doc)
}

func TestAggregateSharesMetricsAcrossCalls(t *testing.T) {
	ctx := context.Background()

	m := metrics.New()
	client := docdb.NewClient(&docdb.Options{Metrics: m}, nil)
	col := client.Database("test").Collection("widgets")

	_, err := col.InsertOne(ctx, bson.D{{Key: "_id", Value: int32(1)}})
	require.NoError(t, err)

	_, err = col.Aggregate(ctx, bson.A{bson.D{{Key: "$count", Value: "total"}}}, nil)
	require.NoError(t, err)

	_, err = col.Aggregate(ctx, bson.A{bson.D{{Key: "$count", Value: "total"}}}, nil)
	require.NoError(t, err)

	var mf dto.Metric
	require.NoError(t, m.DocsIn.WithLabelValues("$count").Write(&mf))
	assert.Equal(t, float64(2), mf.GetCounter().GetValue())
}

func TestDatabaseStats(t *testing.T) {
	ctx := context.Background()
	client := docdb.NewClient(nil, nil)
	db := client.Database("stats_db")
	col := db.Collection("items")

	_, err := col.InsertOne(ctx, bson.D{{Key: "_id", Value: int32(1)}})
	require.NoError(t, err)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Collections)
	assert.Equal(t, int64(1), stats.Objects)
}
