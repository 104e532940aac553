package bsonconv_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/docbase/docbase/internal/bsonconv"
	"github.com/docbase/docbase/internal/types"
)

func TestToValueDocument(t *testing.T) {
	oid := primitive.NewObjectID()

	d := bson.D{
		{Key: "_id", Value: oid},
		{Key: "name", Value: "ferret"},
		{Key: "count", Value: int32(3)},
		{Key: "tags", Value: bson.A{"a", "b"}},
		{Key: "missing", Value: nil},
	}

	v, err := bsonconv.ToValue(d)
	require.NoError(t, err)

	doc, ok := v.(*types.Document)
	require.True(t, ok)

	id, ok := doc.Get("_id")
	require.True(t, ok)
	assert.Equal(t, types.ObjectID(oid), id)

	name, _ := doc.Get("name")
	assert.Equal(t, "ferret", name)

	tags, ok := doc.Get("tags")
	require.True(t, ok)
	arr, ok := tags.(*types.Array)
	require.True(t, ok)
	assert.Equal(t, 2, arr.Len())

	null, ok := doc.Get("missing")
	require.True(t, ok)
	assert.Equal(t, types.Null, null)
}

func TestFromValueRoundTrip(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	doc := types.MakeDocument(2)
	doc.Set("when", types.NewDateTime(now))
	doc.Set("n", int64(42))

	raw, err := bsonconv.FromValue(doc)
	require.NoError(t, err)

	d, ok := raw.(bson.D)
	require.True(t, ok)
	require.Len(t, d, 2)

	assert.Equal(t, "when", d[0].Key)
	dt, ok := d[0].Value.(primitive.DateTime)
	require.True(t, ok)
	assert.True(t, dt.Time().Equal(now))

	assert.Equal(t, "n", d[1].Key)
	assert.Equal(t, int64(42), d[1].Value)
}

func TestToPipeline(t *testing.T) {
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{{Key: "x", Value: int32(1)}}}},
		bson.D{{Key: "$limit", Value: int32(5)}},
	}

	arr, err := bsonconv.ToPipeline(pipeline)
	require.NoError(t, err)
	assert.Equal(t, 2, arr.Len())
}

func TestToValueUnsupportedType(t *testing.T) {
	_, err := bsonconv.ToValue(struct{ X int }{X: 1})
	assert.Error(t, err)
}
