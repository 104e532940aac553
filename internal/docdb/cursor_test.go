package docdb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/docdb"
	"github.com/docbase/docbase/internal/types"
)

func doc(id int32) *types.Document {
	d := types.MakeDocument(1)
	d.Set("_id", id)

	return d
}

func TestCursorSortLimitSkip(t *testing.T) {
	cur := docdb.NewCursor([]*types.Document{doc(3), doc(1), doc(2)})

	cur.Sort([]docdb.SortKey{{Path: []string{"_id"}, Descending: false}})

	all := cur.All()
	require.Len(t, all, 3)

	ids := make([]int32, len(all))
	for i, d := range all {
		v, _ := d.Get("_id")
		ids[i] = v.(int32)
	}

	assert.Equal(t, []int32{1, 2, 3}, ids)
}

func TestCursorLimitAndSkip(t *testing.T) {
	cur := docdb.NewCursor([]*types.Document{doc(1), doc(2), doc(3), doc(4)})
	cur.Skip(1)
	cur.Limit(2)

	all := cur.All()
	require.Len(t, all, 2)

	v0, _ := all[0].Get("_id")
	v1, _ := all[1].Get("_id")
	assert.Equal(t, int32(2), v0)
	assert.Equal(t, int32(3), v1)
}

func TestCursorHintIsAdvisoryOnly(t *testing.T) {
	cur := docdb.NewCursor([]*types.Document{doc(1)})
	cur.Hint("name_1")

	d, ok := cur.Next()
	require.True(t, ok)

	v, _ := d.Get("_id")
	assert.Equal(t, int32(1), v)
}
