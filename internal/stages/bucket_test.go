package stages_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/types"
)

// TestBucketedScores is spec's scenario 3: explicit-boundary $bucket.
func TestBucketedScores(t *testing.T) {
	scores := []int32{15, 25, 35, 45, 55, 65, 75, 85, 95}

	docs := make([]*types.Document, len(scores))
	for i, s := range scores {
		docs[i] = mustDoc(t, "score", s)
	}

	pipeline := mustArr(t, mustDoc(t, "$bucket", mustDoc(t,
		"groupBy", "$score",
		"boundaries", mustArr(t, int32(0), int32(30), int32(60), int32(90), int32(100)),
		"default", "other",
		"output", mustDoc(t, "count", mustDoc(t, "$sum", int32(1))),
	)))

	results := runPipeline(t, newTestContext(), pipeline, docs)
	require.Len(t, results, 4)

	wantIDs := []int32{0, 30, 60, 90}
	wantCounts := []int32{2, 3, 3, 1}

	for i := range wantIDs {
		id, _ := results[i].Get("_id")
		assert.Equal(t, wantIDs[i], id)

		count, _ := results[i].Get("count")
		assert.Equal(t, wantCounts[i], count)
	}
}
