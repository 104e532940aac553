package stages_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/types"
)

func day(t *testing.T, y, m, d int) types.DateTime {
	t.Helper()
	return types.NewDateTime(time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC))
}

// TestSetWindowFieldsRunningTotal is spec's scenario 2: an unbounded-to-
// current documents window computing a running $sum.
func TestSetWindowFieldsRunningTotal(t *testing.T) {
	docs := []*types.Document{
		mustDoc(t, "d", day(t, 2023, 1, 1), "v", int32(10)),
		mustDoc(t, "d", day(t, 2023, 1, 2), "v", int32(20)),
		mustDoc(t, "d", day(t, 2023, 1, 3), "v", int32(15)),
		mustDoc(t, "d", day(t, 2023, 1, 4), "v", int32(25)),
	}

	pipeline := mustArr(t,
		mustDoc(t, "$sort", mustDoc(t, "d", int32(1))),
		mustDoc(t, "$setWindowFields", mustDoc(t,
			"sortBy", mustDoc(t, "d", int32(1)),
			"output", mustDoc(t, "runningTotal", mustDoc(t,
				"$sum", "$v",
				"window", mustDoc(t, "documents", mustArr(t, "unbounded", "current")),
			)),
		)),
	)

	results := runPipeline(t, newTestContext(), pipeline, docs)
	require.Len(t, results, 4)

	want := []int32{10, 30, 45, 70}
	for i, w := range want {
		got, ok := results[i].Get("runningTotal")
		require.True(t, ok)
		assert.Equal(t, w, got)
	}
}

// TestSetWindowFieldsRangeWindow exercises a numeric range window: the
// window for each document spans sortKey-10 .. sortKey, distinct from a
// documents window over the same bounds.
func TestSetWindowFieldsRangeWindow(t *testing.T) {
	docs := []*types.Document{
		mustDoc(t, "score", int32(0), "v", int32(1)),
		mustDoc(t, "score", int32(5), "v", int32(2)),
		mustDoc(t, "score", int32(20), "v", int32(4)),
		mustDoc(t, "score", int32(21), "v", int32(8)),
	}

	pipeline := mustArr(t,
		mustDoc(t, "$sort", mustDoc(t, "score", int32(1))),
		mustDoc(t, "$setWindowFields", mustDoc(t,
			"sortBy", mustDoc(t, "score", int32(1)),
			"output", mustDoc(t, "windowSum", mustDoc(t,
				"$sum", "$v",
				"window", mustDoc(t, "range", mustArr(t, int32(-10), int32(0))),
			)),
		)),
	)

	results := runPipeline(t, newTestContext(), pipeline, docs)
	require.Len(t, results, 4)

	// score=0: window [-10,0] -> just itself -> 1
	v0, _ := results[0].Get("windowSum")
	assert.Equal(t, int32(1), v0)

	// score=5: window [-5,5] -> scores 0 and 5 -> 1+2=3
	v1, _ := results[1].Get("windowSum")
	assert.Equal(t, int32(3), v1)

	// score=20: window [10,20] -> just score 20 -> 4
	v2, _ := results[2].Get("windowSum")
	assert.Equal(t, int32(4), v2)

	// score=21: window [11,21] -> scores 20 and 21 -> 4+8=12
	v3, _ := results[3].Get("windowSum")
	assert.Equal(t, int32(12), v3)
}

// TestSetWindowFieldsDerivativeRespectsWindow checks that $derivative is
// computed over each document's own bounded window, not the whole
// partition -- a documents window of [-1, current] should yield a
// different slope per row.
func TestSetWindowFieldsDerivativeRespectsWindow(t *testing.T) {
	docs := []*types.Document{
		mustDoc(t, "x", int32(0), "v", int32(10)),
		mustDoc(t, "x", int32(1), "v", int32(20)),
		mustDoc(t, "x", int32(2), "v", int32(40)),
		mustDoc(t, "x", int32(3), "v", int32(70)),
	}

	pipeline := mustArr(t,
		mustDoc(t, "$sort", mustDoc(t, "x", int32(1))),
		mustDoc(t, "$setWindowFields", mustDoc(t,
			"sortBy", mustDoc(t, "x", int32(1)),
			"output", mustDoc(t, "slope", mustDoc(t,
				"$derivative", "$v",
				"window", mustDoc(t, "documents", mustArr(t, int32(-1), "current")),
			)),
		)),
	)

	results := runPipeline(t, newTestContext(), pipeline, docs)
	require.Len(t, results, 4)

	want := []float64{0, 10, 20, 30}
	for i, w := range want {
		got, ok := results[i].Get("slope")
		require.True(t, ok)
		assert.Equal(t, w, got)
	}
}
