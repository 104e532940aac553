package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbase/docbase/internal/metrics"
)

func TestObserveStageRecordsDocsInAndDuration(t *testing.T) {
	m := metrics.New()

	m.ObserveStage("$match", 3, 10*time.Millisecond)
	m.IncDocsOut("$match")
	m.IncDocsOut("$match")

	assert.Equal(t, float64(3), counterValue(t, m.DocsIn, "$match"))
	assert.Equal(t, float64(2), counterValue(t, m.DocsOut, "$match"))
}

func TestObserveErrorIncrementsByOperator(t *testing.T) {
	m := metrics.New()

	m.ObserveError("$project", "$add")
	m.ObserveError("$project", "$add")

	var mf dto.Metric
	require.NoError(t, m.Errors.WithLabelValues("$project", "$add").Write(&mf))
	assert.Equal(t, float64(2), mf.GetCounter().GetValue())
}

func TestNilMetricsMethodsAreNoOps(t *testing.T) {
	var m *metrics.PipelineMetrics

	assert.NotPanics(t, func() {
		m.ObserveStage("$match", 1, time.Millisecond)
		m.IncDocsOut("$match")
		m.ObserveError("$match", "")
	})
}

func TestRegisterWithNilRegistererIsNoOp(t *testing.T) {
	m := metrics.New()
	assert.NoError(t, m.Register(nil))
}

func TestRegisterAttachesCollector(t *testing.T) {
	m := metrics.New()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, label string) float64 {
	t.Helper()

	var mf dto.Metric
	require.NoError(t, vec.WithLabelValues(label).Write(&mf))

	return mf.GetCounter().GetValue()
}
