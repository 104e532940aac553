// Package metrics provides Pipeline Runtime metrics: documents in/out
// per stage, stage duration, and errors by operator, registered lazily
// so the engine has zero metrics overhead unless a registry is supplied.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "docbase"
	subsystem = "pipeline"
)

// PipelineMetrics is the Collector wrapping every counter/histogram
// the Pipeline Runtime records.
type PipelineMetrics struct {
	DocsIn  *prometheus.CounterVec
	DocsOut *prometheus.CounterVec
	Errors  *prometheus.CounterVec
	Stage   *prometheus.HistogramVec
}

// New creates an unregistered PipelineMetrics; call Register to attach
// it to a prometheus.Registerer.
func New() *PipelineMetrics {
	return &PipelineMetrics{
		DocsIn: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_docs_in_total",
				Help:      "Total number of documents a stage pulled from its upstream iterator.",
			},
			[]string{"stage"},
		),
		DocsOut: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_docs_out_total",
				Help:      "Total number of documents a stage produced downstream.",
			},
			[]string{"stage"},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_errors_total",
				Help:      "Total number of stage evaluation errors, by operator.",
			},
			[]string{"stage", "operator"},
		),
		Stage: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_duration_seconds",
				Help:      "Wall-clock duration of one stage's Process call.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
}

// Describe implements prometheus.Collector.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DocsIn.Describe(ch)
	m.DocsOut.Describe(ch)
	m.Errors.Describe(ch)
	m.Stage.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DocsIn.Collect(ch)
	m.DocsOut.Collect(ch)
	m.Errors.Collect(ch)
	m.Stage.Collect(ch)
}

// Register attaches m to reg. Passing a nil registry is a no-op, so
// callers can always call Register unconditionally.
func (m *PipelineMetrics) Register(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}

	return reg.Register(m)
}

// ObserveStage records one stage's Process-call duration and the
// number of documents it pulled from upstream before returning (exact
// for blocking stages that drain their input inside Process; for
// streaming stages, this reflects only the lookahead Process itself
// performed, not documents pulled later by downstream consumption).
func (m *PipelineMetrics) ObserveStage(stage string, docsIn int, d time.Duration) {
	if m == nil {
		return
	}

	m.DocsIn.WithLabelValues(stage).Add(float64(docsIn))
	m.Stage.WithLabelValues(stage).Observe(d.Seconds())
}

// IncDocsOut records one document a stage emitted downstream. Called
// lazily as the downstream consumer pulls, since a streaming stage's
// true output count isn't known until its iterator is fully drained.
func (m *PipelineMetrics) IncDocsOut(stage string) {
	if m == nil {
		return
	}

	m.DocsOut.WithLabelValues(stage).Inc()
}

// ObserveError records one stage evaluation error attributed to operator.
func (m *PipelineMetrics) ObserveError(stage, operator string) {
	if m == nil {
		return
	}

	m.Errors.WithLabelValues(stage, operator).Inc()
}

var _ prometheus.Collector = (*PipelineMetrics)(nil)
