package docdb

import "github.com/docbase/docbase/internal/metrics"

// Options carries client-wide defaults, mirroring the teacher's options
// idiom: every field is an optional pointer set via AlekSi/pointer.To so
// zero-value ambiguity (0 vs "unset") never leaks into behavior.
type Options struct {
	// AppName is advisory only; it is attached to log lines.
	AppName *string

	// Metrics, if set, is shared across every Database/Collection/
	// Aggregate call made through this Client, so pipeline-stage metrics
	// accumulate into one registry for the Client's whole lifetime. Nil
	// disables instrumentation (every PipelineMetrics method is nil-safe).
	Metrics *metrics.PipelineMetrics
}

// FindOptions configures Collection.Find / FindOne.
type FindOptions struct {
	Sort       any // bson.D, resolved the same way $sort resolves its spec
	Limit      *int64
	Skip       *int64
	Projection any // bson.D, resolved the same way $project resolves its spec
}

// AggregateOptions configures Collection.Aggregate.
type AggregateOptions struct {
	// AllowDiskUse has no effect (the engine is always in-memory); it
	// is accepted for call-site compatibility only.
	AllowDiskUse *bool
	BatchSize    *int32
	MaxTimeMS    *int64
}

// UpdateOptions configures UpdateOne / UpdateMany.
type UpdateOptions struct {
	Upsert *bool
}

// CountOptions configures CountDocuments.
type CountOptions struct {
	Limit *int64
	Skip  *int64
}
