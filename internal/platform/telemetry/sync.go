package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Sync outcomes recorded on quotebook.sync.runs.
const (
	SyncOutcomeUpdated  = "updated"
	SyncOutcomeUpToDate = "up_to_date"
	SyncOutcomeFailed   = "failed"
	SyncOutcomeShared   = "shared"
)

// SyncMetrics holds the instruments the sync loop reports to.
type SyncMetrics struct {
	runs        metric.Int64Counter
	quotesAdded metric.Int64Counter
	postFailed  metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewSyncMetrics creates sync instruments on the global meter.
func NewSyncMetrics() (*SyncMetrics, error) {
	meter := otel.Meter(instrumentationName)

	runs, err := meter.Int64Counter(
		"quotebook.sync.runs",
		metric.WithDescription("Sync cycles by outcome"),
	)
	if err != nil {
		return nil, err
	}

	quotesAdded, err := meter.Int64Counter(
		"quotebook.sync.quotes_added",
		metric.WithDescription("Remote quotes merged into the local store"),
	)
	if err != nil {
		return nil, err
	}

	postFailed, err := meter.Int64Counter(
		"quotebook.sync.post_failures",
		metric.WithDescription("Failed uploads of the latest local quote"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"quotebook.sync.duration",
		metric.WithDescription("Sync cycle duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		runs:        runs,
		quotesAdded: quotesAdded,
		postFailed:  postFailed,
		duration:    duration,
	}, nil
}

// RecordRun records one finished sync cycle. A nil receiver is a no-op.
func (m *SyncMetrics) RecordRun(ctx context.Context, outcome string, added int, seconds float64) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.runs.Add(ctx, 1, attrs)
	m.duration.Record(ctx, seconds, attrs)

	if added > 0 {
		m.quotesAdded.Add(ctx, int64(added))
	}
}

// RecordPostFailure counts a failed upload. A nil receiver is a no-op.
func (m *SyncMetrics) RecordPostFailure(ctx context.Context) {
	if m == nil {
		return
	}

	m.postFailed.Add(ctx, 1)
}

// Tracer returns the quotebook tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
