package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ProviderMetrics counts calls made to upstream transit providers.
// A nil *ProviderMetrics records nothing.
type ProviderMetrics struct {
	latency metric.Float64Histogram
	calls   metric.Int64Counter
	records metric.Int64Counter
}

// NewProviderMetrics registers the provider instruments on the global meter provider.
func NewProviderMetrics() (*ProviderMetrics, error) {
	meter := otel.Meter("github.com/busgraph/busgraph/internal/telemetry")

	var m ProviderMetrics
	var errLatency, errCalls, errRecords error
	m.latency, errLatency = meter.Float64Histogram("provider.request.duration",
		metric.WithDescription("Latency of upstream provider calls"),
		metric.WithUnit("s"),
	)
	m.calls, errCalls = meter.Int64Counter("provider.request.total",
		metric.WithDescription("Upstream provider calls"),
		metric.WithUnit("{request}"),
	)
	m.records, errRecords = meter.Int64Counter("provider.records.total",
		metric.WithDescription("Stop points and predictions returned by providers"),
		metric.WithUnit("{record}"),
	)
	if err := errors.Join(errLatency, errCalls, errRecords); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordRequest records one provider call of operation that took d and,
// on success, yielded records items.
func (m *ProviderMetrics) RecordRequest(ctx context.Context, provider, operation string, d time.Duration, records int, err error) {
	if m == nil {
		return
	}

	// counted even when the caller has gone away
	ctx = context.WithoutCancel(ctx)
	labels := metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.Bool("error", err != nil),
	)

	m.latency.Record(ctx, d.Seconds(), labels)
	m.calls.Add(ctx, 1, labels)
	if err == nil {
		m.records.Add(ctx, int64(records), labels)
	}
}
