package middleware

import (
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records request counts, latency and response sizes.
type Metrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// NewMetrics registers the HTTP server instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	var m Metrics
	var errs [4]error
	m.duration, errs[0] = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests"),
		metric.WithUnit("s"),
	)
	m.requests, errs[1] = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("HTTP server requests served"),
		metric.WithUnit("{request}"),
	)
	m.inFlight, errs[2] = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("HTTP server requests being handled"),
		metric.WithUnit("{request}"),
	)
	m.size, errs[3] = meter.Int64Histogram("http.server.response.body.size",
		metric.WithDescription("Size of HTTP response bodies"),
		metric.WithUnit("By"),
	)
	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return &m, nil
}

// Middleware records one observation per request, labelled by route pattern
// rather than path so stop ids stay out of the label set.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			active := metric.WithAttributes(attribute.String("http.request.method", r.Method))
			m.inFlight.Add(ctx, 1, active)
			defer m.inFlight.Add(ctx, -1, active)

			res := serveRecorded(next, w, r)

			labels := metric.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", res.route),
				attribute.Int("http.response.status_code", res.status),
				attribute.Bool("error", res.failed()),
			)
			m.duration.Record(ctx, res.duration.Seconds(), labels)
			m.requests.Add(ctx, 1, labels)
			m.size.Record(ctx, res.bytes, labels)
		})
	}
}
