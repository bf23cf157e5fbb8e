package gateway

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type meters struct {
	counter metric.Int64Counter
	hist    metric.Int64Histogram
}

func newMeters() meters {
	meter := otel.Meter(
		"session-client/gateway",
		metric.WithInstrumentationVersion(otel.Version()),
	)

	counter, err := meter.Int64Counter(
		"http.client.request_count",
		metric.WithDescription("Outgoing request count"),
		metric.WithUnit("request"),
	)
	if err != nil {
		counter = noop.Int64Counter{}
	}

	hist, err := meter.Int64Histogram(
		"http.client.duration",
		metric.WithDescription("Outgoing end to end duration"),
		metric.WithUnit("milliseconds"),
	)
	if err != nil {
		hist = noop.Int64Histogram{}
	}

	return meters{counter: counter, hist: hist}
}

// record counts one finished request. status is 0 for transport failures.
func (m meters) record(ctx context.Context, start time.Time, method, capability string, status int) {
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("session.capability", capability),
		attribute.Int("http.response.status_code", status),
	)

	m.counter.Add(ctx, 1, attrs)
	m.hist.Record(ctx, time.Since(start).Milliseconds(), attrs)
}
