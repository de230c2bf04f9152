// Package observability provides lightweight instrumentation hooks for the
// recovery pipeline: structured logging via log/slog and OpenTelemetry
// metric API counters. Only the API is used; exporter and SDK wiring is
// the embedding application's concern.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Recorder records serialize/deserialize outcomes. A nil *Recorder is valid
// and records nothing, so callers never have to branch.
type Recorder struct {
	logger *slog.Logger
	tracer trace.Tracer

	serialized metric.Int64Counter
	recovered  metric.Int64Counter
	failures   metric.Int64Counter
}

// NewRecorder builds a recorder against the global otel providers. A nil
// logger falls back to slog.Default.
func NewRecorder(name string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	meter := otel.Meter(name)

	serialized, err := meter.Int64Counter("recovery.values.serialized",
		metric.WithDescription("State values serialized into recovery tokens"))
	if err != nil {
		return nil, fmt.Errorf("observability: serialized counter: %w", err)
	}
	recovered, err := meter.Int64Counter("recovery.values.recovered",
		metric.WithDescription("State values recovered from client tokens"))
	if err != nil {
		return nil, fmt.Errorf("observability: recovered counter: %w", err)
	}
	failures, err := meter.Int64Counter("recovery.failures",
		metric.WithDescription("Recovery failures by class"))
	if err != nil {
		return nil, fmt.Errorf("observability: failures counter: %w", err)
	}

	return &Recorder{
		logger:     logger,
		tracer:     otel.Tracer(name),
		serialized: serialized,
		recovered:  recovered,
		failures:   failures,
	}, nil
}

// Serialized records n values serialized in one batch.
func (r *Recorder) Serialized(ctx context.Context, n int) {
	if r == nil {
		return
	}
	r.serialized.Add(ctx, int64(n))
}

// Recovered records n values recovered in one batch.
func (r *Recorder) Recovered(ctx context.Context, n int) {
	if r == nil {
		return
	}
	r.recovered.Add(ctx, int64(n))
}

// Failure records one failed batch. class is the taxonomy name, e.g.
// "signature_mismatch"; name is the state key that triggered the abort.
func (r *Recorder) Failure(ctx context.Context, class, name string) {
	if r == nil {
		return
	}
	r.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("class", class)))
	r.logger.Warn("state recovery failed", "class", class, "key", name)
}

// Tracer exposes the tracer for callers that span larger recovery flows.
func (r *Recorder) Tracer() trace.Tracer {
	if r == nil {
		return otel.Tracer("liveview/recovery")
	}
	return r.tracer
}
