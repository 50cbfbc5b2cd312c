// Package nstrace wraps OpenTelemetry span creation for the engine's
// per-iteration and per-batch boundaries, following the teacher's emit/otel
// helper: a thin struct around a trace.Tracer with one method per span
// kind, so call sites stay one line.
package nstrace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer emits spans for engine-level operations. A nil *Tracer is valid
// and yields a no-op trace.Tracer, so wiring a tracer into the engine is
// optional.
type Tracer struct {
	tracer trace.Tracer
}

// New wraps a trace.TracerProvider's "ns" tracer. Pass
// otel.GetTracerProvider() for the global provider or a test provider from
// the SDK.
func New(tp trace.TracerProvider) *Tracer {
	if tp == nil {
		return &Tracer{tracer: trace.NewNoopTracerProvider().Tracer("ns")}
	}
	return &Tracer{tracer: tp.Tracer("ns")}
}

// Iteration starts a span covering one full nested sampling iteration.
func (t *Tracer) Iteration(ctx context.Context, iteration int) (context.Context, trace.Span) {
	tr := t.tracerOrNoop()
	return tr.Start(ctx, "ns.iteration", trace.WithAttributes(attribute.Int("ns.iteration", iteration)))
}

// WalkBatch starts a span covering one dispatched batch of walks.
func (t *Tracer) WalkBatch(ctx context.Context, batchSize int) (context.Context, trace.Span) {
	tr := t.tracerOrNoop()
	return tr.Start(ctx, "ns.iteration.dispatch", trace.WithAttributes(attribute.Int("ns.batch_size", batchSize)))
}

// End records err on span, if any, and closes it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *Tracer) tracerOrNoop() trace.Tracer {
	if t == nil || t.tracer == nil {
		return trace.NewNoopTracerProvider().Tracer("ns")
	}
	return t.tracer
}
