// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prover

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/AleutianAI/AleutianProver/services/prover/proof"
)

const proverTracerName = "aleutian.prover"

// Tracer provides OpenTelemetry tracing for prover runs and cuts.
//
// Thread Safety: Safe for concurrent use.
type Tracer struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	enabled bool
}

// NewTracer creates a new tracer on the global tracer provider.
//
// Inputs:
//   - logger: Logger for structured logging (can be nil for slog.Default()).
//   - config: Observability configuration.
//
// Outputs:
//   - *Tracer: Tracer instance.
func NewTracer(logger *slog.Logger, config ObservabilityConfig) *Tracer {
	return NewTracerWithProvider(otel.GetTracerProvider(), logger, config)
}

// NewTracerWithProvider creates a tracer on an explicit provider.
func NewTracerWithProvider(tp trace.TracerProvider, logger *slog.Logger, config ObservabilityConfig) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracer{
		tracer:  tp.Tracer(proverTracerName),
		logger:  logger,
		enabled: config.TracingEnabled,
	}
}

// disabledTracer is used by components that were given no tracer.
func disabledTracer() *Tracer {
	return &Tracer{tracer: noop.NewTracerProvider().Tracer(proverTracerName), logger: slog.Default()}
}

// StartAuto starts a span for an automatic prover run.
//
// Outputs:
//   - context.Context: Context with span.
//   - trace.Span: The created span (a no-op span if tracing is disabled).
func (t *Tracer) StartAuto(ctx context.Context, config AutoProverConfig, depth int) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	attrs := []attribute.KeyValue{
		attribute.String("prover.heuristic", config.Heuristic),
		attribute.String("prover.cut", string(config.Cut)),
		attribute.Int("prover.depth", depth),
	}
	if config.DepthBound != nil {
		attrs = append(attrs, attribute.Int("prover.depth_bound", *config.DepthBound))
	}
	return t.tracer.Start(ctx, "prover.auto",
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndAuto completes an automatic prover span. status is only recorded when
// known is true.
func (t *Tracer) EndAuto(span trace.Span, status proof.Status, known bool, err error) {
	if known {
		span.SetAttributes(attribute.String("prover.status", status.String()))
	}
	endSpan(span, err)
}

// StartCut starts a span for a cut strategy.
func (t *Tracer) StartCut(ctx context.Context, strategy CutPolicy) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "prover.cut."+string(strategy),
		trace.WithAttributes(attribute.String("prover.cut.strategy", string(strategy))),
	)
}

// TraceRound records a finished round of a cut strategy as a span event.
// bound is the depth cap for iterative deepening and the level for the
// level scan.
func (t *Tracer) TraceRound(ctx context.Context, strategy CutPolicy, bound int, outcome string) {
	cutRoundsTotal.WithLabelValues(string(strategy)).Inc()

	t.logger.DebugContext(ctx, "searching for traces",
		slog.String("strategy", string(strategy)),
		slog.Int("bound", bound),
		slog.String("outcome", outcome),
	)

	if !t.enabled {
		return
	}
	trace.SpanFromContext(ctx).AddEvent("prover.cut.round", trace.WithAttributes(
		attribute.Int("prover.cut.bound", bound),
		attribute.String("prover.cut.outcome", outcome),
	))
}

// EndCut completes a cut span.
func (t *Tracer) EndCut(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("prover.cut.outcome", outcome))
	endSpan(span, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// LoggerWithTrace returns a logger with trace context.
//
// Inputs:
//   - ctx: Context that may contain trace information.
//   - logger: Base logger.
//
// Outputs:
//   - *slog.Logger: Logger with trace_id and span_id if available.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}
