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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordingTracer(t *testing.T, enabled bool) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewTracerWithProvider(tp, nil, ObservabilityConfig{TracingEnabled: enabled}), recorder
}

func spanNames(spans []sdktrace.ReadOnlySpan) []string {
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name()
	}
	return names
}

func attr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracer_AutoRun(t *testing.T) {
	tracer, recorder := recordingTracer(t, true)
	w := chainWorld(5)

	auto, err := NewAutoProver(w.heuristic(), AutoProverConfig{Cut: CutDFS}, sequentialCutter().WithTracer(tracer))
	require.NoError(t, err)
	auto.WithTracer(tracer)

	_, err = auto.Run(context.Background(), w, 0, "")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Equal(t, []string{"prover.cut.dfs", "prover.auto"}, spanNames(spans))

	cut := spans[0]
	assert.Equal(t, spans[1].SpanContext().SpanID(), cut.Parent().SpanID())
	require.Len(t, cut.Events(), 2, "one event per deepening round")
	assert.Equal(t, "prover.cut.round", cut.Events()[0].Name)
	outcome, ok := attr(cut, "prover.cut.outcome")
	require.True(t, ok)
	assert.Equal(t, outcomeWitness, outcome.AsString())

	run := spans[1]
	assert.Equal(t, codes.Ok, run.Status().Code)
	status, ok := attr(run, "prover.status")
	require.True(t, ok)
	assert.Equal(t, "trace_found", status.AsString())
}

func TestTracer_Cancelled(t *testing.T) {
	tracer, recorder := recordingTracer(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sequentialCutter().WithTracer(tracer).BFS(ctx, generate(chainWorld(-1), ""))
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTracer_Disabled(t *testing.T) {
	tracer, recorder := recordingTracer(t, false)

	ctx, span := tracer.StartCut(context.Background(), CutBFS)
	tracer.TraceRound(ctx, CutBFS, 0, outcomeIncomplete)
	tracer.EndCut(span, outcomeNoWitness, nil)

	assert.Empty(t, recorder.Ended())
	assert.False(t, span.SpanContext().IsValid())
}

func TestLoggerWithTrace(t *testing.T) {
	tracer, _ := recordingTracer(t, true)
	base := disabledTracer().logger

	assert.Same(t, base, LoggerWithTrace(context.Background(), base))

	ctx, span := tracer.StartCut(context.Background(), CutDFS)
	defer span.End()
	assert.NotSame(t, base, LoggerWithTrace(ctx, base))
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
}
