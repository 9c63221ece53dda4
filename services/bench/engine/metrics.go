// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for engine operations.
var (
	tracer = otel.Tracer("enginebench.engine")
	meter  = otel.Meter("enginebench.engine")
)

// Metrics for engine operations.
var (
	searchLatency metric.Float64Histogram
	searchTotal   metric.Int64Counter
	searchNodes   metric.Int64Histogram
	engineSpawns  metric.Int64Counter
	skippedLines  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		searchLatency, err = meter.Float64Histogram(
			"engine_search_duration_seconds",
			metric.WithDescription("Wall-clock duration of engine searches"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		searchTotal, err = meter.Int64Counter(
			"engine_search_total",
			metric.WithDescription("Total number of engine searches"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		searchNodes, err = meter.Int64Histogram(
			"engine_search_nodes",
			metric.WithDescription("Nodes reported per engine search"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		engineSpawns, err = meter.Int64Counter(
			"engine_spawns_total",
			metric.WithDescription("Total number of engine process spawns"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		skippedLines, err = meter.Int64Counter(
			"engine_skipped_lines_total",
			metric.WithDescription("Engine output lines skipped as malformed"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startSearchSpan creates a span for one search.
func startSearchSpan(ctx context.Context, engine, pos string, depth int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Driver.Search",
		trace.WithAttributes(
			attribute.String("engine.path", engine),
			attribute.String("engine.position", pos),
			attribute.Int("engine.depth", depth),
		),
	)
}

// setSearchSpanResult sets the result attributes on a search span.
func setSearchSpanResult(span trace.Span, nodes uint64, success bool) {
	span.SetAttributes(
		attribute.Int64("engine.nodes", int64(nodes)),
		attribute.Bool("engine.success", success),
	)
}

// recordSearchMetrics records metrics for one search.
func recordSearchMetrics(ctx context.Context, engine string, duration time.Duration, nodes uint64, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("engine", engine),
		attribute.Bool("success", success),
	)

	searchLatency.Record(ctx, duration.Seconds(), attrs)
	searchTotal.Add(ctx, 1, attrs)

	if success {
		searchNodes.Record(ctx, int64(nodes), metric.WithAttributes(
			attribute.String("engine", engine),
		))
	}
}

// recordEngineSpawn records an engine spawn attempt.
func recordEngineSpawn(ctx context.Context, engine string, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	engineSpawns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("engine", engine),
		attribute.Bool("success", success),
	))
}

// recordSkippedLine records a malformed output line.
func recordSkippedLine(ctx context.Context, engine string) {
	if err := initMetrics(); err != nil {
		return
	}
	skippedLines.Add(ctx, 1, metric.WithAttributes(
		attribute.String("engine", engine),
	))
}
