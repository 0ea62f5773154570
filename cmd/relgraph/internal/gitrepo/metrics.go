// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gitrepo

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("relgraph.git")
	meter  = otel.Meter("relgraph.git")
)

var (
	commandLatency metric.Float64Histogram
	commandTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		commandLatency, err = meter.Float64Histogram(
			"relgraph_git_command_duration_seconds",
			metric.WithDescription("Duration of git subprocess invocations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		commandTotal, err = meter.Int64Counter(
			"relgraph_git_command_total",
			metric.WithDescription("Total number of git subprocess invocations"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startCommandSpan(ctx context.Context, subcommand, root string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "gitrepo.run",
		trace.WithAttributes(
			attribute.String("git.subcommand", subcommand),
			attribute.String("git.root", root),
		),
	)
}

func recordCommand(ctx context.Context, subcommand string, d time.Duration, exitCode int) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("subcommand", subcommand),
		attribute.Bool("success", exitCode == 0),
	)
	commandLatency.Record(ctx, d.Seconds(), attrs)
	commandTotal.Add(ctx, 1, attrs)
}
