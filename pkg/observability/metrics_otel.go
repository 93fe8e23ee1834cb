package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry metric instruments for the click pipeline.
// Prometheus stays the primary metrics surface; these instruments mirror the
// click-path counters to OTLP for environments running a collector.
type OTelMetrics struct {
	clicksTotal        metric.Int64Counter
	navigationHold     metric.Float64Histogram
	gaReportsTotal     metric.Int64Counter
	clickInsertsTotal  metric.Int64Counter
}

// NewOTelMetrics creates a new OTel metrics instance
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/shoshosho1210/coinrader")

	m := &OTelMetrics{}
	var err error

	m.clicksTotal, err = meter.Int64Counter(
		"clicks.recorded",
		metric.WithDescription("Total number of classified clicks received"),
		metric.WithUnit("{click}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create clicks_recorded counter: %w", err)
	}

	m.navigationHold, err = meter.Float64Histogram(
		"clicks.navigation_hold.duration",
		metric.WithDescription("Time collect responses were held waiting for analytics confirmation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create navigation_hold histogram: %w", err)
	}

	m.gaReportsTotal, err = meter.Int64Counter(
		"ga.reports",
		metric.WithDescription("Total number of GA measurement protocol reports"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ga_reports counter: %w", err)
	}

	m.clickInsertsTotal, err = meter.Int64Counter(
		"clicks.inserts",
		metric.WithDescription("Total number of click event insert attempts"),
		metric.WithUnit("{insert}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create click_inserts counter: %w", err)
	}

	return m, nil
}

// RecordClick records a classified click
func (m *OTelMetrics) RecordClick(ctx context.Context, category string) {
	m.clicksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("click.category", category),
	))
}

// RecordNavigationHold records how long a collect response was held and
// whether the hold ended on confirmation or on the timeout
func (m *OTelMetrics) RecordNavigationHold(ctx context.Context, duration time.Duration, outcome string) {
	m.navigationHold.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("hold.outcome", outcome),
	))
}

// RecordGAReport records a GA forwarding outcome
func (m *OTelMetrics) RecordGAReport(ctx context.Context, mode, status string) {
	m.gaReportsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("ga.mode", mode),
		attribute.String("ga.status", status),
	))
}

// RecordClickInsert records a click event insert attempt
func (m *OTelMetrics) RecordClickInsert(ctx context.Context, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.clickInsertsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("insert.status", status),
	))
}
