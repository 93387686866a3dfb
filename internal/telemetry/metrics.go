package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ToolCallOutcome is the result of a tool call as recorded in metrics.
type ToolCallOutcome string

const (
	ToolCallOutcomeSuccess ToolCallOutcome = "success"
	ToolCallOutcomeError   ToolCallOutcome = "error"
)

// CustomMetrics records the adapter's domain metrics.
// Implementations must be safe for concurrent use, they are shared by all sessions.
type CustomMetrics interface {
	// RecordToolCall records one tool invocation, its outcome, error kind (empty on success) and latency.
	RecordToolCall(ctx context.Context, toolName string, outcome ToolCallOutcome, errorKind string, elapsed time.Duration)
	// RecordResourceRead records one resource read. rule is the routing rule that matched, eg- "list" or "unknown".
	RecordResourceRead(ctx context.Context, rule string, elapsed time.Duration)
	SessionOpened(ctx context.Context, transport string)
	SessionClosed(ctx context.Context, transport string)
}

type otelCustomMetrics struct {
	toolCalls       metric.Int64Counter
	toolLatency     metric.Float64Histogram
	resourceReads   metric.Int64Counter
	resourceLatency metric.Float64Histogram
	activeSessions  metric.Int64UpDownCounter
	sessionsTotal   metric.Int64Counter
}

// NewOtelCustomMetrics creates the metric instruments on the given meter.
func NewOtelCustomMetrics(meter metric.Meter) (CustomMetrics, error) {
	m := &otelCustomMetrics{}
	var err error

	m.toolCalls, err = meter.Int64Counter(
		"taskmcp_tool_calls_total",
		metric.WithDescription("Number of tool calls handled by the adapter"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool calls counter: %w", err)
	}

	m.toolLatency, err = meter.Float64Histogram(
		"taskmcp_tool_call_duration_seconds",
		metric.WithDescription("Latency of tool calls, including the backend round trip"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool latency histogram: %w", err)
	}

	m.resourceReads, err = meter.Int64Counter(
		"taskmcp_resource_reads_total",
		metric.WithDescription("Number of resource reads handled by the adapter"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource reads counter: %w", err)
	}

	m.resourceLatency, err = meter.Float64Histogram(
		"taskmcp_resource_read_duration_seconds",
		metric.WithDescription("Latency of resource reads"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource latency histogram: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"taskmcp_active_sessions",
		metric.WithDescription("Number of currently connected MCP sessions"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active sessions counter: %w", err)
	}

	m.sessionsTotal, err = meter.Int64Counter(
		"taskmcp_sessions_total",
		metric.WithDescription("Number of MCP sessions opened since start"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions counter: %w", err)
	}

	return m, nil
}

func (m *otelCustomMetrics) RecordToolCall(
	ctx context.Context, toolName string, outcome ToolCallOutcome, errorKind string, elapsed time.Duration,
) {
	attrs := metric.WithAttributes(
		attribute.String("tool_name", toolName),
		attribute.String("outcome", string(outcome)),
		attribute.String("error_kind", errorKind),
	)
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolLatency.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *otelCustomMetrics) RecordResourceRead(ctx context.Context, rule string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("rule", rule))
	m.resourceReads.Add(ctx, 1, attrs)
	m.resourceLatency.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *otelCustomMetrics) SessionOpened(ctx context.Context, transport string) {
	attrs := metric.WithAttributes(attribute.String("transport", transport))
	m.activeSessions.Add(ctx, 1, attrs)
	m.sessionsTotal.Add(ctx, 1, attrs)
}

func (m *otelCustomMetrics) SessionClosed(ctx context.Context, transport string) {
	m.activeSessions.Add(ctx, -1, metric.WithAttributes(attribute.String("transport", transport)))
}

type noopCustomMetrics struct{}

// NewNoopCustomMetrics returns a CustomMetrics that records nothing.
// It is used when telemetry is disabled so callers never need a nil check.
func NewNoopCustomMetrics() CustomMetrics {
	return noopCustomMetrics{}
}

func (noopCustomMetrics) RecordToolCall(context.Context, string, ToolCallOutcome, string, time.Duration) {
}

func (noopCustomMetrics) RecordResourceRead(context.Context, string, time.Duration) {}

func (noopCustomMetrics) SessionOpened(context.Context, string) {}

func (noopCustomMetrics) SessionClosed(context.Context, string) {}
