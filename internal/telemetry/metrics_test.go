package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestOtelCustomMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := NewOtelCustomMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordToolCall(ctx, "create_task", ToolCallOutcomeSuccess, "", 10*time.Millisecond)
	m.RecordToolCall(ctx, "update_task", ToolCallOutcomeError, "not_found", 5*time.Millisecond)
	m.RecordResourceRead(ctx, "list", time.Millisecond)
	m.SessionOpened(ctx, "stdio")
	m.SessionOpened(ctx, "stdio")
	m.SessionClosed(ctx, "stdio")

	got := collect(t, reader)

	calls, ok := got["taskmcp_tool_calls_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range calls.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)

	active, ok := got["taskmcp_active_sessions"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, active.DataPoints, 1)
	assert.Equal(t, int64(1), active.DataPoints[0].Value)

	_, ok = got["taskmcp_resource_reads_total"]
	assert.True(t, ok)
}

func TestInitDisabled(t *testing.T) {
	p, err := Init(context.Background(), &Config{ServiceName: "taskmcp", Enabled: false})
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NotNil(t, p.Meter)
	assert.NoError(t, p.Shutdown(context.Background()))

	// the noop implementation must be usable without any setup
	NewNoopCustomMetrics().RecordToolCall(context.Background(), "x", ToolCallOutcomeError, "unknown_tool", 0)
}
