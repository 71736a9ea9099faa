package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/testfang/pkg/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	providers, err := observability.InitWithWriter(observability.DefaultConfig(), &buf)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	_, span := providers.Tracer.Start(context.Background(), "noop")
	span.End()

	assert.False(t, span.SpanContext().IsValid(), "no-op tracer yields invalid span contexts")

	providers.Logger.Info("hello")
	assert.Contains(t, buf.String(), "service=testfang")
	assert.Contains(t, buf.String(), "mode=cli")
}

func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.Environment = "ci"
	logger := observability.NewLogger(cfg, &buf)

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.WithGroup("run").InfoContext(ctx, "parsing report", "path", "a.xml")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "testfang", record["service"])
	assert.Equal(t, "ci", record["env"])

	group, ok := record["run"].(map[string]any)
	require.True(t, ok, "record attributes stay in their group")
	assert.Equal(t, "a.xml", group["path"])
	assert.NotContains(t, group, "trace_id")
}

func TestTracingHandler_GroupsWithoutSpan(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	logger := observability.NewLogger(cfg, &buf)

	logger.With("stage", "parse").WithGroup("report").Info("parsed", "cases", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "parse", record["stage"])
	assert.NotContains(t, record, "trace_id")

	group, ok := record["report"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 3, group["cases"], 1e-9)
}

func TestTracingHandler_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogLevel = slog.LevelWarn
	logger := observability.NewLogger(cfg, &buf)

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	level, err := observability.ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = observability.ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = observability.ParseLevel("loud")
	require.Error(t, err)
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, map[string]string{"api-key": "abc", "team": "qa"},
		observability.ParseOTLPHeaders("api-key=abc, team = qa,broken"))
	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("novalue"))
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func TestRunMetrics_Record(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	rm, err := observability.NewRunMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	rm.RecordReport(ctx, observability.ReportParsed, 6)
	rm.RecordReport(ctx, observability.ReportSkipped, 0)
	rm.RecordUnresolved(ctx, 2)
	rm.RecordIndex(ctx, 3, 1)
	rm.RecordStage(ctx, "parse", 20*time.Millisecond)

	var data metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &data))

	cases := findMetric(data, "testfang.testcases.total")
	require.NotNil(t, cases)

	sum, ok := cases.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(6), sum.DataPoints[0].Value)

	reports := findMetric(data, "testfang.reports.total")
	require.NotNil(t, reports)

	reportSum, ok := reports.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, reportSum.DataPoints, 2, "one series per result")

	stage := findMetric(data, "testfang.stage.duration.seconds")
	require.NotNil(t, stage)

	hist, ok := stage.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	assert.NotNil(t, findMetric(data, "testfang.testcases.unresolved.total"))
	assert.NotNil(t, findMetric(data, "testfang.index.classes.total"))
}

func TestRunMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var rm *observability.RunMetrics

	rm.RecordReport(context.Background(), observability.ReportParsed, 1)
	rm.RecordUnresolved(context.Background(), 1)
	rm.RecordIndex(context.Background(), 1, 1)
	rm.RecordStage(context.Background(), "parse", time.Second)
}
