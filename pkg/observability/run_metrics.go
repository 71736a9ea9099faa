package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricReportsTotal      = "testfang.reports.total"
	metricTestCasesTotal    = "testfang.testcases.total"
	metricUnresolvedTotal   = "testfang.testcases.unresolved.total"
	metricStageDuration     = "testfang.stage.duration.seconds"
	metricIndexedClassTotal = "testfang.index.classes.total"

	attrStage  = "stage"
	attrResult = "result"
	attrTable  = "table"

	// ReportParsed and ReportSkipped label the reports counter.
	ReportParsed  = "parsed"
	ReportSkipped = "skipped"
)

// stageBucketBoundaries covers 1ms to 5 minutes.
var stageBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

// RunMetrics holds the OTel instruments recorded by a sensor run.
type RunMetrics struct {
	reports       metric.Int64Counter
	testCases     metric.Int64Counter
	unresolved    metric.Int64Counter
	stageDuration metric.Float64Histogram
	indexed       metric.Int64Counter
}

// NewRunMetrics creates the instruments from mt.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	reports, err := mt.Int64Counter(metricReportsTotal,
		metric.WithDescription("Reports processed by result"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricReportsTotal, err)
	}

	cases, err := mt.Int64Counter(metricTestCasesTotal,
		metric.WithDescription("Test cases parsed"),
		metric.WithUnit("{testcase}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTestCasesTotal, err)
	}

	unresolved, err := mt.Int64Counter(metricUnresolvedTotal,
		metric.WithDescription("Test cases not attributed to any source unit"),
		metric.WithUnit("{testcase}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricUnresolvedTotal, err)
	}

	stage, err := mt.Float64Histogram(metricStageDuration,
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStageDuration, err)
	}

	indexed, err := mt.Int64Counter(metricIndexedClassTotal,
		metric.WithDescription("Class names entered into the source index"),
		metric.WithUnit("{class}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricIndexedClassTotal, err)
	}

	return &RunMetrics{
		reports:       reports,
		testCases:     cases,
		unresolved:    unresolved,
		stageDuration: stage,
		indexed:       indexed,
	}, nil
}

// RecordReport counts one report with result ReportParsed or ReportSkipped.
// All Record methods are no-ops on a nil receiver.
func (rm *RunMetrics) RecordReport(ctx context.Context, result string, cases int) {
	if rm == nil {
		return
	}

	rm.reports.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
	rm.testCases.Add(ctx, int64(cases))
}

// RecordUnresolved counts test cases dropped from detailed attribution.
func (rm *RunMetrics) RecordUnresolved(ctx context.Context, n int) {
	if rm == nil || n == 0 {
		return
	}

	rm.unresolved.Add(ctx, int64(n))
}

// RecordIndex counts the declaration and implementation table sizes.
func (rm *RunMetrics) RecordIndex(ctx context.Context, decl, impl int) {
	if rm == nil {
		return
	}

	rm.indexed.Add(ctx, int64(decl), metric.WithAttributes(attribute.String(attrTable, "decl")))
	rm.indexed.Add(ctx, int64(impl), metric.WithAttributes(attribute.String(attrTable, "impl")))
}

// RecordStage records how long a pipeline stage took.
func (rm *RunMetrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	if rm == nil {
		return
	}

	rm.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(attrStage, stage)))
}
