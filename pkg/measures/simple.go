package measures

import (
	"log/slog"
	"math"
	"time"

	"github.com/Sumatoshi-tech/testfang/pkg/xunit"
)

// Counts are the outcome totals of a set of test cases.
type Counts struct {
	Total    int
	Skipped  int
	Errors   int
	Failures int
	Time     time.Duration
}

// Count tallies cases. Time includes skipped cases.
func Count(cases []xunit.TestCase) Counts {
	var c Counts

	for _, tc := range cases {
		c.add(tc)
	}

	return c
}

func (c *Counts) add(tc xunit.TestCase) {
	c.Total++
	c.Time += tc.Time

	switch tc.Status {
	case xunit.StatusSkipped:
		c.Skipped++
	case xunit.StatusFailure:
		c.Failures++
	case xunit.StatusError:
		c.Errors++
	case xunit.StatusPassed:
	}
}

// Run is the number of executed cases.
func (c Counts) Run() int { return c.Total - c.Skipped }

// Passed is the number of executed cases without error or failure.
func (c Counts) Passed() int { return c.Run() - c.Errors - c.Failures }

// SuccessDensity returns passed*100/run rounded half up to one decimal.
// It reports false when no case was executed.
func (c Counts) SuccessDensity() (float64, bool) {
	run := c.Run()
	if run <= 0 {
		return 0, false
	}

	return scale(float64(c.Passed()) * 100 / float64(run)), true
}

func scale(v float64) float64 {
	const factor = 10

	return math.Floor(v*factor+0.5) / factor
}

// Millis converts a duration to whole milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

func (c Counts) measures() []Measure {
	out := []Measure{
		{Metric: Tests, Value: float64(c.Run())},
		{Metric: SkippedTests, Value: float64(c.Skipped)},
		{Metric: TestErrors, Value: float64(c.Errors)},
		{Metric: TestFailures, Value: float64(c.Failures)},
		{Metric: TestExecutionTime, Value: Millis(c.Time)},
	}

	if density, ok := c.SuccessDensity(); ok {
		out = append(out, Measure{Metric: TestSuccessDensity, Value: density})
	}

	return out
}

// Simple computes the project record. When no test case was executed it
// returns false and nothing should be saved.
func Simple(cases []xunit.TestCase, logger *slog.Logger) (Record, bool) {
	if logger == nil {
		logger = slog.Default()
	}

	counts := Count(cases)
	if counts.Run() == 0 {
		logger.Info("no executed test cases, skipping project measures",
			"total", counts.Total, "skipped", counts.Skipped)

		return Record{}, false
	}

	return Record{Measures: counts.measures()}, true
}
