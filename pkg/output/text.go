package output

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/testfang/pkg/measures"
	"github.com/Sumatoshi-tech/testfang/pkg/sensor"
)

const (
	densityGood = 90
	densityFair = 70

	projectLabel = "(project)"
)

func writeText(w io.Writer, res sensor.Result, opts Options) error {
	bold := color.New(color.Bold)
	if opts.NoColor {
		bold.DisableColor()
	}

	_, err := bold.Fprintf(w, "%s mode: %s test cases from %s report(s)",
		res.Mode, humanize.Comma(int64(res.TestCases)), humanize.Comma(int64(len(res.Reports))))
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	extra := ""
	if len(res.SkippedReports) > 0 {
		extra += fmt.Sprintf(", %d empty report(s) skipped", len(res.SkippedReports))
	}

	if res.Unresolved > 0 {
		extra += fmt.Sprintf(", %d unresolved test case(s)", res.Unresolved)
	}

	if _, err = fmt.Fprintln(w, extra); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if len(res.Records) == 0 {
		_, err = fmt.Fprintln(w, "No measures.")

		return err
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.AppendHeader(table.Row{"Resource", "Tests", "Skipped", "Errors", "Failures", "Time", "Success"})

	for _, rec := range res.Records {
		name := rec.Resource
		if rec.IsProject() {
			name = projectLabel
		}

		tbl.AppendRow(table.Row{
			name,
			count(rec, measures.Tests),
			count(rec, measures.SkippedTests),
			count(rec, measures.TestErrors),
			count(rec, measures.TestFailures),
			elapsed(rec),
			density(rec, opts.NoColor),
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(res.Records))})

	_, err = fmt.Fprintln(w, tbl.Render())

	return err
}

func count(rec measures.Record, m measures.Metric) string {
	v, _ := rec.Value(m.Key)

	return humanize.Comma(int64(v))
}

func elapsed(rec measures.Record) string {
	ms, _ := rec.Value(measures.TestExecutionTime.Key)

	return (time.Duration(ms) * time.Millisecond).String()
}

func density(rec measures.Record, noColor bool) string {
	v, ok := rec.Value(measures.TestSuccessDensity.Key)
	if !ok {
		return "-"
	}

	c := color.New(color.FgRed)

	switch {
	case v >= densityGood:
		c = color.New(color.FgGreen)
	case v >= densityFair:
		c = color.New(color.FgYellow)
	}

	if noColor {
		c.DisableColor()
	}

	return c.Sprintf("%.1f%%", v)
}
