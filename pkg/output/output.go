// Package output renders sensor results as a text table, JSON, YAML or the
// Prometheus text exposition format.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/testfang/pkg/measures"
	"github.com/Sumatoshi-tech/testfang/pkg/sensor"
)

// Format is an output format.
type Format string

// Output formats.
const (
	FormatText       Format = "text"
	FormatJSON       Format = "json"
	FormatYAML       Format = "yaml"
	FormatPrometheus Format = "prometheus"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatPrometheus}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Report is the serializable view of a sensor result.
type Report struct {
	Mode           string          `json:"mode"                      yaml:"mode"`
	Reports        []string        `json:"reports"                   yaml:"reports"`
	SkippedReports []string        `json:"skipped_reports,omitempty" yaml:"skipped_reports,omitempty"`
	TestCases      int             `json:"testcases"                 yaml:"testcases"`
	Unresolved     int             `json:"unresolved"                yaml:"unresolved"`
	Records        []RecordSummary `json:"records"                   yaml:"records"`
}

// RecordSummary is one measured target. Resource is empty for the project.
type RecordSummary struct {
	Resource string             `json:"resource,omitempty" yaml:"resource,omitempty"`
	Path     string             `json:"path,omitempty"     yaml:"path,omitempty"`
	Values   map[string]float64 `json:"values"             yaml:"values"`
	Details  string             `json:"details,omitempty"  yaml:"details,omitempty"`
}

// NewReport converts a sensor result.
func NewReport(res sensor.Result) Report {
	r := Report{
		Mode:           string(res.Mode),
		Reports:        res.Reports,
		SkippedReports: res.SkippedReports,
		TestCases:      res.TestCases,
		Unresolved:     res.Unresolved,
		Records:        make([]RecordSummary, 0, len(res.Records)),
	}

	if r.Reports == nil {
		r.Reports = []string{}
	}

	for _, rec := range res.Records {
		summary := RecordSummary{
			Resource: rec.Resource,
			Path:     rec.Path,
			Values:   make(map[string]float64, len(rec.Measures)),
		}

		for _, m := range rec.Measures {
			if m.Metric.Type == measures.TypeData {
				summary.Details = m.Data

				continue
			}

			summary.Values[m.Metric.Key] = m.Value
		}

		r.Records = append(r.Records, summary)
	}

	return r
}

// Options tune rendering.
type Options struct {
	// NoColor disables ANSI colors in the text format.
	NoColor bool
}

// Write renders res to w in the given format.
func Write(w io.Writer, format Format, res sensor.Result, opts Options) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(NewReport(res))
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		err := enc.Encode(NewReport(res))
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	case FormatPrometheus:
		return writePrometheus(w, res)
	case FormatText:
		return writeText(w, res, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
