package sensor

import (
	"errors"
	"fmt"
	"time"
)

// DefaultReportPath is the report glob used when none is configured.
const DefaultReportPath = "xunit-reports/xunit-result-*.xml"

var errNoReportPath = errors.New("no report path pattern")

// Config selects the reports, the optional stylesheet, the aggregation mode
// and the sources the detailed mode attributes test cases to.
type Config struct {
	BaseDir string
	// ReportPaths are glob patterns relative to BaseDir or absolute.
	ReportPaths []string
	// XSLTRef is a built-in stylesheet name or URL. Empty disables transformation.
	XSLTRef string
	// ProvideDetails selects per-resource measures instead of a project rollup.
	ProvideDetails bool

	// TestPatterns select the sources scanned into the class index.
	TestPatterns []string
	// SourceDirs and IncludeDirs are the roots relative paths are resolved against.
	SourceDirs  []string
	IncludeDirs []string
	// Defines are object-like macros ("NAME value") expanded before scanning.
	Defines []string
	// Workers bounds the parallel scan. Zero means GOMAXPROCS.
	Workers int

	FetchTimeout time.Duration
	FetchRetries int
}

// Validate checks the fields Run relies on.
func (c Config) Validate() error {
	if len(c.ReportPaths) == 0 {
		return errNoReportPath
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}

	return nil
}
