package config

import "time"

// Defaults.
const (
	DefaultBaseDir        = "."
	DefaultReportPath     = "xunit-reports/xunit-result-*.xml"
	DefaultXSLTURL        = ""
	DefaultProvideDetails = false
	DefaultFetchTimeout   = 30 * time.Second
	DefaultFetchRetries   = 3
	DefaultIndexWorkers   = 0
	DefaultLogLevel       = "info"
	DefaultLogJSON        = false
	DefaultOutputFormat   = "text"
	DefaultOutputFile     = ""
)

// DefaultTestPatterns select the C and C++ sources scanned into the class index.
func DefaultTestPatterns() []string {
	return []string{"**/*.cpp", "**/*.cc", "**/*.cxx", "**/*.c", "**/*.hpp", "**/*.h"}
}

// DefaultSourceDirs are the roots the resource finder tries after the base directory.
func DefaultSourceDirs() []string {
	return []string{"."}
}
