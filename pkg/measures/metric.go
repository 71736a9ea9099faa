// Package measures aggregates test-case outcomes into named test metrics,
// either for the whole project or per attributed source unit.
package measures

import "slices"

// ValueType is the representation of a metric's value.
type ValueType string

// Value types.
const (
	TypeInt     ValueType = "int"
	TypePercent ValueType = "percent"
	TypeMillis  ValueType = "millisec"
	TypeData    ValueType = "data"
)

// Metric describes one output metric.
type Metric struct {
	// Key is the machine-readable identifier (snake_case, unique).
	Key string
	// Name is the human-readable name.
	Name        string
	Description string
	Type        ValueType
}

// Test metrics.
var (
	Tests = Metric{
		Key:         "tests",
		Name:        "Unit tests",
		Description: "Number of executed test cases: errors, failures and passed, skipped excluded.",
		Type:        TypeInt,
	}
	SkippedTests = Metric{
		Key:         "skipped_tests",
		Name:        "Skipped unit tests",
		Description: "Number of test cases that were not run.",
		Type:        TypeInt,
	}
	TestErrors = Metric{
		Key:         "test_errors",
		Name:        "Unit test errors",
		Description: "Number of test cases that ended with an unexpected error.",
		Type:        TypeInt,
	}
	TestFailures = Metric{
		Key:         "test_failures",
		Name:        "Unit test failures",
		Description: "Number of test cases with a failed assertion.",
		Type:        TypeInt,
	}
	TestExecutionTime = Metric{
		Key:         "test_execution_time",
		Name:        "Unit test duration",
		Description: "Summed execution time of all test cases, skipped included, in milliseconds.",
		Type:        TypeMillis,
	}
	TestSuccessDensity = Metric{
		Key:         "test_success_density",
		Name:        "Unit test success (%)",
		Description: "Passed test cases as a percentage of executed ones, one decimal.",
		Type:        TypePercent,
	}
	TestData = Metric{
		Key:         "test_data",
		Name:        "Unit test details",
		Description: "Per test case outcome, time and message as an XML fragment.",
		Type:        TypeData,
	}
)

var catalog = []Metric{
	Tests, SkippedTests, TestErrors, TestFailures, TestExecutionTime, TestSuccessDensity, TestData,
}

// Catalog lists every metric this package can emit.
func Catalog() []Metric { return slices.Clone(catalog) }

// Lookup returns the metric with the given key.
func Lookup(key string) (Metric, bool) {
	idx := slices.IndexFunc(catalog, func(m Metric) bool { return m.Key == key })
	if idx < 0 {
		return Metric{}, false
	}

	return catalog[idx], true
}

// Measure is a metric value. Data metrics carry Data instead of Value.
type Measure struct {
	Metric Metric
	Value  float64
	Data   string
}

// Record is the set of measures for one target. Resource is empty for the project.
type Record struct {
	Resource string
	Path     string
	Measures []Measure
}

// Value returns the numeric value of the named metric.
func (r Record) Value(key string) (float64, bool) {
	for _, m := range r.Measures {
		if m.Metric.Key == key {
			return m.Value, true
		}
	}

	return 0, false
}

// Data returns the data value of the named metric.
func (r Record) Data(key string) (string, bool) {
	for _, m := range r.Measures {
		if m.Metric.Key == key && m.Metric.Type == TypeData {
			return m.Data, true
		}
	}

	return "", false
}

// IsProject reports whether the record targets the whole project.
func (r Record) IsProject() bool { return r.Resource == "" }
