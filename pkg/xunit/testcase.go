// Package xunit reads xUnit-style XML test reports into a uniform test-case model.
package xunit

import "time"

// Status is the outcome of a single test execution.
type Status string

// Test case outcomes. They are mutually exclusive.
const (
	StatusPassed  Status = "passed"
	StatusSkipped Status = "skipped"
	StatusFailure Status = "failure"
	StatusError   Status = "error"
)

// TestCase is one reported test execution.
type TestCase struct {
	// Classname is the qualified class name as reported. Empty when absent.
	Classname string
	// Filename is the reported source path. Empty when absent.
	Filename string
	// Name is the display name: "classname/name" when a classname is present.
	Name string
	// Suite is the name of the enclosing test suite, if any.
	Suite string
	// Time is the execution duration, never negative.
	Time time.Duration
	// Status is the outcome.
	Status Status
	// Message is the failure or error message.
	Message string
	// StackTrace is the text content of the failure or error element.
	StackTrace string
}

// FullName identifies the test case in log output.
func (tc TestCase) FullName() string {
	if tc.Suite == "" {
		return tc.Name
	}

	return tc.Suite + ":" + tc.Name
}

// IsSkipped reports whether the test case was not run.
func (tc TestCase) IsSkipped() bool { return tc.Status == StatusSkipped }
