package measures

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Sumatoshi-tech/testfang/pkg/xunit"
)

// TestResource collects the test cases attributed to one source unit.
type TestResource struct {
	Key    string
	Path   string
	cases  []xunit.TestCase
	counts Counts
}

// Add attributes a test case to the resource.
func (r *TestResource) Add(tc xunit.TestCase) {
	r.cases = append(r.cases, tc)
	r.counts.add(tc)
}

// Counts returns the outcome totals. Counts.Total includes skipped cases.
func (r *TestResource) Counts() Counts { return r.counts }

type detailsDoc struct {
	XMLName xml.Name      `xml:"tests-details"`
	Cases   []detailsCase `xml:"testcase"`
}

type detailsCase struct {
	Status  string          `xml:"status,attr"`
	Time    string          `xml:"time,attr"`
	Name    string          `xml:"name,attr"`
	Failure *detailsOutcome `xml:"failure,omitempty"`
	Error   *detailsOutcome `xml:"error,omitempty"`
}

type detailsOutcome struct {
	Message string `xml:"message,attr"`
	Trace   string `xml:",cdata"`
}

func detailsStatus(s xunit.Status) string {
	switch s {
	case xunit.StatusSkipped:
		return "skipped"
	case xunit.StatusFailure:
		return "failure"
	case xunit.StatusError:
		return "error"
	case xunit.StatusPassed:
		return "ok"
	default:
		return "ok"
	}
}

// Details serializes the attributed cases as a <tests-details> fragment.
func (r *TestResource) Details() (string, error) {
	doc := detailsDoc{Cases: make([]detailsCase, 0, len(r.cases))}

	for _, tc := range r.cases {
		dc := detailsCase{
			Status: detailsStatus(tc.Status),
			Time:   strconv.FormatInt(tc.Time.Milliseconds(), 10),
			Name:   tc.Name,
		}

		outcome := &detailsOutcome{Message: tc.Message, Trace: tc.StackTrace}

		switch tc.Status {
		case xunit.StatusFailure:
			dc.Failure = outcome
		case xunit.StatusError:
			dc.Error = outcome
		case xunit.StatusPassed, xunit.StatusSkipped:
		}

		doc.Cases = append(doc.Cases, dc)
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("details of %s: %w", r.Key, err)
	}

	return string(out), nil
}

// Buckets groups test cases by resource key, creating resources lazily and
// keeping them in first-seen order.
type Buckets struct {
	order []*TestResource
	byKey map[string]*TestResource
}

// NewBuckets creates an empty set.
func NewBuckets() *Buckets {
	return &Buckets{byKey: make(map[string]*TestResource)}
}

// Add attributes tc to the resource with the given key.
func (b *Buckets) Add(key, path string, tc xunit.TestCase) *TestResource {
	res, ok := b.byKey[key]
	if !ok {
		res = &TestResource{Key: key, Path: path}
		b.byKey[key] = res
		b.order = append(b.order, res)
	}

	res.Add(tc)

	return res
}

// Len returns the number of resources.
func (b *Buckets) Len() int { return len(b.order) }

// Resources returns the resources in first-seen order.
func (b *Buckets) Resources() []*TestResource { return b.order }

// Detailed computes one record per resource. The details blob is always
// present; success density only when a case was executed. No project rollup
// is produced.
func Detailed(resources []*TestResource, logger *slog.Logger) ([]Record, error) {
	if logger == nil {
		logger = slog.Default()
	}

	records := make([]Record, 0, len(resources))

	for _, res := range resources {
		details, err := res.Details()
		if err != nil {
			return nil, err
		}

		ms := append(res.counts.measures(), Measure{Metric: TestData, Data: details})

		logger.Debug("resource measures", "resource", res.Key,
			"tests", res.counts.Run(), "skipped", res.counts.Skipped)

		records = append(records, Record{Resource: res.Key, Path: res.Path, Measures: ms})
	}

	return records, nil
}
