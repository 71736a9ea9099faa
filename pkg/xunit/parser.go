package xunit

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

// Element and attribute names understood by the parser.
const (
	elemTestSuite = "testsuite"
	elemTestCase  = "testcase"
	elemSkipped   = "skipped"
	elemFailure   = "failure"
	elemError     = "error"

	attrName      = "name"
	attrClassname = "classname"
	attrFile      = "file"
	attrFilename  = "filename"
	attrTime      = "time"
	attrStatus    = "status"
	attrMessage   = "message"

	// statusNotRun is how Google Test marks disabled tests.
	statusNotRun = "notrun"
)

var (
	errNoRoot          = errors.New("no root element")
	errSecondRoot      = errors.New("more than one root element")
	errTextOutsideRoot = errors.New("content is not allowed outside the root element")
)

// Parser streams report files into test cases.
type Parser struct {
	fs     afero.Fs
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithFs sets the file system reports are read from.
func WithFs(fs afero.Fs) Option {
	return func(p *Parser) { p.fs = fs }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// NewParser creates a Parser reading from the OS file system.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		fs:     afero.NewOsFs(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ParseFile parses one report. It returns an *EmptyReportError when the report holds
// no test cases and a *MalformedReportError when the XML is not well-formed.
func (p *Parser) ParseFile(path string) ([]TestCase, error) {
	file, err := p.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer file.Close()

	if info, statErr := file.Stat(); statErr == nil {
		p.logger.Debug("reading report", "path", path, "size", humanize.Bytes(uint64(max(info.Size(), 0))))
	}

	return p.Parse(path, bufio.NewReader(file))
}

// Parse parses a report from r. The name is used in errors only.
// Input holding nothing but whitespace is empty; any other input must be a
// single well-formed root element.
func (p *Parser) Parse(name string, r io.Reader) ([]TestCase, error) {
	dec := xml.NewDecoder(r)

	var (
		cases   []TestCase
		suites  []string
		depth   int
		sawRoot bool
		sawAny  bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, &MalformedReportError{Path: name, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sawAny = true

			if depth == 0 {
				if sawRoot {
					return nil, &MalformedReportError{Path: name, Err: fmt.Errorf("%w: <%s>", errSecondRoot, t.Name.Local)}
				}

				sawRoot = true
			}

			switch t.Name.Local {
			case elemTestSuite:
				suites = append(suites, attr(t, attrName))
			case elemTestCase:
				tc, tcErr := decodeTestCase(dec, t, currentSuite(suites))
				if tcErr != nil {
					return nil, &MalformedReportError{Path: name, Err: tcErr}
				}

				cases = append(cases, tc)

				// decodeTestCase consumed the matching end element.
				continue
			}

			depth++
		case xml.EndElement:
			depth--

			if t.Name.Local == elemTestSuite && len(suites) > 0 {
				suites = suites[:len(suites)-1]
			}
		case xml.CharData:
			if depth == 0 && len(strings.TrimSpace(string(t))) > 0 {
				return nil, &MalformedReportError{Path: name, Err: errTextOutsideRoot}
			}
		default:
			sawAny = true
		}
	}

	if !sawRoot {
		if !sawAny {
			return nil, &EmptyReportError{Path: name}
		}

		return nil, &MalformedReportError{Path: name, Err: errNoRoot}
	}

	if len(cases) == 0 {
		return nil, &EmptyReportError{Path: name}
	}

	return cases, nil
}

func currentSuite(suites []string) string {
	if len(suites) == 0 {
		return ""
	}

	return suites[len(suites)-1]
}

// decodeTestCase consumes a <testcase> element. The first outcome child
// (skipped, failure or error) decides the status; other children are ignored.
func decodeTestCase(dec *xml.Decoder, start xml.StartElement, suite string) (TestCase, error) {
	classname := attr(start, attrClassname)

	filename := attr(start, attrFilename)
	if filename == "" {
		filename = attr(start, attrFile)
	}

	elapsed, err := parseTime(attr(start, attrTime))
	if err != nil {
		return TestCase{}, err
	}

	tc := TestCase{
		Classname: classname,
		Filename:  filename,
		Name:      displayName(classname, attr(start, attrName)),
		Suite:     suite,
		Time:      elapsed,
		Status:    StatusPassed,
	}

	decided := false
	if attr(start, attrStatus) == statusNotRun {
		tc.Status = StatusSkipped
		decided = true
	}

	for {
		tok, tokErr := dec.Token()
		if tokErr != nil {
			return TestCase{}, unexpectedEOF(tokErr)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if decided {
				if skipErr := dec.Skip(); skipErr != nil {
					return TestCase{}, unexpectedEOF(skipErr)
				}

				continue
			}

			outcomeErr := decodeOutcome(dec, t, &tc, &decided)
			if outcomeErr != nil {
				return TestCase{}, outcomeErr
			}
		case xml.EndElement:
			return tc, nil
		}
	}
}

func decodeOutcome(dec *xml.Decoder, el xml.StartElement, tc *TestCase, decided *bool) error {
	switch el.Name.Local {
	case elemSkipped:
		tc.Status = StatusSkipped
		*decided = true

		return unexpectedEOF(dec.Skip())
	case elemFailure, elemError:
		tc.Status = StatusFailure
		if el.Name.Local == elemError {
			tc.Status = StatusError
		}

		tc.Message = attr(el, attrMessage)
		*decided = true

		text, err := collectText(dec)
		if err != nil {
			return err
		}

		tc.StackTrace = text

		return nil
	default:
		return unexpectedEOF(dec.Skip())
	}
}

// collectText gathers the descendant character data of the element just opened.
func collectText(dec *xml.Decoder) (string, error) {
	var (
		sb    strings.Builder
		depth = 1
	)

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", unexpectedEOF(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(t)
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}

func displayName(classname, name string) string {
	if classname == "" {
		return name
	}

	return classname + "/" + name
}

// parseTime reads a duration in seconds. Grouping commas are dropped; an empty or NaN
// value counts as zero.
func parseTime(raw string) (time.Duration, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0, nil
	}

	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", raw, err)
	}

	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, nil
	}

	return time.Duration(math.Round(seconds*1e6)) * time.Microsecond, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}

	return ""
}
