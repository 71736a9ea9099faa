// Package sensor runs the xUnit pipeline: locate reports, transform, parse,
// and aggregate test measures for the project or per source unit.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/testfang/pkg/cxxscan"
	"github.com/Sumatoshi-tech/testfang/pkg/locator"
	"github.com/Sumatoshi-tech/testfang/pkg/measures"
	"github.com/Sumatoshi-tech/testfang/pkg/observability"
	"github.com/Sumatoshi-tech/testfang/pkg/resolve"
	"github.com/Sumatoshi-tech/testfang/pkg/srcindex"
	"github.com/Sumatoshi-tech/testfang/pkg/xunit"
	"github.com/Sumatoshi-tech/testfang/pkg/xunit/transform"
)

// ErrRunFailed wraps every fatal error of a run. The cause stays reachable
// through errors.Is and errors.As.
var ErrRunFailed = errors.New("cannot process xunit reports")

// Mode is the aggregation granularity.
type Mode string

// Aggregation modes.
const (
	ModeSimple   Mode = "simple"
	ModeDetailed Mode = "detailed"
)

// Pipeline stage names, used for spans and the stage duration histogram.
const (
	stageLocate    = "locate"
	stageTransform = "transform"
	stageParse     = "parse"
	stageIndex     = "index"
	stageResolve   = "resolve"
	stageAggregate = "aggregate"
)

// Result is the outcome of a successful run.
type Result struct {
	Mode Mode
	// Reports are the report files that yielded test cases.
	Reports []string
	// SkippedReports are the empty reports that were skipped.
	SkippedReports []string
	TestCases      int
	// Unresolved counts test cases left out of detailed attribution.
	Unresolved int
	// Records holds one project record (simple mode, when any case ran)
	// or one record per resource (detailed mode).
	Records []measures.Record
}

// Sensor runs the pipeline for one configuration.
type Sensor struct {
	cfg     Config
	fs      afero.Fs
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.RunMetrics
	scanner srcindex.Scanner
	finder  resolve.Finder
	filter  srcindex.Filter
}

// Option configures a Sensor.
type Option func(*Sensor)

// WithFs sets the file system used by every stage.
func WithFs(fs afero.Fs) Option {
	return func(s *Sensor) { s.fs = fs }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sensor) { s.logger = logger }
}

// WithTracer sets the tracer for stage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Sensor) { s.tracer = tracer }
}

// WithRunMetrics sets the OTel run instruments.
func WithRunMetrics(metrics *observability.RunMetrics) Option {
	return func(s *Sensor) { s.metrics = metrics }
}

// WithScanner replaces the tree-sitter C/C++ scanner.
func WithScanner(scanner srcindex.Scanner) Option {
	return func(s *Sensor) { s.scanner = scanner }
}

// WithFinder replaces the file-system resource finder.
func WithFinder(finder resolve.Finder) Option {
	return func(s *Sensor) { s.finder = finder }
}

// WithIndexFilter replaces the KeepAll implementation-table filter.
func WithIndexFilter(filter srcindex.Filter) Option {
	return func(s *Sensor) { s.filter = filter }
}

// New creates a Sensor.
func New(cfg Config, opts ...Option) *Sensor {
	s := &Sensor{
		cfg:    cfg,
		fs:     afero.NewOsFs(),
		logger: slog.Default(),
		tracer: nooptrace.NewTracerProvider().Tracer(""),
		filter: srcindex.KeepAll,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run executes the pipeline. Measures are returned only when every stage
// succeeded; any fatal error yields no records.
func (s *Sensor) Run(ctx context.Context) (Result, error) {
	mode := ModeSimple
	if s.cfg.ProvideDetails {
		mode = ModeDetailed
	}

	ctx, span := s.tracer.Start(ctx, "testfang.run", trace.WithAttributes(
		attribute.String("testfang.mode", string(mode)),
	))
	defer span.End()

	res, err := s.run(ctx, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return Result{}, fmt.Errorf("%w: %w", ErrRunFailed, err)
	}

	span.SetAttributes(
		attribute.Int("testfang.testcases", res.TestCases),
		attribute.Int("testfang.records", len(res.Records)),
	)

	return res, nil
}

func (s *Sensor) run(ctx context.Context, mode Mode) (Result, error) {
	res := Result{Mode: mode}

	err := s.cfg.Validate()
	if err != nil {
		return res, err
	}

	loc := locator.New(s.cfg.BaseDir, locator.WithFs(s.fs), locator.WithLogger(s.logger))

	var reports []string

	err = s.stage(ctx, stageLocate, func(context.Context) error {
		var findErr error

		reports, findErr = loc.Find(s.cfg.ReportPaths...)

		return findErr
	})
	if err != nil {
		return res, err
	}

	if len(reports) == 0 {
		s.logger.DebugContext(ctx, "no xunit reports found", "patterns", s.cfg.ReportPaths, "base_dir", loc.BaseDir())

		return res, nil
	}

	cases, err := s.parseReports(ctx, loc, reports, &res)
	if err != nil {
		return res, err
	}

	res.TestCases = len(cases)

	if mode == ModeSimple {
		s.logger.InfoContext(ctx, "processing in simple mode", "testcases", len(cases))

		err = s.stage(ctx, stageAggregate, func(context.Context) error {
			if record, ok := measures.Simple(cases, s.logger); ok {
				res.Records = []measures.Record{record}
			}

			return nil
		})

		return res, err
	}

	s.logger.InfoContext(ctx, "processing in detailed mode", "testcases", len(cases))

	return s.detailed(ctx, loc, cases, res)
}

func (s *Sensor) parseReports(ctx context.Context, loc *locator.Locator, reports []string, res *Result) ([]xunit.TestCase, error) {
	transformer := transform.New(s.cfg.XSLTRef,
		transform.WithFs(s.fs),
		transform.WithLogger(s.logger),
		transform.WithFetchPolicy(s.cfg.FetchTimeout, s.cfg.FetchRetries),
	)
	parser := xunit.NewParser(xunit.WithFs(s.fs), xunit.WithLogger(s.logger))

	var cases []xunit.TestCase

	for _, report := range reports {
		path := loc.Abs(report)

		err := s.stage(ctx, stageTransform, func(stageCtx context.Context) error {
			var transformErr error

			path, transformErr = transformer.Transform(stageCtx, path)

			return transformErr
		})
		if err != nil {
			return nil, err
		}

		s.logger.InfoContext(ctx, "parsing report", "path", path)

		var parsed []xunit.TestCase

		err = s.stage(ctx, stageParse, func(context.Context) error {
			var parseErr error

			parsed, parseErr = parser.ParseFile(path)

			return parseErr
		})

		switch {
		case errors.Is(err, xunit.ErrEmptyReport):
			s.logger.WarnContext(ctx, "report seems to be empty, ignoring", "path", path)
			s.metrics.RecordReport(ctx, observability.ReportSkipped, 0)
			res.SkippedReports = append(res.SkippedReports, report)

			continue
		case err != nil:
			return nil, err
		}

		s.metrics.RecordReport(ctx, observability.ReportParsed, len(parsed))
		res.Reports = append(res.Reports, report)
		cases = append(cases, parsed...)
	}

	return cases, nil
}

func (s *Sensor) detailed(ctx context.Context, loc *locator.Locator, cases []xunit.TestCase, res Result) (Result, error) {
	var index srcindex.Index

	err := s.stage(ctx, stageIndex, func(stageCtx context.Context) error {
		var buildErr error

		index, buildErr = s.buildIndex(stageCtx, loc)

		return buildErr
	})
	if err != nil {
		return res, err
	}

	finder := s.finder
	if finder == nil {
		roots := slices.Concat(s.cfg.SourceDirs, s.cfg.IncludeDirs)
		finder = resolve.NewFsFinder(loc.BaseDir(),
			resolve.WithFinderFs(s.fs),
			resolve.WithRoots(roots...),
			resolve.WithFinderLogger(s.logger))
	}

	resolver := resolve.New(finder, index, resolve.WithLogger(s.logger))
	buckets := measures.NewBuckets()

	err = s.stage(ctx, stageResolve, func(stageCtx context.Context) error {
		for _, tc := range cases {
			if ctxErr := stageCtx.Err(); ctxErr != nil {
				return ctxErr
			}

			resource, ok := resolver.Resolve(tc)
			if !ok {
				s.logger.WarnContext(ctx, "no resource found, ignoring the test case",
					"test", tc.FullName(), "classname", tc.Classname, "filename", tc.Filename)

				res.Unresolved++

				continue
			}

			buckets.Add(resource.Key, resource.Path, tc)
		}

		return nil
	})
	if err != nil {
		return res, err
	}

	s.metrics.RecordUnresolved(ctx, res.Unresolved)

	err = s.stage(ctx, stageAggregate, func(context.Context) error {
		records, detailErr := measures.Detailed(buckets.Resources(), s.logger)
		res.Records = records

		return detailErr
	})

	return res, err
}

func (s *Sensor) buildIndex(ctx context.Context, loc *locator.Locator) (srcindex.Index, error) {
	files, err := loc.Find(s.cfg.TestPatterns...)
	if err != nil {
		return srcindex.Index{}, err
	}

	scanner := s.scanner
	if scanner == nil {
		defines, defErr := cxxscan.ParseDefines(s.cfg.Defines)
		if defErr != nil {
			return srcindex.Index{}, defErr
		}

		scanner, err = cxxscan.New(
			cxxscan.WithFs(s.fs),
			cxxscan.WithBaseDir(loc.BaseDir()),
			cxxscan.WithDefines(defines),
			cxxscan.WithLogger(s.logger))
		if err != nil {
			return srcindex.Index{}, err
		}
	}

	index, err := srcindex.BuildParallel(ctx, files, scanner, s.cfg.Workers,
		srcindex.WithLogger(s.logger), srcindex.WithFilter(s.filter))
	if err != nil {
		return srcindex.Index{}, err
	}

	decl, impl := index.Len()
	s.metrics.RecordIndex(ctx, decl, impl)
	s.logger.DebugContext(ctx, "source index built", "files", len(files), "classes", decl, "implementations", impl)

	return index, nil
}

// stage runs fn in its own span and records its duration.
func (s *Sensor) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "testfang."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	s.metrics.RecordStage(ctx, name, time.Since(start))

	if err != nil && !errors.Is(err, xunit.ErrEmptyReport) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}
