// Package transform rewrites report files through an XSL stylesheet before parsing.
package transform

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/beevik/etree"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/afero"
	"github.com/wamuir/go-xslt"
)

//go:embed stylesheets/*.xsl
var builtinFs embed.FS

const (
	builtinDir = "stylesheets"

	// OutputSuffix is appended to the report path to name the transformed file.
	OutputSuffix = ".after_xslt"

	indentSpaces   = 2
	outputFileMode = 0o644

	defaultFetchTimeout = 30 * time.Second
	defaultFetchRetries = 3

	maxStylesheetBytes = 8 << 20
)

// Sentinel errors for report transformation.
var (
	// ErrTransform marks any failure to load or apply a stylesheet. It aborts the run.
	ErrTransform = errors.New("report transformation failed")

	errUnsupportedScheme  = errors.New("unsupported stylesheet location")
	errUnexpectedStatus   = errors.New("unexpected http status")
	errStylesheetTooLarge = errors.New("stylesheet too large")
)

// Error describes a failed transformation. Report is empty when the stylesheet
// itself could not be loaded.
type Error struct {
	Ref    string
	Report string
	Err    error
}

func (e *Error) Error() string {
	if e.Report == "" {
		return fmt.Sprintf("cannot load stylesheet %q: %v", e.Ref, e.Err)
	}

	return fmt.Sprintf("cannot transform %q with %q: %v", e.Report, e.Ref, e.Err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches ErrTransform.
func (e *Error) Is(target error) bool { return target == ErrTransform }

// Transformer applies an optional stylesheet to reports.
type Transformer struct {
	ref      string
	fs       afero.Fs
	builtins fs.FS
	client   *retryablehttp.Client
	logger   *slog.Logger

	stylesheet []byte
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithFs sets the file system reports are read from and written to.
func WithFs(fsys afero.Fs) Option {
	return func(t *Transformer) { t.fs = fsys }
}

// WithLogger sets the logger. It is also used by the HTTP client for retries.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transformer) {
		t.logger = logger
		t.client.Logger = logger
	}
}

// WithFetchPolicy sets the timeout and retry budget for remote stylesheets.
func WithFetchPolicy(timeout time.Duration, retries int) Option {
	return func(t *Transformer) {
		if timeout > 0 {
			t.client.HTTPClient.Timeout = timeout
		}

		if retries >= 0 {
			t.client.RetryMax = retries
		}
	}
}

// New creates a Transformer for the given stylesheet reference: the name of a
// built-in stylesheet, or a URL. An empty reference disables transformation.
func New(ref string, opts ...Option) *Transformer {
	client := retryablehttp.NewClient()
	client.RetryMax = defaultFetchRetries
	client.HTTPClient.Timeout = defaultFetchTimeout
	client.Logger = nil

	t := &Transformer{
		ref:      ref,
		fs:       afero.NewOsFs(),
		builtins: builtinFs,
		client:   client,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Enabled reports whether a stylesheet is configured.
func (t *Transformer) Enabled() bool { return t.ref != "" }

// Transform returns the path of the file to parse. Without a stylesheet this is
// the report itself; otherwise the transformed, indented output written next to
// the report with OutputSuffix.
func (t *Transformer) Transform(ctx context.Context, report string) (string, error) {
	if !t.Enabled() {
		t.logger.Debug("transformation skipped: no xslt given")

		return report, nil
	}

	t.logger.Debug("transforming the report", "report", report, "xslt", t.ref)

	sheet, err := t.load(ctx)
	if err != nil {
		return "", &Error{Ref: t.ref, Err: err}
	}

	input, err := afero.ReadFile(t.fs, report)
	if err != nil {
		return "", &Error{Ref: t.ref, Report: report, Err: err}
	}

	output, err := apply(sheet, input)
	if err != nil {
		return "", &Error{Ref: t.ref, Report: report, Err: err}
	}

	transformed := report + OutputSuffix

	err = afero.WriteFile(t.fs, transformed, output, outputFileMode)
	if err != nil {
		return "", &Error{Ref: t.ref, Report: report, Err: err}
	}

	return transformed, nil
}

func apply(sheet, input []byte) ([]byte, error) {
	ss, err := xslt.NewStylesheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("compile stylesheet: %w", err)
	}
	defer ss.Close()

	raw, err := ss.Transform(input)
	if err != nil {
		return nil, fmt.Errorf("apply stylesheet: %w", err)
	}

	return indent(raw)
}

func indent(raw []byte) ([]byte, error) {
	doc := etree.NewDocument()

	err := doc.ReadFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("read transformed report: %w", err)
	}

	doc.Indent(indentSpaces)

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("write transformed report: %w", err)
	}

	return out, nil
}

// load resolves the stylesheet once: built-in set first, then the reference as a URL.
func (t *Transformer) load(ctx context.Context) ([]byte, error) {
	if t.stylesheet != nil {
		return t.stylesheet, nil
	}

	sheet, err := fs.ReadFile(t.builtins, path.Join(builtinDir, t.ref))
	if err != nil {
		sheet, err = t.fetch(ctx, t.ref)
		if err != nil {
			return nil, err
		}
	}

	t.stylesheet = sheet

	return sheet, nil
}

func (t *Transformer) fetch(ctx context.Context, ref string) ([]byte, error) {
	loc, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse stylesheet url: %w", err)
	}

	switch loc.Scheme {
	case "file":
		return afero.ReadFile(t.fs, loc.Path)
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: %q is neither built in nor a url", errUnsupportedScheme, ref)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d fetching %s", errUnexpectedStatus, resp.StatusCode, ref)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStylesheetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}

	if len(body) > maxStylesheetBytes {
		return nil, fmt.Errorf("%w: %s exceeds %s", errStylesheetTooLarge, ref, humanize.IBytes(maxStylesheetBytes))
	}

	return body, nil
}

// Builtins lists the names of the embedded stylesheets.
func Builtins() []string {
	entries, err := fs.ReadDir(builtinFs, builtinDir)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	return names
}
