// Package config loads testfang settings from .testfang.yaml, TESTFANG_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/testfang/pkg/locator"
	"github.com/Sumatoshi-tech/testfang/pkg/observability"
	"github.com/Sumatoshi-tech/testfang/pkg/output"
	"github.com/Sumatoshi-tech/testfang/pkg/sensor"
)

// Validation errors.
var (
	ErrEmptyReportPath     = errors.New("xunit.report_path must not be empty")
	ErrInvalidFetchTimeout = errors.New("xunit.fetch_timeout must not be negative")
	ErrInvalidFetchRetries = errors.New("xunit.fetch_retries must not be negative")
	ErrInvalidWorkers      = errors.New("index.workers must not be negative")
	ErrInvalidLogLevel     = errors.New("invalid logging.level")
	ErrInvalidFormat       = errors.New("invalid output.format")
)

// Config is the top-level configuration. Field tags use mapstructure for viper.
type Config struct {
	BaseDir string        `mapstructure:"base_dir"`
	XUnit   XUnitConfig   `mapstructure:"xunit"`
	Sources SourcesConfig `mapstructure:"sources"`
	Cxx     CxxConfig     `mapstructure:"cxx"`
	Index   IndexConfig   `mapstructure:"index"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
}

// XUnitConfig selects and preprocesses the reports.
type XUnitConfig struct {
	// ReportPath is a comma separated list of glob patterns.
	ReportPath     string        `mapstructure:"report_path"`
	XSLTURL        string        `mapstructure:"xslt_url"`
	ProvideDetails bool          `mapstructure:"provide_details"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	FetchRetries   int           `mapstructure:"fetch_retries"`
}

// SourcesConfig selects the test sources and the roots of the resource finder.
type SourcesConfig struct {
	TestPatterns []string `mapstructure:"test_patterns"`
	SourceDirs   []string `mapstructure:"source_dirs"`
}

// CxxConfig holds preprocessor settings for the C/C++ scanner.
type CxxConfig struct {
	Defines            []string `mapstructure:"defines"`
	IncludeDirectories []string `mapstructure:"include_directories"`
}

// IndexConfig tunes the source index build.
type IndexConfig struct {
	Workers int `mapstructure:"workers"`
}

// LoggingConfig sets up slog.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// OutputConfig selects the rendering of the result.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	// File is the destination path. Empty means stdout.
	File string `mapstructure:"file"`
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.XUnit.ReportPath) == "" {
		return ErrEmptyReportPath
	}

	if c.XUnit.FetchTimeout < 0 {
		return ErrInvalidFetchTimeout
	}

	if c.XUnit.FetchRetries < 0 {
		return ErrInvalidFetchRetries
	}

	if c.Index.Workers < 0 {
		return ErrInvalidWorkers
	}

	if _, err := observability.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLogLevel, err)
	}

	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	return nil
}

// Sensor maps the configuration onto a sensor run.
func (c *Config) Sensor() sensor.Config {
	return sensor.Config{
		BaseDir:        c.BaseDir,
		ReportPaths:    locator.SplitPatterns(c.XUnit.ReportPath),
		XSLTRef:        strings.TrimSpace(c.XUnit.XSLTURL),
		ProvideDetails: c.XUnit.ProvideDetails,
		TestPatterns:   c.Sources.TestPatterns,
		SourceDirs:     c.Sources.SourceDirs,
		IncludeDirs:    c.Cxx.IncludeDirectories,
		Defines:        c.Cxx.Defines,
		Workers:        c.Index.Workers,
		FetchTimeout:   c.XUnit.FetchTimeout,
		FetchRetries:   c.XUnit.FetchRetries,
	}
}

// Observability maps the logging settings onto an observability config.
// OTLP settings come from the standard OTEL_EXPORTER_OTLP_* variables.
func (c *Config) Observability(version string, getenv func(string) string) observability.Config {
	obs := observability.DefaultConfig()
	obs.ServiceVersion = version
	obs.LogJSON = c.Logging.JSON
	obs.OTLPEndpoint = getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	obs.OTLPHeaders = observability.ParseOTLPHeaders(getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obs.OTLPInsecure = getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"

	if level, err := observability.ParseLevel(c.Logging.Level); err == nil {
		obs.LogLevel = level
	}

	return obs
}
