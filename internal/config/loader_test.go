package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/testfang/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".testfang.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultBaseDir, cfg.BaseDir)
	assert.Equal(t, config.DefaultReportPath, cfg.XUnit.ReportPath)
	assert.Empty(t, cfg.XUnit.XSLTURL)
	assert.False(t, cfg.XUnit.ProvideDetails)
	assert.Equal(t, config.DefaultFetchTimeout, cfg.XUnit.FetchTimeout)
	assert.Equal(t, config.DefaultFetchRetries, cfg.XUnit.FetchRetries)
	assert.Equal(t, config.DefaultTestPatterns(), cfg.Sources.TestPatterns)
	assert.Equal(t, config.DefaultSourceDirs(), cfg.Sources.SourceDirs)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, config.DefaultOutputFormat, cfg.Output.Format)
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
base_dir: /work/project
xunit:
  report_path: "reports/a.xml, reports/b-*.xml"
  xslt_url: boosttest-1.x-to-junit-1.0.xsl
  provide_details: true
  fetch_timeout: 5s
  fetch_retries: 1
sources:
  test_patterns: ["tests/**/*.cpp"]
  source_dirs: [src]
cxx:
  defines: ["TEST_CLASS(x) x", "EXPORT"]
  include_directories: [include]
index:
  workers: 4
logging:
  level: debug
  json: true
output:
  format: json
  file: out.json
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/work/project", cfg.BaseDir)
	assert.True(t, cfg.XUnit.ProvideDetails)
	assert.Equal(t, 5*time.Second, cfg.XUnit.FetchTimeout)
	assert.Equal(t, 1, cfg.XUnit.FetchRetries)
	assert.Equal(t, []string{"tests/**/*.cpp"}, cfg.Sources.TestPatterns)
	assert.Equal(t, []string{"include"}, cfg.Cxx.IncludeDirectories)
	assert.Equal(t, 4, cfg.Index.Workers)
	assert.True(t, cfg.Logging.JSON)
	assert.Equal(t, "out.json", cfg.Output.File)

	sc := cfg.Sensor()
	assert.Equal(t, []string{"reports/a.xml", "reports/b-*.xml"}, sc.ReportPaths)
	assert.Equal(t, "boosttest-1.x-to-junit-1.0.xsl", sc.XSLTRef)
	assert.Equal(t, []string{"src"}, sc.SourceDirs)
	assert.Equal(t, []string{"include"}, sc.IncludeDirs)
	assert.Equal(t, []string{"TEST_CLASS(x) x", "EXPORT"}, sc.Defines)
	assert.Equal(t, 4, sc.Workers)
	require.NoError(t, sc.Validate())
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("TESTFANG_XUNIT_PROVIDE_DETAILS", "true")
	t.Setenv("TESTFANG_OUTPUT_FORMAT", "yaml")

	cfg, err := config.LoadConfig(writeConfig(t, "output:\n  format: json\n"))
	require.NoError(t, err)

	assert.True(t, cfg.XUnit.ProvideDetails)
	assert.Equal(t, "yaml", cfg.Output.Format)
}

func TestLoadConfig_FlagOverride(t *testing.T) {
	t.Parallel()

	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("report-path", "", "")
	flags.Int("workers", 0, "")
	require.NoError(t, flags.Parse([]string{"--report-path", "custom/*.xml"}))

	cfg, err := config.LoadConfig(writeConfig(t, "index:\n  workers: 2\n"),
		config.WithFlag("xunit.report_path", flags.Lookup("report-path")),
		config.WithFlag("index.workers", flags.Lookup("workers")),
		config.WithOverride("base_dir", "/override"),
	)
	require.NoError(t, err)

	assert.Equal(t, "custom/*.xml", cfg.XUnit.ReportPath)
	assert.Equal(t, 2, cfg.Index.Workers, "unset flags do not override the file")
	assert.Equal(t, "/override", cfg.BaseDir)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "empty report path", body: "xunit:\n  report_path: \" \"\n", want: config.ErrEmptyReportPath},
		{name: "negative retries", body: "xunit:\n  fetch_retries: -1\n", want: config.ErrInvalidFetchRetries},
		{name: "negative timeout", body: "xunit:\n  fetch_timeout: -1s\n", want: config.ErrInvalidFetchTimeout},
		{name: "negative workers", body: "index:\n  workers: -3\n", want: config.ErrInvalidWorkers},
		{name: "log level", body: "logging:\n  level: loud\n", want: config.ErrInvalidLogLevel},
		{name: "format", body: "output:\n  format: xml\n", want: config.ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.body))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConfig_Observability(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "logging:\n  level: warn\n  json: true\n"))
	require.NoError(t, err)

	env := map[string]string{
		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4317",
		"OTEL_EXPORTER_OTLP_HEADERS":  "a=b",
		"OTEL_EXPORTER_OTLP_INSECURE": "true",
	}

	obs := cfg.Observability("1.2.3", func(k string) string { return env[k] })

	assert.Equal(t, "1.2.3", obs.ServiceVersion)
	assert.Equal(t, "collector:4317", obs.OTLPEndpoint)
	assert.Equal(t, map[string]string{"a": "b"}, obs.OTLPHeaders)
	assert.True(t, obs.OTLPInsecure)
	assert.True(t, obs.LogJSON)
	assert.Equal(t, "WARN", obs.LogLevel.String())
}

func TestLoadConfig_SchemaRejectsFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "unknown top-level key", body: "report_path: a.xml\n", want: "report_path"},
		{name: "unknown nested key", body: "xunit:\n  xslt: boost\n", want: "xslt"},
		{name: "mistyped boolean", body: "xunit:\n  provide_details: sometimes\n", want: "provide_details"},
		{name: "scalar instead of list", body: "cxx:\n  defines: 3\n", want: "defines"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.body))
			require.ErrorIs(t, err, config.ErrSchema)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
