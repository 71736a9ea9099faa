// Package commands implements CLI command handlers for testfang.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/testfang/internal/config"
	"github.com/Sumatoshi-tech/testfang/pkg/observability"
	"github.com/Sumatoshi-tech/testfang/pkg/output"
	"github.com/Sumatoshi-tech/testfang/pkg/sensor"
	"github.com/Sumatoshi-tech/testfang/pkg/version"
	"github.com/Sumatoshi-tech/testfang/pkg/xunit/transform"
)

// Global flag names.
const (
	flagConfig   = "config"
	flagLogLevel = "log-level"
	flagLogJSON  = "log-json"
)

// ErrOutputFile indicates the result file could not be written.
var ErrOutputFile = errors.New("cannot write output file")

// RegisterGlobalFlags adds the flags every command understands.
func RegisterGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().String(flagConfig, "", "Config file (default: .testfang.yaml in CWD or $HOME)")
	root.PersistentFlags().String(flagLogLevel, config.DefaultLogLevel, "Log level: debug, info, warn, error")
	root.PersistentFlags().Bool(flagLogJSON, config.DefaultLogJSON, "Emit logs as JSON")
}

type sensorRunner func(ctx context.Context, cfg sensor.Config, opts ...sensor.Option) (sensor.Result, error)

type providersInit func(cfg observability.Config, logOut io.Writer) (observability.Providers, error)

// RunCommand holds configuration and dependencies for the run command.
type RunCommand struct {
	noColor bool

	runSensor sensorRunner
	initObs   providersInit
	getenv    func(string) string
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return newRunCommandWithDeps(runSensor, observability.InitWithWriter, os.Getenv)
}

func runSensor(ctx context.Context, cfg sensor.Config, opts ...sensor.Option) (sensor.Result, error) {
	return sensor.New(cfg, opts...).Run(ctx)
}

func newRunCommandWithDeps(runner sensorRunner, initObs providersInit, getenv func(string) string) *cobra.Command {
	rc := &RunCommand{
		runSensor: runner,
		initObs:   initObs,
		getenv:    getenv,
	}

	cmd := &cobra.Command{
		Use:   "run [base-dir]",
		Short: "Process xUnit reports and print test measures",
		Long: `Locate xUnit reports under base-dir, optionally transform them with a stylesheet,
and compute test measures. With --provide-details test cases are attributed to the
C/C++ source files declaring or implementing their class.`,
		Args:          cobra.MaximumNArgs(1),
		RunE:          rc.run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().String("report-path", config.DefaultReportPath, "Comma separated report glob patterns, relative to base-dir or absolute")
	cmd.Flags().String("xslt-url", config.DefaultXSLTURL,
		"Stylesheet applied to each report: http(s) URL, file:// URL or built-in name ("+strings.Join(transform.Builtins(), ", ")+")")
	cmd.Flags().Bool("provide-details", config.DefaultProvideDetails, "Attribute measures to test source files")
	cmd.Flags().StringSlice("test-patterns", config.DefaultTestPatterns(), "Glob patterns of sources scanned into the class index")
	cmd.Flags().StringSlice("source-dirs", config.DefaultSourceDirs(), "Roots used to resolve test resource paths")
	cmd.Flags().StringSlice("include-dirs", nil, "Additional roots used to resolve test resource paths")
	cmd.Flags().StringSlice("define", nil, "Object-like macro expanded before scanning, as \"NAME value\"")
	cmd.Flags().Int("workers", config.DefaultIndexWorkers, "Parallel source scanners (0 = use CPU count)")
	cmd.Flags().StringP("format", "f", config.DefaultOutputFormat, "Output format: "+formatList())
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile, "Write the result to a file instead of stdout")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "Disable colored text output")

	return cmd
}

func formatList() string {
	names := make([]string, 0, len(output.Formats()))
	for _, f := range output.Formats() {
		names = append(names, string(f))
	}

	return strings.Join(names, ", ")
}

func (rc *RunCommand) loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	configPath, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		configPath = ""
	}

	flags := cmd.Flags()
	opts := []config.LoadOption{
		config.WithFlag("xunit.report_path", flags.Lookup("report-path")),
		config.WithFlag("xunit.xslt_url", flags.Lookup("xslt-url")),
		config.WithFlag("xunit.provide_details", flags.Lookup("provide-details")),
		config.WithFlag("sources.test_patterns", flags.Lookup("test-patterns")),
		config.WithFlag("sources.source_dirs", flags.Lookup("source-dirs")),
		config.WithFlag("cxx.include_directories", flags.Lookup("include-dirs")),
		config.WithFlag("cxx.defines", flags.Lookup("define")),
		config.WithFlag("index.workers", flags.Lookup("workers")),
		config.WithFlag("output.format", flags.Lookup("format")),
		config.WithFlag("output.file", flags.Lookup("output")),
		config.WithFlag("logging.level", flags.Lookup(flagLogLevel)),
		config.WithFlag("logging.json", flags.Lookup(flagLogJSON)),
	}

	if len(args) > 0 {
		opts = append(opts, config.WithOverride("base_dir", args[0]))
	}

	return config.LoadConfig(configPath, opts...)
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) (retErr error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := rc.loadConfig(cmd, args)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	providers, err := rc.initObs(cfg.Observability(version.Version, rc.getenv), cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		retErr = errors.Join(retErr, providers.Shutdown(context.WithoutCancel(ctx)))
	}()

	runMetrics, err := observability.NewRunMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("init run metrics: %w", err)
	}

	res, err := rc.runSensor(ctx, cfg.Sensor(),
		sensor.WithLogger(providers.Logger),
		sensor.WithTracer(providers.Tracer),
		sensor.WithRunMetrics(runMetrics),
	)
	if err != nil {
		return err
	}

	return rc.writeResult(cmd.OutOrStdout(), cfg.Output.File, format, res)
}

func (rc *RunCommand) writeResult(stdout io.Writer, path string, format output.Format, res sensor.Result) error {
	if path == "" {
		return output.Write(stdout, format, res, output.Options{NoColor: rc.noColor})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutputFile, err)
	}

	writeErr := output.Write(f, format, res, output.Options{NoColor: true})
	closeErr := f.Close()

	joined := errors.Join(writeErr, closeErr)
	if joined != nil {
		return fmt.Errorf("%w: %w", ErrOutputFile, joined)
	}

	return nil
}
