package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/planguard/internal/exitcode"
	"github.com/felixgeelhaar/planguard/internal/log"
	"github.com/felixgeelhaar/planguard/internal/metrics"
	"github.com/felixgeelhaar/planguard/internal/telemetry"
	"github.com/felixgeelhaar/planguard/internal/ux"
	"github.com/felixgeelhaar/planguard/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "planguard",
	Short: "Preview and safely apply generated code-change plans",
	Long: `planguard takes a plan of file and command steps proposed by a code generator
and applies it to a project under a safety policy.

Every path is confined to the project root and a path allowlist, every command
must match the command allowlist, and the whole plan is checked against size
limits before anything is touched. Files are written atomically, and each apply
is journaled under .planguard/tx so it can be inspected and rolled back.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupApp,
}

// app holds process-wide services built from the persistent flags.
var app struct {
	logger      *log.Logger
	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	metricsFile string
	span        trace.Span
	shutdown    func(context.Context) error
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, then flushes metrics and
// traces whether or not the command failed.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	closeApp(err)
	return err
}

func init() {
	rootCmd.Long += "\n\nExit codes:\n" + exitCodeHelp()

	flags := rootCmd.PersistentFlags()
	flags.String("root", "", "project root (default: nearest directory containing .planguard)")
	flags.String("config", "", "policy config file (default: <root>/.planguard/config.yaml)")
	flags.StringP("format", "o", "text", "output format (text, json, yaml)")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("metrics-file", "", "write Prometheus metrics to this file on exit")
}

func exitCodeHelp() string {
	var b strings.Builder
	for _, code := range exitcode.Codes {
		fmt.Fprintf(&b, "  %3d  %s\n", code, exitcode.GetExitCodeDescription(code))
	}
	return strings.TrimRight(b.String(), "\n")
}

func setupApp(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	if _, err := ux.ParseOutputFormat(cc.Format); err != nil {
		return ValidationError("--format", cc.Format, "text, json, yaml")
	}
	level, err := log.ParseLevel(cc.LogLevel)
	if err != nil {
		return ValidationError("--log-level", cc.LogLevel, "debug, info, warn, error")
	}
	format, err := log.ParseFormat(cc.LogFormat)
	if err != nil {
		return ValidationError("--log-format", cc.LogFormat, "text, json")
	}

	logCfg := log.DefaultConfig()
	logCfg.Level = level
	logCfg.Format = format
	logCfg.Output = cmd.ErrOrStderr()
	app.logger = log.New(logCfg)
	log.SetDefaultLogger(app.logger)

	app.registry, app.metrics = metrics.NewRegistry()
	app.metricsFile = cc.MetricsFile

	shutdown, err := telemetry.InitProvider(cmd.Context(), telemetry.ConfigFromEnv(version.GetInfo().Short()))
	if err != nil {
		app.logger.WithError(err).Warn("tracing disabled")
	} else {
		app.shutdown = shutdown
	}

	ctx, span := telemetry.StartCommandSpan(cmd.Context(), cmd.Name())
	app.span = span
	cmd.SetContext(ctx)
	return nil
}

func closeApp(err error) {
	if app.span != nil {
		if err != nil {
			telemetry.RecordError(app.span, err)
		} else {
			telemetry.RecordSuccess(app.span)
		}
		app.span.End()
		app.span = nil
	}

	if app.metricsFile != "" && app.registry != nil {
		if werr := metrics.WriteTextfile(app.metricsFile, app.registry); werr != nil {
			logger().WithError(werr).Warn("failed to write metrics")
		}
	}

	if app.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := app.shutdown(ctx); serr != nil {
			logger().WithError(serr).Debug("tracer shutdown failed")
		}
		app.shutdown = nil
	}
}

func logger() *log.Logger {
	if app.logger == nil {
		return log.DefaultLogger()
	}
	return app.logger
}
