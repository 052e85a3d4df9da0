// Package metrics exposes Prometheus counters for plan validation, apply
// runs and spawned commands.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/felixgeelhaar/planguard/internal/errors"
)

// Step results used as the "result" label of StepsTotal.
const (
	ResultApplied = "applied"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Metrics holds all Prometheus metrics for planguard. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Apply run metrics
	Runs        *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec

	// Step metrics
	Steps        *prometheus.CounterVec
	BytesWritten prometheus.Counter
	FileWrites   prometheus.Counter

	// Spawned command metrics
	CommandExecutions *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	CommandTimeouts   prometheus.Counter
	ShellFallbacks    prometheus.Counter

	// Policy check metrics
	PolicyChecks     *prometheus.CounterVec
	PolicyViolations *prometheus.CounterVec
	SanitizerDrops   prometheus.Counter

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planguard_apply_runs_total",
				Help: "Total number of apply runs",
			},
			[]string{"mode", "success"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "planguard_apply_duration_seconds",
				Help:    "Apply run duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 60, 300},
			},
			[]string{"mode"},
		),

		Steps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planguard_steps_total",
				Help: "Total number of plan steps processed by action and result",
			},
			[]string{"action", "result"},
		),
		BytesWritten: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "planguard_bytes_written_total",
				Help: "Bytes written to project files",
			},
		),
		FileWrites: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "planguard_file_writes_total",
				Help: "Atomic file writes performed",
			},
		),

		CommandExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planguard_command_executions_total",
				Help: "Total number of spawned commands",
			},
			[]string{"program", "success"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "planguard_command_duration_seconds",
				Help:    "Spawned command duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 240},
			},
			[]string{"program"},
		),
		CommandTimeouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "planguard_command_timeouts_total",
				Help: "Commands killed after exceeding the timeout",
			},
		),
		ShellFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "planguard_shell_fallbacks_total",
				Help: "Commands retried through the shell after a direct spawn failed",
			},
		),

		PolicyChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planguard_policy_checks_total",
				Help: "Total number of plan validations",
			},
			[]string{"result"},
		),
		PolicyViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planguard_policy_violations_total",
				Help: "Plan validations rejected, by failure kind",
			},
			[]string{"kind"},
		),
		SanitizerDrops: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "planguard_sanitizer_drops_total",
				Help: "Steps dropped by the sanitizer",
			},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planguard_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// RecordRun records the outcome of one apply run.
func (m *Metrics) RecordRun(dryRun, success bool, d time.Duration) {
	if m == nil {
		return
	}
	mode := "apply"
	if dryRun {
		mode = "dry_run"
	}
	m.Runs.WithLabelValues(mode, boolLabel(success)).Inc()
	m.RunDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordStep records one processed step.
func (m *Metrics) RecordStep(action, result string) {
	if m == nil {
		return
	}
	m.Steps.WithLabelValues(action, result).Inc()
}

// RecordWrite records one atomic file write of n bytes.
func (m *Metrics) RecordWrite(n int) {
	if m == nil {
		return
	}
	m.FileWrites.Inc()
	m.BytesWritten.Add(float64(n))
}

// RecordCommand records a spawned command.
func (m *Metrics) RecordCommand(program string, success, timedOut, viaShell bool, d time.Duration) {
	if m == nil {
		return
	}
	m.CommandExecutions.WithLabelValues(program, boolLabel(success)).Inc()
	m.CommandDuration.WithLabelValues(program).Observe(d.Seconds())
	if timedOut {
		m.CommandTimeouts.Inc()
	}
	if viaShell {
		m.ShellFallbacks.Inc()
	}
}

// RecordValidation records a policy check; err is the validation result.
func (m *Metrics) RecordValidation(err error) {
	if m == nil {
		return
	}
	if err == nil {
		m.PolicyChecks.WithLabelValues("pass").Inc()
		return
	}
	m.PolicyChecks.WithLabelValues("fail").Inc()
	m.PolicyViolations.WithLabelValues(string(errors.KindOf(err))).Inc()
}

// RecordSanitized records the number of steps the sanitizer dropped.
func (m *Metrics) RecordSanitized(dropped int) {
	if m == nil {
		return
	}
	m.SanitizerDrops.Add(float64(dropped))
}

// RecordError counts err by its structured code. Uncoded errors count as
// "UNKNOWN".
func (m *Metrics) RecordError(component string, err error) {
	if m == nil || err == nil {
		return
	}
	code := "UNKNOWN"
	if e, ok := errors.As(err); ok {
		code = string(e.Code)
	}
	m.Errors.WithLabelValues(code, component).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
