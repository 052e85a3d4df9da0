// Package apply executes a validated plan: file steps through atomic writes,
// command steps through the guarded executor.
package apply

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/planguard/internal/checkpoint"
	"github.com/felixgeelhaar/planguard/internal/exec"
	"github.com/felixgeelhaar/planguard/internal/log"
	"github.com/felixgeelhaar/planguard/internal/metrics"
	"github.com/felixgeelhaar/planguard/internal/patch"
	"github.com/felixgeelhaar/planguard/internal/plan"
	"github.com/felixgeelhaar/planguard/internal/policy"
	"github.com/felixgeelhaar/planguard/internal/telemetry"
)

// FailurePolicy decides what happens after a step fails.
type FailurePolicy int

const (
	// HaltOnError stops at the first failing step.
	HaltOnError FailurePolicy = iota
	// ContinueOnError records the failure and runs the remaining steps.
	ContinueOnError
)

func (p FailurePolicy) String() string {
	if p == ContinueOnError {
		return "continue"
	}
	return "halt"
}

// CommandRunner runs one command or test step.
type CommandRunner interface {
	RunStep(ctx context.Context, stepID, command, cwd string) (*exec.CmdResult, error)
}

// Applier applies plan steps in order. It does not validate: callers run
// safety.Validate first. Paths are still resolved through the path guard
// and commands still pass the command policy inside the runner.
type Applier struct {
	Config *policy.Config
	Runner CommandRunner
	Logger *log.Logger

	// Task is the instruction that produced the plan. It decides whether
	// updates are merged into existing files.
	Task string

	DryRun  bool
	OnError FailurePolicy

	// Journal and Metrics are optional. The journal is never written
	// during a dry run.
	Journal *Journal
	Metrics *metrics.Metrics

	// Observer, if set, is told about every step as it starts and ends.
	Observer Observer
}

// Observer receives step progress. Calls happen on the goroutine running
// Apply, in plan order.
type Observer interface {
	StepStarted(index int, step plan.Step)
	StepFinished(index int, step plan.Step, result string, err error)
}

// New builds an Applier with a Runner for cfg.
func New(cfg *policy.Config, logger *log.Logger) *Applier {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Applier{
		Config: cfg,
		Runner: exec.NewRunner(cfg, logger),
		Logger: logger,
	}
}

// run is the mutable state of one Apply call.
type run struct {
	summary *Summary
	view    *patch.Overlay
	// sizes tracks the last written size per absolute path.
	sizes map[string]int64
}

// Apply runs steps sequentially and returns the summary together with the
// first step error. Under HaltOnError nothing after the failing step runs.
// Under ContinueOnError every step runs and the first error is returned at
// the end. Cancelling ctx stops the run before the next step and kills a
// running command. The summary is never nil.
func (a *Applier) Apply(ctx context.Context, steps []plan.Step) (*Summary, error) {
	start := time.Now()
	r := &run{
		summary: &Summary{DryRun: a.DryRun},
		sizes:   make(map[string]int64),
	}
	if a.DryRun {
		r.view = patch.NewOverlay()
	}
	journal := a.journal()
	if journal != nil {
		r.summary.TxID = journal.TxID
	}

	ctx, span := telemetry.StartApplySpan(ctx, r.summary.TxID, len(steps), a.DryRun)
	defer span.End()

	logger := a.logger().WithContext(ctx).With("steps", len(steps), "dry_run", a.DryRun)
	if r.summary.TxID != "" {
		logger = logger.With("tx_id", r.summary.TxID)
	}
	logger.Info("applying plan")

	var firstErr error
	status := checkpoint.StatusCompleted
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			firstErr = fmt.Errorf("apply interrupted before step %d: %w", i+1, err)
			status = checkpoint.StatusInterrupted
			break
		}

		err := a.applyStep(ctx, r, i, step)
		if err == nil {
			continue
		}

		r.summary.Failures = append(r.summary.Failures, newFailure(i+1, step, err))
		a.Metrics.RecordError("apply", err)
		if firstErr == nil {
			firstErr = err
		}
		status = checkpoint.StatusFailed
		if a.OnError == HaltOnError || ctx.Err() != nil {
			break
		}
	}

	for _, n := range r.sizes {
		r.summary.BytesWritten += n
	}
	r.summary.Duration = time.Since(start)

	if journal != nil {
		if err := journal.finish(status); err != nil {
			logger.WithError(err).Warn("failed to save checkpoint")
		}
	}

	a.Metrics.RecordRun(a.DryRun, firstErr == nil, r.summary.Duration)
	telemetry.RecordDuration(span, "apply", r.summary.Duration)
	if firstErr != nil {
		telemetry.RecordError(span, firstErr)
		logger.WithError(firstErr).Warn("plan applied with failures", "failures", len(r.summary.Failures))
	} else {
		telemetry.RecordSuccess(span,
			attribute.Int("files_changed", r.summary.FilesChanged()),
			attribute.Int64("bytes_written", r.summary.BytesWritten),
		)
		logger.Info("plan applied",
			"created", r.summary.Created,
			"updated", r.summary.Updated,
			"deleted", r.summary.Deleted,
			"skipped", r.summary.Skipped,
			"duration", r.summary.Duration,
		)
	}

	return r.summary, firstErr
}

func (a *Applier) applyStep(ctx context.Context, r *run, i int, step plan.Step) error {
	index := i + 1
	meta := step.StepMeta()

	ctx, span := telemetry.StartStepSpan(ctx, i, meta.ID, string(step.Action()))
	defer span.End()

	logger := a.logger().WithContext(ctx).WithStep(i, meta.ID, string(step.Action()))
	if a.Observer != nil {
		a.Observer.StepStarted(index, step)
	}
	journal := a.journal()
	if journal != nil {
		if err := journal.begin(index); err != nil {
			logger.WithError(err).Warn("failed to save checkpoint")
		}
	}

	var (
		result string
		err    error
	)
	switch s := step.(type) {
	case plan.FileStep:
		result, err = a.applyFile(r, index, s, logger)
	case *plan.CommandStep:
		r.summary.Commands++
		cwd := ""
		if s.Cwd != nil {
			cwd = *s.Cwd
		}
		result, err = a.runCommand(ctx, r, meta.ID, s.Command, cwd)
	case *plan.TestStep:
		r.summary.Tests++
		result, err = a.runCommand(ctx, r, meta.ID, s.Command, "")
	default:
		err = fmt.Errorf("unsupported step %T", step)
	}

	stepStatus := checkpoint.StepCompleted
	switch {
	case err != nil:
		result = metrics.ResultFailed
		stepStatus = checkpoint.StepFailed
		telemetry.RecordError(span, err)
		logger.WithError(err).Warn("step failed")
	case result == metrics.ResultSkipped:
		stepStatus = checkpoint.StepSkipped
		telemetry.RecordSuccess(span, attribute.Bool("skipped", true))
	default:
		telemetry.RecordSuccess(span)
	}
	a.Metrics.RecordStep(string(step.Action()), result)
	if a.Observer != nil {
		a.Observer.StepFinished(index, step, result, err)
	}

	if journal != nil {
		if jerr := journal.finishStep(index, stepStatus, err); jerr != nil {
			logger.WithError(jerr).Warn("failed to save checkpoint")
		}
	}
	return err
}

func (a *Applier) applyFile(r *run, index int, step plan.FileStep, logger *log.Logger) (string, error) {
	c, err := patch.ComputeChange(step, a.Config, a.Task, r.view)
	if err != nil {
		return "", err
	}

	if c.Skipped() {
		r.summary.Skipped++
		logger.Info("step skipped", "path", c.Path, "reason", c.SkipReason)
		return metrics.ResultSkipped, nil
	}

	journal := a.journal()
	var patchPath string
	if journal != nil {
		if patchPath, err = journal.recordChange(index, step, c); err != nil {
			return "", err
		}
	}

	if err := a.mutate(r, c); err != nil {
		if journal != nil {
			if derr := journal.discardChange(index); derr != nil {
				logger.WithError(derr).Warn("failed to discard patch of failed step")
			}
		}
		return "", err
	}
	if journal != nil {
		journal.commitChange(index, patchPath)
	}

	if c.Status == patch.FileStatusDeleted {
		delete(r.sizes, c.AbsPath)
		r.summary.Deleted++
		logger.Info("file deleted", "path", c.Path)
		return metrics.ResultApplied, nil
	}

	r.summary.WriteCount++
	r.sizes[c.AbsPath] = int64(len(c.New))

	if c.Old == nil {
		r.summary.Created++
		logger.Info("file created", "path", c.Path, "bytes", len(c.New))
	} else {
		r.summary.Updated++
		logger.Info("file updated", "path", c.Path, "bytes", len(c.New))
	}
	return metrics.ResultApplied, nil
}

// mutate performs c on disk, or records it in the dry-run overlay.
func (a *Applier) mutate(r *run, c *patch.Change) error {
	if r.view != nil {
		r.view.Record(c)
		return nil
	}
	if c.Status == patch.FileStatusDeleted {
		return patch.RemoveFile(c.AbsPath)
	}
	if err := patch.WriteFileAtomic(c.AbsPath, []byte(c.New)); err != nil {
		return err
	}
	a.Metrics.RecordWrite(len(c.New))
	return nil
}

func (a *Applier) runCommand(ctx context.Context, r *run, stepID, command, cwd string) (string, error) {
	if a.DryRun {
		res := exec.DryRunResult(command)
		if cwd != "" {
			res.Cwd = cwd
		}
		r.summary.CommandOutputs = append(r.summary.CommandOutputs, res)
		a.logger().Debug("dry run: command not executed", "command", command)
		return metrics.ResultApplied, nil
	}

	if a.Runner == nil {
		return "", fmt.Errorf("no command runner configured for %q", command)
	}
	res, err := a.Runner.RunStep(ctx, stepID, command, cwd)
	if res != nil {
		r.summary.CommandOutputs = append(r.summary.CommandOutputs, res)
	}
	if err != nil {
		return "", err
	}
	return metrics.ResultApplied, nil
}

func (a *Applier) journal() *Journal {
	if a.DryRun {
		return nil
	}
	return a.Journal
}

func (a *Applier) logger() *log.Logger {
	if a.Logger == nil {
		return log.DefaultLogger()
	}
	return a.Logger
}
