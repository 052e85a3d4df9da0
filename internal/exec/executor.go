// Package exec runs allowlisted commands under the project root with
// captured output and a wall-clock timeout.
package exec

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/log"
	"github.com/felixgeelhaar/planguard/internal/metrics"
	"github.com/felixgeelhaar/planguard/internal/policy"
	"github.com/felixgeelhaar/planguard/internal/safety"
	"github.com/felixgeelhaar/planguard/internal/telemetry"
)

// waitDelay bounds how long Wait blocks on output pipes after the child
// has been killed.
const waitDelay = 2 * time.Second

// Runner spawns commands that pass the command policy.
type Runner struct {
	Root    string
	Policy  safety.CommandPolicy
	Timeout time.Duration
	Logger  *log.Logger

	// ManifestDir, when set, receives a RunManifest per executed command.
	ManifestDir string

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// NewRunner builds a Runner from the loaded config.
func NewRunner(cfg *policy.Config, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Runner{
		Root:    cfg.Root,
		Policy:  safety.NewCommandPolicy(cfg),
		Timeout: cfg.Timeout,
		Logger:  logger,
	}
}

// Run executes command from cwd (relative to Root; empty means Root).
//
// A zero exit returns the result and nil. A non-zero exit returns the
// result together with a CommandFailed error that embeds stdout and stderr.
// Exceeding Timeout kills the process and returns a TimedOut error.
// Cancelling ctx kills the process and returns ctx.Err() wrapped.
func (r *Runner) Run(ctx context.Context, command, cwd string) (*CmdResult, error) {
	return r.RunStep(ctx, "", command, cwd)
}

// RunStep is Run with the plan step ID recorded in the manifest.
func (r *Runner) RunStep(ctx context.Context, stepID, command, cwd string) (*CmdResult, error) {
	if err := r.Policy.Check(command); err != nil {
		return nil, err
	}

	argv := SplitCommandLine(command)
	if len(argv) == 0 {
		return nil, errors.New(errors.ErrCodeExecEmptyCommand, "empty command")
	}

	dir, err := safety.ResolveDir(r.Root, cwd)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, errors.New(errors.ErrCodeExecSpawnFailed, fmt.Sprintf("working directory does not exist: %s", dir)).
			WithSuggestion("Create the directory in an earlier step or drop cwd from the command step")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("command %q interrupted: %w", command, err)
	}

	ctx, span := telemetry.StartExecSpan(ctx, command, dir)
	defer span.End()

	logger := r.logger().WithContext(ctx).With("command", command, "cwd", dir)
	logger.Debug("running command", "argv", argv)

	res, runErr := r.spawn(ctx, command, argv[0], argv[1:], dir)
	if runErr != nil && isNotFound(runErr) {
		if !r.Policy.AllowsShell(command) {
			err := errors.Wrap(errors.ErrCodeExecSpawnFailed, fmt.Sprintf("failed to spawn %s", argv[0]), runErr).
				WithSuggestion("Install the program or add the exact command to command_allowlist to allow the shell fallback")
			telemetry.RecordError(span, err)
			return nil, err
		}
		logger.Warn("program not found, retrying through shell", "program", argv[0])
		shell, args := shellCommand(command)
		res, runErr = r.spawn(ctx, command, shell, args, dir)
		if res != nil {
			res.ViaShellFallback = true
		}
	}

	err = r.classify(ctx, command, res, runErr)
	r.record(stepID, argv, res, err)

	if res != nil {
		r.Metrics.RecordCommand(filepath.Base(argv[0]), err == nil, res.TimedOut, res.ViaShellFallback, res.Duration)
		telemetry.RecordDuration(span, "exec", res.Duration)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		logger.WithError(err).Warn("command failed")
	} else {
		telemetry.RecordSuccess(span)
		logger.Info("command finished", "duration", res.Duration)
	}
	return res, err
}

// spawn starts one process and waits for it. A nil result means the
// process never started.
func (r *Runner) spawn(ctx context.Context, command, program string, args []string, dir string) (*CmdResult, error) {
	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, program, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	killTree(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	err := cmd.Wait()

	res := &CmdResult{
		Command:  command,
		Cwd:      dir,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.StatusCode = cmd.ProcessState.ExitCode()
	}

	if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		res.TimedOut = true
	}
	return res, err
}

// classify turns a spawn outcome into the error returned to callers.
func (r *Runner) classify(ctx context.Context, command string, res *CmdResult, runErr error) error {
	switch {
	case res == nil && runErr != nil:
		return errors.Wrap(errors.ErrCodeExecSpawnFailed, fmt.Sprintf("failed to spawn command %q", command), runErr)
	case res.TimedOut:
		return errors.NewTimedOutError(command, r.Timeout)
	case ctx.Err() != nil:
		return fmt.Errorf("command %q interrupted: %w", command, ctx.Err())
	case runErr != nil && res.StatusCode == 0:
		// Wait failed without an exit status, e.g. WaitDelay expired
		return errors.Wrap(errors.ErrCodeExecCommandFailed, fmt.Sprintf("command %q did not complete", command), runErr)
	case res.StatusCode != 0:
		return errors.New(errors.ErrCodeExecCommandFailed, fmt.Sprintf(
			"command exited with non-zero status %d\nstdout:\n%s\nstderr:\n%s",
			res.StatusCode, res.Stdout, res.Stderr))
	}
	return nil
}

func (r *Runner) record(stepID string, argv []string, res *CmdResult, runErr error) {
	if r.ManifestDir == "" || res == nil {
		return
	}
	m := CreateManifest(stepID, argv, res, runErr)
	if _, err := SaveManifest(m, r.ManifestDir); err != nil {
		r.logger().WithError(err).Warn("failed to save run manifest", "dir", filepath.Clean(r.ManifestDir))
	}
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.DefaultLogger()
	}
	return r.Logger
}

func isNotFound(err error) bool {
	return stderrors.Is(err, exec.ErrNotFound) || stderrors.Is(err, fs.ErrNotExist)
}
