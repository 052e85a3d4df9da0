package exec

import "time"

// CmdResult is the captured outcome of one command or test step.
type CmdResult struct {
	Command          string        `json:"command" yaml:"command"`
	Cwd              string        `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	StatusCode       int           `json:"status_code" yaml:"status_code"`
	Stdout           string        `json:"stdout" yaml:"stdout"`
	Stderr           string        `json:"stderr" yaml:"stderr"`
	Duration         time.Duration `json:"duration" yaml:"duration"`
	ViaShellFallback bool          `json:"via_shell_fallback" yaml:"via_shell_fallback"`
	TimedOut         bool          `json:"timed_out,omitempty" yaml:"timed_out,omitempty"`
	DryRun           bool          `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
}

// DryRunResult is the placeholder recorded for a command that was not run.
func DryRunResult(command string) *CmdResult {
	return &CmdResult{
		Command: command,
		Cwd:     ".",
		DryRun:  true,
	}
}

// RunManifest is the audit record written for every executed command.
type RunManifest struct {
	Timestamp        time.Time `json:"timestamp"`
	StepID           string    `json:"step_id"`
	Command          string    `json:"command"`
	Argv             []string  `json:"argv"`
	Cwd              string    `json:"cwd"`
	ExitCode         int       `json:"exit_code"`
	Duration         string    `json:"duration"`
	ViaShellFallback bool      `json:"via_shell_fallback"`
	TimedOut         bool      `json:"timed_out"`
	StdoutHash       string    `json:"stdout_blake3"`
	StderrHash       string    `json:"stderr_blake3"`
	Error            string    `json:"error,omitempty"`
}
