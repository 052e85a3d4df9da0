package apply

import (
	"time"

	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/exec"
	"github.com/felixgeelhaar/planguard/internal/plan"
)

// Summary is the outcome of one Apply call. Dry runs report the counters a
// real apply would have produced.
type Summary struct {
	TxID   string `json:"tx_id,omitempty" yaml:"tx_id,omitempty"`
	DryRun bool   `json:"dry_run" yaml:"dry_run"`

	Created  int `json:"created" yaml:"created"`
	Updated  int `json:"updated" yaml:"updated"`
	Deleted  int `json:"deleted" yaml:"deleted"`
	Commands int `json:"commands" yaml:"commands"`
	Tests    int `json:"tests" yaml:"tests"`
	Skipped  int `json:"skipped" yaml:"skipped"`

	// BytesWritten is the final size of every written file, counted once
	// per path. A file deleted later in the run does not count.
	BytesWritten int64 `json:"bytes_written" yaml:"bytes_written"`
	// WriteCount is the number of atomic writes performed.
	WriteCount int `json:"write_count" yaml:"write_count"`

	CommandOutputs []*exec.CmdResult `json:"command_outputs,omitempty" yaml:"command_outputs,omitempty"`
	Failures       []StepFailure     `json:"failures,omitempty" yaml:"failures,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// StepFailure records a step that did not complete.
type StepFailure struct {
	Index  int         `json:"index" yaml:"index"`
	StepID string      `json:"step_id,omitempty" yaml:"step_id,omitempty"`
	Action plan.Action `json:"action" yaml:"action"`
	Target string      `json:"target" yaml:"target"`
	Code   string      `json:"code,omitempty" yaml:"code,omitempty"`
	Error  string      `json:"error" yaml:"error"`
}

// Succeeded reports whether every step completed or was skipped.
func (s *Summary) Succeeded() bool {
	return len(s.Failures) == 0
}

// FilesChanged is the number of created, updated and deleted files.
func (s *Summary) FilesChanged() int {
	return s.Created + s.Updated + s.Deleted
}

func newFailure(index int, step plan.Step, err error) StepFailure {
	f := StepFailure{
		Index:  index,
		StepID: step.StepMeta().ID,
		Action: step.Action(),
		Target: target(step),
		Error:  err.Error(),
	}
	if e, ok := errors.As(err); ok {
		f.Code = string(e.Code)
	}
	return f
}

// target is the path or command a step acts on.
func target(step plan.Step) string {
	if fs, ok := step.(plan.FileStep); ok {
		return fs.TargetPath()
	}
	cmd, _ := plan.CommandOf(step)
	return cmd
}
