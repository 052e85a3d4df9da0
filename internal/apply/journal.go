package apply

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/planguard/internal/checkpoint"
	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/patch"
	"github.com/felixgeelhaar/planguard/internal/plan"
)

// Journal layout under the project root.
const (
	StateDir = ".planguard"
	TxDir    = "tx"
	RunsDir  = "runs"
	PlanFile = "plan.json"
)

// TxBaseDir returns the directory holding every transaction of root.
func TxBaseDir(root string) string {
	return filepath.Join(root, StateDir, TxDir)
}

// Journal records one apply transaction: the plan, a patch per file step
// with the content it replaced, and a checkpoint of step statuses. Patches
// are written before the file is touched so an interrupted run can still be
// rolled back.
type Journal struct {
	TxID string

	dir     string
	patches *patch.Store
	manager *checkpoint.Manager
	state   *checkpoint.State
}

// NewJournal starts transaction txID (a fresh UUID when empty) under
// baseDir, recording p and task.
func NewJournal(baseDir, txID string, p *plan.Plan, task string) (*Journal, error) {
	if txID == "" {
		txID = uuid.NewString()
	}

	manager := checkpoint.NewManager(baseDir)
	dir := manager.Dir(txID)
	j := &Journal{
		TxID:    txID,
		dir:     dir,
		patches: patch.NewStore(dir),
		manager: manager,
		state:   checkpoint.NewState(txID),
	}

	for i, step := range p.Steps {
		j.state.AddStep(i+1, step.StepMeta().ID, string(step.Action()), target(step))
	}
	if task != "" {
		j.state.SetMetadata("task", task)
	}
	if p.Summary != "" {
		j.state.SetMetadata("summary", p.Summary)
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDirectoryFailed, fmt.Sprintf("create transaction directory %s", dir), err)
	}
	if err := plan.SavePlan(p, filepath.Join(dir, PlanFile)); err != nil {
		return nil, fmt.Errorf("failed to record plan: %w", err)
	}
	if err := j.manager.Save(j.state); err != nil {
		return nil, err
	}
	return j, nil
}

// Dir is the transaction directory.
func (j *Journal) Dir() string {
	return j.dir
}

// RunsDir is where command run manifests are stored.
func (j *Journal) RunsDir() string {
	return filepath.Join(j.dir, RunsDir)
}

// State returns the live checkpoint.
func (j *Journal) State() *checkpoint.State {
	return j.state
}

func (j *Journal) begin(index int) error {
	j.state.UpdateStep(index, checkpoint.StepRunning, nil)
	return j.manager.Save(j.state)
}

// recordChange writes the patch for step index before its file is touched.
// The returned path is passed to commitChange once the mutation succeeded.
func (j *Journal) recordChange(index int, step plan.Step, c *patch.Change) (string, error) {
	p := patch.NewPatch(j.TxID, index, step.StepMeta().ID, string(step.Action()), c.FilePatch())
	return j.patches.Save(p)
}

func (j *Journal) commitChange(index int, path string) {
	j.state.AddArtifact(index, filepath.Base(path))
}

// discardChange drops the patch of a step whose mutation failed, so the
// journal only describes changes that reached the disk.
func (j *Journal) discardChange(index int) error {
	return j.patches.Remove(index)
}

func (j *Journal) finishStep(index int, status string, err error) error {
	j.state.UpdateStep(index, status, err)
	return j.manager.Save(j.state)
}

func (j *Journal) finish(status string) error {
	j.state.Status = status
	return j.manager.Save(j.state)
}
