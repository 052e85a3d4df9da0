package checkpoint

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/planguard/internal/errors"
)

func newTestState(txID string) *State {
	s := NewState(txID)
	s.AddStep(1, "s1", "create", "src/a.ts")
	s.AddStep(2, "s2", "update", "src/b.ts")
	s.AddStep(3, "s3", "command", "npm test")
	return s
}

func TestNewState(t *testing.T) {
	s := NewState("tx-1")

	if s.TxID != "tx-1" {
		t.Errorf("expected TxID tx-1, got %s", s.TxID)
	}
	if s.Status != StatusRunning {
		t.Errorf("expected status running, got %s", s.Status)
	}
	if len(s.Steps) != 0 {
		t.Errorf("expected no steps, got %d", len(s.Steps))
	}
	if s.StartedAt.IsZero() || s.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestManagerSaveLoad(t *testing.T) {
	m := NewManager(t.TempDir())

	s := newTestState("tx-1")
	s.DryRun = true
	s.UpdateStep(1, StepRunning, nil)
	s.UpdateStep(1, StepCompleted, nil)
	s.SetMetadata("task", "add a footer")

	if err := m.Save(s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := m.Load("tx-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !loaded.DryRun {
		t.Error("DryRun not preserved")
	}
	if len(loaded.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(loaded.Steps))
	}
	if loaded.Steps[0].Status != StepCompleted {
		t.Errorf("step 1 status = %s, want completed", loaded.Steps[0].Status)
	}
	if v, _ := loaded.GetMetadata("task"); v != "add a footer" {
		t.Errorf("metadata task = %q", v)
	}
	if _, err := os.Stat(filepath.Join(m.Dir("tx-1"), StateFile)); err != nil {
		t.Errorf("state file not at expected path: %v", err)
	}
}

func TestManagerLoadMissing(t *testing.T) {
	m := NewManager(t.TempDir())

	_, err := m.Load("nope")
	if err == nil {
		t.Fatal("expected error for missing transaction")
	}
	if e, ok := errors.As(err); !ok || e.Code != errors.ErrCodeTxNotFound {
		t.Errorf("expected TX-001, got %v", err)
	}
}

func TestManagerSaveNilState(t *testing.T) {
	if err := NewManager(t.TempDir()).Save(nil); err == nil {
		t.Error("expected error for nil state")
	}
}

func TestManagerExists(t *testing.T) {
	m := NewManager(t.TempDir())

	if m.Exists("tx-1") {
		t.Error("transaction should not exist yet")
	}
	if err := m.Save(NewState("tx-1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !m.Exists("tx-1") {
		t.Error("transaction should exist after save")
	}
	if m.Exists("tx-2") {
		t.Error("unrelated transaction should not exist")
	}
}

func TestManagerListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	base := time.Now()
	ages := map[string]time.Duration{"old": 2 * time.Hour, "new": 0, "mid": time.Hour}
	for id, age := range ages {
		s := NewState(id)
		s.StartedAt = base.Add(-age)
		if err := m.Save(s); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "stray"), 0755); err != nil {
		t.Fatal(err)
	}

	states, err := m.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(states))
	}
	got := []string{states[0].TxID, states[1].TxID, states[2].TxID}
	if fmt.Sprint(got) != "[new mid old]" {
		t.Errorf("order = %v, want [new mid old]", got)
	}

	latest, err := m.Latest()
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.TxID != "new" {
		t.Errorf("latest = %s, want new", latest.TxID)
	}
}

func TestManagerListEmpty(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing"))

	states, err := m.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(states) != 0 {
		t.Errorf("expected no transactions, got %d", len(states))
	}

	_, err = m.Latest()
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != errors.ErrCodeTxNotFound {
		t.Errorf("expected TX-001 from Latest, got %v", err)
	}
}

func TestStateUpdateStep(t *testing.T) {
	s := newTestState("tx")

	s.UpdateStep(2, StepRunning, nil)
	step := s.Steps[1]
	if step.Status != StepRunning || step.StartedAt.IsZero() {
		t.Errorf("running step not recorded: %+v", step)
	}

	s.UpdateStep(2, StepFailed, fmt.Errorf("disk full"))
	step = s.Steps[1]
	if step.Status != StepFailed || step.Error != "disk full" || step.CompletedAt.IsZero() {
		t.Errorf("failed step not recorded: %+v", step)
	}

	// Unknown indexes are ignored.
	s.UpdateStep(99, StepCompleted, nil)
	if len(s.Steps) != 3 {
		t.Errorf("unknown index should not add steps")
	}
}

func TestStateStepsWithStatus(t *testing.T) {
	s := newTestState("tx")
	s.UpdateStep(1, StepCompleted, nil)
	s.UpdateStep(3, StepSkipped, nil)

	if got := s.StepsWithStatus(StepPending); fmt.Sprint(got) != "[2]" {
		t.Errorf("pending = %v, want [2]", got)
	}
	if got := s.StepsWithStatus(StepCompleted); fmt.Sprint(got) != "[1]" {
		t.Errorf("completed = %v, want [1]", got)
	}
}

func TestStateIsCompleteAndProgress(t *testing.T) {
	s := NewState("tx")
	if s.IsComplete() {
		t.Error("state without steps is not complete")
	}
	if s.Progress() != 0 {
		t.Errorf("progress = %v, want 0", s.Progress())
	}

	s = newTestState("tx")
	s.UpdateStep(1, StepCompleted, nil)
	s.UpdateStep(2, StepSkipped, nil)
	if s.IsComplete() {
		t.Error("state with a pending step is not complete")
	}
	if p := s.Progress(); p < 0.66 || p > 0.67 {
		t.Errorf("progress = %v, want 2/3", p)
	}

	s.UpdateStep(3, StepCompleted, nil)
	if !s.IsComplete() {
		t.Error("all steps done should be complete")
	}
}

func TestStateAddArtifact(t *testing.T) {
	s := newTestState("tx")
	s.AddArtifact(3, "runs/20250101_000000.000000_s3.json")
	s.AddArtifact(42, "ignored")

	if len(s.Steps[2].Artifacts) != 1 {
		t.Errorf("expected one artifact on step 3, got %v", s.Steps[2].Artifacts)
	}
}
