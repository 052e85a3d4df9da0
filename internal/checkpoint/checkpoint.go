// Package checkpoint persists the progress of an apply transaction so an
// interrupted run can be inspected and rolled back.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/patch"
)

// StateFile is the checkpoint file name inside a transaction directory.
const StateFile = "state.json"

// Transaction statuses.
const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
	StatusRolledBack  = "rolled_back"
)

// Step statuses.
const (
	StepPending   = "pending"
	StepRunning   = "running"
	StepCompleted = "completed"
	StepSkipped   = "skipped"
	StepFailed    = "failed"
)

// State is the checkpoint of one apply transaction.
type State struct {
	Version   string            `json:"version"`
	TxID      string            `json:"tx_id"`
	StartedAt time.Time         `json:"started_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Status    string            `json:"status"`
	DryRun    bool              `json:"dry_run,omitempty"`
	Steps     []Step            `json:"steps"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Step is the progress of one plan step. Index is one-based.
type Step struct {
	Index       int       `json:"index"`
	ID          string    `json:"id,omitempty"`
	Action      string    `json:"action"`
	Target      string    `json:"target"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Error       string    `json:"error,omitempty"`
	Artifacts   []string  `json:"artifacts,omitempty"`
}

// Manager stores transaction checkpoints under baseDir/<tx-id>/state.json.
type Manager struct {
	baseDir string
}

// NewManager creates a new checkpoint manager
func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir}
}

// Dir returns the directory of transaction txID.
func (m *Manager) Dir(txID string) string {
	return filepath.Join(m.baseDir, txID)
}

// NewState creates a new checkpoint state
func NewState(txID string) *State {
	now := time.Now()
	return &State{
		Version:   "1",
		TxID:      txID,
		StartedAt: now,
		UpdatedAt: now,
		Status:    StatusRunning,
		Metadata:  make(map[string]string),
	}
}

// AddStep registers a pending step.
func (s *State) AddStep(index int, id, action, target string) {
	s.Steps = append(s.Steps, Step{Index: index, ID: id, Action: action, Target: target, Status: StepPending})
}

// Save persists the checkpoint state to disk
func (m *Manager) Save(state *State) error {
	if state == nil {
		return fmt.Errorf("checkpoint state is nil")
	}

	state.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint state: %w", err)
	}

	if err := patch.WriteFileAtomic(filepath.Join(m.Dir(state.TxID), StateFile), data); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}

	return nil
}

// Load reads the checkpoint state from disk
func (m *Manager) Load(txID string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(m.Dir(txID), StateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeTxNotFound, fmt.Sprintf("transaction not found: %s", txID)).
				WithSuggestion("Run 'planguard status' to list recorded transactions")
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint state: %w", err)
	}

	return &state, nil
}

// Exists checks if a checkpoint exists for the given transaction
func (m *Manager) Exists(txID string) bool {
	_, err := os.Stat(filepath.Join(m.Dir(txID), StateFile))
	return err == nil
}

// List returns every recorded transaction, newest first.
func (m *Manager) List() ([]*State, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var states []*State
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		state, err := m.Load(entry.Name())
		if err != nil {
			continue // Skip directories without a readable state
		}
		states = append(states, state)
	}

	sort.Slice(states, func(i, j int) bool { return states[i].StartedAt.After(states[j].StartedAt) })
	return states, nil
}

// Latest returns the most recently started transaction.
func (m *Manager) Latest() (*State, error) {
	states, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return nil, errors.New(errors.ErrCodeTxNotFound, "no transactions recorded").
			WithSuggestion("Run 'planguard apply' first")
	}
	return states[0], nil
}

// UpdateStep moves the step at index to status.
func (s *State) UpdateStep(index int, status string, err error) {
	step := s.step(index)
	if step == nil {
		return
	}

	now := time.Now()
	if step.Status == StepPending && status == StepRunning {
		step.StartedAt = now
	}
	if status == StepCompleted || status == StepFailed || status == StepSkipped {
		step.CompletedAt = now
	}
	step.Status = status

	if err != nil {
		step.Error = err.Error()
	}

	s.UpdatedAt = now
}

func (s *State) step(index int) *Step {
	for i := range s.Steps {
		if s.Steps[i].Index == index {
			return &s.Steps[i]
		}
	}
	return nil
}

// StepsWithStatus returns the indexes of steps in status, in plan order.
func (s *State) StepsWithStatus(status string) []int {
	var out []int
	for _, step := range s.Steps {
		if step.Status == status {
			out = append(out, step.Index)
		}
	}
	return out
}

// IsComplete returns true if all steps are completed or skipped
func (s *State) IsComplete() bool {
	for _, step := range s.Steps {
		if step.Status != StepCompleted && step.Status != StepSkipped {
			return false
		}
	}
	return len(s.Steps) > 0
}

// Progress returns the completion percentage (0.0 to 1.0)
func (s *State) Progress() float64 {
	if len(s.Steps) == 0 {
		return 0.0
	}

	done := 0
	for _, step := range s.Steps {
		if step.Status == StepCompleted || step.Status == StepSkipped {
			done++
		}
	}

	return float64(done) / float64(len(s.Steps))
}

// AddArtifact adds an artifact path to a step
func (s *State) AddArtifact(index int, artifactPath string) {
	if step := s.step(index); step != nil {
		step.Artifacts = append(step.Artifacts, artifactPath)
		s.UpdatedAt = time.Now()
	}
}

// SetMetadata sets a metadata key-value pair
func (s *State) SetMetadata(key, value string) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]string)
	}
	s.Metadata[key] = value
	s.UpdatedAt = time.Now()
}

// GetMetadata retrieves a metadata value
func (s *State) GetMetadata(key string) (string, bool) {
	if s.Metadata == nil {
		return "", false
	}
	value, ok := s.Metadata[key]
	return value, ok
}
