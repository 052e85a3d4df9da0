package apply

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/planguard/internal/checkpoint"
	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/log"
	"github.com/felixgeelhaar/planguard/internal/plan"
)

// applyJournaled applies steps under a journal and returns the tx ID.
func applyJournaled(t *testing.T, a *Applier, steps []plan.Step) string {
	t.Helper()
	p := &plan.Plan{Summary: "test", Steps: steps}
	journal, err := NewJournal(TxBaseDir(a.Config.Root), "", p, "")
	require.NoError(t, err)
	a.Journal = journal
	_, err = a.Apply(context.Background(), steps)
	require.NoError(t, err)
	return journal.TxID
}

func rollbackSteps() []plan.Step {
	return []plan.Step{
		&plan.CreateStep{Path: "a.txt", Content: plan.Str("one")},
		&plan.UpdateStep{Path: "a.txt", Content: plan.Str("two")},
		&plan.CreateStep{Path: "b.txt", Content: plan.Str("bee")},
	}
}

func TestRollbackTxRestoresEverything(t *testing.T) {
	a, _ := newTestApplier(t)
	root := a.Config.Root
	txID := applyJournaled(t, a, rollbackSteps())

	out, err := RollbackTx(root, txID, RollbackOptions{}, log.Discard())
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, 3, out.Result.StepsReverted)

	assert.NoFileExists(t, filepath.Join(root, "a.txt"))
	assert.NoFileExists(t, filepath.Join(root, "b.txt"))

	state, err := checkpoint.NewManager(TxBaseDir(root)).Load(txID)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.StatusRolledBack, state.Status)
}

func TestRollbackTxToStep(t *testing.T) {
	a, _ := newTestApplier(t)
	root := a.Config.Root
	txID := applyJournaled(t, a, rollbackSteps())

	out, err := RollbackTx(root, txID, RollbackOptions{ToStep: 1}, log.Discard())
	require.NoError(t, err)
	assert.Equal(t, 2, out.Result.StepsReverted)

	assert.Equal(t, "one\n", readFile(t, root, "a.txt"))
	assert.NoFileExists(t, filepath.Join(root, "b.txt"))

	state, err := checkpoint.NewManager(TxBaseDir(root)).Load(txID)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.StatusCompleted, state.Status)
	to, ok := state.GetMetadata("rolled_back_to")
	assert.True(t, ok)
	assert.Equal(t, "1", to)
}

func TestRollbackTxRefusesDrift(t *testing.T) {
	a, _ := newTestApplier(t)
	root := a.Config.Root
	txID := applyJournaled(t, a, rollbackSteps())
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("edited\n"), 0644))

	out, err := RollbackTx(root, txID, RollbackOptions{}, log.Discard())
	require.Error(t, err)
	assert.Equal(t, errors.KindDrift, errors.KindOf(err))
	require.NotNil(t, out)
	assert.Nil(t, out.Result)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "b.txt")

	// Nothing was reverted.
	assert.Equal(t, "two\n", readFile(t, root, "a.txt"))
	assert.Equal(t, "edited\n", readFile(t, root, "b.txt"))
}

func TestRollbackTxForceOverridesDrift(t *testing.T) {
	a, _ := newTestApplier(t)
	root := a.Config.Root
	txID := applyJournaled(t, a, rollbackSteps())
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("edited\n"), 0644))

	out, err := RollbackTx(root, txID, RollbackOptions{Force: true}, log.Discard())
	require.NoError(t, err)
	assert.Len(t, out.Warnings, 1)
	assert.NoFileExists(t, filepath.Join(root, "a.txt"))
}

func TestRollbackTxAfterFailedWrite(t *testing.T) {
	a, _ := newTestApplier(t)
	root := a.Config.Root
	writeFile(t, root, "a.txt", "old\n")

	// The temp file for a 250-byte name exceeds the file name limit.
	long := strings.Repeat("x", 250)
	steps := []plan.Step{
		&plan.UpdateStep{Path: "a.txt", Content: plan.Str("new")},
		&plan.CreateStep{Path: long, Content: plan.Str("never written")},
	}
	p := &plan.Plan{Summary: "test", Steps: steps}
	journal, err := NewJournal(TxBaseDir(root), "", p, "")
	require.NoError(t, err)
	a.Journal = journal

	_, err = a.Apply(context.Background(), steps)
	require.Error(t, err)
	assert.Equal(t, errors.KindIOFailure, errors.KindOf(err))
	assert.Equal(t, "new\n", readFile(t, root, "a.txt"))
	assert.NoFileExists(t, filepath.Join(journal.Dir(), "0002.patch.json"))
	assert.Empty(t, journal.State().Steps[1].Artifacts)

	out, err := RollbackTx(root, journal.TxID, RollbackOptions{}, log.Discard())
	require.NoError(t, err)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, 1, out.Result.StepsReverted)
	assert.Equal(t, "old\n", readFile(t, root, "a.txt"))
	assert.NoFileExists(t, filepath.Join(root, long))
}

func TestRollbackTxErrors(t *testing.T) {
	a, _ := newTestApplier(t)
	root := a.Config.Root

	_, err := RollbackTx(root, "missing", RollbackOptions{}, log.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TX-001")

	txID := applyJournaled(t, a, rollbackSteps())
	_, err = RollbackTx(root, txID, RollbackOptions{ToStep: 4}, log.Discard())
	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
}

func TestLoadTxAndListTx(t *testing.T) {
	a, _ := newTestApplier(t)
	root := a.Config.Root

	txs, err := ListTx(root)
	require.NoError(t, err)
	assert.Empty(t, txs)

	txID := applyJournaled(t, a, rollbackSteps())

	state, runs, err := LoadTx(root, txID)
	require.NoError(t, err)
	assert.Equal(t, txID, state.TxID)
	assert.Len(t, state.Steps, 3)
	assert.Empty(t, runs)

	txs, err = ListTx(root)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, txID, txs[0].TxID)
}
