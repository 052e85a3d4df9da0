package apply

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/felixgeelhaar/planguard/internal/checkpoint"
	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/exec"
	"github.com/felixgeelhaar/planguard/internal/log"
	"github.com/felixgeelhaar/planguard/internal/patch"
)

// RollbackOptions selects what a rollback reverts.
type RollbackOptions struct {
	// ToStep keeps steps 1..ToStep and reverts everything after. Zero
	// reverts the whole transaction.
	ToStep int
	// Force reverts even when files changed since the apply.
	Force bool
}

// RollbackOutcome is the result of RollbackTx. Result is nil when nothing
// was reverted.
type RollbackOutcome struct {
	TxID     string
	Warnings []string
	Result   *patch.RollbackResult
}

// RollbackTx reverts transaction txID of root from its journal. Files
// edited after the apply are reported as warnings, and unless opts.Force is
// set they stop the rollback with a drift error before anything is written.
func RollbackTx(root, txID string, opts RollbackOptions, logger *log.Logger) (*RollbackOutcome, error) {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	logger = logger.With("tx_id", txID)

	manager := checkpoint.NewManager(TxBaseDir(root))
	state, err := manager.Load(txID)
	if err != nil {
		return nil, err
	}
	if opts.ToStep < 0 || opts.ToStep > len(state.Steps) {
		return nil, errors.New(errors.ErrCodePlanInvalid,
			fmt.Sprintf("step %d out of range, transaction has %d steps", opts.ToStep, len(state.Steps)))
	}

	rb := patch.NewRollback(root, manager.Dir(txID))
	out := &RollbackOutcome{TxID: txID}

	safe, warnings, err := rb.VerifyRollbackSafety()
	if err != nil {
		return nil, err
	}
	out.Warnings = warnings
	if !safe {
		for _, w := range warnings {
			logger.Warn("rollback drift", "detail", w)
		}
		if !opts.Force {
			return out, errors.New(errors.ErrCodeTxDrift,
				fmt.Sprintf("%d file(s) changed since transaction %s was applied", len(warnings), txID)).
				WithSuggestion("Inspect the listed files, then rerun with --force to overwrite them")
		}
	}

	result, err := rb.RollbackToStep(opts.ToStep)
	out.Result = result
	if err != nil {
		logger.WithError(err).Warn("rollback stopped")
		return out, err
	}

	if opts.ToStep == 0 {
		state.Status = checkpoint.StatusRolledBack
	} else {
		state.SetMetadata("rolled_back_to", strconv.Itoa(opts.ToStep))
	}
	if err := manager.Save(state); err != nil {
		logger.WithError(err).Warn("failed to save checkpoint")
	}

	logger.Info("transaction rolled back",
		"steps_reverted", result.StepsReverted,
		"files_restored", result.FilesRestored,
	)
	return out, nil
}

// LoadTx returns the checkpoint and command manifests of transaction txID.
func LoadTx(root, txID string) (*checkpoint.State, []*exec.RunManifest, error) {
	manager := checkpoint.NewManager(TxBaseDir(root))
	state, err := manager.Load(txID)
	if err != nil {
		return nil, nil, err
	}
	runs, err := exec.LoadManifests(filepath.Join(manager.Dir(txID), RunsDir))
	if err != nil {
		return state, nil, err
	}
	return state, runs, nil
}

// LatestTx returns the most recently started transaction of root.
func LatestTx(root string) (*checkpoint.State, error) {
	return checkpoint.NewManager(TxBaseDir(root)).Latest()
}

// TxExists reports whether root has a journal for txID.
func TxExists(root, txID string) bool {
	return checkpoint.NewManager(TxBaseDir(root)).Exists(txID)
}

// ListTx returns every recorded transaction of root, newest first.
func ListTx(root string) ([]*checkpoint.State, error) {
	return checkpoint.NewManager(TxBaseDir(root)).List()
}
