package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/planguard/internal/apply"
	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/ux"
)

var (
	rollbackToStep int
	rollbackForce  bool
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback [tx-id]",
	Short: "Undo an applied plan from its journal",
	Long: `Restore the files an apply changed, newest step first, from the journal
under .planguard/tx/<tx-id>. Without a transaction ID the most recent one is
rolled back. Commands are not undone.

Before anything is written every journaled file is compared with the content
the apply left behind. If any file has changed since, the rollback stops and
lists them; --force overwrites them anyway.

Examples:
  planguard rollback
  planguard rollback 3f0c9a2e-... --to-step 2
  planguard rollback --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRollback,
}

func init() {
	rollbackCmd.Flags().IntVar(&rollbackToStep, "to-step", 0, "keep steps up to this index and revert the rest (0 reverts everything)")
	rollbackCmd.Flags().BoolVar(&rollbackForce, "force", false, "roll back even if files changed since the apply")

	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	root, err := cc.ProjectRoot()
	if err != nil {
		return err
	}

	txID := ""
	if len(args) == 1 {
		txID = args[0]
	}
	txID, err = resolveTxID(root, txID)
	if err != nil {
		return err
	}

	out, err := apply.RollbackTx(root, txID, apply.RollbackOptions{ToStep: rollbackToStep, Force: rollbackForce}, logger())
	if out != nil {
		report := &ux.RollbackReport{TxID: out.TxID, Warnings: out.Warnings, Result: out.Result}
		if outErr := cc.Output(cmd.OutOrStdout(), report); outErr != nil {
			return outErr
		}
	}
	return ux.EnhanceError(err)
}

// resolveTxID returns txID, or the most recent transaction of root when
// txID is empty or "latest".
func resolveTxID(root, txID string) (string, error) {
	if txID != "" && txID != "latest" {
		if _, err := uuid.Parse(txID); err != nil {
			return "", errors.New(errors.ErrCodeTxNotFound, fmt.Sprintf("invalid transaction id %q", txID)).
				WithSuggestion("Run 'planguard status' to list recorded transactions")
		}
		if !apply.TxExists(root, txID) {
			return "", errors.New(errors.ErrCodeTxNotFound, fmt.Sprintf("transaction not found: %s", txID)).
				WithSuggestion("Run 'planguard status' to list recorded transactions")
		}
		return txID, nil
	}

	latest, err := apply.LatestTx(root)
	if err != nil {
		if coded, ok := errors.As(err); ok && coded.Code == errors.ErrCodeTxNotFound {
			return "", NoTransactionsError(root)
		}
		return "", err
	}
	return latest.TxID, nil
}
