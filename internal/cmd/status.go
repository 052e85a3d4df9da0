package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/planguard/internal/apply"
	"github.com/felixgeelhaar/planguard/internal/ux"
)

var statusCmd = &cobra.Command{
	Use:   "status [tx-id]",
	Short: "Show recorded apply transactions",
	Long: `Without arguments, list every apply transaction recorded under
.planguard/tx, newest first, with its status and step progress.

With a transaction ID (or "latest"), show each step of that transaction, its
error if it failed, and the commands it ran.

Examples:
  planguard status
  planguard status latest
  planguard status 3f0c9a2e-... -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	root, err := cc.ProjectRoot()
	if err != nil {
		return err
	}

	var report ux.Renderer
	if len(args) == 1 {
		report, err = buildTxReport(root, args[0])
	} else {
		report, err = buildStatusReport(root)
	}
	if err != nil {
		return ux.EnhanceError(err)
	}
	return cc.Output(cmd.OutOrStdout(), report)
}

func buildStatusReport(root string) (*ux.StatusReport, error) {
	txs, err := apply.ListTx(root)
	if err != nil {
		return nil, err
	}
	return &ux.StatusReport{Transactions: txs}, nil
}

func buildTxReport(root, txID string) (*ux.TxReport, error) {
	txID, err := resolveTxID(root, txID)
	if err != nil {
		return nil, err
	}
	state, runs, err := apply.LoadTx(root, txID)
	if err != nil {
		return nil, err
	}
	return &ux.TxReport{State: state, Runs: runs}, nil
}
