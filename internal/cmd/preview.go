package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/planguard/internal/patch"
	"github.com/felixgeelhaar/planguard/internal/ux"
)

var (
	previewPlanPath string
	previewTask     string
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show what applying a plan would change",
	Long: `Show a read-only preview of every step: byte sizes before and after, a
capped diff snippet for file steps, and the command line for command steps.

Previews are computed from the files on disk at the time of the call and
take earlier steps of the same plan into account.

Examples:
  planguard preview --plan plan.json
  planguard preview --plan plan.json --task "add a footer" -o json`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVarP(&previewPlanPath, "plan", "p", "", "plan file (default: <root>/plan.json)")
	previewCmd.Flags().StringVar(&previewTask, "task", "", "instruction that produced the plan; additive tasks merge updates")

	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return ux.EnhanceError(err)
	}

	pp, err := preparePlan(planPath(cfg.Root, previewPlanPath), cfg, app.metrics, logger())
	if err != nil {
		return ux.EnhanceError(err)
	}

	previews, err := patch.NewPreviewer(cfg, previewTask).Preview(pp.Plan)
	if err != nil {
		return ux.EnhanceError(err)
	}

	return cc.Output(cmd.OutOrStdout(), previewReport(pp, previews))
}

func previewReport(pp *preparedPlan, previews []patch.Preview) *ux.PreviewReport {
	return &ux.PreviewReport{
		Summary:      pp.Plan.Summary,
		Warnings:     pp.Warnings,
		Counts:       pp.Plan.Counts(),
		PayloadBytes: pp.PayloadBytes,
		Previews:     previews,
	}
}
