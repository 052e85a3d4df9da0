package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/log"
	"github.com/felixgeelhaar/planguard/internal/metrics"
	"github.com/felixgeelhaar/planguard/internal/policy"
	"github.com/felixgeelhaar/planguard/internal/ux"
)

var validatePlanPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a plan against the safety policy",
	Long: `Check a plan against the safety policy without touching the project.

The step count, every file path, every command and the total proposed bytes
are checked in that order; the first violation is reported. The exit code is
non-zero when the plan is rejected.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validatePlanPath, "plan", "p", "", "plan file (default: <root>/plan.json)")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return ux.EnhanceError(err)
	}

	report, err := validatePlan(planPath(cfg.Root, validatePlanPath), cfg, app.metrics, logger())
	if report != nil {
		if outErr := cc.Output(cmd.OutOrStdout(), report); outErr != nil {
			return outErr
		}
	}
	return ux.EnhanceError(err)
}

// validatePlan reports whether the plan at path passes cfg. A plan that
// cannot be loaded yields no report.
func validatePlan(path string, cfg *policy.Config, m *metrics.Metrics, logger *log.Logger) (*ux.ValidationReport, error) {
	pp, err := preparePlan(path, cfg, m, logger)
	if pp == nil {
		return nil, err
	}

	report := &ux.ValidationReport{
		Valid:        err == nil,
		Steps:        len(pp.Plan.Steps),
		PayloadBytes: pp.PayloadBytes,
		Warnings:     pp.Warnings,
	}
	if err != nil {
		report.Error = err.Error()
		if e, ok := errors.As(err); ok {
			report.Code = string(e.Code)
		}
	}
	return report, err
}
