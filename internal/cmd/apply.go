package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/planguard/internal/apply"
	"github.com/felixgeelhaar/planguard/internal/exec"
	"github.com/felixgeelhaar/planguard/internal/log"
	"github.com/felixgeelhaar/planguard/internal/metrics"
	"github.com/felixgeelhaar/planguard/internal/patch"
	"github.com/felixgeelhaar/planguard/internal/policy"
	"github.com/felixgeelhaar/planguard/internal/tui"
	"github.com/felixgeelhaar/planguard/internal/ux"
)

var (
	applyPlanPath string
	applyTask     string
	applyDryRun   bool
	applyYes      bool
	applyReview   bool
	applyContinue bool
	applyProgress bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a plan to the project",
	Long: `Apply a generated plan to the project root.

The plan is sanitized, checked against the policy and previewed. Nothing is
written until the plan is approved. File steps are written atomically and
journaled under .planguard/tx/<id> so they can be rolled back; command and
test steps run through the command allowlist with the configured timeout.

Examples:
  # Show what would happen without touching anything
  planguard apply --plan plan.json --dry-run

  # Review every diff interactively before applying
  planguard apply --plan plan.json --review

  # Non-interactive apply that keeps going after a failed step
  planguard apply --plan plan.json --yes --continue-on-error

  # Let the task decide whether updates are merged into existing files
  planguard apply --plan plan.json --task "add a logout button"`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyPlanPath, "plan", "p", "", "plan file (default: <root>/plan.json)")
	applyCmd.Flags().StringVar(&applyTask, "task", "", "instruction that produced the plan; additive tasks merge updates")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "compute the summary without writing files or running commands")
	applyCmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "apply without asking for confirmation")
	applyCmd.Flags().BoolVar(&applyReview, "review", false, "review every step in an interactive diff viewer first")
	applyCmd.Flags().BoolVar(&applyContinue, "continue-on-error", false, "run the remaining steps after a step fails")
	applyCmd.Flags().BoolVar(&applyProgress, "progress", false, "show a live progress view while applying")

	rootCmd.AddCommand(applyCmd)
}

// errApplyCancelled is returned when the plan was not approved.
var errApplyCancelled = fmt.Errorf("apply cancelled")

// approveFunc decides whether a previewed plan may be applied.
type approveFunc func(pp *preparedPlan, previews []patch.Preview) (bool, error)

// applyOptions is one apply invocation with every decision made.
type applyOptions struct {
	Config   *policy.Config
	PlanPath string
	Task     string
	DryRun   bool
	OnError  apply.FailurePolicy

	// Approve is asked after previewing; nil approves.
	Approve approveFunc
	// Progress shows the live progress view.
	Progress bool

	Logger  *log.Logger
	Metrics *metrics.Metrics
}

func runApply(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return ux.EnhanceError(err)
	}

	opts := applyOptions{
		Config:   cfg,
		PlanPath: planPath(cfg.Root, applyPlanPath),
		Task:     applyTask,
		DryRun:   applyDryRun,
		Progress: applyProgress && tui.IsInteractive() && cc.Format == "text",
		Logger:   logger(),
		Metrics:  app.metrics,
	}
	if applyContinue {
		opts.OnError = apply.ContinueOnError
	}
	if !applyYes && !applyDryRun {
		opts.Approve = chooseApprover(cmd, cc)
	}

	report, err := executeApply(cmd.Context(), opts)
	if err == errApplyCancelled {
		fmt.Fprintln(cmd.ErrOrStderr(), "Apply cancelled; no files were changed.")
		return err
	}
	if report != nil {
		if outErr := cc.Output(cmd.OutOrStdout(), report); outErr != nil {
			return outErr
		}
	}
	return ux.EnhanceError(err)
}

// chooseApprover picks the confirmation gate for an interactive apply.
func chooseApprover(cmd *cobra.Command, cc *CommandContext) approveFunc {
	switch {
	case applyReview:
		return func(pp *preparedPlan, previews []patch.Preview) (bool, error) {
			result, err := tui.RunPlanReview(pp.Plan.Summary, previews, pp.Warnings)
			if err != nil {
				return false, err
			}
			if !result.Approved && result.Reason != "" {
				logger().Info("plan rejected in review", "reason", result.Reason)
			}
			return result.Approved, nil
		}

	case tui.ShouldPrompt():
		return func(pp *preparedPlan, previews []patch.Preview) (bool, error) {
			if err := cc.Output(cmd.ErrOrStderr(), previewReport(pp, previews)); err != nil {
				return false, err
			}
			return tui.PromptForConfirmation(
				fmt.Sprintf("Apply %d step(s)?", len(pp.Plan.Steps)),
				pp.Plan.Summary,
				false,
			)
		}

	case tui.IsInteractive():
		return func(pp *preparedPlan, previews []patch.Preview) (bool, error) {
			if err := cc.Output(cmd.ErrOrStderr(), previewReport(pp, previews)); err != nil {
				return false, err
			}
			return ux.Confirm(os.Stdin, cmd.ErrOrStderr(), fmt.Sprintf("Apply %d step(s)?", len(pp.Plan.Steps)), false), nil
		}

	default:
		return func(*preparedPlan, []patch.Preview) (bool, error) {
			return false, NotConfirmedError()
		}
	}
}

// executeApply loads, validates, previews and applies one plan. The report
// is returned whenever the apply started, including when a step failed.
func executeApply(ctx context.Context, opts applyOptions) (*ux.ApplyReport, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.DefaultLogger()
	}
	cfg := opts.Config

	pp, err := preparePlan(opts.PlanPath, cfg, opts.Metrics, logger)
	if err != nil {
		return nil, err
	}

	if opts.Approve != nil {
		previews, err := patch.NewPreviewer(cfg, opts.Task).Preview(pp.Plan)
		if err != nil {
			return nil, err
		}
		ok, err := opts.Approve(pp, previews)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errApplyCancelled
		}
	}

	runner := exec.NewRunner(cfg, logger)
	runner.Metrics = opts.Metrics

	applier := apply.New(cfg, logger)
	applier.Runner = runner
	applier.Task = opts.Task
	applier.DryRun = opts.DryRun
	applier.OnError = opts.OnError
	applier.Metrics = opts.Metrics

	if !opts.DryRun && cfg.Journal {
		journal, err := apply.NewJournal(apply.TxBaseDir(cfg.Root), "", pp.Plan, opts.Task)
		if err != nil {
			return nil, err
		}
		applier.Journal = journal
		runner.ManifestDir = journal.RunsDir()
	}

	var progress *tui.Adapter
	if opts.Progress {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		progress = tui.NewAdapter("Applying plan", pp.Plan.Steps, opts.DryRun)
		progress.Start(cancel)
		applier.Observer = progress
	}

	summary, err := applier.Apply(ctx, pp.Plan.Steps)

	if progress != nil {
		if perr := progress.Finish(summary, err); perr != nil {
			logger.WithError(perr).Debug("progress view failed")
		}
	}

	report := &ux.ApplyReport{Summary: summary, Warnings: pp.Warnings}
	if err != nil {
		report.Error = err.Error()
	}
	return report, err
}
