package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/planguard/internal/plan"
	"github.com/felixgeelhaar/planguard/internal/ux"
)

var (
	sanitizePlanPath string
	sanitizeOut      string
)

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize",
	Short: "Drop conflicting steps from a plan",
	Long: `Drop conflicting or unusable steps from a plan and print the result.

Empty updates are removed, one update per path is kept, and only the first
create and the first delete of each path survive. Command and test steps are
always kept. One warning is printed per dropped step.

Examples:
  planguard sanitize --plan plan.json
  planguard sanitize --plan plan.json --out plan.clean.json`,
	Args: cobra.NoArgs,
	RunE: runSanitize,
}

func init() {
	sanitizeCmd.Flags().StringVarP(&sanitizePlanPath, "plan", "p", "", "plan file (default: <root>/plan.json)")
	sanitizeCmd.Flags().StringVar(&sanitizeOut, "out", "", "write the sanitized plan here instead of stdout")

	rootCmd.AddCommand(sanitizeCmd)
}

func runSanitize(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	root, err := cc.ProjectRoot()
	if err != nil {
		return err
	}

	return sanitizePlan(planPath(root, sanitizePlanPath), sanitizeOut, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// sanitizePlan writes the sanitized plan at path to out, or to stdout as
// JSON when out is empty. Warnings go to stderr.
func sanitizePlan(path, out string, stdout, stderr io.Writer) error {
	pp, err := loadPlan(path, app.metrics, logger())
	if err != nil {
		return ux.EnhanceError(err)
	}

	for _, w := range pp.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}

	if out != "" {
		if err := plan.SavePlan(pp.Plan, out); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "wrote %d step(s) to %s\n", len(pp.Plan.Steps), out)
		return nil
	}

	data, err := plan.MarshalPlan(pp.Plan)
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}
