package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/planguard/internal/detect"
	"github.com/felixgeelhaar/planguard/internal/policy"
	"github.com/felixgeelhaar/planguard/internal/tui"
	"github.com/felixgeelhaar/planguard/internal/ux"
)

var (
	initForce          bool
	initPackageManager string
	initPrefixMatch    bool
	initDryRun         bool
	initYes            bool
)

// packageManagers are the choices for --package-manager.
var packageManagers = []string{"all", "npm", "pnpm", "yarn"}

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write a default policy config for a project",
	Long: `Write .planguard/config.yaml with the default safety policy.

The default policy allows writes under src, app, pages and components plus
package.json, and allows the install, build and dev commands of npm, pnpm and
yarn. The command allowlist is narrowed to the package manager whose lockfile
is found in the directory; pass --package-manager to choose one yourself.

Examples:
  planguard init
  planguard init --package-manager pnpm
  planguard init ./web --prefix-match
  planguard init --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config")
	initCmd.Flags().StringVar(&initPackageManager, "package-manager", "", "limit allowed commands to one package manager (all, npm, pnpm, yarn)")
	initCmd.Flags().BoolVar(&initPrefixMatch, "prefix-match", false, "allow allowlisted commands followed by extra arguments")
	initCmd.Flags().BoolVar(&initDryRun, "dry-run", false, "print the config instead of writing it")
	initCmd.Flags().BoolVar(&initYes, "yes", false, "accept defaults without prompting")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	absDir, err := filepath.Abs(targetDir)
	if err != nil {
		return ux.FormatError(err, "resolving directory path")
	}

	project, err := detect.Detect(absDir, policy.Default().PathAllowlist)
	if err != nil {
		return ux.FormatError(err, "inspecting project")
	}
	stderr := cmd.ErrOrStderr()
	fmt.Fprint(stderr, project.Summary())
	for _, w := range project.Warnings() {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}

	pm, err := choosePackageManager(initPackageManager, project)
	if err != nil {
		return err
	}

	cfg, err := buildInitConfig(pm, initPrefixMatch)
	if err != nil {
		return err
	}

	if initDryRun {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	path, err := writeInitConfig(absDir, cfg, initForce)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", path)
	fmt.Fprintf(out, "Next: %s\n", ux.SuggestNextSteps(absDir))
	return nil
}

// choosePackageManager prefers the flag, then the lockfile, then asks.
func choosePackageManager(flag string, project *detect.Project) (string, error) {
	switch {
	case flag != "":
		return flag, nil
	case project.PackageManager != "":
		return project.PackageManager, nil
	case !initYes && tui.ShouldPrompt():
		return tui.PromptForSelect("Which package manager does this project use?", packageManagers)
	}
	return "all", nil
}

// buildInitConfig returns the default policy narrowed to one package
// manager. An empty pm or "all" keeps every default command.
func buildInitConfig(pm string, prefixMatch bool) (*policy.Config, error) {
	cfg := policy.Default()
	// Root is taken from the project location at load time.
	cfg.Root = ""

	switch pm {
	case "", "all":
	case "npm", "pnpm", "yarn":
		var kept []string
		for _, c := range cfg.CommandAllowlist {
			if c == pm || strings.HasPrefix(c, pm+" ") {
				kept = append(kept, c)
			}
		}
		cfg.CommandAllowlist = kept
	default:
		return nil, ValidationError("--package-manager", pm, strings.Join(packageManagers, ", "))
	}

	if prefixMatch {
		cfg.CommandMatch = policy.MatchPrefix
	}
	return cfg, nil
}

// writeInitConfig saves cfg as the default config of dir and returns its
// path. An existing config is kept unless force is set.
func writeInitConfig(dir string, cfg *policy.Config, force bool) (string, error) {
	path := policy.DefaultPath(dir)
	if _, err := os.Stat(path); err == nil && !force {
		return "", ConfigExistsError(path)
	}
	if err := policy.SaveConfig(cfg, path); err != nil {
		return "", err
	}
	return path, nil
}
