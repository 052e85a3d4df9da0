package ux

import (
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/planguard/internal/policy"
)

// PathDefaults provides the conventional paths of a project.
type PathDefaults struct {
	Root string
}

// NewPathDefaults creates PathDefaults for root.
func NewPathDefaults(root string) *PathDefaults {
	return &PathDefaults{Root: root}
}

// ConfigFile returns the default config path.
func (pd *PathDefaults) ConfigFile() string {
	return policy.DefaultPath(pd.Root)
}

// PlanFile returns the default path to plan.json
func (pd *PathDefaults) PlanFile() string {
	return filepath.Join(pd.Root, "plan.json")
}

// SuggestNextSteps provides contextual next steps based on what exists
// under root.
func SuggestNextSteps(root string) string {
	pd := NewPathDefaults(root)

	if _, err := os.Stat(pd.ConfigFile()); os.IsNotExist(err) {
		return "Run 'planguard init' to write a config, or rely on the built-in defaults"
	}
	if _, err := os.Stat(pd.PlanFile()); os.IsNotExist(err) {
		return "Save the generator's plan as plan.json, then run 'planguard preview'"
	}
	return "Review with 'planguard preview', then run 'planguard apply'"
}

// DiscoverRoot walks up from start looking for a .planguard directory and
// returns the directory containing it. The search stops at a git root.
// When nothing is found start itself is returned.
func DiscoverRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if info, err := os.Stat(filepath.Join(dir, policy.DirName)); err == nil && info.IsDir() {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return abs, nil
}
