// Package detect inspects a project directory so init can propose a policy
// that fits it.
package detect

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Project represents the detected project context
type Project struct {
	Root string

	// PackageManager is npm, pnpm or yarn, or empty when no lockfile was found
	PackageManager string
	Lockfile       string

	Frameworks []string

	// SourceDirs are the default allowlisted directories that exist under Root
	SourceDirs []string

	Git GitContext
	CI  CIInfo
}

// GitContext holds Git repository information
type GitContext struct {
	Initialized bool
	Root        string
	Dirty       bool
	Uncommitted int
	Branch      string
}

// CIInfo holds CI/CD environment information
type CIInfo struct {
	Detected bool
	Name     string // "github", "gitlab", "jenkins", "circleci", etc.
}

// lockfiles maps lockfile names to package managers, most specific first.
var lockfiles = []struct {
	file string
	pm   string
}{
	{"pnpm-lock.yaml", "pnpm"},
	{"yarn.lock", "yarn"},
	{"package-lock.json", "npm"},
	{"npm-shrinkwrap.json", "npm"},
}

// gitCommand is swapped in tests.
var gitCommand = func(dir string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	return cmd.Output()
}

// Detect runs all detection checks against root
func Detect(root string, candidateDirs []string) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	p := &Project{Root: abs}
	p.PackageManager, p.Lockfile = detectPackageManager(abs)
	p.Frameworks = detectFrameworks(abs)
	p.SourceDirs = existing(abs, candidateDirs)
	p.Git = detectGit(abs)
	p.CI = CI()
	return p, nil
}

func detectPackageManager(root string) (string, string) {
	for _, lf := range lockfiles {
		if _, err := os.Stat(filepath.Join(root, lf.file)); err == nil {
			return lf.pm, lf.file
		}
	}
	return "", ""
}

// detectFrameworks looks for well-known dependencies in package.json
func detectFrameworks(root string) []string {
	path := filepath.Join(root, "package.json")
	checks := []struct {
		needle    string
		framework string
	}{
		{`"next"`, "nextjs"},
		{`"react"`, "react"},
		{`"vue"`, "vue"},
		{`"svelte"`, "svelte"},
		{`"express"`, "express"},
	}

	var frameworks []string
	for _, c := range checks {
		if hasInFile(path, c.needle) {
			frameworks = append(frameworks, c.framework)
		}
	}
	return frameworks
}

func existing(root string, candidates []string) []string {
	var found []string
	for _, c := range candidates {
		if _, err := os.Stat(filepath.Join(root, c)); err == nil {
			found = append(found, c)
		}
	}
	return found
}

// detectGit detects Git repository information
func detectGit(dir string) GitContext {
	git := GitContext{}

	output, err := gitCommand(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return git
	}

	git.Initialized = true
	git.Root = strings.TrimSpace(string(output))

	if output, err := gitCommand(dir, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		git.Branch = strings.TrimSpace(string(output))
	}

	if output, err := gitCommand(dir, "status", "--porcelain"); err == nil {
		trimmed := strings.TrimSpace(string(output))
		if trimmed != "" {
			git.Uncommitted = len(strings.Split(trimmed, "\n"))
			git.Dirty = true
		}
	}

	return git
}

// CI reports the CI/CD environment the process runs in, if any.
func CI() CIInfo {
	ciChecks := []struct {
		env  string
		name string
	}{
		{"GITHUB_ACTIONS", "github"},
		{"GITLAB_CI", "gitlab"},
		{"JENKINS_HOME", "jenkins"},
		{"JENKINS_URL", "jenkins"},
		{"CIRCLECI", "circleci"},
		{"TRAVIS", "travis"},
		{"BUILDKITE", "buildkite"},
	}

	for _, c := range ciChecks {
		if os.Getenv(c.env) != "" {
			return CIInfo{Detected: true, Name: c.name}
		}
	}
	return CIInfo{}
}

func hasInFile(filename, searchString string) bool {
	content, err := os.ReadFile(filename)
	if err != nil {
		return false
	}
	return strings.Contains(string(content), searchString)
}

// Warnings returns the conditions worth telling the user about before
// they start applying plans.
func (p *Project) Warnings() []string {
	var warnings []string
	if !p.Git.Initialized {
		warnings = append(warnings, "not a git repository; applied changes can only be undone with 'planguard rollback'")
	} else if p.Git.Dirty {
		warnings = append(warnings, fmt.Sprintf("working tree has %d uncommitted change(s); commit them so applied plans are easy to review", p.Git.Uncommitted))
	}
	if p.CI.Detected {
		warnings = append(warnings, fmt.Sprintf("running in %s CI; apply will need --yes", p.CI.Name))
	}
	return warnings
}

// Summary returns a human-readable summary of the detected context
func (p *Project) Summary() string {
	var sb strings.Builder

	sb.WriteString("Detected project:\n")
	if p.PackageManager != "" {
		fmt.Fprintf(&sb, "  Package manager: %s (%s)\n", p.PackageManager, p.Lockfile)
	} else {
		sb.WriteString("  Package manager: not detected\n")
	}
	if len(p.Frameworks) > 0 {
		fmt.Fprintf(&sb, "  Frameworks: %s\n", strings.Join(p.Frameworks, ", "))
	}
	if len(p.SourceDirs) > 0 {
		fmt.Fprintf(&sb, "  Source paths: %s\n", strings.Join(p.SourceDirs, ", "))
	}
	if p.Git.Initialized {
		fmt.Fprintf(&sb, "  Git: %s (branch: %s, uncommitted: %d)\n",
			filepath.Base(p.Git.Root), p.Git.Branch, p.Git.Uncommitted)
	}
	return sb.String()
}
