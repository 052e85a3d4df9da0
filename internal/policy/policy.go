package policy

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// MatchMode selects how command strings are matched against the allowlist.
type MatchMode string

const (
	// MatchExact allows only commands equal to an allowlist entry.
	MatchExact MatchMode = "exact"
	// MatchPrefix also allows an allowlist entry followed by one
	// separator and trailing arguments.
	MatchPrefix MatchMode = "prefix"
)

// Config is the safety policy for one plan application. It is loaded once
// and passed by pointer; nothing in the apply pipeline mutates it.
type Config struct {
	Root             string        `yaml:"root,omitempty" json:"root,omitempty"`
	PathAllowlist    []string      `yaml:"path_allowlist" json:"path_allowlist"`
	CommandAllowlist []string      `yaml:"command_allowlist" json:"command_allowlist"`
	CommandMatch     MatchMode     `yaml:"command_match" json:"command_match"`
	MaxActions       int           `yaml:"max_actions" json:"max_actions"`
	MaxPatchBytes    int           `yaml:"max_patch_bytes" json:"max_patch_bytes"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`

	// MergeExtensions limits additive merging to these file extensions.
	// Empty means every file is mergeable.
	MergeExtensions []string `yaml:"merge_extensions" json:"merge_extensions"`
	PreviewLines    int      `yaml:"preview_lines" json:"preview_lines"`
	Journal         bool     `yaml:"journal" json:"journal"`
	ShellFallback   bool     `yaml:"shell_fallback" json:"shell_fallback"`
}

// Default returns the stock policy for a JavaScript/TypeScript web project.
func Default() *Config {
	return &Config{
		Root: ".",
		PathAllowlist: []string{
			"src",
			"app",
			"pages",
			"components",
			"package.json",
		},
		CommandAllowlist: []string{
			"npm ci",
			"npm run build",
			"npm run dev",
			"npm install",
			"pnpm i",
			"pnpm build",
			"pnpm dev",
			"pnpm install",
			"yarn",
			"yarn build",
			"yarn dev",
			"yarn install",
		},
		CommandMatch:    MatchExact,
		MaxActions:      50,
		MaxPatchBytes:   2_000_000,
		Timeout:         240 * time.Second,
		MergeExtensions: []string{".ts", ".tsx", ".js", ".jsx"},
		PreviewLines:    0,
		Journal:         true,
		ShellFallback:   true,
	}
}

// Validate checks limits, match mode and allowlist entries.
func (c *Config) Validate() error {
	if c.MaxActions <= 0 {
		return fmt.Errorf("max_actions must be positive, got %d", c.MaxActions)
	}
	if c.MaxPatchBytes <= 0 {
		return fmt.Errorf("max_patch_bytes must be positive, got %d", c.MaxPatchBytes)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.PreviewLines < 0 {
		return fmt.Errorf("preview_lines cannot be negative, got %d", c.PreviewLines)
	}

	switch c.CommandMatch {
	case MatchExact, MatchPrefix:
	default:
		return fmt.Errorf("command_match must be %q or %q, got %q", MatchExact, MatchPrefix, c.CommandMatch)
	}

	for i, entry := range c.PathAllowlist {
		if err := validateAllowEntry(entry); err != nil {
			return fmt.Errorf("path_allowlist[%d]: %w", i, err)
		}
	}

	for i, cmd := range c.CommandAllowlist {
		if strings.TrimSpace(cmd) == "" {
			return fmt.Errorf("command_allowlist[%d]: empty command", i)
		}
	}

	return nil
}

func validateAllowEntry(entry string) error {
	e := strings.ReplaceAll(entry, "\\", "/")
	if strings.TrimSpace(e) == "" {
		return fmt.Errorf("empty entry")
	}
	if strings.HasPrefix(e, "/") || filepath.IsAbs(entry) || filepath.VolumeName(entry) != "" {
		return fmt.Errorf("absolute entry %q", entry)
	}
	for _, part := range strings.Split(e, "/") {
		if part == ".." {
			return fmt.Errorf("entry %q contains parent traversal", entry)
		}
	}
	return nil
}

// Mergeable reports whether additive merging applies to path.
func (c *Config) Mergeable(path string) bool {
	if len(c.MergeExtensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.MergeExtensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
