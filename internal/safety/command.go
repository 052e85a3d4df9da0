package safety

import (
	"strings"

	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/policy"
)

// IsCommandAllowed reports whether cmd equals an allowlist entry or starts
// with one followed by a single space or tab and further arguments.
// "npm install" allows "npm install left-pad" but not "npm installx".
func IsCommandAllowed(cmd string, allowlist []string) bool {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return false
	}
	for _, base := range allowlist {
		base = strings.TrimSpace(base)
		if base == "" {
			continue
		}
		if cmd == base {
			return true
		}
		if len(cmd) > len(base) && strings.HasPrefix(cmd, base) {
			if sep := cmd[len(base)]; sep == ' ' || sep == '\t' {
				return true
			}
		}
	}
	return false
}

// IsCommandExact reports whether cmd equals an allowlist entry after
// trimming surrounding whitespace.
func IsCommandExact(cmd string, allowlist []string) bool {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return false
	}
	for _, base := range allowlist {
		if cmd == strings.TrimSpace(base) {
			return true
		}
	}
	return false
}

// CommandPolicy is the one matcher consulted before any command runs. The
// validator, the applier and the runner all share it.
type CommandPolicy struct {
	Allowlist []string
	Mode      policy.MatchMode

	// ShellFallback permits re-running an exactly allowlisted command
	// through the platform shell when its program cannot be spawned.
	ShellFallback bool
}

// NewCommandPolicy builds the policy configured by cfg.
func NewCommandPolicy(cfg *policy.Config) CommandPolicy {
	mode := cfg.CommandMatch
	if mode == "" {
		mode = policy.MatchExact
	}
	return CommandPolicy{
		Allowlist:     cfg.CommandAllowlist,
		Mode:          mode,
		ShellFallback: cfg.ShellFallback,
	}
}

// Allows reports whether cmd may be spawned.
func (p CommandPolicy) Allows(cmd string) bool {
	if p.Mode == policy.MatchPrefix {
		return IsCommandAllowed(cmd, p.Allowlist)
	}
	return IsCommandExact(cmd, p.Allowlist)
}

// AllowsShell reports whether cmd may be handed to the shell. Only exact
// allowlist entries qualify, regardless of Mode.
func (p CommandPolicy) AllowsShell(cmd string) bool {
	return p.ShellFallback && IsCommandExact(cmd, p.Allowlist)
}

// Check returns a CommandRejected error when cmd is not allowed.
func (p CommandPolicy) Check(cmd string) error {
	if p.Allows(cmd) {
		return nil
	}
	return errors.NewCommandRejectedError(cmd, p.Allowlist)
}
