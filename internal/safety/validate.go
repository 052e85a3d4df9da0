package safety

import (
	"fmt"

	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/plan"
	"github.com/felixgeelhaar/planguard/internal/policy"
)

// Validate enforces the policy on a plan before any I/O. Checks run in this
// order and stop at the first failure: step count, file paths, commands,
// total payload bytes. The plan is not modified.
func Validate(p *plan.Plan, cfg *policy.Config) error {
	if n := len(p.Steps); n > cfg.MaxActions {
		return errors.NewLimitExceededError("too many steps", n, cfg.MaxActions)
	}

	for i, s := range p.Steps {
		fs, ok := s.(plan.FileStep)
		if !ok {
			continue
		}
		cleaned, err := NormalizeRelative(fs.TargetPath())
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if Reserved(cleaned) {
			return fmt.Errorf("step %d: %w", i+1, errors.NewPathRejectedError(fs.TargetPath(), reservedReason))
		}
		if !PathAllowed(cleaned, cfg.PathAllowlist) {
			return fmt.Errorf("step %d: %w", i+1,
				errors.NewPathRejectedError(fs.TargetPath(), fmt.Sprintf("not in path allowlist %v", cfg.PathAllowlist)))
		}
	}

	commands := NewCommandPolicy(cfg)
	for i, s := range p.Steps {
		cmd, ok := plan.CommandOf(s)
		if !ok {
			continue
		}
		if err := commands.Check(cmd); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	if total := PayloadBytes(p); total > cfg.MaxPatchBytes {
		return errors.NewLimitExceededError("proposed content exceeds byte budget", total, cfg.MaxPatchBytes)
	}

	return nil
}

// PayloadBytes sums the content and patch bytes proposed by file steps.
func PayloadBytes(p *plan.Plan) int {
	total := 0
	for _, s := range p.Steps {
		switch st := s.(type) {
		case *plan.CreateStep:
			if st.Content != nil {
				total += len(*st.Content)
			}
		case *plan.UpdateStep:
			if st.Content != nil {
				total += len(*st.Content)
			}
			if st.Patch != nil {
				total += len(*st.Patch)
			}
		}
	}
	return total
}
