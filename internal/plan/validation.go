package plan

import (
	"fmt"
	"strings"
)

// Validate checks that every step has the fields its action requires.
// Policy checks (allowlists, limits) live in the safety package.
func (p *Plan) Validate() error {
	for i, s := range p.Steps {
		if s == nil {
			return fmt.Errorf("step %d is empty", i+1)
		}
		if err := validateStep(s); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, describe(s), err)
		}
	}
	return nil
}

func validateStep(s Step) error {
	switch st := s.(type) {
	case FileStep:
		if strings.TrimSpace(st.TargetPath()) == "" {
			return fmt.Errorf("path cannot be empty")
		}
	case *CommandStep:
		if strings.TrimSpace(st.Command) == "" {
			return fmt.Errorf("command cannot be empty")
		}
	case *TestStep:
		if strings.TrimSpace(st.Command) == "" {
			return fmt.Errorf("command cannot be empty")
		}
	}
	return nil
}
