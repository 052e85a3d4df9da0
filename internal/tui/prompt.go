package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/felixgeelhaar/planguard/internal/detect"
)

// NoPromptEnv disables every interactive prompt when set.
const NoPromptEnv = "PLANGUARD_NO_PROMPT"

// PromptForConfirmation asks whether to apply. description is shown under
// the title when set.
func PromptForConfirmation(title, description string, defaultValue bool) (bool, error) {
	confirmed := defaultValue

	confirm := huh.NewConfirm().
		Title(title).
		Affirmative("Apply").
		Negative("Cancel").
		Value(&confirmed)
	if description != "" {
		confirm = confirm.Description(description)
	}

	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return confirmed, nil
}

// PromptForSelect asks for one of options. The first option is preselected.
func PromptForSelect(message string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("no options provided")
	}

	selected := options[0]
	field := huh.NewSelect[string]().
		Title(message).
		Options(huh.NewOptions(options...)...).
		Value(&selected)

	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return selected, nil
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ShouldPrompt reports whether prompts may be shown. They are disabled by
// NoPromptEnv, in CI, and when stdin is not a terminal.
func ShouldPrompt() bool {
	if os.Getenv(NoPromptEnv) != "" || os.Getenv("CI") != "" {
		return false
	}
	if detect.CI().Detected {
		return false
	}
	return IsInteractive()
}
