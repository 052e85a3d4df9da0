package cmd

import (
	"fmt"

	"github.com/felixgeelhaar/planguard/internal/errors"
)

// ValidationError reports a flag value outside the accepted set.
func ValidationError(flag string, value interface{}, validValues string) error {
	return errors.New(errors.ErrCodeInvalidFlag, fmt.Sprintf("invalid argument %q for %s", value, flag)).
		WithSuggestion(fmt.Sprintf("Valid values: %s", validValues)).
		WithSuggestion("Run with --help to see all available options")
}

// NotConfirmedError is returned when an apply needs approval that cannot
// be asked for.
func NotConfirmedError() error {
	return errors.New(errors.ErrCodeNotConfirmed, "refusing to apply without confirmation: stdin is not a terminal").
		WithSuggestion("Review the plan with 'planguard preview', then re-run with --yes").
		WithSuggestion("Use --dry-run to see the summary without touching files")
}

// NoTransactionsError is returned when a project has no apply journal.
func NoTransactionsError(root string) error {
	return errors.New(errors.ErrCodeTxNotFound, fmt.Sprintf("no transactions recorded under %s", root)).
		WithSuggestion("Apply a plan first: planguard apply --plan plan.json").
		WithSuggestion("Check that --root points at the project you applied to")
}

// ConfigExistsError is returned by init when it would overwrite a config.
func ConfigExistsError(path string) error {
	return errors.New(errors.ErrCodeConfigExists, fmt.Sprintf("config already exists at %s", path)).
		WithSuggestion("Use --force to overwrite it").
		WithSuggestion("Edit the file directly to adjust the policy")
}
