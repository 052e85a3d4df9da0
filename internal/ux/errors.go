package ux

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/planguard/internal/errors"
)

// Hint is an error annotated with one recovery step for the user.
type Hint struct {
	Err        error
	Suggestion string
}

func (h *Hint) Error() string {
	return fmt.Sprintf("%v\n\nhint: %s", h.Err, h.Suggestion)
}

func (h *Hint) Unwrap() error {
	return h.Err
}

// WithHint annotates err. A nil err or an empty suggestion returns err
// unchanged.
func WithHint(err error, suggestion string) error {
	if err == nil || suggestion == "" {
		return err
	}
	return &Hint{Err: err, Suggestion: suggestion}
}

// kindHints apply to coded errors that carry no suggestion of their own.
var kindHints = map[errors.Kind]string{
	errors.KindPathRejected:    "Keep file steps inside the project root and add the directory to path_allowlist",
	errors.KindCommandRejected: "Add the exact command to command_allowlist, or set command_match: prefix",
	errors.KindLimitExceeded:   "Split the plan or raise max_actions / max_patch_bytes in the config",
	errors.KindIOFailure:       "Check file permissions and free disk space, then re-run; 'planguard rollback' restores journaled files",
	errors.KindTimedOut:        "Raise timeout in the config or run the command manually",
	errors.KindCommandFailed:   "Inspect the command output above; re-run with --continue-on-error to apply the remaining steps",
	errors.KindMalformedStep:   "Regenerate the plan; create steps need content and update steps need content or a patch",
	errors.KindDrift:           "Review the listed files; pass --force to roll back anyway",
}

// messageHints match plain errors by what they say.
var messageHints = []struct {
	match      func(err error, msg string) bool
	suggestion string
}{
	{
		match: func(err error, msg string) bool {
			return stderrors.Is(err, os.ErrNotExist) || strings.Contains(msg, "no such file or directory")
		},
		suggestion: "Save the generator's plan as plan.json or pass --plan; run 'planguard init' if the config is missing",
	},
	{
		match: func(err error, msg string) bool {
			return stderrors.Is(err, os.ErrPermission) || strings.Contains(msg, "permission denied")
		},
		suggestion: "Check file permissions and ensure you have access to the project root",
	},
	{
		match: func(_ error, msg string) bool {
			return strings.Contains(msg, "context canceled")
		},
		suggestion: "The run was interrupted; inspect it with 'planguard status' and undo with 'planguard rollback'",
	},
}

// EnhanceError attaches the hint that fits err. Errors that already carry
// suggestions are returned unchanged.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}

	var hinted *Hint
	if stderrors.As(err, &hinted) {
		return err
	}
	if e, ok := errors.As(err); ok {
		if len(e.Suggestions) > 0 {
			return err
		}
		return WithHint(err, kindHints[e.Code.Kind()])
	}

	msg := err.Error()
	for _, h := range messageHints {
		if h.match(err, msg) {
			return WithHint(err, h.suggestion)
		}
	}
	return err
}

// FormatError enhances err and prefixes it with what was being done.
func FormatError(err error, doing string) error {
	if err == nil {
		return nil
	}

	enhanced := EnhanceError(err)
	if doing == "" {
		return enhanced
	}
	return fmt.Errorf("%s: %w", doing, enhanced)
}
