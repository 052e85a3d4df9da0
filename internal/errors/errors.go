package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Path errors (PATH-001 to PATH-099)
	ErrCodePathRejected ErrorCode = "PATH-001"

	// Command errors (CMD-001 to CMD-099)
	ErrCodeCommandRejected ErrorCode = "CMD-001"

	// Limit errors (LIMIT-001 to LIMIT-099)
	ErrCodeLimitExceeded ErrorCode = "LIMIT-001"

	// Plan errors (PLAN-001 to PLAN-099)
	ErrCodePlanNotFound   ErrorCode = "PLAN-001"
	ErrCodePlanInvalid    ErrorCode = "PLAN-002"
	ErrCodePlanUnmarshal  ErrorCode = "PLAN-003"
	ErrCodeMalformedStep  ErrorCode = "PLAN-006"
	ErrCodeUnknownAction  ErrorCode = "PLAN-007"
	ErrCodeAnswerResponse ErrorCode = "PLAN-008"

	// Config errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigNotFound ErrorCode = "CONFIG-001"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG-002"

	// Execution errors (EXEC-001 to EXEC-099)
	ErrCodeExecSpawnFailed   ErrorCode = "EXEC-001"
	ErrCodeExecEmptyCommand  ErrorCode = "EXEC-002"
	ErrCodeExecTimeout       ErrorCode = "EXEC-004"
	ErrCodeExecCommandFailed ErrorCode = "EXEC-006"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound     ErrorCode = "IO-001"
	ErrCodeFileReadFailed   ErrorCode = "IO-002"
	ErrCodeFileWriteFailed  ErrorCode = "IO-003"
	ErrCodeDirectoryFailed  ErrorCode = "IO-004"
	ErrCodeFileUnmarshal    ErrorCode = "IO-005"
	ErrCodeFileMarshal      ErrorCode = "IO-006"
	ErrCodeFileRemoveFailed ErrorCode = "IO-007"

	// Journal errors (TX-001 to TX-099)
	ErrCodeTxNotFound ErrorCode = "TX-001"
	ErrCodeTxDrift    ErrorCode = "TX-002"

	// CLI usage errors (CLI-001 to CLI-099)
	ErrCodeInvalidFlag  ErrorCode = "CLI-001"
	ErrCodeNotConfirmed ErrorCode = "CLI-002"
	ErrCodeConfigExists ErrorCode = "CLI-003"
)

// Kind groups error codes into the failure classes callers branch on.
type Kind string

const (
	KindPathRejected    Kind = "PathRejected"
	KindCommandRejected Kind = "CommandRejected"
	KindLimitExceeded   Kind = "LimitExceeded"
	KindIOFailure       Kind = "IoFailure"
	KindTimedOut        Kind = "TimedOut"
	KindCommandFailed   Kind = "CommandFailed"
	KindMalformedStep   Kind = "MalformedStep"
	KindInvalidInput    Kind = "InvalidInput"
	KindDrift           Kind = "Drift"
	KindUsage           Kind = "Usage"
	KindUnknown         Kind = "Unknown"
)

// Kind returns the failure class for the code.
func (c ErrorCode) Kind() Kind {
	switch c {
	case ErrCodePathRejected:
		return KindPathRejected
	case ErrCodeCommandRejected:
		return KindCommandRejected
	case ErrCodeLimitExceeded:
		return KindLimitExceeded
	case ErrCodeFileNotFound, ErrCodeFileReadFailed, ErrCodeFileWriteFailed,
		ErrCodeDirectoryFailed, ErrCodeFileRemoveFailed, ErrCodeFileMarshal:
		return KindIOFailure
	case ErrCodeExecTimeout:
		return KindTimedOut
	case ErrCodeExecCommandFailed, ErrCodeExecSpawnFailed, ErrCodeExecEmptyCommand:
		return KindCommandFailed
	case ErrCodeMalformedStep:
		return KindMalformedStep
	case ErrCodePlanNotFound, ErrCodePlanInvalid, ErrCodePlanUnmarshal, ErrCodeUnknownAction,
		ErrCodeAnswerResponse, ErrCodeConfigNotFound, ErrCodeConfigInvalid, ErrCodeFileUnmarshal,
		ErrCodeTxNotFound:
		return KindInvalidInput
	case ErrCodeTxDrift:
		return KindDrift
	case ErrCodeInvalidFlag, ErrCodeNotConfirmed, ErrCodeConfigExists:
		return KindUsage
	default:
		return KindUnknown
	}
}

// Error is a coded error with optional remediation hints.
type Error struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports a match against another *Error with the same code, so callers
// can compare against sentinel values such as ErrPathRejected.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

// Sentinels for errors.Is. They carry only a code.
var (
	ErrPathRejected    = &Error{Code: ErrCodePathRejected}
	ErrCommandRejected = &Error{Code: ErrCodeCommandRejected}
	ErrLimitExceeded   = &Error{Code: ErrCodeLimitExceeded}
	ErrTimedOut        = &Error{Code: ErrCodeExecTimeout}
	ErrCommandFailed   = &Error{Code: ErrCodeExecCommandFailed}
	ErrMalformedStep   = &Error{Code: ErrCodeMalformedStep}
)

// New creates a new Error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new Error wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *Error) WithSuggestions(suggestions ...string) *Error {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// As finds the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the failure class of err, or KindUnknown.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Code.Kind()
	}
	return KindUnknown
}

// Common error constructors for frequently used errors

// NewPathRejectedError reports a path that escapes the root or misses the allowlist.
func NewPathRejectedError(path, reason string) *Error {
	return New(ErrCodePathRejected, fmt.Sprintf("path rejected: %s (%s)", path, reason)).
		WithSuggestion("Use a relative path inside the project root").
		WithSuggestion("Add the top-level directory to path_allowlist in .planguard/config.yaml")
}

// NewCommandRejectedError reports a command missing from the allowlist.
func NewCommandRejectedError(command string, allowlist []string) *Error {
	return New(ErrCodeCommandRejected, fmt.Sprintf("command not allowed: %s (allowlist: %v)", command, allowlist)).
		WithSuggestion("Add the exact command to command_allowlist").
		WithSuggestion("Set command_match: prefix to allow extra trailing arguments")
}

// NewLimitExceededError reports a plan that is over a global budget.
func NewLimitExceededError(what string, got, limit int) *Error {
	return New(ErrCodeLimitExceeded, fmt.Sprintf("%s: %d exceeds limit %d", what, got, limit)).
		WithSuggestion("Ask the generator for a smaller plan").
		WithSuggestion("Raise max_actions or max_patch_bytes if the plan is expected")
}

// NewMalformedStepError reports a step that cannot be applied as proposed.
func NewMalformedStepError(stepID, reason string) *Error {
	return New(ErrCodeMalformedStep, fmt.Sprintf("malformed step %s: %s", stepID, reason))
}

// NewTimedOutError reports a command that ran past its wall-clock budget.
func NewTimedOutError(command string, limit fmt.Stringer) *Error {
	return New(ErrCodeExecTimeout, fmt.Sprintf("command timed out after %s: %s", limit, command)).
		WithSuggestion("Raise timeout in .planguard/config.yaml")
}

// NewPlanNotFoundError creates a plan file not found error
func NewPlanNotFoundError(path string) *Error {
	return New(ErrCodePlanNotFound, fmt.Sprintf("plan file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Pass the generator output with --plan <file>")
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *Error {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *Error {
	return Wrap(ErrCodeFileUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}
