package exitcode

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/felixgeelhaar/planguard/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// PolicyViolation indicates a path, command or size limit rejection
	PolicyViolation = 3

	// DriftDetected indicates journaled files changed after they were applied
	DriftDetected = 4

	// InvalidPlan indicates a plan or config that could not be loaded or
	// contains a malformed step
	InvalidPlan = 5

	// Timeout indicates a command exceeded its time limit
	Timeout = 7

	// CommandFailed indicates a command exited non-zero or could not start
	CommandFailed = 8

	// IOError indicates a file could not be read, written or removed
	IOError = 9

	// Interrupted indicates the run was cancelled (SIGINT)
	Interrupted = 130
)

// Codes lists every exit code the CLI uses, in ascending order.
var Codes = []int{
	Success, GeneralError, UsageError, PolicyViolation, DriftDetected,
	InvalidPlan, Timeout, CommandFailed, IOError, Interrupted,
}

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode maps err to an exit code by its error kind. Cobra
// usage errors carry no code and are recognised by message.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if stderrors.Is(err, context.Canceled) {
		return Interrupted
	}

	switch errors.KindOf(err) {
	case errors.KindPathRejected, errors.KindCommandRejected, errors.KindLimitExceeded:
		return PolicyViolation
	case errors.KindDrift:
		return DriftDetected
	case errors.KindInvalidInput, errors.KindMalformedStep:
		return InvalidPlan
	case errors.KindTimedOut:
		return Timeout
	case errors.KindCommandFailed:
		return CommandFailed
	case errors.KindIOFailure:
		return IOError
	case errors.KindUsage:
		return UsageError
	}

	errMsg := strings.ToLower(err.Error())
	for _, hint := range []string{"unknown flag", "unknown command", "required flag", "invalid argument", "accepts "} {
		if strings.Contains(errMsg, hint) {
			return UsageError
		}
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case PolicyViolation:
		return "Policy violation"
	case DriftDetected:
		return "Files changed since apply"
	case InvalidPlan:
		return "Invalid plan or config"
	case Timeout:
		return "Command timed out"
	case CommandFailed:
		return "Command failed"
	case IOError:
		return "File I/O error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
