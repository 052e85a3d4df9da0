package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	err := New(ErrCodePlanNotFound, "test error message")

	if err.Code != ErrCodePlanNotFound {
		t.Errorf("expected code %s, got %s", ErrCodePlanNotFound, err.Code)
	}

	if err.Message != "test error message" {
		t.Errorf("expected message 'test error message', got '%s'", err.Message)
	}

	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrap(ErrCodeFileReadFailed, "failed to read file", cause)

	if err.Code != ErrCodeFileReadFailed {
		t.Errorf("expected code %s, got %s", ErrCodeFileReadFailed, err.Code)
	}

	if err.Cause != cause {
		t.Errorf("expected cause to be set")
	}

	if !errors.Is(err, cause) {
		t.Errorf("Wrap should support errors.Is")
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		wantCode string
		wantMsg  string
	}{
		{
			name:     "simple error",
			err:      New(ErrCodePlanInvalid, "invalid plan"),
			wantCode: "PLAN-002",
			wantMsg:  "invalid plan",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeFileReadFailed, "read failed", fmt.Errorf("permission denied")),
			wantCode: "IO-002",
			wantMsg:  "permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()

			if !strings.Contains(errStr, tt.wantCode) {
				t.Errorf("error string should contain code %s, got: %s", tt.wantCode, errStr)
			}

			if !strings.Contains(errStr, tt.wantMsg) {
				t.Errorf("error string should contain message '%s', got: %s", tt.wantMsg, errStr)
			}
		})
	}
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrCodePlanNotFound, "plan not found").
		WithSuggestion("Check the file path")

	if len(err.Suggestions) != 1 {
		t.Errorf("expected 1 suggestion, got %d", len(err.Suggestions))
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "Suggestions:") {
		t.Errorf("error string should contain suggestions section")
	}

	if !strings.Contains(errStr, "Check the file path") {
		t.Errorf("error string should contain suggestion text")
	}
}

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		want     bool
	}{
		{"path rejected", NewPathRejectedError("../x", "escapes root"), ErrPathRejected, true},
		{"command rejected", NewCommandRejectedError("rm -rf /", []string{"npm ci"}), ErrCommandRejected, true},
		{"limit exceeded", NewLimitExceededError("too many steps", 51, 50), ErrLimitExceeded, true},
		{"timed out", NewTimedOutError("npm ci", time.Second), ErrTimedOut, true},
		{"wrapped in fmt", fmt.Errorf("step 3: %w", NewMalformedStepError("s3", "no content")), ErrMalformedStep, true},
		{"different code", NewPathRejectedError("x", "y"), ErrCommandRejected, false},
		{"plain error", fmt.Errorf("boom"), ErrPathRejected, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.sentinel); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{NewPathRejectedError("a", "b"), KindPathRejected},
		{NewCommandRejectedError("a", nil), KindCommandRejected},
		{NewLimitExceededError("a", 2, 1), KindLimitExceeded},
		{Wrap(ErrCodeFileWriteFailed, "write", fmt.Errorf("disk full")), KindIOFailure},
		{fmt.Errorf("ctx: %w", New(ErrCodeExecTimeout, "slow")), KindTimedOut},
		{New(ErrCodeExecCommandFailed, "exit 1"), KindCommandFailed},
		{NewMalformedStepError("s1", "x"), KindMalformedStep},
		{NewPlanNotFoundError("plan.json"), KindInvalidInput},
		{New(ErrCodeTxDrift, "changed"), KindDrift},
		{New(ErrCodeNotConfirmed, "no tty"), KindUsage},
		{fmt.Errorf("plain"), KindUnknown},
		{nil, KindUnknown},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestNewCommandRejectedError(t *testing.T) {
	err := NewCommandRejectedError("curl evil.sh", []string{"npm ci", "npm run build"})

	if !strings.Contains(err.Message, "curl evil.sh") {
		t.Errorf("error message should contain the command")
	}

	if !strings.Contains(err.Message, "npm run build") {
		t.Errorf("error message should list the allowlist for diagnosis")
	}
}

func TestNewFileUnmarshalError(t *testing.T) {
	cause := fmt.Errorf("invalid YAML syntax at line 5")
	err := NewFileUnmarshalError("/path/to/config.yaml", "YAML", cause)

	if err.Code != ErrCodeFileUnmarshal {
		t.Errorf("expected code %s, got %s", ErrCodeFileUnmarshal, err.Code)
	}

	if err.Cause != cause {
		t.Errorf("expected cause to be preserved")
	}

	if !strings.Contains(err.Message, "/path/to/config.yaml") {
		t.Errorf("error message should contain file path")
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		ErrCodePathRejected,
		ErrCodeCommandRejected,
		ErrCodeLimitExceeded,
		ErrCodePlanNotFound,
		ErrCodePlanInvalid,
		ErrCodeMalformedStep,
		ErrCodeConfigInvalid,
		ErrCodeExecTimeout,
		ErrCodeExecCommandFailed,
		ErrCodeFileNotFound,
		ErrCodeFileReadFailed,
		ErrCodeFileWriteFailed,
		ErrCodeFileRemoveFailed,
		ErrCodeTxNotFound,
	}

	for _, code := range codes {
		parts := strings.Split(string(code), "-")
		if len(parts) != 2 {
			t.Errorf("error code %s should have format CATEGORY-NNN", code)
			continue
		}
		if len(parts[1]) != 3 {
			t.Errorf("error code %s should have 3-digit number", code)
		}
		if code.Kind() == KindUnknown {
			t.Errorf("error code %s should map to a kind", code)
		}
	}
}
