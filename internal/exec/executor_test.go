package exec

import (
	"context"
	stderrors "errors"
	"os"
	osexec "os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/log"
	"github.com/felixgeelhaar/planguard/internal/metrics"
	"github.com/felixgeelhaar/planguard/internal/policy"
	"github.com/felixgeelhaar/planguard/internal/safety"
)

func requireUnix(t *testing.T, programs ...string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix programs required")
	}
	for _, p := range programs {
		if _, err := osexec.LookPath(p); err != nil {
			t.Skipf("%s not available: %v", p, err)
		}
	}
}

func newTestRunner(t *testing.T, allow ...string) *Runner {
	t.Helper()
	return &Runner{
		Root: t.TempDir(),
		Policy: safety.CommandPolicy{
			Allowlist:     allow,
			Mode:          policy.MatchExact,
			ShellFallback: true,
		},
		Timeout: 10 * time.Second,
		Logger:  log.Discard(),
	}
}

func TestRunSuccess(t *testing.T) {
	requireUnix(t, "echo")
	r := newTestRunner(t, "echo hello")

	res, err := r.Run(context.Background(), "echo hello", "")
	require.NoError(t, err)

	assert.Equal(t, 0, res.StatusCode)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.False(t, res.ViaShellFallback)
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestRunNonZeroExit(t *testing.T) {
	requireUnix(t, "sh")
	cmd := `sh -c "echo out; echo err 1>&2; exit 3"`
	r := newTestRunner(t, cmd)

	res, err := r.Run(context.Background(), cmd, "")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrCommandFailed))
	assert.Contains(t, err.Error(), "non-zero status 3")
	assert.Contains(t, err.Error(), "stdout:\nout")
	assert.Contains(t, err.Error(), "stderr:\nerr")

	require.NotNil(t, res)
	assert.Equal(t, 3, res.StatusCode)
}

func TestRunRejectsCommand(t *testing.T) {
	r := newTestRunner(t, "npm ci")

	_, err := r.Run(context.Background(), "rm -rf /", "")
	assert.True(t, stderrors.Is(err, errors.ErrCommandRejected))

	_, err = r.Run(context.Background(), "npm ci --force", "")
	assert.True(t, stderrors.Is(err, errors.ErrCommandRejected), "exact mode rejects extra args")
}

func TestRunPrefixMode(t *testing.T) {
	requireUnix(t, "echo")
	r := newTestRunner(t, "echo")
	r.Policy.Mode = policy.MatchPrefix

	res, err := r.Run(context.Background(), "echo one two", "")
	require.NoError(t, err)
	assert.Equal(t, "one two\n", res.Stdout)
}

func TestRunWorkingDirectory(t *testing.T) {
	requireUnix(t, "pwd")
	r := newTestRunner(t, "pwd")
	require.NoError(t, os.MkdirAll(filepath.Join(r.Root, "web"), 0755))

	res, err := r.Run(context.Background(), "pwd", "web")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(res.Stdout), string(filepath.Separator)+"web"), res.Stdout)

	_, err = r.Run(context.Background(), "pwd", "missing")
	assert.Error(t, err)

	_, err = r.Run(context.Background(), "pwd", "../outside")
	assert.True(t, stderrors.Is(err, errors.ErrPathRejected))
}

func TestRunShellFallback(t *testing.T) {
	requireUnix(t, "sh")
	r := newTestRunner(t, "exit 0")

	res, err := r.Run(context.Background(), "exit 0", "")
	require.NoError(t, err)
	assert.True(t, res.ViaShellFallback)
}

func TestRunShellFallbackNeedsExactEntry(t *testing.T) {
	requireUnix(t, "sh")
	r := newTestRunner(t, "planguard-no-such-tool")
	r.Policy.Mode = policy.MatchPrefix

	_, err := r.Run(context.Background(), "planguard-no-such-tool --flag", "")
	require.Error(t, err)
	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeExecSpawnFailed, e.Code)

	r.Policy.ShellFallback = false
	_, err = r.Run(context.Background(), "planguard-no-such-tool", "")
	e, ok = errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeExecSpawnFailed, e.Code)
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	requireUnix(t, "sleep")
	r := newTestRunner(t, "sleep 30")
	r.Timeout = 200 * time.Millisecond

	start := time.Now()
	res, err := r.Run(context.Background(), "sleep 30", "")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrTimedOut), "got %v", err)
	assert.False(t, stderrors.Is(err, errors.ErrCommandFailed))
	require.NotNil(t, res)
	assert.True(t, res.TimedOut)
	assert.Less(t, elapsed, 10*time.Second)
}

func TestRunCancelled(t *testing.T) {
	requireUnix(t, "sleep")
	r := newTestRunner(t, "sleep 30")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := r.Run(ctx, "sleep 30", "")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled), "got %v", err)
	assert.False(t, stderrors.Is(err, errors.ErrTimedOut))

	_, err = r.Run(ctx, "sleep 30", "")
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestRunWritesManifest(t *testing.T) {
	requireUnix(t, "echo")
	r := newTestRunner(t, "echo hello")
	r.ManifestDir = filepath.Join(t.TempDir(), "runs")

	_, err := r.RunStep(context.Background(), "s4", "echo hello", "")
	require.NoError(t, err)

	manifests, err := LoadManifests(r.ManifestDir)
	require.NoError(t, err)
	require.Len(t, manifests, 1)

	m := manifests[0]
	assert.Equal(t, "s4", m.StepID)
	assert.Equal(t, []string{"echo", "hello"}, m.Argv)
	assert.Equal(t, HashBytes([]byte("hello\n")), m.StdoutHash)
	assert.Empty(t, m.Error)
}

func TestDryRunResult(t *testing.T) {
	res := DryRunResult("npm ci")
	assert.True(t, res.DryRun)
	assert.Equal(t, ".", res.Cwd)
	assert.Equal(t, 0, res.StatusCode)
}

func TestNewRunner(t *testing.T) {
	cfg := policy.Default()
	cfg.Root = "/srv/app"

	r := NewRunner(cfg, nil)
	assert.Equal(t, "/srv/app", r.Root)
	assert.Equal(t, cfg.Timeout, r.Timeout)
	assert.True(t, r.Policy.Allows("npm ci"))
	assert.NotNil(t, r.Logger)
}

func TestRunRecordsMetrics(t *testing.T) {
	requireUnix(t, "sh", "echo")
	r := newTestRunner(t, "echo hi", "exit 0")
	_, m := metrics.NewRegistry()
	r.Metrics = m

	_, err := r.Run(context.Background(), "echo hi", "")
	require.NoError(t, err)
	_, err = r.Run(context.Background(), "exit 0", "")
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CommandExecutions.WithLabelValues("echo", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ShellFallbacks))
}
