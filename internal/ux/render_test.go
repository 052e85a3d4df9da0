package ux

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/planguard/internal/apply"
	"github.com/felixgeelhaar/planguard/internal/checkpoint"
	"github.com/felixgeelhaar/planguard/internal/exec"
	"github.com/felixgeelhaar/planguard/internal/patch"
	"github.com/felixgeelhaar/planguard/internal/plan"
	"github.com/felixgeelhaar/planguard/internal/version"
)

func plainStyles() *Styles {
	return NewStyles(true)
}

func assertContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPreviewReportRender(t *testing.T) {
	before, after := int64(3), int64(6)
	report := &PreviewReport{
		Summary:      "greet",
		Warnings:     []string{"dropped duplicate create for a.txt"},
		Counts:       map[plan.Action]int{plan.ActionUpdate: 1, plan.ActionCommand: 1},
		PayloadBytes: 5,
		Previews: []patch.Preview{
			{Kind: plan.ActionUpdate, Path: "a.txt", BytesBefore: &before, BytesAfter: &after,
				DiffSnippet: "- hi\n+ hello", Insertions: 1, Deletions: 1},
			{Kind: plan.ActionCommand, Command: "npm ci", Cwd: "web"},
		},
	}

	out := report.Render(plainStyles())
	assertContains(t, out,
		"Plan preview",
		"greet",
		"1 update, 1 command",
		"5 bytes proposed",
		"! dropped duplicate create for a.txt",
		"1. update a.txt",
		"3 -> 6 bytes, +1 -1 lines",
		"- hi",
		"+ hello",
		"2. command npm ci (in web)",
	)
}

func TestPreviewReportRenderEmpty(t *testing.T) {
	out := (&PreviewReport{}).Render(plainStyles())
	assertContains(t, out, "no steps")
}

func TestApplyReportRender(t *testing.T) {
	sum := &apply.Summary{
		TxID:         "tx-1",
		Created:      1,
		Updated:      1,
		BytesWritten: 6,
		WriteCount:   2,
		Duration:     1500 * time.Millisecond,
		CommandOutputs: []*exec.CmdResult{
			{Command: "npm ci", StatusCode: 1, Stderr: "ERR! missing lockfile\n"},
		},
		Failures: []apply.StepFailure{
			{Index: 3, Action: plan.ActionCommand, Target: "npm ci", Code: "EXEC-006"},
		},
	}

	out := (&ApplyReport{Summary: sum}).Render(plainStyles())
	assertContains(t, out,
		"Plan applied",
		"created:  1",
		"bytes:    6 (2 writes)",
		"tx:       tx-1",
		"$ npm ci  exit 1",
		"ERR! missing lockfile",
		"1 step(s) failed",
		"step 3 (command npm ci) [EXEC-006]",
		"planguard rollback tx-1",
	)
}

func TestApplyReportRenderDryRun(t *testing.T) {
	sum := &apply.Summary{
		DryRun:         true,
		Commands:       1,
		CommandOutputs: []*exec.CmdResult{exec.DryRunResult("npm ci")},
	}

	out := (&ApplyReport{Summary: sum}).Render(plainStyles())
	assertContains(t, out, "Dry run", "$ npm ci  not run")
	if strings.Contains(out, "rollback") {
		t.Errorf("dry run should not suggest rollback:\n%s", out)
	}
}

func TestValidationReportRenderRejected(t *testing.T) {
	out := (&ValidationReport{Error: "[PATH-001] path rejected: ../x"}).Render(plainStyles())
	assertContains(t, out, "plan rejected", "PATH-001")
}

func TestStatusReportRender(t *testing.T) {
	if out := (&StatusReport{}).Render(plainStyles()); !strings.Contains(out, "no transactions") {
		t.Errorf("unexpected empty output: %q", out)
	}

	st := checkpoint.NewState("tx-42")
	st.AddStep(1, "", "create", "a.txt")
	st.AddStep(2, "", "test", "npm run build")
	st.UpdateStep(1, checkpoint.StepCompleted, nil)
	st.Status = checkpoint.StatusFailed

	out := (&StatusReport{Transactions: []*checkpoint.State{st}}).Render(plainStyles())
	assertContains(t, out, "tx-42", "failed", "1/2 steps")
}

func TestTxReportRender(t *testing.T) {
	st := checkpoint.NewState("tx-7")
	st.AddStep(1, "s1", "command", "npm ci")
	st.UpdateStep(1, checkpoint.StepFailed, errString("exit 1"))
	st.SetMetadata("task", "install deps")

	report := &TxReport{
		State: st,
		Runs:  []*exec.RunManifest{{Command: "npm ci", ExitCode: 1, Duration: "1.2s"}},
	}
	out := report.Render(plainStyles())
	assertContains(t, out, "Transaction tx-7", "task:     install deps", "failed", "exit 1", "$ npm ci  exit 1  1.2s")
}

func TestRollbackReportRender(t *testing.T) {
	ok := &RollbackReport{TxID: "tx-1", Result: &patch.RollbackResult{Success: true, StepsReverted: 2, FilesRestored: 3}}
	assertContains(t, ok.Render(plainStyles()), "rolled back tx-1: 2 steps, 3 files restored")

	failed := &RollbackReport{TxID: "tx-1", Result: &patch.RollbackResult{StepsReverted: 1, Errors: []string{"step 2: boom"}}}
	assertContains(t, failed.Render(plainStyles()), "stopped after 1 steps", "step 2: boom")

	refused := &RollbackReport{TxID: "tx-1", Warnings: []string{"file a.txt has been modified since it was applied"}}
	assertContains(t, refused.Render(plainStyles()), "not performed", "has been modified")
}

type errString string

func (e errString) Error() string { return string(e) }

func TestVersionReport(t *testing.T) {
	info := version.Info{Version: "1.4.0", Commit: "0123456789abcdef", Date: "2026-01-02", GoVersion: "go1.24.6", Platform: "linux/amd64"}

	short := &VersionReport{Info: info}
	if got := short.Render(plainStyles()); got != "planguard 1.4.0\n" {
		t.Errorf("Render() = %q", got)
	}

	verbose := &VersionReport{Info: info, Verbose: true}
	assertContains(t, verbose.Render(plainStyles()), "planguard 1.4.0 (01234567)", "linux/amd64")

	for format, want := range map[string]string{"json": `"version": "1.4.0"`, "yaml": "version: 1.4.0"} {
		var buf bytes.Buffer
		f, err := NewFormatter(format, &buf, FormatterOptions{})
		if err != nil {
			t.Fatalf("NewFormatter(%s) error = %v", format, err)
		}
		if err := f.Format(verbose); err != nil {
			t.Fatalf("Format(%s) error = %v", format, err)
		}
		assertContains(t, buf.String(), want)
		if strings.Contains(buf.String(), "erbose") {
			t.Errorf("%s output leaks the verbose flag: %s", format, buf.String())
		}
	}
}
