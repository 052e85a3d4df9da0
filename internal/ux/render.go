package ux

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/planguard/internal/apply"
	"github.com/felixgeelhaar/planguard/internal/checkpoint"
	"github.com/felixgeelhaar/planguard/internal/exec"
	"github.com/felixgeelhaar/planguard/internal/patch"
	"github.com/felixgeelhaar/planguard/internal/plan"
	"github.com/felixgeelhaar/planguard/internal/version"
)

// Styles holds the lipgloss styles used by text output.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Muted   lipgloss.Style
	Added   lipgloss.Style
	Removed lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}

// NewStyles returns the default palette, or unstyled output when noColor
// is set.
func NewStyles(noColor bool) *Styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return &Styles{
			Title: plain, Header: plain, Muted: plain, Added: plain, Removed: plain,
			Success: plain, Warning: plain, Error: plain,
			Box: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
		}
	}
	return &Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Added:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Removed: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
	}
}

// Renderer is implemented by reports that have a text rendering.
type Renderer interface {
	Render(s *Styles) string
}

// PreviewReport is the output of 'planguard preview'.
type PreviewReport struct {
	Summary      string              `json:"summary" yaml:"summary"`
	Warnings     []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Counts       map[plan.Action]int `json:"counts" yaml:"counts"`
	PayloadBytes int                 `json:"payload_bytes" yaml:"payload_bytes"`
	Previews     []patch.Preview     `json:"previews" yaml:"previews"`
}

// Render implements Renderer.
func (r *PreviewReport) Render(s *Styles) string {
	var b strings.Builder

	b.WriteString(s.Title.Render("Plan preview"))
	b.WriteString("\n")
	if r.Summary != "" {
		b.WriteString(s.Muted.Render(r.Summary))
		b.WriteString("\n")
	}
	b.WriteString(renderCounts(r.Counts))
	b.WriteString(s.Muted.Render(fmt.Sprintf("  %d bytes proposed", r.PayloadBytes)))
	b.WriteString("\n")
	b.WriteString(renderWarnings(s, r.Warnings))

	for i, pv := range r.Previews {
		b.WriteString("\n")
		b.WriteString(renderPreview(s, i+1, pv))
	}
	return b.String()
}

func renderCounts(counts map[plan.Action]int) string {
	parts := make([]string, 0, 5)
	for _, a := range []plan.Action{plan.ActionCreate, plan.ActionUpdate, plan.ActionDelete, plan.ActionCommand, plan.ActionTest} {
		if n := counts[a]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, a))
		}
	}
	if len(parts) == 0 {
		return "  no steps\n"
	}
	return "  " + strings.Join(parts, ", ") + "\n"
}

func renderWarnings(s *Styles, warnings []string) string {
	var b strings.Builder
	for _, w := range warnings {
		b.WriteString(s.Warning.Render("  ! " + w))
		b.WriteString("\n")
	}
	return b.String()
}

func renderPreview(s *Styles, n int, pv patch.Preview) string {
	var b strings.Builder

	target := pv.Path
	if pv.Command != "" {
		target = pv.Command
	}
	b.WriteString(s.Header.Render(fmt.Sprintf("%d. %s %s", n, pv.Kind, target)))
	if pv.Cwd != "" {
		b.WriteString(s.Muted.Render(" (in " + pv.Cwd + ")"))
	}
	b.WriteString("\n")

	if pv.BytesBefore != nil || pv.BytesAfter != nil {
		b.WriteString(s.Muted.Render(fmt.Sprintf("   %s -> %s bytes, +%d -%d lines",
			byteCount(pv.BytesBefore), byteCount(pv.BytesAfter), pv.Insertions, pv.Deletions)))
		b.WriteString("\n")
	}
	if pv.Note != "" {
		b.WriteString(s.Warning.Render("   " + pv.Note))
		b.WriteString("\n")
	}
	if pv.DiffSnippet != "" {
		b.WriteString(RenderDiff(s, pv.DiffSnippet))
	}
	return b.String()
}

func byteCount(n *int64) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *n)
}

// RenderDiff colours a diff snippet line by line.
func RenderDiff(s *Styles, snippet string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(snippet, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			b.WriteString("   " + s.Added.Render(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString("   " + s.Removed.Render(line))
		default:
			b.WriteString("   " + s.Muted.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ApplyReport is the output of 'planguard apply'.
type ApplyReport struct {
	Summary  *apply.Summary `json:"summary" yaml:"summary"`
	Warnings []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Render implements Renderer.
func (r *ApplyReport) Render(s *Styles) string {
	var b strings.Builder
	sum := r.Summary

	title := "Plan applied"
	if sum.DryRun {
		title = "Dry run (nothing was written)"
	}
	b.WriteString(s.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(renderWarnings(s, r.Warnings))

	stats := []string{
		fmt.Sprintf("created:  %d", sum.Created),
		fmt.Sprintf("updated:  %d", sum.Updated),
		fmt.Sprintf("deleted:  %d", sum.Deleted),
		fmt.Sprintf("skipped:  %d", sum.Skipped),
		fmt.Sprintf("commands: %d", sum.Commands),
		fmt.Sprintf("tests:    %d", sum.Tests),
		fmt.Sprintf("bytes:    %d (%d writes)", sum.BytesWritten, sum.WriteCount),
		fmt.Sprintf("duration: %s", sum.Duration.Round(time.Millisecond)),
	}
	if sum.TxID != "" {
		stats = append(stats, fmt.Sprintf("tx:       %s", sum.TxID))
	}
	b.WriteString(s.Box.Render(strings.Join(stats, "\n")))
	b.WriteString("\n")

	for _, res := range sum.CommandOutputs {
		b.WriteString(renderCommand(s, res))
	}

	if !sum.Succeeded() {
		b.WriteString(s.Error.Render(fmt.Sprintf("%d step(s) failed", len(sum.Failures))))
		b.WriteString("\n")
		for _, f := range sum.Failures {
			line := fmt.Sprintf("  step %d (%s %s)", f.Index, f.Action, f.Target)
			if f.Code != "" {
				line += " [" + f.Code + "]"
			}
			b.WriteString(s.Error.Render(line))
			b.WriteString("\n")
		}
	} else if !sum.DryRun {
		b.WriteString(s.Success.Render("✓ all steps completed"))
		b.WriteString("\n")
	}

	if sum.TxID != "" && !sum.DryRun {
		b.WriteString(s.Muted.Render("Undo with: planguard rollback " + sum.TxID))
		b.WriteString("\n")
	}
	return b.String()
}

func renderCommand(s *Styles, res *exec.CmdResult) string {
	var b strings.Builder
	status := s.Success.Render("ok")
	switch {
	case res.DryRun:
		status = s.Muted.Render("not run")
	case res.TimedOut:
		status = s.Error.Render("timed out")
	case res.StatusCode != 0:
		status = s.Error.Render(fmt.Sprintf("exit %d", res.StatusCode))
	}
	line := fmt.Sprintf("$ %s  %s", res.Command, status)
	if res.ViaShellFallback {
		line += s.Muted.Render("  (via shell)")
	}
	b.WriteString(line)
	b.WriteString("\n")
	if res.StatusCode != 0 && strings.TrimSpace(res.Stderr) != "" {
		b.WriteString(s.Muted.Render(indent(strings.TrimRight(res.Stderr, "\n"), "  ")))
		b.WriteString("\n")
	}
	return b.String()
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// ValidationReport is the output of 'planguard validate'.
type ValidationReport struct {
	Valid        bool     `json:"valid" yaml:"valid"`
	Steps        int      `json:"steps" yaml:"steps"`
	PayloadBytes int      `json:"payload_bytes" yaml:"payload_bytes"`
	Warnings     []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error        string   `json:"error,omitempty" yaml:"error,omitempty"`
	Code         string   `json:"code,omitempty" yaml:"code,omitempty"`
}

// Render implements Renderer.
func (r *ValidationReport) Render(s *Styles) string {
	var b strings.Builder
	b.WriteString(renderWarnings(s, r.Warnings))
	if r.Valid {
		b.WriteString(s.Success.Render(fmt.Sprintf("✓ plan is valid (%d steps, %d bytes)", r.Steps, r.PayloadBytes)))
	} else {
		b.WriteString(s.Error.Render("✗ plan rejected"))
		b.WriteString("\n")
		b.WriteString(r.Error)
	}
	b.WriteString("\n")
	return b.String()
}

// StatusReport lists recorded transactions.
type StatusReport struct {
	Transactions []*checkpoint.State `json:"transactions" yaml:"transactions"`
}

// Render implements Renderer.
func (r *StatusReport) Render(s *Styles) string {
	if len(r.Transactions) == 0 {
		return s.Muted.Render("no transactions recorded") + "\n"
	}

	var b strings.Builder
	b.WriteString(s.Title.Render("Transactions"))
	b.WriteString("\n")
	for _, st := range r.Transactions {
		b.WriteString(fmt.Sprintf("%s  %s  %s  %d/%d steps\n",
			st.TxID,
			st.StartedAt.Format("2006-01-02 15:04:05"),
			statusStyle(s, st.Status).Render(st.Status),
			len(st.StepsWithStatus(checkpoint.StepCompleted))+len(st.StepsWithStatus(checkpoint.StepSkipped)),
			len(st.Steps)))
	}
	return b.String()
}

// TxReport describes one transaction in detail.
type TxReport struct {
	State *checkpoint.State   `json:"state" yaml:"state"`
	Runs  []*exec.RunManifest `json:"runs,omitempty" yaml:"runs,omitempty"`
}

// Render implements Renderer.
func (r *TxReport) Render(s *Styles) string {
	var b strings.Builder
	st := r.State

	b.WriteString(s.Title.Render("Transaction " + st.TxID))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("status:   %s\n", statusStyle(s, st.Status).Render(st.Status)))
	b.WriteString(fmt.Sprintf("started:  %s\n", st.StartedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("progress: %.0f%%\n", st.Progress()*100))
	if task, ok := st.GetMetadata("task"); ok {
		b.WriteString(fmt.Sprintf("task:     %s\n", task))
	}
	b.WriteString("\n")

	for _, step := range st.Steps {
		line := fmt.Sprintf("%3d. %-8s %-10s %s", step.Index, step.Action, step.Status, step.Target)
		b.WriteString(statusStyle(s, step.Status).Render(line))
		b.WriteString("\n")
		if step.Error != "" {
			b.WriteString(s.Muted.Render(indent(step.Error, "       ")))
			b.WriteString("\n")
		}
	}

	if len(r.Runs) > 0 {
		b.WriteString("\n")
		b.WriteString(s.Header.Render("Command runs"))
		b.WriteString("\n")
		for _, m := range r.Runs {
			b.WriteString(fmt.Sprintf("  $ %s  exit %d  %s\n", m.Command, m.ExitCode, m.Duration))
		}
	}
	return b.String()
}

func statusStyle(s *Styles, status string) lipgloss.Style {
	switch status {
	case checkpoint.StatusCompleted:
		return s.Success
	case checkpoint.StatusFailed:
		return s.Error
	case checkpoint.StatusInterrupted, checkpoint.StatusRolledBack, checkpoint.StepSkipped:
		return s.Warning
	default:
		return s.Muted
	}
}

// RollbackReport is the output of 'planguard rollback'.
type RollbackReport struct {
	TxID     string                `json:"tx_id" yaml:"tx_id"`
	Warnings []string              `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Result   *patch.RollbackResult `json:"result,omitempty" yaml:"result,omitempty"`
}

// Render implements Renderer.
func (r *RollbackReport) Render(s *Styles) string {
	var b strings.Builder
	b.WriteString(renderWarnings(s, r.Warnings))
	if r.Result == nil {
		b.WriteString(s.Warning.Render("rollback of " + r.TxID + " not performed"))
		b.WriteString("\n")
		return b.String()
	}
	if r.Result.Success {
		b.WriteString(s.Success.Render(fmt.Sprintf("✓ rolled back %s: %d steps, %d files restored",
			r.TxID, r.Result.StepsReverted, r.Result.FilesRestored)))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(s.Error.Render(fmt.Sprintf("✗ rollback of %s stopped after %d steps", r.TxID, r.Result.StepsReverted)))
	b.WriteString("\n")
	for _, e := range r.Result.Errors {
		b.WriteString(s.Error.Render("  " + e))
		b.WriteString("\n")
	}
	return b.String()
}

// VersionReport describes the running binary.
type VersionReport struct {
	version.Info `yaml:",inline"`
	Verbose      bool `json:"-" yaml:"-"`
}

// Render implements Renderer.
func (r *VersionReport) Render(s *Styles) string {
	if r.Verbose {
		return r.Info.String() + "\n"
	}
	return "planguard " + r.Info.Short() + "\n"
}

var (
	_ Renderer = (*VersionReport)(nil)
	_ Renderer = (*PreviewReport)(nil)
	_ Renderer = (*ApplyReport)(nil)
	_ Renderer = (*ValidationReport)(nil)
	_ Renderer = (*StatusReport)(nil)
	_ Renderer = (*TxReport)(nil)
	_ Renderer = (*RollbackReport)(nil)
)
