package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) renderMain() string {
	var b strings.Builder

	title := m.title
	if m.dryRun {
		title += " (dry run)"
	}
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n\n")

	b.WriteString(m.renderProgressBox())
	b.WriteString("\n\n")

	if m.currentStep > 0 && m.currentStep <= len(m.steps) {
		b.WriteString(m.styles.Muted.Render("Current step: "))
		b.WriteString(m.styles.Status.Render(fmt.Sprintf("%d. %s", m.currentStep, m.steps[m.currentStep-1].label)))
		b.WriteString("\n\n")
	}

	if m.lastError != "" {
		errorBox := m.styles.Border.
			BorderForeground(lipgloss.Color("196")).
			Render(m.styles.Error.Render("Error: ") + m.lastError)
		b.WriteString(errorBox)
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderHelpLine())
	return b.String()
}

func (m Model) renderProgressBox() string {
	var b strings.Builder

	statusStyle := lipgloss.NewStyle().Bold(true).Foreground(m.statusColor())
	b.WriteString(statusStyle.Render(fmt.Sprintf("%s Progress", m.statusIcon())))
	b.WriteString("\n\n")
	b.WriteString(m.renderProgressBar())
	b.WriteString("\n\n")
	b.WriteString(m.renderStats())

	return m.styles.Border.Render(b.String())
}

func (m Model) renderProgressBar() string {
	if m.totalSteps() == 0 {
		return m.styles.Muted.Render("No steps")
	}

	barWidth := 40
	filled := int(float64(m.finishedSteps()) / float64(m.totalSteps()) * float64(barWidth))
	bar := "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"

	progressText := fmt.Sprintf(" %d/%d (%.0f%%)", m.finishedSteps(), m.totalSteps(), m.progressPercentage())
	return m.styles.Status.Render(bar) + m.styles.Muted.Render(progressText)
}

func (m Model) renderStats() string {
	stats := []string{
		fmt.Sprintf("Completed: %s", m.styles.Success.Render(fmt.Sprintf("%d", m.completedSteps))),
		fmt.Sprintf("Skipped:   %s", m.styles.Muted.Render(fmt.Sprintf("%d", m.skippedSteps))),
		fmt.Sprintf("Pending:   %s", m.styles.Muted.Render(fmt.Sprintf("%d", m.totalSteps()-m.finishedSteps()))),
	}
	if m.failedSteps > 0 {
		stats = append(stats, fmt.Sprintf("Failed:    %s", m.styles.Error.Render(fmt.Sprintf("%d", m.failedSteps))))
	}
	stats = append(stats, fmt.Sprintf("Elapsed:   %s", m.styles.Muted.Render(formatDuration(m.elapsed()))))
	return strings.Join(stats, "\n")
}

func (m Model) renderStepList() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Steps"))
	b.WriteString("\n\n")

	if len(m.steps) == 0 {
		b.WriteString(m.styles.Muted.Render("No steps"))
		b.WriteString("\n\n")
		b.WriteString(m.renderHelpLine())
		return b.String()
	}

	for i, row := range m.steps {
		b.WriteString(m.renderStepLine(i+1, row))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelpLine())
	return b.String()
}

func (m Model) renderStepLine(index int, row stepRow) string {
	var icon string
	var style lipgloss.Style
	switch row.state {
	case rowDone:
		icon, style = "✓", m.styles.Success
	case rowRunning:
		icon, style = "⟳", m.styles.Status
	case rowSkipped:
		icon, style = "-", m.styles.Muted
	case rowFailed:
		icon, style = "✗", m.styles.Error
	default:
		icon, style = "○", m.styles.Muted
	}

	text := fmt.Sprintf("%d. %s", index, row.label)
	if index == m.currentStep {
		return m.styles.Highlighted.Render(fmt.Sprintf(" %s ", icon)) + " " + m.styles.Status.Render(text)
	}
	return style.Render(icon) + " " + style.Render(text)
}

func (m Model) renderHelp() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Help"))
	b.WriteString("\n\n")

	hotkeys := []struct {
		key  string
		desc string
	}{
		{"?", "Toggle help"},
		{"s", "Toggle step list"},
		{"q", "Stop applying"},
		{"Ctrl+C", "Stop applying"},
		{"Esc", "Return to main view"},
	}
	for _, hk := range hotkeys {
		b.WriteString(m.styles.Key.Render(fmt.Sprintf("%-10s", hk.key)) + " " + m.styles.KeyDesc.Render(hk.desc))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("Stopping lets the running step finish its cleanup; later steps do not run."))
	return b.String()
}

func (m Model) renderComplete() string {
	var b strings.Builder

	switch {
	case !m.done:
		b.WriteString(m.styles.Warning.Render("Apply interrupted"))
		b.WriteString("\n")
		return b.String()
	case m.lastError != "":
		b.WriteString(m.styles.Error.Render("Apply failed"))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Muted.Render("Error: ") + m.lastError)
	default:
		b.WriteString(m.styles.Success.Render("Apply complete"))
		b.WriteString("\n\n")
		stats := []string{fmt.Sprintf("Steps: %d/%d", m.finishedSteps(), m.totalSteps())}
		if m.summary != nil {
			stats = append(stats,
				fmt.Sprintf("Files: %d created, %d updated, %d deleted", m.summary.Created, m.summary.Updated, m.summary.Deleted),
				fmt.Sprintf("Duration: %s", formatDuration(m.summary.Duration)),
			)
		}
		b.WriteString(strings.Join(stats, "\n"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderHelpLine() string {
	helpItems := []string{
		m.styles.Key.Render("?") + " help",
		m.styles.Key.Render("s") + " steps",
		m.styles.Key.Render("q") + " stop",
	}
	return m.styles.Help.Render(strings.Join(helpItems, " • "))
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
