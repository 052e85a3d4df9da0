package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/planguard/internal/patch"
)

// PlanReviewResult holds the result of a plan review session
type PlanReviewResult struct {
	Approved bool
	Reason   string
}

type reviewKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
	Back    key.Binding
	Approve key.Binding
	Reject  key.Binding
	Quit    key.Binding
}

var reviewKeys = reviewKeyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Open:    key.NewBinding(key.WithKeys("enter", "right", "l"), key.WithHelp("enter", "show diff")),
	Back:    key.NewBinding(key.WithKeys("left", "h", "esc"), key.WithHelp("h/esc", "back")),
	Approve: key.NewBinding(key.WithKeys("a", "A"), key.WithHelp("a", "apply")),
	Reject:  key.NewBinding(key.WithKeys("r", "R"), key.WithHelp("r", "reject")),
	Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
}

// planReviewModel is the BubbleTea model for reviewing step previews
type planReviewModel struct {
	summary        string
	previews       []patch.Preview
	warnings       []string
	cursor         int
	selected       int
	viewMode       string // "list" or "detail"
	rejectionInput string
	editingReason  bool
	result         *PlanReviewResult
	width          int
	height         int
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginLeft(2)

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("170")).
				Bold(true).
				PaddingLeft(2)

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	detailKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)

	detailValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	addedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	removedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			MarginLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginLeft(2).
			MarginTop(1)

	approveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	rejectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)
)

func newPlanReviewModel(summary string, previews []patch.Preview, warnings []string) planReviewModel {
	return planReviewModel{
		summary:  summary,
		previews: previews,
		warnings: warnings,
		viewMode: "list",
	}
}

// Init initializes the model
func (m planReviewModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m planReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.editingReason {
			return m.updateReason(msg)
		}

		switch {
		case key.Matches(msg, reviewKeys.Quit):
			m.result = &PlanReviewResult{Approved: false, Reason: "Review cancelled"}
			return m, tea.Quit

		case key.Matches(msg, reviewKeys.Up):
			if m.viewMode == "list" && m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, reviewKeys.Down):
			if m.viewMode == "list" && m.cursor < len(m.previews)-1 {
				m.cursor++
			}

		case key.Matches(msg, reviewKeys.Open):
			if m.viewMode == "list" {
				m.selected = m.cursor
				m.viewMode = "detail"
			}

		case key.Matches(msg, reviewKeys.Back):
			if m.viewMode == "detail" {
				m.viewMode = "list"
			}

		case key.Matches(msg, reviewKeys.Approve):
			m.result = &PlanReviewResult{Approved: true}
			return m, tea.Quit

		case key.Matches(msg, reviewKeys.Reject):
			m.editingReason = true
		}
	}

	return m, nil
}

func (m planReviewModel) updateReason(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.editingReason = false
		m.result = &PlanReviewResult{Approved: false, Reason: m.rejectionInput}
		return m, tea.Quit
	case tea.KeyEsc:
		m.editingReason = false
		m.rejectionInput = ""
	case tea.KeyBackspace:
		if len(m.rejectionInput) > 0 {
			m.rejectionInput = m.rejectionInput[:len(m.rejectionInput)-1]
		}
	case tea.KeySpace:
		m.rejectionInput += " "
	case tea.KeyRunes:
		m.rejectionInput += string(msg.Runes)
	}
	return m, nil
}

// View renders the current state
func (m planReviewModel) View() string {
	if m.result != nil {
		if m.result.Approved {
			return approveStyle.Render("\n✓ Plan approved\n\n")
		}
		reason := m.result.Reason
		if reason == "" {
			reason = "No reason provided"
		}
		return rejectStyle.Render(fmt.Sprintf("\n✗ Plan rejected\n  Reason: %s\n\n", reason))
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Plan Review"))
	b.WriteString("\n\n")
	if m.summary != "" {
		b.WriteString(headerStyle.Render(m.summary))
		b.WriteString("\n")
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%d steps", len(m.previews))))
	b.WriteString("\n")
	for _, w := range m.warnings {
		b.WriteString(warningStyle.Render("! " + w))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.viewMode == "list" {
		for i, pv := range m.previews {
			style := itemStyle
			cursor := "  "
			if i == m.cursor {
				style = selectedItemStyle
				cursor = "→ "
			}
			b.WriteString(style.Render(fmt.Sprintf("%s[%d] %-7s %s%s", cursor, i+1, pv.Kind, previewTarget(pv), lineStats(pv))))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(m.renderDetail())
	}

	b.WriteString("\n")

	switch {
	case m.editingReason:
		b.WriteString(rejectStyle.Render("✗ Rejection reason:"))
		b.WriteString("\n  ")
		b.WriteString(m.rejectionInput)
		b.WriteString("_")
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter: submit | esc: cancel"))
	case m.viewMode == "list":
		b.WriteString(helpStyle.Render(helpLine(reviewKeys.Up, reviewKeys.Down, reviewKeys.Open, reviewKeys.Approve, reviewKeys.Reject, reviewKeys.Quit)))
	default:
		b.WriteString(helpStyle.Render(helpLine(reviewKeys.Back, reviewKeys.Approve, reviewKeys.Reject, reviewKeys.Quit)))
	}

	return b.String()
}

func (m planReviewModel) renderDetail() string {
	var b strings.Builder
	pv := m.previews[m.selected]

	b.WriteString(headerStyle.Render(fmt.Sprintf("Step %d of %d", m.selected+1, len(m.previews))))
	b.WriteString("\n\n")

	details := []struct {
		key   string
		value string
	}{
		{"Action", string(pv.Kind)},
		{"Target", previewTarget(pv)},
		{"Step ID", pv.StepID},
		{"Cwd", pv.Cwd},
		{"Bytes", byteRange(pv)},
		{"Note", pv.Note},
	}
	for _, d := range details {
		if d.value == "" {
			continue
		}
		b.WriteString("  ")
		b.WriteString(detailKeyStyle.Render(fmt.Sprintf("%-8s:", d.key)))
		b.WriteString(" ")
		b.WriteString(detailValueStyle.Render(d.value))
		b.WriteString("\n")
	}

	if pv.DiffSnippet != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(pv.DiffSnippet, "\n") {
			switch {
			case strings.HasPrefix(line, "+"):
				line = addedStyle.Render(line)
			case strings.HasPrefix(line, "-"):
				line = removedStyle.Render(line)
			}
			b.WriteString("    " + line + "\n")
		}
	}
	return b.String()
}

func previewTarget(pv patch.Preview) string {
	if pv.Command != "" {
		return pv.Command
	}
	return pv.Path
}

func lineStats(pv patch.Preview) string {
	if pv.Insertions == 0 && pv.Deletions == 0 {
		return ""
	}
	return fmt.Sprintf("  +%d -%d", pv.Insertions, pv.Deletions)
}

func byteRange(pv patch.Preview) string {
	if pv.BytesBefore == nil && pv.BytesAfter == nil {
		return ""
	}
	format := func(n *int64) string {
		if n == nil {
			return "-"
		}
		return fmt.Sprintf("%d", *n)
	}
	return format(pv.BytesBefore) + " -> " + format(pv.BytesAfter)
}

func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, " | ")
}

// RunPlanReview launches an interactive review of the step previews. The
// plan is applied only when the result is approved.
func RunPlanReview(summary string, previews []patch.Preview, warnings []string) (*PlanReviewResult, error) {
	if len(previews) == 0 {
		// Nothing to apply
		return &PlanReviewResult{Approved: true}, nil
	}

	program := tea.NewProgram(newPlanReviewModel(summary, previews, warnings))
	finalModel, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("running plan review UI: %w", err)
	}

	m, ok := finalModel.(planReviewModel)
	if !ok {
		return nil, fmt.Errorf("unexpected model type: %T", finalModel)
	}

	if m.result != nil {
		return m.result, nil
	}

	return &PlanReviewResult{Approved: false, Reason: "Review ended without a decision"}, nil
}
