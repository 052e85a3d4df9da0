package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/planguard/internal/apply"
	"github.com/felixgeelhaar/planguard/internal/metrics"
	"github.com/felixgeelhaar/planguard/internal/plan"
)

// ViewType represents the current view being displayed
type ViewType int

const (
	// ViewMain shows overall progress
	ViewMain ViewType = iota
	// ViewStepList shows every step with its state
	ViewStepList
	// ViewHelp is the help screen
	ViewHelp
)

type rowState int

const (
	rowPending rowState = iota
	rowRunning
	rowDone
	rowSkipped
	rowFailed
)

type stepRow struct {
	label string
	state rowState
}

// Model is the progress view shown while a plan is applied.
type Model struct {
	title  string
	dryRun bool
	steps  []stepRow

	// currentStep is 1-based; zero before the first step starts.
	currentStep    int
	completedSteps int
	skippedSteps   int
	failedSteps    int
	lastError      string
	startTime      time.Time

	summary *apply.Summary
	done    bool

	currentView ViewType
	width       int
	height      int
	ready       bool
	quitting    bool

	styles Styles
}

// Styles contains lipgloss styles for the progress view
type Styles struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Status      lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
	Warning     lipgloss.Style
	Muted       lipgloss.Style
	Border      lipgloss.Style
	Highlighted lipgloss.Style
	Help        lipgloss.Style
	Key         lipgloss.Style
	KeyDesc     lipgloss.Style
}

// NewModel creates a progress model for steps.
func NewModel(title string, steps []plan.Step, dryRun bool) Model {
	rows := make([]stepRow, len(steps))
	for i, s := range steps {
		rows[i] = stepRow{label: StepLabel(s)}
	}
	return Model{
		title:       title,
		dryRun:      dryRun,
		steps:       rows,
		currentView: ViewMain,
		startTime:   time.Now(),
		styles:      DefaultStyles(),
	}
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).MarginBottom(1),
		Subtitle: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Status:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Success:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")),
		Warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2),
		Highlighted: lipgloss.NewStyle().
			Background(lipgloss.Color("63")).
			Foreground(lipgloss.Color("230")).
			Bold(true).
			Padding(0, 1),
		Help:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1),
		Key:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		KeyDesc: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Init initializes the model (required by Bubble Tea)
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case StepStartMsg:
		m.currentStep = msg.Index
		m.setRow(msg.Index, rowRunning)
		return m, nil

	case StepFinishMsg:
		switch {
		case msg.Error != "":
			m.failedSteps++
			m.lastError = msg.Error
			m.setRow(msg.Index, rowFailed)
		case msg.Result == metrics.ResultSkipped:
			m.skippedSteps++
			m.setRow(msg.Index, rowSkipped)
		default:
			m.completedSteps++
			m.setRow(msg.Index, rowDone)
		}
		return m, nil

	case ApplyCompleteMsg:
		m.summary = msg.Summary
		if msg.Err != nil && m.lastError == "" {
			m.lastError = msg.Err.Error()
		}
		m.done = true
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the model (required by Bubble Tea)
func (m Model) View() string {
	if m.quitting {
		return m.renderComplete()
	}
	if !m.ready {
		return "Initializing..."
	}

	switch m.currentView {
	case ViewStepList:
		return m.renderStepList()
	case ViewHelp:
		return m.renderHelp()
	default:
		return m.renderMain()
	}
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "?":
		if m.currentView == ViewHelp {
			m.currentView = ViewMain
		} else {
			m.currentView = ViewHelp
		}

	case "s":
		if m.currentView == ViewStepList {
			m.currentView = ViewMain
		} else {
			m.currentView = ViewStepList
		}

	case "esc":
		m.currentView = ViewMain
	}

	return m, nil
}

func (m *Model) setRow(index int, state rowState) {
	if index >= 1 && index <= len(m.steps) {
		m.steps[index-1].state = state
	}
}

// Done reports whether the apply finished before the view closed.
func (m Model) Done() bool {
	return m.done
}

// StepStartMsg indicates a step has started
type StepStartMsg struct {
	Index int
	Label string
}

// StepFinishMsg indicates a step has ended. Error is empty on success.
type StepFinishMsg struct {
	Index  int
	Result string
	Error  string
}

// ApplyCompleteMsg indicates the apply has returned
type ApplyCompleteMsg struct {
	Summary *apply.Summary
	Err     error
}

// StepLabel is the one-line description of a step used in progress output.
func StepLabel(step plan.Step) string {
	target := ""
	switch s := step.(type) {
	case plan.FileStep:
		target = s.TargetPath()
	case *plan.CommandStep:
		target = s.Command
	case *plan.TestStep:
		target = s.Command
	}
	label := string(step.Action())
	if id := step.StepMeta().ID; id != "" {
		label += " [" + id + "]"
	}
	if target != "" {
		label += " " + target
	}
	return label
}

func (m Model) totalSteps() int {
	return len(m.steps)
}

func (m Model) finishedSteps() int {
	return m.completedSteps + m.skippedSteps + m.failedSteps
}

func (m Model) elapsed() time.Duration {
	return time.Since(m.startTime)
}

func (m Model) progressPercentage() float64 {
	if m.totalSteps() == 0 {
		return 0
	}
	return float64(m.finishedSteps()) / float64(m.totalSteps()) * 100
}

func (m Model) statusIcon() string {
	if m.lastError != "" {
		return "✗"
	}
	if m.finishedSteps() == m.totalSteps() && m.totalSteps() > 0 {
		return "✓"
	}
	return "⟳"
}

func (m Model) statusColor() lipgloss.TerminalColor {
	if m.lastError != "" {
		return lipgloss.Color("196")
	}
	if m.finishedSteps() == m.totalSteps() && m.totalSteps() > 0 {
		return lipgloss.Color("46")
	}
	return lipgloss.Color("86")
}
