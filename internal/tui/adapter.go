package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/planguard/internal/apply"
	"github.com/felixgeelhaar/planguard/internal/plan"
)

var _ apply.Observer = (*Adapter)(nil)

// Adapter drives the progress view from an Applier. Set it as the
// Applier's Observer, call Start before Apply and Finish after it.
type Adapter struct {
	program *tea.Program
	model   Model
	opts    []tea.ProgramOption

	done     chan struct{}
	stopOnce sync.Once
	err      error
}

// NewAdapter creates an adapter for a run over steps.
func NewAdapter(title string, steps []plan.Step, dryRun bool, opts ...tea.ProgramOption) *Adapter {
	return &Adapter{
		model: NewModel(title, steps, dryRun),
		opts:  opts,
		done:  make(chan struct{}),
	}
}

// Start runs the view in the background. If the user closes the view
// before the apply returns, cancel is called so the Applier stops before
// its next step.
func (a *Adapter) Start(cancel context.CancelFunc) {
	a.program = tea.NewProgram(a.model, a.opts...)

	go func() {
		defer close(a.done)
		final, err := a.program.Run()
		a.err = err
		if m, ok := final.(Model); (!ok || !m.Done()) && cancel != nil {
			cancel()
		}
	}()
}

// StepStarted implements apply.Observer.
func (a *Adapter) StepStarted(index int, step plan.Step) {
	a.send(StepStartMsg{Index: index, Label: StepLabel(step)})
}

// StepFinished implements apply.Observer.
func (a *Adapter) StepFinished(index int, step plan.Step, result string, err error) {
	msg := StepFinishMsg{Index: index, Result: result}
	if err != nil {
		msg.Error = err.Error()
	}
	a.send(msg)
}

// Finish reports the outcome of the apply and waits for the view to close.
// It returns the error the view exited with, if any.
func (a *Adapter) Finish(summary *apply.Summary, err error) error {
	if a.program == nil {
		return nil
	}
	a.send(ApplyCompleteMsg{Summary: summary, Err: err})
	<-a.done
	return a.err
}

// Stop closes the view without waiting for a result.
func (a *Adapter) Stop() {
	a.stopOnce.Do(func() {
		if a.program != nil {
			a.program.Quit()
		}
	})
}

func (a *Adapter) send(msg tea.Msg) {
	if a.program != nil {
		a.program.Send(msg)
	}
}
