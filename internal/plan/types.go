package plan

import (
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/planguard/internal/errors"
)

// Plan is an ordered list of proposed file and command operations.
// Step order is execution order.
type Plan struct {
	Summary string `json:"summary" yaml:"summary"`
	Steps   []Step `json:"steps" yaml:"steps"`
}

// Action is the wire discriminator of a Step.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionCommand Action = "command"
	ActionTest    Action = "test"
)

// Meta carries display-only identification shared by every step.
type Meta struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

// Step is one of *CreateStep, *UpdateStep, *DeleteStep, *CommandStep or
// *TestStep. The set is closed.
type Step interface {
	Action() Action
	StepMeta() Meta
	isStep()
}

// FileStep is a Step that targets a path under the project root.
type FileStep interface {
	Step
	TargetPath() string
}

// CreateStep writes a new file.
type CreateStep struct {
	Meta     `yaml:",inline"`
	Path     string  `json:"path" yaml:"path"`
	Language *string `json:"language,omitempty" yaml:"language,omitempty"`
	Content  *string `json:"content,omitempty" yaml:"content,omitempty"`
}

// UpdateStep replaces or merges into an existing file. Patch is carried for
// byte accounting only; it is never applied.
type UpdateStep struct {
	Meta    `yaml:",inline"`
	Path    string  `json:"path" yaml:"path"`
	Patch   *string `json:"patch,omitempty" yaml:"patch,omitempty"`
	Content *string `json:"content,omitempty" yaml:"content,omitempty"`
}

// DeleteStep removes a file.
type DeleteStep struct {
	Meta `yaml:",inline"`
	Path string `json:"path" yaml:"path"`
}

// CommandStep runs an allowlisted command, optionally from a subdirectory.
type CommandStep struct {
	Meta    `yaml:",inline"`
	Command string  `json:"command" yaml:"command"`
	Cwd     *string `json:"cwd,omitempty" yaml:"cwd,omitempty"`
}

// TestStep runs an allowlisted command from the project root.
type TestStep struct {
	Meta    `yaml:",inline"`
	Command string `json:"command" yaml:"command"`
}

func (*CreateStep) Action() Action  { return ActionCreate }
func (*UpdateStep) Action() Action  { return ActionUpdate }
func (*DeleteStep) Action() Action  { return ActionDelete }
func (*CommandStep) Action() Action { return ActionCommand }
func (*TestStep) Action() Action    { return ActionTest }

func (s *CreateStep) StepMeta() Meta  { return s.Meta }
func (s *UpdateStep) StepMeta() Meta  { return s.Meta }
func (s *DeleteStep) StepMeta() Meta  { return s.Meta }
func (s *CommandStep) StepMeta() Meta { return s.Meta }
func (s *TestStep) StepMeta() Meta    { return s.Meta }

func (s *CreateStep) TargetPath() string { return s.Path }
func (s *UpdateStep) TargetPath() string { return s.Path }
func (s *DeleteStep) TargetPath() string { return s.Path }

func (*CreateStep) isStep()  {}
func (*UpdateStep) isStep()  {}
func (*DeleteStep) isStep()  {}
func (*CommandStep) isStep() {}
func (*TestStep) isStep()    {}

// Str returns a pointer to s, for building optional step fields.
func Str(s string) *string {
	return &s
}

// CommandOf returns the command string of a Command or Test step.
func CommandOf(s Step) (string, bool) {
	switch st := s.(type) {
	case *CommandStep:
		return st.Command, true
	case *TestStep:
		return st.Command, true
	default:
		return "", false
	}
}

// Counts tallies steps per action.
func (p *Plan) Counts() map[Action]int {
	counts := make(map[Action]int, 5)
	for _, s := range p.Steps {
		counts[s.Action()]++
	}
	return counts
}

// wire encoding: every step carries an "action" field next to its own fields

func (s *CreateStep) MarshalJSON() ([]byte, error) {
	type alias CreateStep
	return json.Marshal(struct {
		Action Action `json:"action"`
		*alias
	}{ActionCreate, (*alias)(s)})
}

func (s *UpdateStep) MarshalJSON() ([]byte, error) {
	type alias UpdateStep
	return json.Marshal(struct {
		Action Action `json:"action"`
		*alias
	}{ActionUpdate, (*alias)(s)})
}

func (s *DeleteStep) MarshalJSON() ([]byte, error) {
	type alias DeleteStep
	return json.Marshal(struct {
		Action Action `json:"action"`
		*alias
	}{ActionDelete, (*alias)(s)})
}

func (s *CommandStep) MarshalJSON() ([]byte, error) {
	type alias CommandStep
	return json.Marshal(struct {
		Action Action `json:"action"`
		*alias
	}{ActionCommand, (*alias)(s)})
}

func (s *TestStep) MarshalJSON() ([]byte, error) {
	type alias TestStep
	return json.Marshal(struct {
		Action Action `json:"action"`
		*alias
	}{ActionTest, (*alias)(s)})
}

func (s *CreateStep) MarshalYAML() (any, error) {
	type alias CreateStep
	return struct {
		Action Action `yaml:"action"`
		alias  `yaml:",inline"`
	}{ActionCreate, alias(*s)}, nil
}

func (s *UpdateStep) MarshalYAML() (any, error) {
	type alias UpdateStep
	return struct {
		Action Action `yaml:"action"`
		alias  `yaml:",inline"`
	}{ActionUpdate, alias(*s)}, nil
}

func (s *DeleteStep) MarshalYAML() (any, error) {
	type alias DeleteStep
	return struct {
		Action Action `yaml:"action"`
		alias  `yaml:",inline"`
	}{ActionDelete, alias(*s)}, nil
}

func (s *CommandStep) MarshalYAML() (any, error) {
	type alias CommandStep
	return struct {
		Action Action `yaml:"action"`
		alias  `yaml:",inline"`
	}{ActionCommand, alias(*s)}, nil
}

func (s *TestStep) MarshalYAML() (any, error) {
	type alias TestStep
	return struct {
		Action Action `yaml:"action"`
		alias  `yaml:",inline"`
	}{ActionTest, alias(*s)}, nil
}

// UnmarshalJSON decodes steps by their "action" discriminator.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var raw struct {
		Summary string            `json:"summary"`
		Steps   []json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	steps := make([]Step, 0, len(raw.Steps))
	for i, msg := range raw.Steps {
		s, err := DecodeStep(msg)
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		steps = append(steps, s)
	}

	p.Summary = raw.Summary
	p.Steps = steps
	return nil
}

// DecodeStep decodes one wire step.
func DecodeStep(data []byte) (Step, error) {
	var head struct {
		Action Action `json:"action"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, errors.Wrap(errors.ErrCodePlanUnmarshal, "decode step", err)
	}

	var s Step
	switch head.Action {
	case ActionCreate:
		s = &CreateStep{}
	case ActionUpdate:
		s = &UpdateStep{}
	case ActionDelete:
		s = &DeleteStep{}
	case ActionCommand:
		s = &CommandStep{}
	case ActionTest:
		s = &TestStep{}
	case "":
		return nil, errors.New(errors.ErrCodeUnknownAction, "step has no action")
	default:
		return nil, errors.New(errors.ErrCodeUnknownAction, fmt.Sprintf("unknown step action %q", head.Action)).
			WithSuggestion("Use one of: create, update, delete, command, test")
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(errors.ErrCodePlanUnmarshal, fmt.Sprintf("decode %s step", head.Action), err)
	}
	return s, nil
}
