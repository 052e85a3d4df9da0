package patch

import (
	"github.com/felixgeelhaar/planguard/internal/plan"
	"github.com/felixgeelhaar/planguard/internal/policy"
)

// Default diff snippet caps.
const (
	DefaultCreateLines = 80
	DefaultUpdateLines = 120
)

// Preview describes what applying one step would do. It is recomputed from
// disk on every call and never cached.
type Preview struct {
	Kind        plan.Action `json:"kind" yaml:"kind"`
	StepID      string      `json:"step_id,omitempty" yaml:"step_id,omitempty"`
	Path        string      `json:"path,omitempty" yaml:"path,omitempty"`
	BytesBefore *int64      `json:"bytes_before,omitempty" yaml:"bytes_before,omitempty"`
	BytesAfter  *int64      `json:"bytes_after,omitempty" yaml:"bytes_after,omitempty"`
	DiffSnippet string      `json:"diff_snippet,omitempty" yaml:"diff_snippet,omitempty"`
	Command     string      `json:"command,omitempty" yaml:"command,omitempty"`
	Cwd         string      `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	Insertions  int         `json:"insertions" yaml:"insertions"`
	Deletions   int         `json:"deletions" yaml:"deletions"`
	Note        string      `json:"note,omitempty" yaml:"note,omitempty"`
}

// Previewer computes read-only previews of a plan.
type Previewer struct {
	Config *policy.Config
	// Task is the instruction that produced the plan. It decides whether
	// updates are merged.
	Task string

	CreateLines int
	UpdateLines int
}

// NewPreviewer builds a Previewer. A positive cfg.PreviewLines overrides
// both snippet caps.
func NewPreviewer(cfg *policy.Config, task string) *Previewer {
	p := &Previewer{
		Config:      cfg,
		Task:        task,
		CreateLines: DefaultCreateLines,
		UpdateLines: DefaultUpdateLines,
	}
	if cfg.PreviewLines > 0 {
		p.CreateLines = cfg.PreviewLines
		p.UpdateLines = cfg.PreviewLines
	}
	return p
}

// Preview returns one Preview per step, in plan order. Each step sees the
// effect of the steps before it, read fresh from disk on every call. The
// first step that cannot be resolved or read aborts the preview.
func (p *Previewer) Preview(pl *plan.Plan) ([]Preview, error) {
	view := NewOverlay()
	out := make([]Preview, 0, len(pl.Steps))
	for _, step := range pl.Steps {
		pv, err := p.previewStep(step, view)
		if err != nil {
			return nil, err
		}
		out = append(out, pv)
	}
	return out, nil
}

func (p *Previewer) previewStep(step plan.Step, view *Overlay) (Preview, error) {
	pv := Preview{Kind: step.Action(), StepID: step.StepMeta().ID}

	switch s := step.(type) {
	case *plan.CommandStep:
		pv.Command = s.Command
		if s.Cwd != nil {
			pv.Cwd = *s.Cwd
		}
		return pv, nil
	case *plan.TestStep:
		pv.Command = s.Command
		return pv, nil
	}

	fs, ok := step.(plan.FileStep)
	if !ok {
		return pv, nil
	}

	c, err := ComputeChange(fs, p.Config, p.Task, view)
	if err != nil {
		return pv, err
	}
	pv.Path = c.Path
	if view != nil {
		view.Record(c)
	}

	before := sizeOf(c.Old)

	switch {
	case c.Action == plan.ActionDelete:
		if before == nil {
			before = new(int64)
		}
		pv.BytesBefore = before
		pv.BytesAfter = new(int64)
		if c.Old != nil {
			_, pv.Deletions = LineStats(*c.Old, "")
		} else {
			pv.Note = "file does not exist; delete will be skipped"
		}

	case c.Skipped():
		pv.BytesBefore = before
		pv.Note = "patch-only update will be skipped"

	default:
		pv.BytesBefore = before
		after := int64(len(c.New))
		pv.BytesAfter = &after

		var old string
		if c.Old != nil {
			old = *c.Old
		}
		limit := p.UpdateLines
		if c.Action == plan.ActionCreate {
			limit = p.CreateLines
		}
		pv.DiffSnippet = ShortDiff(old, c.New, limit)
		pv.Insertions, pv.Deletions = LineStats(old, c.New)
		if c.Action == plan.ActionCreate && c.Old != nil {
			pv.Note = "file exists; create will replace it"
		}
		if c.Action == plan.ActionUpdate && c.Old == nil {
			pv.Note = "file does not exist; update will create it"
		}
	}

	return pv, nil
}

func sizeOf(content *string) *int64 {
	if content == nil {
		return nil
	}
	n := int64(len(*content))
	return &n
}
