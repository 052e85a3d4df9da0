package patch

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/merge"
	"github.com/felixgeelhaar/planguard/internal/plan"
	"github.com/felixgeelhaar/planguard/internal/policy"
	"github.com/felixgeelhaar/planguard/internal/safety"
)

// Change is the resolved effect of one file step against the current tree.
// The Previewer renders it and the Applier writes it, so both always agree
// on the final content.
type Change struct {
	Action  plan.Action
	Path    string
	AbsPath string
	Status  FileStatus

	// Old is the current content, nil when the file does not exist.
	Old *string
	// New is the content to write. Always newline-terminated. Unused for deletes.
	New string

	// SkipReason is set when the step resolves to a no-op.
	SkipReason string
}

// Skipped reports whether the step will not touch the file.
func (c *Change) Skipped() bool {
	return c.SkipReason != ""
}

// ComputeChange resolves step under cfg.Root and computes what applying it
// would do right now. It performs no writes. Current content is read
// through view, or from disk when view is nil.
func ComputeChange(step plan.FileStep, cfg *policy.Config, task string, view *Overlay) (*Change, error) {
	abs, err := safety.ResolvePath(cfg.Root, step.TargetPath(), cfg.PathAllowlist)
	if err != nil {
		return nil, err
	}
	rel, err := safety.NormalizeRelative(step.TargetPath())
	if err != nil {
		rel = step.TargetPath()
	}

	old, err := view.Read(abs)
	if err != nil {
		return nil, err
	}

	c := &Change{Action: step.Action(), Path: rel, AbsPath: abs, Old: old}

	switch s := step.(type) {
	case *plan.CreateStep:
		if s.Content == nil {
			return nil, errors.NewMalformedStepError(s.ID, "create without content")
		}
		c.New = merge.EnsureTrailingNewline(merge.PreserveLeadingDirective(old, *s.Content, task))
		c.Status = statusFor(old)

	case *plan.UpdateStep:
		if s.Content == nil {
			if s.Patch == nil {
				return nil, errors.NewMalformedStepError(s.ID, "update without content or patch")
			}
			c.SkipReason = "patch-only update; unified diffs are not applied"
			return c, nil
		}
		opts := merge.Options{Task: task, Mergeable: cfg.Mergeable(rel)}
		c.New = merge.EnsureTrailingNewline(merge.Compose(old, *s.Content, opts))
		c.Status = statusFor(old)

	case *plan.DeleteStep:
		if old == nil {
			c.SkipReason = "file does not exist"
			return c, nil
		}
		c.Status = FileStatusDeleted

	default:
		return nil, fmt.Errorf("unsupported file step %T", step)
	}

	return c, nil
}

// FilePatch returns the journal record for the change.
func (c *Change) FilePatch() FilePatch {
	if c.Status == FileStatusDeleted {
		return NewFilePatch(c.Path, c.Old, nil)
	}
	return NewFilePatch(c.Path, c.Old, &c.New)
}

func statusFor(old *string) FileStatus {
	if old == nil {
		return FileStatusAdded
	}
	return FileStatusModified
}

// Overlay is a view of the tree in which recorded changes shadow the disk.
// Dry runs and previews use it so later steps see the effect of earlier
// ones without anything being written.
type Overlay struct {
	files map[string]*string
}

// NewOverlay returns an empty overlay over the disk.
func NewOverlay() *Overlay {
	return &Overlay{files: make(map[string]*string)}
}

// Read returns the content of abs as seen through the overlay. A nil
// overlay reads the disk.
func (o *Overlay) Read(abs string) (*string, error) {
	if o != nil {
		if content, ok := o.files[abs]; ok {
			return content, nil
		}
	}
	return ReadCurrent(abs)
}

// Record makes c visible to later reads.
func (o *Overlay) Record(c *Change) {
	if c.Skipped() {
		return
	}
	if c.Status == FileStatusDeleted {
		o.files[c.AbsPath] = nil
		return
	}
	content := c.New
	o.files[c.AbsPath] = &content
}

// ReadCurrent returns the content of path, or nil if it does not exist.
func ReadCurrent(path string) (*string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("stat %s", path), err)
	}
	if info.IsDir() {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("read %s", path),
			&fs.PathError{Op: "read", Path: path, Err: fmt.Errorf("is a directory")})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, fmt.Sprintf("read %s", path), err)
	}
	content := string(data)
	return &content, nil
}
