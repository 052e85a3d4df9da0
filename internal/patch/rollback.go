package patch

import (
	"fmt"

	"github.com/felixgeelhaar/planguard/internal/safety"
)

// everything lets rollback restore any journaled path under the root even
// if the allowlist has changed since the apply.
var everything = []string{"."}

// RollbackResult reports how far a rollback got.
type RollbackResult struct {
	Success       bool     `json:"success" yaml:"success"`
	StepsReverted int      `json:"steps_reverted" yaml:"steps_reverted"`
	FilesRestored int      `json:"files_restored" yaml:"files_restored"`
	Errors        []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Rollback undoes the journaled patches of one transaction.
type Rollback struct {
	root  string
	store *Store
}

// NewRollback returns a Rollback for the transaction journaled in dir,
// restoring files under root.
func NewRollback(root, dir string) *Rollback {
	return &Rollback{root: root, store: NewStore(dir)}
}

// RollbackToStep reverts every step after index, newest first. An index of
// zero reverts the whole transaction. It stops at the first failure, leaving
// earlier steps applied.
func (r *Rollback) RollbackToStep(index int) (*RollbackResult, error) {
	result := &RollbackResult{Success: true}

	patches, err := r.store.List()
	if err != nil {
		result.Success = false
		result.Errors = append(result.Errors, err.Error())
		return result, err
	}

	for i := len(patches) - 1; i >= 0 && patches[i].Index > index; i-- {
		p := patches[i]
		n, err := r.revert(p)
		result.FilesRestored += n
		if err != nil {
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("step %d (%s): %v", p.Index, p.StepID, err))
			return result, err
		}
		result.StepsReverted++
	}
	return result, nil
}

func (r *Rollback) revert(p *Patch) (int, error) {
	restored := 0
	for i := len(p.Files) - 1; i >= 0; i-- {
		fp := p.Files[i]
		abs, err := safety.ResolvePath(r.root, fp.Path, everything)
		if err != nil {
			return restored, err
		}

		switch fp.Status {
		case FileStatusAdded:
			err = RemoveFile(abs)
		case FileStatusModified, FileStatusDeleted:
			err = WriteFileAtomic(abs, []byte(fp.OldContent))
		default:
			err = fmt.Errorf("unknown file status %q", fp.Status)
		}
		if err != nil {
			return restored, fmt.Errorf("restore %s: %w", fp.Path, err)
		}
		restored++
	}
	return restored, nil
}

// VerifyRollbackSafety compares every journaled file against the content the
// transaction left behind. Each mismatch is reported as a warning; the
// boolean is true when there are none.
func (r *Rollback) VerifyRollbackSafety() (bool, []string, error) {
	patches, err := r.store.List()
	if err != nil {
		return false, nil, err
	}

	// Only the last change to each path describes the expected state.
	last := make(map[string]FilePatch)
	var order []string
	for _, p := range patches {
		for _, fp := range p.Files {
			if _, seen := last[fp.Path]; !seen {
				order = append(order, fp.Path)
			}
			last[fp.Path] = fp
		}
	}

	var warnings []string
	for _, path := range order {
		fp := last[path]
		abs, err := safety.ResolvePath(r.root, fp.Path, everything)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s cannot be resolved: %v", fp.Path, err))
			continue
		}
		current, err := ReadCurrent(abs)
		if err != nil {
			return false, warnings, err
		}

		if untouched(fp, current) {
			// The process stopped between journaling and mutating.
			continue
		}

		switch {
		case fp.Status == FileStatusDeleted && current != nil:
			warnings = append(warnings, fmt.Sprintf("%s has been recreated", fp.Path))
		case fp.Status != FileStatusDeleted && current == nil:
			warnings = append(warnings, fmt.Sprintf("%s no longer exists", fp.Path))
		case fp.Status != FileStatusDeleted && HashContent(*current) != fp.NewHash:
			warnings = append(warnings, fmt.Sprintf("%s has been modified since it was applied", fp.Path))
		}
	}
	return len(warnings) == 0, warnings, nil
}

// untouched reports whether current is still the content fp replaced.
func untouched(fp FilePatch, current *string) bool {
	if fp.Status == FileStatusAdded {
		return current == nil
	}
	return current != nil && HashContent(*current) == fp.OldHash
}
