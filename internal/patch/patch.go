package patch

import "time"

// FileStatus is what a step did to one file.
type FileStatus string

const (
	FileStatusAdded    FileStatus = "added"
	FileStatusModified FileStatus = "modified"
	FileStatusDeleted  FileStatus = "deleted"
)

// Patch is the journal record of one applied file step. It is written
// before the file is touched and holds everything needed to undo it.
type Patch struct {
	TxID      string      `json:"tx_id"`
	Index     int         `json:"index"`
	StepID    string      `json:"step_id,omitempty"`
	Action    string      `json:"action"`
	Timestamp time.Time   `json:"timestamp"`
	Files     []FilePatch `json:"files"`

	Insertions int `json:"insertions"`
	Deletions  int `json:"deletions"`
}

// NewPatch builds the record for step index of txID and totals the line
// counts of files.
func NewPatch(txID string, index int, stepID, action string, files ...FilePatch) *Patch {
	p := &Patch{
		TxID:      txID,
		Index:     index,
		StepID:    stepID,
		Action:    action,
		Timestamp: time.Now().UTC(),
		Files:     files,
	}
	for _, f := range files {
		p.Insertions += f.Insertions
		p.Deletions += f.Deletions
	}
	return p
}

// FilePatch is the before and after of a single file.
type FilePatch struct {
	// Path is slash-separated and relative to the project root.
	Path   string     `json:"path"`
	Status FileStatus `json:"status"`

	OldContent string `json:"old_content,omitempty"`
	NewContent string `json:"new_content,omitempty"`
	OldHash    string `json:"old_hash,omitempty"`
	NewHash    string `json:"new_hash,omitempty"`
	Diff       string `json:"diff,omitempty"`

	Insertions int `json:"insertions"`
	Deletions  int `json:"deletions"`
}

// NewFilePatch records the transition of path from old to new. A nil old
// means the file did not exist; a nil new means it was removed.
func NewFilePatch(path string, old, new *string) FilePatch {
	fp := FilePatch{Path: path, Status: FileStatusModified}

	var before, after string
	switch {
	case old == nil:
		fp.Status = FileStatusAdded
	case new == nil:
		fp.Status = FileStatusDeleted
	}
	if old != nil {
		before = *old
		fp.OldContent, fp.OldHash = before, HashContent(before)
	}
	if new != nil {
		after = *new
		fp.NewContent, fp.NewHash = after, HashContent(after)
	}

	fp.Diff = UnifiedDiff(path, before, after)
	fp.Insertions, fp.Deletions = LineStats(before, after)
	return fp
}
