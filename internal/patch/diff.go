package patch

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/planguard/internal/merge"
)

const truncatedMarker = "... (diff truncated)"

// lineDiff diffs old and new line by line.
func lineDiff(oldContent, newContent string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffMain(a, b, false)
	return dmp.DiffCharsToLines(diffs, lines)
}

// LineStats counts inserted and deleted lines between old and new.
func LineStats(oldContent, newContent string) (insertions, deletions int) {
	if oldContent == newContent {
		return 0, 0
	}
	for _, d := range lineDiff(oldContent, newContent) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			insertions += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			deletions += countLines(d.Text)
		}
	}
	return insertions, deletions
}

// UnifiedDiff renders a single-hunk unified diff of the whole file. It is
// stored in the journal for inspection and is never applied.
func UnifiedDiff(path, oldContent, newContent string) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "--- a/%s\n", path)
	fmt.Fprintf(&buf, "+++ b/%s\n", path)

	if oldContent == newContent {
		return buf.String()
	}

	var hunkLines []string
	var oldCount, newCount int

	for _, d := range lineDiff(oldContent, newContent) {
		for _, line := range merge.SplitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				hunkLines = append(hunkLines, " "+line)
				oldCount++
				newCount++
			case diffmatchpatch.DiffDelete:
				hunkLines = append(hunkLines, "-"+line)
				oldCount++
			case diffmatchpatch.DiffInsert:
				hunkLines = append(hunkLines, "+"+line)
				newCount++
			}
		}
	}

	oldStart, newStart := 1, 1
	if oldCount == 0 {
		oldStart = 0
	}
	if newCount == 0 {
		newStart = 0
	}
	fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
	for _, line := range hunkLines {
		buf.WriteString(line)
		buf.WriteString("\n")
	}

	return buf.String()
}

// ShortDiff walks old and new in lockstep, skipping equal lines and
// emitting "- old" / "+ new" pairs where they differ. At most maxLines
// lines are emitted; if more would follow, a truncation marker is appended.
// A negative maxLines is treated as zero.
func ShortDiff(oldContent, newContent string, maxLines int) string {
	maxLines = max(maxLines, 0)
	a := merge.SplitLines(oldContent)
	b := merge.SplitLines(newContent)

	out := make([]string, 0, min(maxLines, len(a)+len(b)))
	truncated := false
	emit := func(line string) bool {
		if len(out) >= maxLines {
			truncated = true
			return false
		}
		out = append(out, line)
		return true
	}

	i, j := 0, 0
	for i < len(a) || j < len(b) {
		if i < len(a) && j < len(b) && a[i] == b[j] {
			i++
			j++
			continue
		}
		if i < len(a) {
			if !emit("- " + a[i]) {
				break
			}
			i++
		}
		if j < len(b) {
			if !emit("+ " + b[j]) {
				break
			}
			j++
		}
	}

	if truncated {
		out = append(out, truncatedMarker)
	}
	return strings.Join(out, "\n")
}

// HashContent returns the hex BLAKE3-256 digest of s.
func HashContent(s string) string {
	sum := blake3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// countLines counts the number of lines in a string
// Empty string = 0 lines
// String ending with \n = number of \n
// String not ending with \n = number of \n + 1
func countLines(content string) int {
	if content == "" {
		return 0
	}

	count := strings.Count(content, "\n")

	if !strings.HasSuffix(content, "\n") {
		count++
	}

	return count
}
