// Package merge combines an existing file body with a proposed replacement
// without losing the existing lines.
package merge

import "strings"

var (
	additiveKeywords    = []string{"add", "append", "insert", "another", "extra", "include", "augment"}
	destructiveKeywords = []string{"remove", "delete", "replace", "overwrite", "rewrite", "refactor", "rework"}
)

// IsAdditiveTask reports whether a task description asks only to add
// things: it mentions an additive keyword and no destructive one.
func IsAdditiveTask(task string) bool {
	t := strings.ToLower(task)
	return containsAny(t, additiveKeywords) && !containsAny(t, destructiveKeywords)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// AdditiveMerge aligns old and proposed by longest common subsequence of
// lines. Matched lines appear once, old-only lines are kept, and
// proposed-only lines are inserted where the alignment places them.
// Adjacent identical lines are collapsed. The result has no trailing
// newline and uses "\n" separators only: CRLF input comes out as LF, and a
// file ending in a blank line loses it once the caller re-adds the final
// newline.
func AdditiveMerge(old, proposed string) string {
	a := SplitLines(old)
	b := SplitLines(proposed)
	n, m := len(a), len(b)

	// dp[i][j] is the LCS length of a[i:] and b[j:]
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else {
				dp[i][j] = max(dp[i+1][j], dp[i][j+1])
			}
		}
	}

	out := make([]string, 0, n+m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)

	return strings.Join(collapseAdjacent(out), "\n")
}

func collapseAdjacent(lines []string) []string {
	cleaned := make([]string, 0, len(lines))
	for _, l := range lines {
		if len(cleaned) > 0 && cleaned[len(cleaned)-1] == l {
			continue
		}
		cleaned = append(cleaned, l)
	}
	return cleaned
}

// SplitLines splits s on "\n", dropping one trailing empty line and any
// "\r" before a newline. Joining the result with "\n" does not round-trip
// CRLF or the final newline.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Options controls Compose.
type Options struct {
	// Task is the user's instruction that produced the plan.
	Task string
	// Mergeable enables additive merging for the target file.
	Mergeable bool
}

// Compose computes the content that will be written over old. When the
// task is additive and the file is mergeable the proposal is merged into
// old; a leading "use client" directive is then restored if the proposal
// dropped it. old is nil when the file does not exist.
func Compose(old *string, proposed string, opts Options) string {
	content := proposed
	if old != nil && opts.Mergeable && IsAdditiveTask(opts.Task) {
		content = AdditiveMerge(*old, proposed)
	}
	return PreserveLeadingDirective(old, content, opts.Task)
}

// EnsureTrailingNewline appends "\n" unless s already ends with one.
func EnsureTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
