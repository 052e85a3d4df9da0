package merge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAdditiveTask(t *testing.T) {
	tests := []struct {
		task string
		want bool
	}{
		{"add a logout button", true},
		{"Append a footer link", true},
		{"insert another route", true},
		{"include the auth provider", true},
		{"add a button and remove the old one", false},
		{"refactor the header", false},
		{"Replace the nav", false},
		{"fix the typo", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAdditiveTask(tt.task), tt.task)
	}
}

func TestAdditiveMerge(t *testing.T) {
	tests := []struct {
		name     string
		old      string
		proposed string
		want     string
	}{
		{
			name:     "insertion in the middle",
			old:      "a\nb\nc\n",
			proposed: "a\nb\nx\nc\n",
			want:     "a\nb\nx\nc",
		},
		{
			name:     "proposal drops a line",
			old:      "a\nb\nc",
			proposed: "a\nc",
			want:     "a\nb\nc",
		},
		{
			name:     "replacement keeps both",
			old:      "a\nold\nc",
			proposed: "a\nnew\nc",
			want:     "a\nold\nnew\nc",
		},
		{
			name:     "append at end",
			old:      "import x\n\nexport {}",
			proposed: "import x\n\nexport {}\nexport const y = 1",
			want:     "import x\n\nexport {}\nexport const y = 1",
		},
		{
			name:     "empty old",
			old:      "",
			proposed: "a\nb",
			want:     "a\nb",
		},
		{
			name:     "empty proposal",
			old:      "a\nb",
			proposed: "",
			want:     "a\nb",
		},
		{
			name:     "crlf input",
			old:      "a\r\nb\r\n",
			proposed: "a\nb\nc\n",
			want:     "a\nb\nc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AdditiveMerge(tt.old, tt.proposed))
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\nb\n"))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\r\nb\r\n"))
	assert.Equal(t, []string{"a", ""}, SplitLines("a\n\n"))
	assert.Equal(t, []string{"a", "b\rc"}, SplitLines("a\nb\rc"))
}

func TestAdditiveMergeLineEndings(t *testing.T) {
	// CRLF is normalized to LF.
	got := AdditiveMerge("a\r\nb\r\n", "a\nb\nc\n")
	assert.Equal(t, "a\nb\nc", got)
	assert.NotContains(t, got, "\r")

	// A trailing blank line does not survive the final newline being re-added.
	got = AdditiveMerge("a\n\n", "a\n\n")
	assert.Equal(t, "a\n", got)
	assert.Equal(t, "a\n", EnsureTrailingNewline(got))
}

func TestAdditiveMergeNeverLosesLines(t *testing.T) {
	cases := [][2]string{
		{"a\nb\nc\nd", "d\nc\nb\na"},
		{"func A() {}\nfunc B() {}", "func C() {}"},
		{"x\ny\nx\ny", "y\nx"},
		{"one\n\ntwo\n\nthree", "zero\none\ntwo\nthree\nfour"},
		{"import a\nimport b\n\nexport default X", "import c\n\nexport default Y"},
	}

	for _, c := range cases {
		merged := AdditiveMerge(c[0], c[1])
		got := make(map[string]bool)
		for _, l := range SplitLines(merged) {
			got[l] = true
		}
		for _, l := range SplitLines(c[0]) {
			assert.True(t, got[l], "line %q of %q lost in %q", l, c[0], merged)
		}
		for _, l := range SplitLines(c[1]) {
			assert.True(t, got[l], "proposed line %q missing from %q", l, merged)
		}
	}
}

func TestAdditiveMergeIdempotent(t *testing.T) {
	inputs := []string{
		"a\nb\nc",
		"'use client'\n\nexport default function Page() {\n  return null\n}\n",
		"dup\ndup\nother",
		"",
	}

	for _, in := range inputs {
		want := strings.Join(collapseAdjacent(SplitLines(in)), "\n")
		assert.Equal(t, want, AdditiveMerge(in, in))
	}
}

func TestCompose(t *testing.T) {
	old := "'use client'\n\nexport const a = 1"

	// additive + mergeable merges
	got := Compose(&old, "export const a = 1\nexport const b = 2", Options{Task: "add b", Mergeable: true})
	assert.Equal(t, "'use client'\n\nexport const a = 1\nexport const b = 2", got)

	// not mergeable: replacement, directive restored
	got = Compose(&old, "export const b = 2", Options{Task: "add b"})
	assert.Equal(t, "'use client'\n\nexport const b = 2", got)

	// destructive task: replacement
	got = Compose(&old, "export const b = 2", Options{Task: "rewrite module", Mergeable: true})
	assert.Equal(t, "'use client'\n\nexport const b = 2", got)

	// new file
	got = Compose(nil, "export const b = 2", Options{Task: "add b", Mergeable: true})
	assert.Equal(t, "export const b = 2", got)
}

func TestEnsureTrailingNewline(t *testing.T) {
	assert.Equal(t, "a\n", EnsureTrailingNewline("a"))
	assert.Equal(t, "a\n", EnsureTrailingNewline("a\n"))
	assert.Equal(t, "\n", EnsureTrailingNewline(""))
}
