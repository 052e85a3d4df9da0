package merge

import "strings"

const (
	bom            = "\ufeff"
	directiveLines = 10
)

var removalPhrases = []string{
	"remove 'use client'",
	`remove "use client"`,
	"remove use client",
}

// HasLeadingDirective reports whether the first statement of src is a
// "use client" directive. Only the first ten lines are inspected; blank and
// comment lines are skipped and an import ends the search.
func HasLeadingDirective(src string) bool {
	for n, line := range strings.Split(src, "\n") {
		if n >= directiveLines {
			break
		}
		l := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), bom))
		switch {
		case l == "":
			continue
		case strings.HasPrefix(l, "//"), strings.HasPrefix(l, "/*"):
			continue
		case strings.HasPrefix(l, "import "):
			return false
		}
		return isDirective(l)
	}
	return false
}

func isDirective(l string) bool {
	switch strings.TrimSuffix(l, ";") {
	case "'use client'", `"use client"`:
		return true
	}
	return false
}

// PreserveLeadingDirective re-prepends 'use client' to content when old
// started with the directive and content does not, unless the task asks
// for its removal.
func PreserveLeadingDirective(old *string, content, task string) string {
	if old == nil || wantsRemoval(task) {
		return content
	}
	if HasLeadingDirective(*old) && !HasLeadingDirective(content) {
		return "'use client'\n\n" + strings.TrimPrefix(content, bom)
	}
	return content
}

func wantsRemoval(task string) bool {
	t := strings.ToLower(task)
	for _, p := range removalPhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}
