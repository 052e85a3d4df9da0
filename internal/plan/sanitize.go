package plan

import (
	"fmt"
	"path"
	"strings"
)

// Sanitize removes conflicting or unusable steps and returns a new plan plus
// one warning per dropped step. The input plan is not modified.
//
// Updates with neither content nor patch are dropped. Among the remaining
// updates to one path a single winner is kept: a later update replaces the
// current winner unless the winner has content and the later one does not.
// Only the first create and the first delete per path survive. Command and
// test steps are always kept. Relative order is preserved. Paths are compared
// in their cleaned form, so "./src/a.ts" and "src/a.ts" are the same file.
func Sanitize(p *Plan) (*Plan, []string) {
	var warnings []string

	winner := make(map[string]int)
	for i, s := range p.Steps {
		u, ok := s.(*UpdateStep)
		if !ok {
			continue
		}
		if u.Content == nil && u.Patch == nil {
			warnings = append(warnings, fmt.Sprintf("dropped update for %s (no content or patch)", u.Path))
			continue
		}
		key := pathKey(u.Path)
		prev, seen := winner[key]
		if !seen {
			winner[key] = i
			continue
		}
		if u.Content != nil || p.Steps[prev].(*UpdateStep).Content == nil {
			winner[key] = i
		}
	}

	seenCreate := make(map[string]bool)
	seenDelete := make(map[string]bool)
	out := make([]Step, 0, len(p.Steps))

	for i, s := range p.Steps {
		switch st := s.(type) {
		case *UpdateStep:
			if st.Content == nil && st.Patch == nil {
				continue // already warned
			}
			if winner[pathKey(st.Path)] != i {
				warnings = append(warnings, fmt.Sprintf("dropped duplicate update for %s", st.Path))
				continue
			}
		case *CreateStep:
			key := pathKey(st.Path)
			if seenCreate[key] {
				warnings = append(warnings, fmt.Sprintf("dropped duplicate create for %s", st.Path))
				continue
			}
			seenCreate[key] = true
		case *DeleteStep:
			key := pathKey(st.Path)
			if seenDelete[key] {
				warnings = append(warnings, fmt.Sprintf("dropped duplicate delete for %s", st.Path))
				continue
			}
			seenDelete[key] = true
		}
		out = append(out, s)
	}

	return &Plan{Summary: p.Summary, Steps: out}, warnings
}

// pathKey is the lexical identity of a step path.
func pathKey(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}
