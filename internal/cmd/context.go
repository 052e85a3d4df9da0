package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/planguard/internal/policy"
	"github.com/felixgeelhaar/planguard/internal/ux"
)

// CommandContext holds the persistent flags of one invocation. Commands
// read flags through it instead of package globals.
type CommandContext struct {
	Root        string
	ConfigPath  string
	Format      string
	NoColor     bool
	LogLevel    string
	LogFormat   string
	MetricsFile string
}

// NewCommandContext extracts command context from cobra.Command flags.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	flags := cmd.Flags()
	cc := &CommandContext{}

	var err error
	if cc.Root, err = flags.GetString("root"); err != nil {
		return nil, err
	}
	if cc.ConfigPath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cc.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cc.NoColor, err = flags.GetBool("no-color"); err != nil {
		return nil, err
	}
	if cc.LogLevel, err = flags.GetString("log-level"); err != nil {
		return nil, err
	}
	if cc.LogFormat, err = flags.GetString("log-format"); err != nil {
		return nil, err
	}
	if cc.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}
	return cc, nil
}

// ProjectRoot returns --root, or the nearest directory holding a
// .planguard directory.
func (cc *CommandContext) ProjectRoot() (string, error) {
	if cc.Root != "" {
		return cc.Root, nil
	}
	return ux.DiscoverRoot(".")
}

// LoadConfig resolves the policy for the project root.
func (cc *CommandContext) LoadConfig() (*policy.Config, error) {
	root, err := cc.ProjectRoot()
	if err != nil {
		return nil, err
	}
	return policy.Resolve(root, cc.ConfigPath)
}

// Output writes report to w in the selected format.
func (cc *CommandContext) Output(w io.Writer, report ux.Renderer) error {
	f, err := ux.NewFormatter(cc.Format, w, ux.FormatterOptions{NoColor: cc.NoColor})
	if err != nil {
		return err
	}
	return f.Format(report)
}
