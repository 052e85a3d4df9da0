package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/planguard/internal/ux"
	"github.com/felixgeelhaar/planguard/internal/version"
)

var versionVerbose bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the planguard version. With --verbose, also print the commit, build
date, Go version and platform. Binaries built with 'go install' report the
module version and VCS revision recorded by the Go toolchain.

Examples:
  planguard version
  planguard version --verbose
  planguard version -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		return cc.Output(cmd.OutOrStdout(), &ux.VersionReport{Info: version.GetInfo(), Verbose: versionVerbose})
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "show commit, build date and platform")
	rootCmd.AddCommand(versionCmd)
}
