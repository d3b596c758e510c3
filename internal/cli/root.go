// Package cli defines the shipit command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shipit",
		Short: "Shipit sequences release branches, version stamps, tags, and publishing",
		Long: `Shipit drives a release from freeze to close: it creates the release
branch, stamps the version across every declared location, tags, publishes
docs and the package, and merges the release back into maintenance and
mainline. Progress is persisted per release, so a failed run resumes at the
last completed stage.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newResumeCmd())
	rootCmd.AddCommand(newAbortCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newReleasesCmd())

	return rootCmd
}
