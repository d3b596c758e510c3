package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"shipit.dev/shipit/internal/config"
	"shipit.dev/shipit/internal/git"
	"shipit.dev/shipit/internal/tui"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter " + config.FileName + " for this repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := git.Open(".")
			if err != nil {
				return fmt.Errorf("not a git repository: %w", err)
			}

			if err := config.WriteStarter(g.Root()); err != nil {
				return err
			}

			splog := tui.NewSplog()
			splog.Info("Wrote %s", config.Path(g.Root()))
			splog.Tip("Declare every file that carries the version, then run 'shipit start'")
			return nil
		},
	}
}
