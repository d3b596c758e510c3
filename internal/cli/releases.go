package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"shipit.dev/shipit/internal/runtime"
)

func newReleasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "releases",
		Short: "List shipped releases, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := runtime.NewContext(cmd.Context())
			if err != nil {
				return err
			}
			defer rc.Splog.Close()

			archived, err := rc.Store.Archived()
			if err != nil {
				return err
			}
			if len(archived) == 0 {
				rc.Splog.Info("No releases shipped yet")
				return nil
			}

			for i := len(archived) - 1; i >= 0; i-- {
				rec := archived[i]
				line := fmt.Sprintf("%-12s", rec.Version.String())
				if rec.ArchivedAt != nil {
					line += "  shipped " + rec.ArchivedAt.Format("2006-01-02")
				}
				if rec.NewMaintenanceLine != nil && *rec.NewMaintenanceLine {
					line += "  " + pendingStyle.Render("opened "+rec.MaintenanceBranch)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
