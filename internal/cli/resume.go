package cli

import (
	"github.com/spf13/cobra"

	"shipit.dev/shipit/internal/runtime"
	"shipit.dev/shipit/internal/version"
)

func newResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume [version]",
		Short: "Resume an in-flight release from its last completed stage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := runtime.NewContext(cmd.Context())
			if err != nil {
				return err
			}
			defer rc.Splog.Close()

			var v *version.Version
			if len(args) == 1 {
				parsed, err := version.Parse(args[0])
				if err != nil {
					return err
				}
				v = &parsed
			}

			rec, err := rc.Workflow.Resume(cmd.Context(), v)
			if err != nil {
				if rec != nil {
					rc.Splog.Error("Release %s stopped at stage %s", rec.Version, rec.Stage)
				}
				return err
			}

			rc.Splog.Info("Release %s shipped 🚢", rec.Version)
			return nil
		},
	}
	return cmd
}
