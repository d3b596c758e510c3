package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"shipit.dev/shipit/internal/runtime"
	"shipit.dev/shipit/internal/tui"
	"shipit.dev/shipit/internal/version"
)

func newStartCmd() *cobra.Command {
	var bumpFlag string
	var yes bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Freeze a new release and run the pipeline to completion",
		Long: `Start reads the current version from the declared locations, bumps it,
freezes a release branch off mainline, and runs every stage through close.
A failure leaves the release at its last completed stage; rerun with
'shipit resume' once the cause is fixed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := runtime.NewContext(cmd.Context())
			if err != nil {
				return err
			}
			defer rc.Splog.Close()

			if bumpFlag == "" {
				selected, err := tui.SelectBumpKind()
				if err != nil {
					return err
				}
				bumpFlag = selected
			}
			kind, err := version.ParseBumpKind(bumpFlag)
			if err != nil {
				return err
			}

			if !yes {
				confirmed, err := tui.ConfirmFreeze(fmt.Sprintf("a %s release", kind))
				if err != nil {
					return err
				}
				if !confirmed {
					rc.Splog.Info("Release not started")
					return nil
				}
			}

			rec, err := rc.Workflow.Start(cmd.Context(), kind)
			if err != nil {
				if rec != nil {
					rc.Splog.Error("Release %s stopped at stage %s", rec.Version, rec.Stage)
					rc.Splog.Tip("Fix the cause and run 'shipit resume'")
				}
				return err
			}

			rc.Splog.Info("Release %s shipped 🚢", rec.Version)
			return nil
		},
	}

	cmd.Flags().StringVar(&bumpFlag, "bump", "", "version component to bump: major, minor, or patch")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the freeze confirmation")
	return cmd
}
