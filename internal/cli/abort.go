package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"shipit.dev/shipit/internal/runtime"
	"shipit.dev/shipit/internal/version"
)

func newAbortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abort [version]",
		Short: "Abort an in-flight release that has not tagged yet",
		Long: `Abort cancels a release while it is still local: the release branch and
record are removed and the line is unlocked. Once the tag has been pushed
the release is forward-only and abort is refused.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := runtime.NewContext(cmd.Context())
			if err != nil {
				return err
			}
			defer rc.Splog.Close()

			inflight, err := rc.Store.InFlight()
			if err != nil {
				return err
			}
			if len(inflight) == 0 {
				return fmt.Errorf("no release in flight")
			}

			rec := inflight[0]
			if len(args) == 1 {
				v, err := version.Parse(args[0])
				if err != nil {
					return err
				}
				rec = nil
				for _, candidate := range inflight {
					if candidate.Version == v {
						rec = candidate
						break
					}
				}
				if rec == nil {
					return fmt.Errorf("no in-flight release %s", v)
				}
			} else if len(inflight) > 1 {
				return fmt.Errorf("%d releases in flight; pass the version to abort", len(inflight))
			}

			return rc.Workflow.Abort(cmd.Context(), rec)
		},
	}
}
