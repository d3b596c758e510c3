package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"shipit.dev/shipit/internal/runtime"
	"shipit.dev/shipit/internal/workflow"
)

var (
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// pipelineStages in display order, without the pending placeholder
var pipelineStages = []workflow.Stage{
	workflow.StageFrozen,
	workflow.StageVersionBumped,
	workflow.StageTagged,
	workflow.StageDocsPublished,
	workflow.StagePackagePublished,
	workflow.StageBranchesMerged,
	workflow.StageClosed,
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stage of every in-flight release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
				rc.Splog.Info("No release in flight")
				return nil
			}

			for _, rec := range inflight {
				fmt.Println(renderRecord(rec))
			}
			return nil
		},
	}
}

func renderRecord(rec *workflow.Record) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Release %s", rec.Version)))
	b.WriteString(fmt.Sprintf("  (branch %s, started %s)\n", rec.ReleaseBranch, rec.CreatedAt.Format("2006-01-02 15:04")))

	for _, stage := range pipelineStages {
		switch {
		case rec.Stage.Reached(stage):
			b.WriteString(doneStyle.Render("  ✓ " + string(stage)))
		case isNextStage(rec.Stage, stage):
			b.WriteString(currentStyle.Render("  → " + string(stage)))
		default:
			b.WriteString(pendingStyle.Render("    " + string(stage)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func isNextStage(current, stage workflow.Stage) bool {
	next, err := current.Next()
	return err == nil && next == stage
}
