package git

import (
	"context"
	"fmt"
	"strings"
)

// Push pushes refspecs (branch names or tag names) to the remote. Plain
// pushes only; the release pipeline never force-pushes.
func (g *Git) Push(ctx context.Context, remote string, refspecs ...string) error {
	args := append([]string{"push", remote}, refspecs...)
	if _, err := g.runner.Run(ctx, args...); err != nil {
		return fmt.Errorf("failed to push %s to %s: %w", strings.Join(refspecs, ", "), remote, err)
	}
	return nil
}
