package tui

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
)

// ErrInteractiveDisabled is returned when a prompt is needed but the session
// is not interactive
var ErrInteractiveDisabled = fmt.Errorf("interactive prompts are unavailable; pass the value as a flag")

// IsInteractive reports whether we can prompt the operator
func IsInteractive() bool {
	if os.Getenv("SHIPIT_NO_INTERACTIVE") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// SelectBumpKind prompts for which version component to bump
func SelectBumpKind() (string, error) {
	if !IsInteractive() {
		return "", ErrInteractiveDisabled
	}

	var kind string
	prompt := &survey.Select{
		Message: "Which kind of release is this?",
		Options: []string{"patch", "minor", "major"},
		Default: "patch",
	}
	if err := survey.AskOne(prompt, &kind); err != nil {
		return "", err
	}
	return kind, nil
}

// ConfirmFreeze asks the operator to confirm freezing a release
func ConfirmFreeze(what string) (bool, error) {
	if !IsInteractive() {
		return false, ErrInteractiveDisabled
	}

	confirmed := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("Freeze %s and run the release pipeline?", what),
		Default: true,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}
