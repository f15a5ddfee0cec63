package style

import (
	"fmt"

	"github.com/pterm/pterm"

	"github.com/arthur-debert/dotvault/pkg/types"
)

// OutcomeStyle returns the badge style for a step outcome
func OutcomeStyle(outcome types.Outcome) *pterm.Style {
	switch outcome {
	case types.OutcomeSuccess:
		return pterm.NewStyle(pterm.BgGreen, pterm.FgWhite)
	case types.OutcomeFailed:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite, pterm.Bold)
	case types.OutcomeWarning:
		return pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// StateStyle returns the badge style for a path state
func StateStyle(state types.PathState) *pterm.Style {
	switch state {
	case types.StateLinked:
		return pterm.NewStyle(pterm.FgCyan)
	case types.StateBroken:
		return pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	case types.StateUnlinked, types.StateUntracked:
		return pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// Indicator returns the one character marker for an outcome
func Indicator(outcome types.Outcome) string {
	switch outcome {
	case types.OutcomeSuccess:
		return SuccessIndicator
	case types.OutcomeFailed:
		return ErrorIndicator
	case types.OutcomeWarning:
		return WarningIndicator
	case types.OutcomeSkipped:
		return SkippedIndicator
	default:
		return InfoIndicator
	}
}

// Badge renders label padded to width with the given style
func Badge(s *pterm.Style, label string, width int) string {
	return s.Sprint(fmt.Sprintf(" %-*s ", width, label))
}
