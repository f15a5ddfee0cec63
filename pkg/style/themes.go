package style

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/arthur-debert/dotvault/pkg/types"
)

func adaptive(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// Text roles
var (
	HeadingColor   = adaptive("#1F2933", "#F5F7FA")
	TextColor      = adaptive("#3E4C59", "#E4E7EB")
	MutedColor     = adaptive("#7B8794", "#9AA5B1")
	SecondaryColor = adaptive("#52606D", "#CBD2D9")
)

// Outcome roles
var (
	SuccessColor = adaptive("#1F7A4D", "#57D98E")
	ErrorColor   = adaptive("#C62828", "#FF7A7A")
	WarningColor = adaptive("#B26A00", "#FFC46B")
	InfoColor    = adaptive("#0B6E99", "#5CC8F0")
)

// Path state roles
var (
	LinkedColor = adaptive("#0E7490", "#67E8F9")
	DriftColor  = adaptive("#C2410C", "#FDBA74")
)

// StateColor is the color a path is printed in for its state. Missing
// paths have nothing on disk and are dimmed.
func StateColor(state types.PathState) lipgloss.AdaptiveColor {
	switch {
	case state == types.StateLinked:
		return LinkedColor
	case state == types.StateMissing:
		return MutedColor
	default:
		return DriftColor
	}
}
