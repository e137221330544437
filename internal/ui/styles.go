package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
const (
	ColorAccent   = "212" // Primary accent, Storybook pink
	ColorAccentLo = "132" // Dimmed accent for borders
	ColorWhite    = "255" // Headers, important text
	ColorGray     = "245" // Secondary text, labels
	ColorDarkGray = "238" // Box borders, separators
	ColorGreen    = "114" // Success
	ColorRed      = "196" // Errors
	ColorYellow   = "220" // Warnings
)

// Styles holds all UI styles for styled rendering.
type Styles struct {
	// Text styles
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Stage   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style

	// Panel/layout styles
	Panel lipgloss.Style
}

// DefaultStyles returns styled components for terminal output.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Stage:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentLo)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Value:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Stage:   lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Value:   lipgloss.NewStyle(),
		Panel:   lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
