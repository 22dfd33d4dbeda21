package cmd

import "github.com/charmbracelet/lipgloss"

const (
	padding  = 4
	maxWidth = 60
	apeBlue  = "#286983"
	apeSky   = "#9ccfd8"

	goldLight = "#ea9d34"
	goldDark  = "#f6c177"
)

var (
	accent = lipgloss.AdaptiveColor{Dark: goldDark, Light: goldLight}
	main   = lipgloss.AdaptiveColor{Dark: apeSky, Light: apeBlue}

	listStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Margin(1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent)
	listTitleStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(main).
			Bold(true)
)
