package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	PrimaryColor = lipgloss.Color("#43BF6D") // Green
	AccentColor  = lipgloss.Color("#7D56F4") // Purple
	ErrorColor   = lipgloss.Color("#FF5F57") // Red
	SubtleColor  = lipgloss.Color("#626262") // Gray
	TextColor    = lipgloss.Color("#FFFFFF") // White
)

// Common styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Padding(0, 1)

	StatusStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WidgetNameStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Width(28)

	WidgetValueStyle = lipgloss.NewStyle().
				Foreground(AccentColor).
				Bold(true).
				Width(14).
				Align(lipgloss.Right)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(1, 2)
)
