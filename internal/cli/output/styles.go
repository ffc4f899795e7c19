package output

import "github.com/charmbracelet/lipgloss"

// Shared lipgloss styles for text-mode rendering.
var (
	StyleHeader1 = lipgloss.NewStyle().Bold(true).Underline(true)
	StyleHeader2 = lipgloss.NewStyle().Bold(true)
	StyleBold    = lipgloss.NewStyle().Bold(true)
	StyleMuted   = lipgloss.NewStyle().Faint(true)
	StyleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	StyleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	StyleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)
