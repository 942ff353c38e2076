package hud

import "github.com/charmbracelet/lipgloss"

var (
	Cyan   = lipgloss.Color("#22d3ee")
	Blue   = lipgloss.Color("#3b82f6")
	Slate  = lipgloss.Color("#0f172a")
	Danger = lipgloss.Color("#ef4444")
	Dim    = lipgloss.Color("#0e7490")
	Muted  = lipgloss.Color("#64748b")
	White  = lipgloss.Color("#f8fafc")
	Green  = lipgloss.Color("#22c55e")

	Title    = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	Subtitle = lipgloss.NewStyle().Foreground(Dim).Bold(true)
	Label    = lipgloss.NewStyle().Foreground(Dim)
	Value    = lipgloss.NewStyle().Foreground(Cyan)

	Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Dim).
		Padding(0, 1)

	Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Dim)

	Help = lipgloss.NewStyle().Foreground(Muted)
)

// sourceStyle colors the source column of a log line.
func sourceStyle(source string) lipgloss.Style {
	switch source {
	case "JARVIS":
		return lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	case "USER":
		return lipgloss.NewStyle().Foreground(Blue).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(Muted).Bold(true)
	}
}
