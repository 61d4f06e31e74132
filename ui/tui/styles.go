package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles for the status area.
type Styles struct {
	Status lipgloss.Style
	Muted  lipgloss.Style
	Notice lipgloss.Style
	Error  lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		Notice: lipgloss.NewStyle().
			Foreground(lipgloss.Color("71")), // Muted green
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
	}
}
