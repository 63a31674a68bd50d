package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title     lipgloss.Style
	Quote     lipgloss.Style
	Category  lipgloss.Style
	Selected  lipgloss.Style
	Dim       lipgloss.Style
	StatusOK  lipgloss.Style
	StatusErr lipgloss.Style
	Label     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		Quote: lipgloss.NewStyle().
			Italic(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2).
			Width(72),
		Category:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Underline(true),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		StatusOK:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		StatusErr: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Label:     lipgloss.NewStyle().Bold(true),
	}
}
