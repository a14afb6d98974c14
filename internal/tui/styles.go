package tui

import "github.com/charmbracelet/lipgloss"

type Styles struct {
	Title    lipgloss.Style
	Item     lipgloss.Style
	Selected lipgloss.Style
	Done     lipgloss.Style
	Saving   lipgloss.Style
	Failed   lipgloss.Style
	Muted    lipgloss.Style
	Status   lipgloss.Style
	Doc      lipgloss.Style
}

// NewStyles picks the palette for a dark or light terminal.
func NewStyles(dark bool) Styles {
	accent, text, muted := lipgloss.Color("205"), lipgloss.Color("252"), lipgloss.Color("240")
	if !dark {
		accent, text, muted = lipgloss.Color("125"), lipgloss.Color("235"), lipgloss.Color("245")
	}

	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			Padding(0, 1),
		Item: lipgloss.NewStyle().
			Foreground(text).
			PaddingLeft(2),
		Selected: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			PaddingLeft(2),
		Done: lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")),
		Saving: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		Status: lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1),
		Doc: lipgloss.NewStyle().Padding(1, 2),
	}
}
