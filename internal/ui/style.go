// Package ui renders option menus and lets the user pick one, either with
// an inline bubbletea list or by piping plain text to fzf.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("62")
	faintColor  = lipgloss.Color("245")
	mergeColor  = lipgloss.Color("214")
)

func colored(fg, bg lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(fg).Background(bg)
}

var (
	Title = func(s string) string { return colored("230", accentColor).Padding(0, 1).Render(s) }
	Faint = func(s string) string { return lipgloss.NewStyle().Foreground(faintColor).Render(s) }
	Bold  = func(s string) string { return lipgloss.NewStyle().Bold(true).Render(s) }
)

// Tag renders s as a padded colored block.
func Tag(fg, bg lipgloss.Color) func(string) string {
	return func(s string) string { return colored(fg, bg).Padding(0, 1).Render(s) }
}

var mergeTag = Tag("0", mergeColor)
