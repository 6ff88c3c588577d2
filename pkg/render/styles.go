package render

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used for terminal output.
type Styles struct {
	Title     lipgloss.Style
	Header    lipgloss.Style
	Hit       lipgloss.Style
	Mark      lipgloss.Style
	Meta      lipgloss.Style
	Error     lipgloss.Style
	NoResults lipgloss.Style
}

// DefaultStyles returns the stock color scheme.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")),
		Hit: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 2),
		Mark: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("220")),
		Meta: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		NoResults: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0),
	}
}
