package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	persona    lipgloss.Style
	detail     lipgloss.Style
	warning    lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	trustKey   lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style

	statusIdle     lipgloss.Style
	statusActive   lipgloss.Style
	statusCooling  lipgloss.Style
	statusBanned   lipgloss.Style
	statusRetired  lipgloss.Style
	statusFallback lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		persona:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		trustKey:   lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),

		statusIdle:     lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		statusActive:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		statusCooling:  lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
		statusBanned:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		statusRetired:  lipgloss.NewStyle().Faint(true),
		statusFallback: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	}
}
