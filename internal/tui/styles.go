package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/dmitrymomot/tenderbell/pkg/notifications"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#dc2626")).
			Bold(true).
			Padding(0, 1)

	onlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ade80"))

	offlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f87171"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	unreadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0")).
			Bold(true)

	readStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f87171"))

	toastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#34d474")).
			Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))
)

func typeStyle(t notifications.Type) lipgloss.Style {
	switch t {
	case notifications.TypeTender:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#22d3ee"))
	case notifications.TypePayment:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	case notifications.TypeSystem:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#a78bfa"))
	default:
		return metaStyle
	}
}
