package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func (a AppView) renderHelpModal(width, height int) string {
	green := lipgloss.NewStyle().
		Bold(true).
		Foreground(successColor)
	blue := lipgloss.NewStyle().Foreground(accentColor)

	title := green.Render("agentdesk - Keyboard Shortcuts")

	global := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Global"),
		fmt.Sprintf("• %-13s Toggle this help", "Alt+H"),
		fmt.Sprintf("• %-13s Sign out", "Alt+L"),
		fmt.Sprintf("• %-13s Quit", "Ctrl+C"),
	)

	dashboard := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Agents"),
		fmt.Sprintf("• %-13s Navigate", "j/k"),
		fmt.Sprintf("• %-13s Filter", "/"),
		fmt.Sprintf("• %-13s Open agent", "Enter"),
		fmt.Sprintf("• %-13s Reload", "r"),
	)

	conversation := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Conversation"),
		fmt.Sprintf("• %-13s Send message", "Enter"),
		fmt.Sprintf("• %-13s New line", "Alt+Enter"),
		fmt.Sprintf("• %-13s Attach file", "Ctrl+O"),
		fmt.Sprintf("• %-13s Copy last reply", "Ctrl+Y"),
		fmt.Sprintf("• %-13s Scroll", "PgUp/PgDn"),
		fmt.Sprintf("• %-13s Back to agents", "Esc"),
	)

	columnStyle := lipgloss.NewStyle().Width(36).PaddingLeft(4)

	columns := lipgloss.JoinHorizontal(
		lipgloss.Top,
		columnStyle.Render(lipgloss.JoinVertical(lipgloss.Left, global, "", dashboard)),
		"  ",
		columnStyle.Render(conversation),
	)

	footer := lipgloss.NewStyle().
		Foreground(dimColor).
		Render("Press Alt+H or Esc to close this help")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		columns,
		"",
		footer,
	)

	helpBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, helpBox.Render(content))
}
