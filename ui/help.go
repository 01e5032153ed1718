package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

func renderHelp(width, height int) string {
	green := lipgloss.NewStyle().Bold(true).Foreground(successColor)
	blue := lipgloss.NewStyle().Foreground(accentColor)

	commands := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Commands"),
		fmt.Sprintf("• %-13s Show this help", "help"),
		fmt.Sprintf("• %-13s Forget this session's history", "clear"),
		fmt.Sprintf("• %-13s Recent tool calls", "tools"),
		fmt.Sprintf("• %-13s Current provider and model", "model"),
		fmt.Sprintf("• %-13s Leave memex", "exit, quit"),
	)

	keys := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Keys"),
		fmt.Sprintf("• %-13s Send message", "Enter"),
		fmt.Sprintf("• %-13s Cancel the running request", "Esc"),
		fmt.Sprintf("• %-13s Copy last reply", "Ctrl+Y"),
		fmt.Sprintf("• %-13s Clear", "Ctrl+L"),
		fmt.Sprintf("• %-13s Scroll", "PgUp/PgDn"),
		fmt.Sprintf("• %-13s Quit", "Ctrl+C"),
	)

	tips := lipgloss.JoinVertical(
		lipgloss.Left,
		blue.Render("## Tips"),
		"• Ask memex to remember things; it saves them to your graph",
		"• Ask about what you saved; it searches before answering",
		"• Finished exchanges are stored and reloaded next time",
	)

	columnStyle := lipgloss.NewStyle().Width(44).PaddingLeft(4)
	columns := lipgloss.JoinHorizontal(lipgloss.Top, columnStyle.Render(commands), columnStyle.Render(keys))

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		green.Render("memex - Help"),
		"",
		columns,
		"",
		tips,
		"",
		lipgloss.NewStyle().Foreground(dimColor).Render("Press Esc to close this help"),
	)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box.Render(content))
}
