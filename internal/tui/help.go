package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type helpItem struct {
	key  string
	desc string
}

var helpItems = []helpItem{
	{"q / Ctrl+C", "Quit"},
	{"1-5 / Tab", "Switch dashboard"},
	{"e", "Edit update rule (Compute)"},
	{"Ctrl+S", "Deploy update rule (Compute)"},
	{"r", "Reset editor to the default rule (Compute)"},
	{"m", "Toggle COMPUTE / PERSONA (Compute)"},
	{"a", "Ask the assistant for a rule draft (Compute)"},
	{"/", "Search gossip archive (Gossip)"},
	{"s", "Spawn a node (Management)"},
	{"x", "Purge selected node (Management)"},
	{"↑ / ↓", "Scroll / Select / Browse history"},
	{"Esc", "Back / Cancel / Stop editing"},
	{"?", "Toggle help"},
}

// RenderHelp renders the help overlay centered in width x height.
func RenderHelp(width, height int) string {
	keyWidth := 0
	for _, item := range helpItems {
		keyWidth = max(keyWidth, lipgloss.Width(item.key))
	}

	lines := []string{titleStyle.Render("⌨ Keyboard Shortcuts"), ""}
	for _, item := range helpItems {
		lines = append(lines, helpKeyStyle.Render(padRight(item.key, keyWidth))+"  "+helpDescStyle.Render(item.desc))
	}

	box := helpStyle.Render(strings.Join(lines, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
