package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xonecas/relic-console/internal/core"
	"github.com/xonecas/relic-console/internal/protocol"
)

// ComputeInfo holds what the compute tab shows besides the editor.
type ComputeInfo struct {
	Mode      protocol.Mode
	Events    []core.EventLine
	EventCap  int
	Assistant string // provider name, empty when disabled
	Drafting  bool
}

// RenderCompute renders the rule editor next to the mode switch and system log.
func RenderCompute(editorView string, focused bool, info ComputeInfo, width, height int) string {
	style := editorStyle
	title := "UPDATE RULE"
	if focused {
		style = editorFocusedStyle
		title = "UPDATE RULE · EDITING"
	}

	sideWidth := 40
	stacked := width < 100
	editorWidth := width - sideWidth - 1
	if stacked {
		editorWidth = width
		sideWidth = width
	}

	editor := lipgloss.JoinVertical(lipgloss.Left,
		renderSectionTitle(title, editorWidth),
		style.Render(editorView),
	)

	side := renderComputeSide(info, sideWidth)

	if stacked {
		return clipLines(lipgloss.JoinVertical(lipgloss.Left, editor, side), height)
	}
	return clipLines(lipgloss.JoinHorizontal(lipgloss.Top, editor, " ", side), height)
}

func renderComputeSide(info ComputeInfo, width int) string {
	mode := string(info.Mode)
	if mode == "" {
		mode = "UNKNOWN"
	}

	lines := []string{
		renderSectionTitle("MODE", width),
		ModeStyle(string(info.Mode)).Render(mode) + "  " + dimmedStyle.Render("[m] switch to "+string(info.Mode.Toggle())),
		"",
		dimmedStyle.Render("[e] edit  [ctrl+s] deploy  [r] reset"),
	}

	switch {
	case info.Drafting:
		lines = append(lines, statusWarnStyle.Render("◌ assistant drafting..."))
	case info.Assistant != "":
		lines = append(lines, dimmedStyle.Render("[a] ask assistant ("+info.Assistant+")"))
	}

	lines = append(lines, "", renderSectionTitleWithSuffix("SYSTEM LOG", dimmedStyle.Render(logFill(len(info.Events), info.EventCap)), width))
	if len(info.Events) == 0 {
		lines = append(lines, dimmedStyle.Render("No events."))
	}
	for _, e := range info.Events {
		lines = append(lines, truncateWithEllipsis(oneLine(e.String()), width))
	}

	return strings.Join(lines, "\n")
}

func logFill(n, capacity int) string {
	return fmt.Sprintf(" %d/%d", n, capacity)
}
