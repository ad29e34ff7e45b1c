package tui

import (
	"fmt"
	"strings"

	"github.com/xonecas/relic-console/internal/protocol"
)

// RenderManagement renders the node registry with the selected row
// highlighted.
func RenderManagement(nodes []protocol.Node, selected int, width, height int) string {
	lines := []string{renderSectionTitle("NODE REGISTRY", width)}

	header := fmt.Sprintf("%-8s %-16s %8s %8s  %s", "ID", "NAME", "DRIFT", "MAG", "STATUS")
	lines = append(lines, labelStyle.Render(" "+header))

	if len(nodes) == 0 {
		lines = append(lines, dimmedStyle.Render(" No nodes registered. Press 's' to spawn one."))
	}

	rowWidth := width - 2
	if rowWidth < 20 {
		rowWidth = 20
	}

	start, end := scrollWindow(len(nodes), height-4, selected-(height-4)/2)
	for i := start; i < end; i++ {
		n := nodes[i]
		status := "NOMINAL"
		if n.HighSeverity() {
			status = "CRITICAL"
		}
		row := fmt.Sprintf("%-8s %-16s %7.1f%% %8.3f  %s",
			truncateWithEllipsis(n.ID.String(), 8),
			truncateWithEllipsis(n.Name, 16),
			n.DriftPercent(),
			n.Magnitude(),
			status,
		)
		if i == selected {
			lines = append(lines, rowSelectedStyle.Width(rowWidth).Render(row))
		} else if n.HighSeverity() {
			lines = append(lines, rowStyle.Foreground(colorError).Width(rowWidth).Render(row))
		} else {
			lines = append(lines, rowStyle.Width(rowWidth).Render(row))
		}
	}

	lines = append(lines, dimmedStyle.Render(" [s] spawn  [x] purge selected  [↑/↓] select"))
	return strings.Join(lines, "\n")
}
