package tui

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xonecas/relic-console/internal/protocol"
)

const (
	ringCols = 41
	ringRows = 17
)

// nodeLabel is the single-character tag used to place node i on the ring.
func nodeLabel(i int) string {
	if i < 36 {
		return strconv.FormatInt(int64(i), 36)
	}
	return "*"
}

// RenderMonitor renders the topology: nodes placed on a ring plus the peer
// adjacency list.
func RenderMonitor(nodes []protocol.Node, width, height int) string {
	title := renderSectionTitle("NETWORK TOPOLOGY", width)
	if len(nodes) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, dimmedStyle.Render("No nodes."))
	}

	ring := panelStyle.Render(renderRing(nodes))
	adjWidth := width - lipgloss.Width(ring) - 1
	var body string
	if adjWidth < 30 {
		body = lipgloss.JoinVertical(lipgloss.Left, ring, renderAdjacency(nodes, width))
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, ring, " ", renderAdjacency(nodes, adjWidth))
	}

	return clipLines(lipgloss.JoinVertical(lipgloss.Left, title, body), height)
}

// renderRing lays nodes out evenly on an ellipse, first node at the top.
// Terminal cells are about twice as tall as wide, hence the wider x radius.
func renderRing(nodes []protocol.Node) string {
	grid := make([][]string, ringRows)
	for y := range grid {
		grid[y] = make([]string, ringCols)
		for x := range grid[y] {
			grid[y][x] = " "
		}
	}

	cx, cy := float64(ringCols/2), float64(ringRows/2)
	rx, ry := cx-2, cy-1

	for i, n := range nodes {
		angle := 2*math.Pi*float64(i)/float64(len(nodes)) - math.Pi/2
		x := int(math.Round(cx + rx*math.Cos(angle)))
		y := int(math.Round(cy + ry*math.Sin(angle)))

		style := severityNormalStyle
		if n.HighSeverity() {
			style = severityHighStyle
		}
		grid[y][x] = style.Render(nodeLabel(i))
	}

	grid[int(cy)][int(cx)] = dimmedStyle.Render("◈")

	rows := make([]string, ringRows)
	for y := range grid {
		rows[y] = strings.Join(grid[y], "")
	}
	return strings.Join(rows, "\n")
}

func renderAdjacency(nodes []protocol.Node, width int) string {
	index := make(map[protocol.ID]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	lines := []string{panelTitleStyle.Render("PEERS")}
	for i, n := range nodes {
		marker := severityNormalStyle.Render("●")
		if n.HighSeverity() {
			marker = severityHighStyle.Render("▲")
		}

		peers := make([]string, 0, len(n.Peers))
		for _, p := range n.Peers {
			if j, ok := index[p]; ok {
				peers = append(peers, nodes[j].Name)
			} else {
				peers = append(peers, "#"+p.String())
			}
		}

		// "[x] ● name → " is styled; only the edge list is truncated.
		prefixWidth := 4 + 2 + lipgloss.Width(n.Name) + 3
		edges := dimmedStyle.Render("no peers")
		if len(peers) > 0 {
			edges = truncateWithEllipsis(strings.Join(peers, ", "), width-prefixWidth)
		}

		lines = append(lines, "["+nodeLabel(i)+"] "+marker+" "+valueStyle.Render(n.Name)+" → "+edges)
	}
	return strings.Join(lines, "\n")
}
