package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xonecas/relic-console/internal/protocol"
	"github.com/xonecas/relic-console/internal/store"
)

// GossipInfo holds the gossip tab's inputs.
type GossipInfo struct {
	Entries  []protocol.Gossip // newest first
	Capacity int
	Offset   int

	// Archive search results, shown instead of the live stream when Query is set.
	Query   string
	Archive []*store.GossipRecord
}

// RenderGossip renders the live gossip stream, or archive search results.
func RenderGossip(info GossipInfo, width, height int) string {
	if info.Query != "" {
		return renderArchive(info, width, height)
	}

	suffix := dimmedStyle.Render(fmt.Sprintf(" %d/%d", len(info.Entries), info.Capacity))
	title := renderSectionTitleWithSuffix("SOCIAL NETWORK STREAM", suffix, width)

	bodyHeight := height - 2
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	if len(info.Entries) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, dimmedStyle.Render("No gossip yet."))
	}

	start, end := scrollWindow(len(info.Entries), bodyHeight, info.Offset)
	lines := make([]string, 0, end-start)
	for _, g := range info.Entries[start:end] {
		lines = append(lines, renderGossipLine(g, width-2))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(width-2).Render(strings.Join(lines, "\n")),
		" ",
		renderScrollbar(len(lines), len(info.Entries), start),
	)

	hint := dimmedStyle.Render("[/] search archive  [↑/↓] scroll")
	return lipgloss.JoinVertical(lipgloss.Left, title, body, hint)
}

func renderGossipLine(g protocol.Gossip, width int) string {
	ts := dimmedStyle.Render("[" + g.Time + "]")
	node := gossipNodeStyle.Render(padRight(truncateWithEllipsis(g.Node, 12), 12))
	used := lipgloss.Width(ts) + 1 + 12 + 1
	msg := truncateWithEllipsis(oneLine(g.Msg), width-used)
	return ts + " " + node + " " + msg
}

func renderArchive(info GossipInfo, width, height int) string {
	title := renderSectionTitle(fmt.Sprintf("ARCHIVE · %q", info.Query), width)
	lines := []string{title}

	if len(info.Archive) == 0 {
		lines = append(lines, dimmedStyle.Render("No archived gossip matches."))
	}
	for _, r := range info.Archive {
		if len(lines) >= height-1 {
			break
		}
		day := dimmedStyle.Render(r.ReceivedAt.Local().Format("01-02"))
		lines = append(lines, day+" "+renderGossipLine(r.Gossip, width-6))
	}

	lines = append(lines, dimmedStyle.Render("[esc] back to live stream"))
	return strings.Join(lines, "\n")
}
