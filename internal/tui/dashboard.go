package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xonecas/relic-console/internal/protocol"
)

// Tab is one of the console's dashboards.
type Tab int

const (
	TabTracking Tab = iota
	TabCompute
	TabGossip
	TabMonitor
	TabManagement
	tabCount
)

var tabNames = [...]string{
	TabTracking:   "TRACKING",
	TabCompute:    "COMPUTE",
	TabGossip:     "GOSSIP",
	TabMonitor:    "MONITOR",
	TabManagement: "MANAGEMENT",
}

func (t Tab) String() string {
	if t < 0 || t >= tabCount {
		return "?"
	}
	return tabNames[t]
}

// HeaderInfo holds what the banner shows.
type HeaderInfo struct {
	Endpoint  string
	Mode      protocol.Mode
	NodeCount int
	Link      string // rendered link indicator
}

const cardWidth = 32

// RenderHeader renders the banner, summary line and tab bar.
func RenderHeader(info HeaderInfo, active Tab, width int) string {
	if width < 20 {
		width = 20
	}

	title := " ◈ R E L I C   C O N S O L E ◈"
	titleLine := padRight(title, width)
	rule := strings.Repeat("═", width)

	mode := string(info.Mode)
	if mode == "" {
		mode = "—"
	}

	summary := fmt.Sprintf("%s %s  %s %s  %s %s  %s",
		labelStyle.Render("GATEWAY"),
		valueStyle.Render(truncateWithEllipsis(info.Endpoint, 32)),
		labelStyle.Render("MODE"),
		ModeStyle(string(info.Mode)).Render(mode),
		labelStyle.Render("NODES"),
		valueStyle.Render(fmt.Sprint(info.NodeCount)),
		info.Link,
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Width(width).Render(titleLine),
		dimmedStyle.Render(rule),
		summary,
		RenderTabBar(active),
	)
}

// RenderTabBar renders "1 TRACKING  2 COMPUTE ..." with the active tab highlighted.
func RenderTabBar(active Tab) string {
	parts := make([]string, 0, tabCount)
	for t := Tab(0); t < tabCount; t++ {
		label := fmt.Sprintf("%d %s", int(t)+1, t)
		if t == active {
			parts = append(parts, tabActiveStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

// RenderTracking renders one card per node, laid out in a grid.
func RenderTracking(nodes []protocol.Node, width, height int) string {
	sections := []string{renderSectionTitle("NODE TRACKING", width)}

	if len(nodes) == 0 {
		sections = append(sections, dimmedStyle.Render("Waiting for telemetry..."))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	perRow := width / (cardWidth + 2)
	if perRow < 1 {
		perRow = 1
	}

	var rows []string
	for i := 0; i < len(nodes); i += perRow {
		end := i + perRow
		if end > len(nodes) {
			end = len(nodes)
		}
		cards := make([]string, 0, perRow)
		for _, n := range nodes[i:end] {
			cards = append(cards, renderNodeCard(n))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}

	grid := lipgloss.JoinVertical(lipgloss.Left, rows...)
	sections = append(sections, clipLines(grid, height-1))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderNodeCard(n protocol.Node) string {
	inner := cardWidth - 4

	name := titleStyle.Render(truncateWithEllipsis(n.Name, inner-8))
	id := dimmedStyle.Render("#" + n.ID.String())
	gap := inner - lipgloss.Width(name) - lipgloss.Width(id)
	if gap < 1 {
		gap = 1
	}

	severity := severityNormalStyle.Render("● NOMINAL")
	style := cardStyle
	if n.HighSeverity() {
		severity = severityHighStyle.Render("▲ CRITICAL")
		style = cardAlertStyle
	}

	lines := []string{
		name + strings.Repeat(" ", gap) + id,
		labelStyle.Render("DRIFT ") + valueStyle.Render(fmt.Sprintf("%.1f%%", n.DriftPercent())),
		labelStyle.Render("RAW   ") + fmt.Sprintf("[%.2f, %.2f, %.2f]", n.Component(0), n.Component(1), n.Component(2)),
		labelStyle.Render("MAG   ") + valueStyle.Render(fmt.Sprintf("%.3f", n.Magnitude())) + "  " + severity,
	}

	return style.Width(cardWidth - 2).Render(strings.Join(lines, "\n"))
}

// clipLines keeps at most limit lines of s.
func clipLines(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}
