package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	scrollbarThumb = "┃"
	scrollbarTrack = "│"
)

var (
	scrollTrackStyle = lipgloss.NewStyle().Foreground(colorBorder)
	scrollThumbStyle = lipgloss.NewStyle().Foreground(colorBrand)
)

// renderScrollbar draws a one-column scrollbar for a window of height lines
// over total lines, with offset lines scrolled past the top.
func renderScrollbar(height, total, offset int) string {
	if height <= 0 {
		return ""
	}

	lines := make([]string, height)
	if total <= height {
		for i := range lines {
			lines[i] = scrollTrackStyle.Render(scrollbarTrack)
		}
		return strings.Join(lines, "\n")
	}

	thumb := height * height / total
	if thumb < 1 {
		thumb = 1
	}

	ratio := float64(offset) / float64(total-height)
	ratio = min(max(ratio, 0), 1)
	pos := int(ratio * float64(height-thumb))

	for i := range lines {
		if i >= pos && i < pos+thumb {
			lines[i] = scrollThumbStyle.Render(scrollbarThumb)
		} else {
			lines[i] = scrollTrackStyle.Render(scrollbarTrack)
		}
	}
	return strings.Join(lines, "\n")
}

// scrollWindow returns the slice bounds [start, end) for showing height rows
// of total starting at offset. The offset is clamped into range.
func scrollWindow(total, height, offset int) (start, end int) {
	if height <= 0 || total == 0 {
		return 0, 0
	}
	start = min(max(offset, 0), max(total-height, 0))
	end = min(start+height, total)
	return start, end
}
