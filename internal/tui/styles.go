package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xonecas/relic-console/internal/core"
)

// Colors - phosphor console palette
var (
	colorBrand    = lipgloss.Color("#00E5FF") // Relic cyan
	colorAccent   = lipgloss.Color("#B388FF") // Soft violet
	colorBrandDim = lipgloss.Color("#007C8A")

	colorPersona = lipgloss.Color("#FF4FD8") // PERSONA mode
	colorCompute = lipgloss.Color("#00FF9C") // COMPUTE mode

	colorWarning = lipgloss.Color("#FFB300")
	colorError   = lipgloss.Color("#FF3B5C")
	colorSuccess = lipgloss.Color("#00FF9C")
	colorMuted   = lipgloss.Color("#5A6B7A")

	colorBg      = lipgloss.Color("#05080C")
	colorBgAlt   = lipgloss.Color("#0B1118")
	colorBgPanel = lipgloss.Color("#101820")
	colorBorder  = lipgloss.Color("#1E3A4A")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand).
			Background(colorBgAlt)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand)

	tabStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Foreground(colorBg).
			Background(colorBrand).
			Bold(true).
			Padding(0, 1)

	// Node cards
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	cardAlertStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(colorError).
			Padding(0, 1)

	severityHighStyle = lipgloss.NewStyle().
				Foreground(colorError).
				Bold(true)

	severityNormalStyle = lipgloss.NewStyle().
				Foreground(colorSuccess)

	// Tables and lists
	rowStyle = lipgloss.NewStyle().
			Foreground(colorBrand).
			Padding(0, 1)

	rowSelectedStyle = lipgloss.NewStyle().
				Foreground(colorBg).
				Background(colorBrand).
				Bold(true).
				Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBrandDim).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(colorBrand).
			Bold(true)

	editorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	editorFocusedStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorAccent)

	// Input
	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBrand).
			Padding(0, 1)

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(colorAccent).
				Bold(true)

	// Help
	helpStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorBrand).
			Background(colorBgPanel).
			Padding(1, 2).
			Margin(1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorBrand).
			Bold(true)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorBrand).
			Bold(true)

	gossipNodeStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	dimmedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	statusOKStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	statusErrStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	statusWarnStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Background(colorBg)
)

// ModeStyle returns the badge style for an operating mode.
func ModeStyle(mode string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(colorBg)
	switch mode {
	case "PERSONA":
		return base.Background(colorPersona)
	case "COMPUTE":
		return base.Background(colorCompute)
	default:
		return base.Background(colorMuted)
	}
}

// LinkStyle returns the style for a link state label.
func LinkStyle(state core.LinkState) lipgloss.Style {
	switch state {
	case core.LinkConnected:
		return statusOKStyle.Bold(true)
	case core.LinkConnecting, core.LinkReconnecting:
		return statusWarnStyle.Bold(true)
	default:
		return statusErrStyle
	}
}

// renderSectionTitle renders a section title that spans the full width.
func renderSectionTitle(title string, width int) string {
	return renderSectionTitleWithSuffix(title, "", width)
}

// renderSectionTitleWithSuffix renders a section title with an optional suffix.
func renderSectionTitleWithSuffix(title, suffix string, width int) string {
	// ◇── TITLE ──◇ [suffix]
	titleWithSpaces := " " + title + " "
	available := width - lipgloss.Width(titleWithSpaces) - 4 - lipgloss.Width(suffix)
	if available < 2 {
		available = 2
	}
	left := available / 2
	right := available - left

	line := "◇─" + strings.Repeat("─", left) + titleWithSpaces + strings.Repeat("─", right) + "─◇"
	if suffix != "" {
		line += suffix
	}
	return panelTitleStyle.Width(width).Render(line)
}

// truncateToWidth truncates a string to fit within maxWidth display columns
// without cutting multi-byte characters.
func truncateToWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	currentWidth := 0
	for i, r := range s {
		charWidth := lipgloss.Width(string(r))
		if currentWidth+charWidth > maxWidth {
			return s[:i]
		}
		currentWidth += charWidth
	}
	return s
}

func truncateWithEllipsis(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return truncateToWidth(s, maxWidth)
	}
	return truncateToWidth(s, maxWidth-3) + "..."
}

func padRight(s string, length int) string {
	if w := lipgloss.Width(s); w < length {
		return s + strings.Repeat(" ", length-w)
	}
	return s
}

// oneLine flattens newlines for single-row display.
func oneLine(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r", ""), "\n", " ")
}
