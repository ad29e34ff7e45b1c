package tui

import (
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xonecas/relic-console/internal/core"
)

// LinkIndicator shows the gateway link state. While a connection is being
// (re)established a block bounces across the bar.
type LinkIndicator struct {
	state     core.LinkState
	attempt   int
	position  int
	direction int
	width     int
}

// LinkIndicatorTickMsg is sent to animate the indicator.
type LinkIndicatorTickMsg time.Time

// NewLinkIndicator creates an indicator in the disconnected state.
func NewLinkIndicator() LinkIndicator {
	return LinkIndicator{
		state:     core.LinkDisconnected,
		direction: 1,
		width:     10,
	}
}

// SetState records a link state change.
func (n *LinkIndicator) SetState(state core.LinkState, attempt int) {
	n.state = state
	n.attempt = attempt
	if state == core.LinkConnected || state == core.LinkDisconnected {
		n.position = 0
		n.direction = 1
	}
}

// State returns the last recorded link state.
func (n LinkIndicator) State() core.LinkState {
	return n.state
}

func (n LinkIndicator) animating() bool {
	return n.state == core.LinkConnecting || n.state == core.LinkReconnecting
}

// Update handles tick messages for animation.
func (n LinkIndicator) Update(msg tea.Msg) (LinkIndicator, tea.Cmd) {
	if _, ok := msg.(LinkIndicatorTickMsg); !ok {
		return n, nil
	}

	if n.animating() {
		n.position += n.direction
		if n.position >= n.width-1 {
			n.position = n.width - 1
			n.direction = -1
		} else if n.position <= 0 {
			n.position = 0
			n.direction = 1
		}
	}
	return n, n.tick()
}

func (n LinkIndicator) tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return LinkIndicatorTickMsg(t)
	})
}

// Init starts the indicator animation.
func (n LinkIndicator) Init() tea.Cmd {
	return n.tick()
}

// View renders the indicator.
func (n LinkIndicator) View() string {
	const (
		barEmpty  = "░"
		barFilled = "█"
	)

	style := LinkStyle(n.state)
	label := "● " + n.state.String()
	if n.state == core.LinkReconnecting && n.attempt > 0 {
		label += " #" + strconv.Itoa(n.attempt)
	}

	var bar string
	for i := 0; i < n.width; i++ {
		switch {
		case n.state == core.LinkConnected:
			bar += barFilled
		case n.animating() && i >= n.position-1 && i <= n.position+1:
			bar += barFilled
		default:
			bar += barEmpty
		}
	}

	return style.Render(label) + " " + lipgloss.NewStyle().Foreground(colorBrandDim).Render("▐"+bar+"▌")
}

// ViewCompact renders the label only.
func (n LinkIndicator) ViewCompact() string {
	return LinkStyle(n.state).Render("● " + n.state.String())
}
