package tui

import (
	"regexp"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/xonecas/relic-console/internal/core"
	"github.com/xonecas/relic-console/internal/protocol"
	"github.com/xonecas/relic-console/internal/provider"
	"github.com/xonecas/relic-console/internal/store"
)

// Test constants for consistent terminal dimensions
const (
	TestTerminalWidth  = 120
	TestTerminalHeight = 40
)

const testDraft = "result = vector * 0.9"

// ansiRegex matches ANSI escape codes
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// stripANSI removes all ANSI escape codes from a string
func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// fakeLink records commands instead of writing them to a socket.
type fakeLink struct {
	mu    sync.Mutex
	state core.LinkState
	err   error
	sent  []protocol.Command
}

func (f *fakeLink) Send(cmd protocol.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeLink) State() core.LinkState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeLink) Endpoint() string {
	return "ws://gateway.test/ws"
}

func (f *fakeLink) Sent() []protocol.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Command(nil), f.sent...)
}

type testHarness struct {
	store   *store.Store
	session *store.Session
	link    *fakeLink
	bus     *core.EventBus
}

func setupTestModel(t *testing.T) (Model, *testHarness, func()) {
	t.Helper()

	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	sess, err := s.BeginSession("ws://gateway.test/ws")
	if err != nil {
		t.Fatalf("BeginSession() error: %v", err)
	}

	bus := core.NewEventBus(100)
	link := &fakeLink{state: core.LinkConnected}

	model := New(Options{
		View:      core.NewViewState(),
		Link:      link,
		Events:    bus.Subscribe(),
		Store:     s,
		Session:   sess,
		Assistant: provider.NewAssistant(provider.NewMock("mock", testDraft)),
	})
	model.width = TestTerminalWidth
	model.height = TestTerminalHeight

	h := &testHarness{store: s, session: sess, link: link, bus: bus}
	cleanup := func() {
		bus.Close()
		s.Close()
	}
	return model, h, cleanup
}

// press feeds a key to the model.
func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		msg = tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+s":
		msg = tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// deliver applies a core event as if it came off the bus.
func deliver(t *testing.T, m Model, event core.Event) Model {
	t.Helper()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	next, _ := m.Update(EventMsg{Event: event})
	return next.(Model)
}

func frameEvent(msg protocol.Message) core.Event {
	return core.Event{Type: core.EventFrame, Data: core.FrameData{Message: msg}}
}

func testNodes() []protocol.Node {
	return []protocol.Node{
		{ID: protocol.NumberID(1), Name: "Alpha", Vector: []float64{0.1, 0.2, 0.3}, Drift: 0.05, Peers: []protocol.ID{protocol.NumberID(2)}},
		{ID: protocol.NumberID(2), Name: "Beta", Vector: []float64{0.95, 0.0, 0.1}, Drift: 0.4, Peers: []protocol.ID{protocol.NumberID(1)}},
	}
}
