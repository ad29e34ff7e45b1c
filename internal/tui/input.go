package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// InputMode represents the current single-line input mode.
type InputMode int

const (
	InputModeNone InputMode = iota
	InputModeSearch
	InputModeAssistant
)

const maxHistorySize = 100

// InputModel handles the single-line prompt used for archive search and
// assistant requests.
type InputModel struct {
	textInput    textinput.Model
	mode         InputMode
	history      []string
	historyIndex int // -1 = not browsing
	draft        string
}

// NewInputModel creates a new input model.
func NewInputModel() InputModel {
	ti := textinput.New()
	ti.CharLimit = 500
	ti.Width = 60

	return InputModel{
		textInput:    ti,
		mode:         InputModeNone,
		history:      make([]string, 0, maxHistorySize),
		historyIndex: -1,
	}
}

// SetMode sets the input mode and updates the prompt.
func (m *InputModel) SetMode(mode InputMode) {
	m.mode = mode
	m.textInput.Reset()

	switch mode {
	case InputModeSearch:
		m.textInput.Placeholder = "Search archived gossip..."
		m.textInput.Prompt = inputPromptStyle.Render("/ ")
	case InputModeAssistant:
		m.textInput.Placeholder = "Describe the update rule you want..."
		m.textInput.Prompt = inputPromptStyle.Render("✦ ")
	default:
		m.textInput.Placeholder = ""
		m.textInput.Prompt = ""
	}

	if mode != InputModeNone {
		m.textInput.Focus()
	} else {
		m.textInput.Blur()
	}
}

// Mode returns the current input mode.
func (m InputModel) Mode() InputMode {
	return m.mode
}

// Value returns the current input value.
func (m InputModel) Value() string {
	return m.textInput.Value()
}

// IsActive returns true if input is active.
func (m InputModel) IsActive() bool {
	return m.mode != InputModeNone
}

var historyKeys = struct {
	Up   key.Binding
	Down key.Binding
}{
	Up:   key.NewBinding(key.WithKeys("up")),
	Down: key.NewBinding(key.WithKeys("down")),
}

// Update handles input updates.
func (m InputModel) Update(msg tea.Msg) (InputModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, historyKeys.Up):
			m.navigateHistory(1)
			return m, nil
		case key.Matches(keyMsg, historyKeys.Down):
			m.navigateHistory(-1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// navigateHistory moves through the history: 1 = older, -1 = newer.
func (m *InputModel) navigateHistory(direction int) {
	if len(m.history) == 0 {
		return
	}

	if m.historyIndex == -1 && direction == 1 {
		m.draft = m.textInput.Value()
	}

	m.historyIndex = min(max(m.historyIndex+direction, -1), len(m.history)-1)

	if m.historyIndex == -1 {
		m.textInput.SetValue(m.draft)
	} else {
		m.textInput.SetValue(m.history[len(m.history)-1-m.historyIndex])
	}
	m.textInput.CursorEnd()
}

// View renders the input bar.
func (m InputModel) View(width int) string {
	if m.mode == InputModeNone {
		return ""
	}
	return inputStyle.Width(width - 2).Render(m.textInput.View())
}

// Reset clears the input.
func (m *InputModel) Reset() {
	m.textInput.Reset()
	m.mode = InputModeNone
	m.historyIndex = -1
	m.draft = ""
	m.textInput.Blur()
}

// AddToHistory adds an entry to the history, skipping consecutive repeats.
func (m *InputModel) AddToHistory(entry string) {
	if entry == "" {
		return
	}
	if len(m.history) > 0 && m.history[len(m.history)-1] == entry {
		return
	}

	m.history = append(m.history, entry)
	if len(m.history) > maxHistorySize {
		m.history = m.history[len(m.history)-maxHistorySize:]
	}
}

// SetWidth sets the input width.
func (m *InputModel) SetWidth(width int) {
	m.textInput.Width = width - 6
}
