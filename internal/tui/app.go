// Package tui provides the terminal user interface for the Relic console.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/xonecas/relic-console/internal/constants"
	"github.com/xonecas/relic-console/internal/core"
	"github.com/xonecas/relic-console/internal/protocol"
	"github.com/xonecas/relic-console/internal/store"
	"github.com/xonecas/relic-console/internal/telemetry"
)

// Sender is the part of the gateway link the UI drives.
type Sender interface {
	Send(cmd protocol.Command) error
	State() core.LinkState
	Endpoint() string
}

// Drafter drafts update-rule source from a prompt.
type Drafter interface {
	DraftRule(ctx context.Context, prompt, current string) (string, error)
	ProviderName() string
}

// Options wires a Model. View, Link and Events are required.
type Options struct {
	View      *core.ViewState
	Link      Sender
	Events    <-chan core.Event
	Store     *store.Store   // optional: archive search and saved rules
	Session   *store.Session // optional: journal writes
	Assistant Drafter        // optional
}

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusWarn
	statusError
)

// Model is the main TUI model. It is the only writer of the view state.
type Model struct {
	view      *core.ViewState
	link      Sender
	eventCh   <-chan core.Event
	store     *store.Store
	session   *store.Session
	assistant Drafter

	tab      Tab
	width    int
	height   int
	showHelp bool

	editor    textarea.Model
	editing   bool
	input     InputModel
	indicator LinkIndicator

	selectedIdx  int // management row
	gossipOffset int

	archiveQuery string
	archive      []*store.GossipRecord

	drafting bool

	status      string
	statusLevel statusLevel
}

// EventMsg wraps a core event for the TUI.
type EventMsg struct {
	Event core.Event
}

type draftResultMsg struct {
	draft string
	err   error
}

type archiveResultMsg struct {
	query   string
	records []*store.GossipRecord
	err     error
}

// New creates a new TUI model.
func New(opts Options) Model {
	editor := textarea.New()
	editor.Prompt = ""
	editor.ShowLineNumbers = true
	editor.CharLimit = 64 * 1024
	editor.SetWidth(60)
	editor.SetHeight(16)
	editor.SetValue(initialRule(opts.Store))
	editor.Blur()

	indicator := NewLinkIndicator()
	if opts.Link != nil {
		indicator.SetState(opts.Link.State(), 0)
	}

	return Model{
		view:      opts.View,
		link:      opts.Link,
		eventCh:   opts.Events,
		store:     opts.Store,
		session:   opts.Session,
		assistant: opts.Assistant,
		tab:       TabTracking,
		editor:    editor,
		input:     NewInputModel(),
		indicator: indicator,
	}
}

func initialRule(s *store.Store) string {
	if s != nil {
		src, ok, err := s.GetRule(store.RuleDraft)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load saved rule draft")
		}
		if ok && strings.TrimSpace(src) != "" {
			return src
		}
	}
	return constants.DefaultUpdateRule
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.listenForEvents(),
		m.indicator.Init(),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(msg.Width)
		m.resizeEditor()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.ForceQuit) {
			return m, tea.Quit
		}
		if m.input.IsActive() {
			return m.handleInputKey(msg)
		}
		if m.editing {
			return m.handleEditorKey(msg)
		}
		return m.handleKey(msg)

	case EventMsg:
		m.handleEvent(msg.Event)
		return m, m.listenForEvents()

	case LinkIndicatorTickMsg:
		var cmd tea.Cmd
		m.indicator, cmd = m.indicator.Update(msg)
		return m, cmd

	case draftResultMsg:
		m.drafting = false
		if msg.err != nil {
			m.setStatus(statusError, "Assistant: "+msg.err.Error())
			return m, nil
		}
		m.editor.SetValue(msg.draft)
		m.saveRule(store.RuleDraft, msg.draft)
		m.setStatus(statusInfo, "Draft ready in the editor. Review it, then ctrl+s to deploy.")
		return m, nil

	case archiveResultMsg:
		if msg.err != nil {
			m.setStatus(statusError, "Archive search failed: "+msg.err.Error())
			return m, nil
		}
		m.archiveQuery = msg.query
		m.archive = msg.records
		m.setStatus(statusInfo, fmt.Sprintf("%d archived gossip entries match %q", len(msg.records), msg.query))
		return m, nil
	}

	return m, nil
}

// View renders the UI. It only reads state.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return RenderHelp(m.width, m.height)
	}

	header := RenderHeader(HeaderInfo{
		Endpoint:  m.endpoint(),
		Mode:      m.view.Mode(),
		NodeCount: m.view.NodeCount(),
		Link:      m.indicator.View(),
	}, m.tab, m.width)

	var footer []string
	if m.input.IsActive() {
		footer = append(footer, m.input.View(m.width))
	}
	footer = append(footer, m.renderStatus())
	footerView := strings.Join(footer, "\n")

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footerView)
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	var body string
	switch m.tab {
	case TabTracking:
		body = RenderTracking(m.view.Roster(), m.width, bodyHeight)
	case TabCompute:
		body = RenderCompute(m.editor.View(), m.editing, ComputeInfo{
			Mode:      m.view.Mode(),
			Events:    m.view.Events(),
			EventCap:  m.view.EventCapacity(),
			Assistant: m.assistantName(),
			Drafting:  m.drafting,
		}, m.width, bodyHeight)
	case TabGossip:
		body = RenderGossip(GossipInfo{
			Entries:  m.view.Gossip(),
			Capacity: m.view.GossipCapacity(),
			Offset:   m.gossipOffset,
			Query:    m.archiveQuery,
			Archive:  m.archive,
		}, m.width, bodyHeight)
	case TabMonitor:
		body = RenderMonitor(m.view.Roster(), m.width, bodyHeight)
	case TabManagement:
		body = RenderManagement(m.view.Roster(), m.selectedIdx, m.width, bodyHeight)
	}

	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footerView)
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return footerStyle.Render("[?] help  [1-5] dashboards  [q] quit")
	}
	text := truncateWithEllipsis(oneLine(m.status), m.width-2)
	switch m.statusLevel {
	case statusError:
		return statusErrStyle.Render("✖ " + text)
	case statusWarn:
		return statusWarnStyle.Render("! " + text)
	default:
		return statusOKStyle.Render("› " + text)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Help) {
		m.showHelp = !m.showHelp
		return m, nil
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.NextTab):
		m.tab = (m.tab + 1) % tabCount
		return m, nil
	case key.Matches(msg, keys.PrevTab):
		m.tab = (m.tab + tabCount - 1) % tabCount
		return m, nil
	case key.Matches(msg, keys.JumpTab):
		m.tab = Tab(msg.String()[0] - '1')
		return m, nil
	}

	switch m.tab {
	case TabCompute:
		return m.handleComputeKey(msg)
	case TabGossip:
		return m.handleGossipKey(msg)
	case TabManagement:
		return m.handleManagementKey(msg)
	}
	return m, nil
}

func (m Model) handleComputeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Edit):
		m.editing = true
		m.editor.Focus()
		return m, textarea.Blink

	case key.Matches(msg, keys.Deploy):
		m.deploy()

	case key.Matches(msg, keys.Mode):
		next := m.view.Mode().Toggle()
		if m.sendCommand(protocol.SetMode(next)) {
			m.setStatus(statusInfo, "Requested mode "+string(next))
		}

	case key.Matches(msg, keys.Reset):
		m.editor.SetValue(constants.DefaultUpdateRule)
		m.saveRule(store.RuleDraft, constants.DefaultUpdateRule)
		m.setStatus(statusInfo, "Editor reset to the default rule")

	case key.Matches(msg, keys.Assist):
		switch {
		case m.assistant == nil:
			m.setStatus(statusWarn, "No assistant configured")
		case m.drafting:
			m.setStatus(statusWarn, "Assistant is still drafting")
		default:
			m.input.SetMode(InputModeAssistant)
			return m, textarea.Blink
		}
	}
	return m, nil
}

func (m Model) handleGossipKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Search):
		if m.store == nil {
			m.setStatus(statusWarn, "Gossip archive unavailable")
			return m, nil
		}
		m.input.SetMode(InputModeSearch)
		return m, textarea.Blink

	case key.Matches(msg, keys.Escape):
		m.archiveQuery = ""
		m.archive = nil

	case key.Matches(msg, keys.Up):
		if m.gossipOffset > 0 {
			m.gossipOffset--
		}

	case key.Matches(msg, keys.Down):
		if m.gossipOffset < len(m.view.Gossip())-1 {
			m.gossipOffset++
		}
	}
	return m, nil
}

func (m Model) handleManagementKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}

	case key.Matches(msg, keys.Down):
		if m.selectedIdx < m.view.NodeCount()-1 {
			m.selectedIdx++
		}

	case key.Matches(msg, keys.Spawn):
		if m.sendCommand(protocol.Spawn()) {
			m.setStatus(statusInfo, "Spawn requested")
		}

	case key.Matches(msg, keys.Purge):
		roster := m.view.Roster()
		if len(roster) == 0 || m.selectedIdx >= len(roster) {
			m.setStatus(statusWarn, "No node selected")
			return m, nil
		}
		target := roster[m.selectedIdx]
		if m.sendCommand(protocol.Purge(target.ID)) {
			m.setStatus(statusInfo, "Purge requested for "+target.Name)
		}
	}
	return m, nil
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.editing = false
		m.editor.Blur()
		m.saveRule(store.RuleDraft, m.editor.Value())
		return m, nil

	case key.Matches(msg, keys.Deploy):
		m.deploy()
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.input.Reset()
		return m, nil

	case key.Matches(msg, keys.Enter):
		value := strings.TrimSpace(m.input.Value())
		mode := m.input.Mode()
		m.input.AddToHistory(value)
		m.input.Reset()
		if value == "" {
			return m, nil
		}

		switch mode {
		case InputModeSearch:
			return m, m.searchArchive(value)
		case InputModeAssistant:
			m.drafting = true
			m.setStatus(statusInfo, "Asking "+m.assistantName()+"...")
			return m, m.draftRule(value, m.editor.Value())
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// deploy ships the editor contents. The store is untouched until the gateway
// reports back.
func (m *Model) deploy() {
	source := m.editor.Value()
	m.saveRule(store.RuleDraft, source)

	if strings.TrimSpace(source) == "" {
		m.setStatus(statusError, "Update rule is empty")
		return
	}
	if m.sendCommand(protocol.DeployCode(source)) {
		m.saveRule(store.RuleDeployed, source)
		m.setStatus(statusInfo, "Uploading code...")
	}
}

// sendCommand hands cmd to the link and reports whether it was queued.
// Failures are surfaced on the status line and journaled.
func (m *Model) sendCommand(cmd protocol.Command) bool {
	err := m.link.Send(cmd)
	if err == nil {
		return true
	}

	result := store.ResultFailed
	switch {
	case errors.Is(err, core.ErrDisconnected):
		result = store.ResultDisconnected
		m.setStatus(statusError, fmt.Sprintf("Not connected: %s dropped", cmd.Kind))
	case errors.Is(err, core.ErrSendQueueFull):
		result = store.ResultQueueFull
		m.setStatus(statusError, fmt.Sprintf("Send queue full: %s dropped", cmd.Kind))
	default:
		m.setStatus(statusError, fmt.Sprintf("%s failed: %v", cmd.Kind, err))
	}
	m.journalCommand(cmd, result)
	return false
}

func (m *Model) handleEvent(event core.Event) {
	switch event.Type {
	case core.EventFrame:
		data, ok := event.Data.(core.FrameData)
		if !ok {
			return
		}
		msg := data.Message
		if !m.view.Apply(msg) {
			log.Debug().Str("kind", string(msg.Kind)).Msg("Ignoring frame of unknown kind")
			return
		}
		m.journalFrame(msg, event)
		telemetry.RosterSize.Set(float64(m.view.NodeCount()))
		if n := m.view.NodeCount(); m.selectedIdx >= n {
			m.selectedIdx = max(n-1, 0)
		}

	case core.EventDecodeError:
		if data, ok := event.Data.(core.ErrorData); ok {
			m.setStatus(statusWarn, "Dropped malformed frame: "+data.Error)
		}

	case core.EventLinkState:
		data, ok := event.Data.(core.LinkStateData)
		if !ok {
			return
		}
		m.indicator.SetState(data.NewState, data.Attempt)
		switch data.NewState {
		case core.LinkConnected:
			m.setStatus(statusInfo, "Connected to "+m.endpoint())
		case core.LinkReconnecting:
			m.setStatus(statusWarn, fmt.Sprintf("Link lost, reconnecting (attempt %d)", data.Attempt))
		case core.LinkDisconnected:
			m.setStatus(statusError, "Disconnected from "+m.endpoint())
		}

	case core.EventLinkError:
		if data, ok := event.Data.(core.ErrorData); ok {
			m.setStatus(statusError, "Link error: "+data.Error)
		}

	case core.EventCommand:
		data, ok := event.Data.(core.CommandData)
		if !ok {
			return
		}
		switch {
		case errors.Is(data.Err, core.ErrDisconnected):
			m.setStatus(statusError, fmt.Sprintf("%s dropped: connection lost before it was written", data.Command.Kind))
			m.journalCommand(data.Command, store.ResultDisconnected)
		case data.Err != nil:
			m.setStatus(statusError, fmt.Sprintf("%s write failed: %v", data.Command.Kind, data.Err))
			m.journalCommand(data.Command, store.ResultFailed)
		default:
			m.journalCommand(data.Command, store.ResultSent)
		}
	}
}

func (m *Model) journalFrame(msg protocol.Message, event core.Event) {
	if m.session == nil {
		return
	}
	switch msg.Kind {
	case protocol.KindTick:
		if err := m.session.RecordGossip(msg.Gossip); err != nil {
			log.Warn().Err(err).Msg("Failed to journal gossip")
		}
	case protocol.KindSysEvent:
		if err := m.session.RecordEvent(msg.Msg, event.Timestamp); err != nil {
			log.Warn().Err(err).Msg("Failed to journal system event")
		}
	}
}

func (m *Model) journalCommand(cmd protocol.Command, result string) {
	if m.session == nil {
		return
	}
	if err := m.session.RecordCommand(cmd, result); err != nil {
		log.Warn().Err(err).Str("command", string(cmd.Kind)).Msg("Failed to journal command")
	}
}

func (m *Model) saveRule(name, source string) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveRule(name, source); err != nil {
		log.Warn().Err(err).Str("rule", name).Msg("Failed to save rule")
	}
}

func (m *Model) setStatus(level statusLevel, text string) {
	m.statusLevel = level
	m.status = text
}

func (m *Model) resizeEditor() {
	w := m.width - 2
	if m.width >= 100 {
		w = m.width - 41 - 2
	}
	h := m.height - 12
	m.editor.SetWidth(max(w, 20))
	m.editor.SetHeight(max(h, 5))
}

func (m Model) endpoint() string {
	if m.link == nil {
		return ""
	}
	return m.link.Endpoint()
}

func (m Model) assistantName() string {
	if m.assistant == nil {
		return ""
	}
	return m.assistant.ProviderName()
}

func (m Model) searchArchive(query string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		records, err := s.SearchGossip(query, constants.JournalSearchLimit)
		return archiveResultMsg{query: query, records: records, err: err}
	}
}

func (m Model) draftRule(prompt, current string) tea.Cmd {
	a := m.assistant
	return func() tea.Msg {
		draft, err := a.DraftRule(context.Background(), prompt, current)
		return draftResultMsg{draft: draft, err: err}
	}
}

func (m Model) listenForEvents() tea.Cmd {
	ch := m.eventCh
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return EventMsg{Event: event}
	}
}

// Key bindings
var keys = struct {
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding
	Escape    key.Binding
	Enter     key.Binding
	NextTab   key.Binding
	PrevTab   key.Binding
	JumpTab   key.Binding
	Up        key.Binding
	Down      key.Binding
	Edit      key.Binding
	Deploy    key.Binding
	Mode      key.Binding
	Reset     key.Binding
	Assist    key.Binding
	Search    key.Binding
	Spawn     key.Binding
	Purge     key.Binding
}{
	Quit:      key.NewBinding(key.WithKeys("q")),
	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	Help:      key.NewBinding(key.WithKeys("?")),
	Escape:    key.NewBinding(key.WithKeys("esc")),
	Enter:     key.NewBinding(key.WithKeys("enter")),
	NextTab:   key.NewBinding(key.WithKeys("tab")),
	PrevTab:   key.NewBinding(key.WithKeys("shift+tab")),
	JumpTab:   key.NewBinding(key.WithKeys("1", "2", "3", "4", "5")),
	Up:        key.NewBinding(key.WithKeys("up", "k")),
	Down:      key.NewBinding(key.WithKeys("down", "j")),
	Edit:      key.NewBinding(key.WithKeys("e", "enter")),
	Deploy:    key.NewBinding(key.WithKeys("ctrl+s")),
	Mode:      key.NewBinding(key.WithKeys("m")),
	Reset:     key.NewBinding(key.WithKeys("r")),
	Assist:    key.NewBinding(key.WithKeys("a")),
	Search:    key.NewBinding(key.WithKeys("/")),
	Spawn:     key.NewBinding(key.WithKeys("s")),
	Purge:     key.NewBinding(key.WithKeys("x", "delete")),
}
