package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xonecas/relic-console/internal/protocol"
)

// fakeGateway is a minimal WebSocket server standing in for the gateway.
type fakeGateway struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	conns    chan *websocket.Conn
	received chan string
	closed   chan struct{} // one value per finished server-side connection

	mu      sync.Mutex
	accepts int
	onOpen  func(conn *websocket.Conn, n int) // optional; runs before the read loop
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()

	g := &fakeGateway{
		conns:    make(chan *websocket.Conn, 8),
		received: make(chan string, 32),
		closed:   make(chan struct{}, 8),
	}
	g.srv = httptest.NewServer(http.HandlerFunc(g.handle))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGateway) URL() string {
	return "ws" + strings.TrimPrefix(g.srv.URL, "http")
}

func (g *fakeGateway) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() {
		conn.Close()
		g.closed <- struct{}{}
	}()

	g.mu.Lock()
	g.accepts++
	n := g.accepts
	onOpen := g.onOpen
	g.mu.Unlock()

	if onOpen != nil {
		onOpen(conn, n)
	}
	g.conns <- conn

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType == websocket.TextMessage {
			g.received <- string(data)
		}
	}
}

func (g *fakeGateway) Accepts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accepts
}

func (g *fakeGateway) waitConn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-g.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for client connection")
		return nil
	}
}

func testLinkConfig(endpoint string) LinkConfig {
	return LinkConfig{
		Endpoint:         endpoint,
		HandshakeTimeout: time.Second,
		SendQueue:        8,
		Reconnect:        false,
		Backoff: Backoff{
			Initial: 5 * time.Millisecond,
			Max:     20 * time.Millisecond,
			Factor:  2,
		},
	}
}

type linkHarness struct {
	link   *Link
	bus    *EventBus
	events <-chan Event
	cancel context.CancelFunc
	done   chan error
}

func setupLinkTest(t *testing.T, cfg LinkConfig) (*linkHarness, func()) {
	t.Helper()

	bus := NewEventBus(64)
	h := &linkHarness{
		link:   NewLink(cfg, bus),
		bus:    bus,
		events: bus.Subscribe(),
		done:   make(chan error, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		h.done <- h.link.Run(ctx)
	}()

	cleanup := func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("link did not stop")
		}
		bus.Close()
	}

	return h, cleanup
}

func (h *linkHarness) waitEvent(t *testing.T, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-h.events:
			if !ok {
				t.Fatal("bus closed")
			}
			if match(e) {
				return e
			}
		case <-deadline:
			t.Fatal("timeout waiting for event")
			return Event{}
		}
	}
}

func (h *linkHarness) waitState(t *testing.T, state LinkState) {
	t.Helper()
	h.waitEvent(t, func(e Event) bool {
		d, ok := e.Data.(LinkStateData)
		return e.Type == EventLinkState && ok && d.NewState == state
	})
}

func (h *linkHarness) waitFrame(t *testing.T) protocol.Message {
	t.Helper()
	e := h.waitEvent(t, func(e Event) bool { return e.Type == EventFrame })
	return e.Data.(FrameData).Message
}

func TestLinkReceivesFrames(t *testing.T) {
	gw := newFakeGateway(t)
	h, cleanup := setupLinkTest(t, testLinkConfig(gw.URL()))
	defer cleanup()

	conn := gw.waitConn(t)
	h.waitState(t, LinkConnected)

	tickFrame := `{"type":"TICK","nodes":[{"id":0,"name":"Relic-0","vector":[0.9,0.1,0.1,0.1],"drift":0.02,"peers":[1]}],"mode":"COMPUTE","gossip":[]}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(tickFrame)); err != nil {
		t.Fatalf("write tick: %v", err)
	}

	msg := h.waitFrame(t)
	if msg.Kind != protocol.KindTick {
		t.Fatalf("expected TICK, got %s", msg.Kind)
	}
	if len(msg.Nodes) != 1 || msg.Nodes[0].Name != "Relic-0" {
		t.Errorf("unexpected nodes %+v", msg.Nodes)
	}
	if !msg.Nodes[0].HighSeverity() {
		t.Error("expected high severity node")
	}
}

func TestLinkDropsMalformedFrame(t *testing.T) {
	gw := newFakeGateway(t)
	h, cleanup := setupLinkTest(t, testLinkConfig(gw.URL()))
	defer cleanup()

	conn := gw.waitConn(t)
	h.waitState(t, LinkConnected)

	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"TICK","nodes":`))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"SYS_EVENT","msg":"Logic Updated"}`))

	e := h.waitEvent(t, func(e Event) bool { return e.Type == EventDecodeError || e.Type == EventFrame })
	if e.Type != EventDecodeError {
		t.Fatalf("expected decode error first, got %s", e.Type)
	}

	msg := h.waitFrame(t)
	if msg.Kind != protocol.KindSysEvent || msg.Msg != "Logic Updated" {
		t.Errorf("expected link to keep reading after bad frame, got %+v", msg)
	}
	if h.link.State() != LinkConnected {
		t.Errorf("expected CONNECTED, got %s", h.link.State())
	}
}

func TestLinkSendWireForm(t *testing.T) {
	gw := newFakeGateway(t)
	h, cleanup := setupLinkTest(t, testLinkConfig(gw.URL()))
	defer cleanup()

	gw.waitConn(t)
	h.waitState(t, LinkConnected)

	tests := []struct {
		cmd  protocol.Command
		want string
	}{
		{protocol.SetMode(protocol.ModePersona), `{"type":"SET_MODE","payload":"PERSONA"}`},
		{protocol.Spawn(), `{"type":"SPAWN","payload":null}`},
		{protocol.Purge(protocol.NumberID(1)), `{"type":"PURGE","payload":1}`},
		{protocol.DeployCode("def update(a, b): return a"), `{"type":"DEPLOY_CODE","payload":"def update(a, b): return a"}`},
	}

	for _, tt := range tests {
		if err := h.link.Send(tt.cmd); err != nil {
			t.Fatalf("send %s: %v", tt.cmd.Kind, err)
		}
		select {
		case got := <-gw.received:
			if got != tt.want {
				t.Errorf("%s: got %s, want %s", tt.cmd.Kind, got, tt.want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s: gateway never received command", tt.cmd.Kind)
		}
	}

	e := h.waitEvent(t, func(e Event) bool { return e.Type == EventCommand })
	if d := e.Data.(CommandData); d.Err != nil {
		t.Errorf("expected successful write, got %v", d.Err)
	}
}

func TestLinkSendDisconnected(t *testing.T) {
	bus := NewEventBus(16)
	defer bus.Close()

	link := NewLink(testLinkConfig("ws://127.0.0.1:1/ws"), bus)

	err := link.Send(protocol.Spawn())
	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
	if link.State() != LinkDisconnected {
		t.Errorf("expected DISCONNECTED, got %s", link.State())
	}
}

func TestLinkCancelClosesSocket(t *testing.T) {
	gw := newFakeGateway(t)
	h, _ := setupLinkTest(t, testLinkConfig(gw.URL()))

	gw.waitConn(t)
	h.waitState(t, LinkConnected)

	h.cancel()

	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("expected nil on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if h.link.State() != LinkDisconnected {
		t.Errorf("expected DISCONNECTED, got %s", h.link.State())
	}
	if err := h.link.Send(protocol.Spawn()); !errors.Is(err, ErrDisconnected) {
		t.Errorf("expected ErrDisconnected after cancel, got %v", err)
	}

	// The server side sees the socket go away.
	select {
	case <-gw.closed:
	case <-time.After(2 * time.Second):
		t.Error("expected server connection to close")
	}

	h.bus.Close()
}

func TestLinkReconnectsAfterDrop(t *testing.T) {
	gw := newFakeGateway(t)
	gw.onOpen = func(conn *websocket.Conn, n int) {
		if n == 1 {
			conn.Close()
		}
	}

	cfg := testLinkConfig(gw.URL())
	cfg.Reconnect = true
	h, cleanup := setupLinkTest(t, cfg)
	defer cleanup()

	h.waitState(t, LinkReconnecting)
	h.waitState(t, LinkConnected)

	deadline := time.Now().Add(2 * time.Second)
	for gw.Accepts() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if gw.Accepts() < 2 {
		t.Fatalf("expected a second connection, got %d", gw.Accepts())
	}
}

func TestLinkGivesUpAfterMaxAttempts(t *testing.T) {
	gw := newFakeGateway(t)
	endpoint := gw.URL()
	gw.srv.Close()

	cfg := testLinkConfig(endpoint)
	cfg.Reconnect = true
	cfg.MaxAttempts = 2
	h, _ := setupLinkTest(t, cfg)
	defer h.bus.Close()

	select {
	case err := <-h.done:
		if err == nil {
			t.Fatal("expected error after max attempts")
		}
		if !strings.Contains(err.Error(), "after 2 attempts") {
			t.Errorf("unexpected error %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not give up")
	}

	if h.link.State() != LinkDisconnected {
		t.Errorf("expected DISCONNECTED, got %s", h.link.State())
	}
}

func TestLinkNoReconnectReturnsDialError(t *testing.T) {
	gw := newFakeGateway(t)
	endpoint := gw.URL()
	gw.srv.Close()

	h, _ := setupLinkTest(t, testLinkConfig(endpoint))
	defer h.bus.Close()

	select {
	case err := <-h.done:
		if err == nil {
			t.Fatal("expected dial error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	e := h.waitEvent(t, func(e Event) bool { return e.Type == EventLinkError })
	if e.Data.(ErrorData).Error == "" {
		t.Error("expected error text on link error event")
	}
}

func TestLinkSuccessfulConnectResetsRetryBudget(t *testing.T) {
	gw := newFakeGateway(t)
	gw.onOpen = func(conn *websocket.Conn, n int) {
		if n <= 3 {
			conn.Close()
		}
	}

	cfg := testLinkConfig(gw.URL())
	cfg.Reconnect = true
	cfg.MaxAttempts = 1
	h, cleanup := setupLinkTest(t, cfg)
	defer cleanup()

	// Every drop follows a successful connect, so one retry is always left.
	deadline := time.Now().Add(3 * time.Second)
	for gw.Accepts() < 4 && time.Now().Before(deadline) {
		select {
		case err := <-h.done:
			t.Fatalf("link gave up after %d connection(s): %v", gw.Accepts(), err)
		case <-time.After(5 * time.Millisecond):
		}
	}
	if gw.Accepts() < 4 {
		t.Fatalf("expected 4 connections, got %d", gw.Accepts())
	}
}

func TestLinkDiscardQueuedReportsEachCommand(t *testing.T) {
	bus := NewEventBus(16)
	defer bus.Close()
	events := bus.Subscribe()

	link := NewLink(testLinkConfig("ws://127.0.0.1:1/ws"), bus)

	outbox := make(chan outbound, 4)
	for _, cmd := range []protocol.Command{protocol.Spawn(), protocol.Purge(protocol.NumberID(3))} {
		data, err := cmd.Encode()
		if err != nil {
			t.Fatalf("encode %s: %v", cmd.Kind, err)
		}
		outbox <- outbound{cmd: cmd, data: data}
	}

	link.discardQueued(outbox)

	if len(outbox) != 0 {
		t.Errorf("expected outbox drained, %d left", len(outbox))
	}

	var kinds []protocol.CommandKind
	for len(kinds) < 2 {
		select {
		case e := <-events:
			d, ok := e.Data.(CommandData)
			if e.Type != EventCommand || !ok {
				t.Fatalf("unexpected event %s", e.Type)
			}
			if !errors.Is(d.Err, ErrDisconnected) {
				t.Errorf("%s: expected ErrDisconnected, got %v", d.Command.Kind, d.Err)
			}
			kinds = append(kinds, d.Command.Kind)
		case <-time.After(time.Second):
			t.Fatalf("expected 2 command events, got %d", len(kinds))
		}
	}
	if kinds[0] != protocol.CommandSpawn || kinds[1] != protocol.CommandPurge {
		t.Errorf("unexpected order %v", kinds)
	}

	// Empty outbox is a no-op.
	link.discardQueued(outbox)
	select {
	case e := <-events:
		t.Errorf("unexpected event %s", e.Type)
	default:
	}
}
