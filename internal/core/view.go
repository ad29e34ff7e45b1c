package core

import (
	"slices"
	"time"

	"github.com/xonecas/relic-console/internal/constants"
	"github.com/xonecas/relic-console/internal/protocol"
)

// EventLine is a system event with the time the console received it.
type EventLine struct {
	At  time.Time
	Msg string
}

// String renders the line as "[HH:MM:SS] msg" in local time.
func (l EventLine) String() string {
	return "[" + l.At.Local().Format(constants.EventLineTimeFormat) + "] " + l.Msg
}

// ViewState is the console's mirror of the gateway: roster, mode, and the two
// bounded logs. It is a reducer over inbound frames and has a single writer
// (the UI update loop), so it does no locking.
type ViewState struct {
	roster []protocol.Node
	mode   protocol.Mode
	gossip []protocol.Gossip
	events []EventLine

	gossipCap int
	eventCap  int
	now       func() time.Time
}

// ViewOption configures a ViewState.
type ViewOption func(*ViewState)

// WithGossipCapacity bounds the gossip log. Non-positive values keep the default.
func WithGossipCapacity(n int) ViewOption {
	return func(v *ViewState) {
		if n > 0 {
			v.gossipCap = n
		}
	}
}

// WithEventCapacity bounds the event log. Non-positive values keep the default.
func WithEventCapacity(n int) ViewOption {
	return func(v *ViewState) {
		if n > 0 {
			v.eventCap = n
		}
	}
}

// WithClock sets the clock used to stamp system events.
func WithClock(now func() time.Time) ViewOption {
	return func(v *ViewState) {
		if now != nil {
			v.now = now
		}
	}
}

// NewViewState creates an empty view state.
func NewViewState(opts ...ViewOption) *ViewState {
	v := &ViewState{
		gossipCap: constants.GossipLogCapacity,
		eventCap:  constants.EventLogCapacity,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Apply folds one inbound message into the state and reports whether it
// changed anything. Unknown kinds are ignored.
func (v *ViewState) Apply(msg protocol.Message) bool {
	switch msg.Kind {
	case protocol.KindTick:
		v.roster = copyNodes(msg.Nodes)
		if msg.Mode != "" {
			v.mode = msg.Mode
		}
		if len(msg.Gossip) > 0 {
			v.gossip = prependBounded(msg.Gossip, v.gossip, v.gossipCap)
		}
		return true

	case protocol.KindRoster:
		v.roster = copyNodes(msg.Nodes)
		return true

	case protocol.KindSysEvent:
		line := EventLine{At: v.now(), Msg: msg.Msg}
		v.events = prependBounded([]EventLine{line}, v.events, v.eventCap)
		return true

	default:
		return false
	}
}

// Roster returns the latest node snapshot.
func (v *ViewState) Roster() []protocol.Node {
	return copyNodes(v.roster)
}

// NodeCount returns the roster size.
func (v *ViewState) NodeCount() int {
	return len(v.roster)
}

// Node looks up a node by id in the current roster.
func (v *ViewState) Node(id protocol.ID) (protocol.Node, bool) {
	for _, n := range v.roster {
		if n.ID == id {
			return cloneNode(n), true
		}
	}
	return protocol.Node{}, false
}

// Mode returns the last mode the gateway reported.
func (v *ViewState) Mode() protocol.Mode {
	return v.mode
}

// Gossip returns the gossip log, newest first.
func (v *ViewState) Gossip() []protocol.Gossip {
	out := make([]protocol.Gossip, len(v.gossip))
	copy(out, v.gossip)
	return out
}

// Events returns the system event log, newest first.
func (v *ViewState) Events() []EventLine {
	out := make([]EventLine, len(v.events))
	copy(out, v.events)
	return out
}

// GossipCapacity returns the gossip log bound.
func (v *ViewState) GossipCapacity() int {
	return v.gossipCap
}

// EventCapacity returns the event log bound.
func (v *ViewState) EventCapacity() int {
	return v.eventCap
}

// prependBounded puts batch (in its own order) ahead of log and cuts the tail
// at capacity.
func prependBounded[T any](batch, log []T, capacity int) []T {
	n := len(batch) + len(log)
	if n > capacity {
		n = capacity
	}
	out := make([]T, 0, n)
	out = append(out, batch...)
	out = append(out, log...)
	if len(out) > capacity {
		out = out[:capacity]
	}
	return out
}

// copyNodes deep-copies a roster so neither the decoder's slices nor a
// caller's copy can reach the stored vectors and peer lists.
func copyNodes(nodes []protocol.Node) []protocol.Node {
	out := make([]protocol.Node, len(nodes))
	for i, n := range nodes {
		out[i] = cloneNode(n)
	}
	return out
}

func cloneNode(n protocol.Node) protocol.Node {
	n.Vector = slices.Clone(n.Vector)
	n.Peers = slices.Clone(n.Peers)
	return n
}
