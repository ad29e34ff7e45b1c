package core

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/xonecas/relic-console/internal/protocol"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func tick(nodes []protocol.Node, mode protocol.Mode, gossip ...protocol.Gossip) protocol.Message {
	return protocol.Message{Kind: protocol.KindTick, Nodes: nodes, Mode: mode, Gossip: gossip}
}

func gossipN(start, n int) []protocol.Gossip {
	out := make([]protocol.Gossip, n)
	for i := range out {
		out[i] = protocol.Gossip{
			ID:   protocol.StringID(fmt.Sprintf("g%d", start+i)),
			Node: "Relic-0",
			Msg:  fmt.Sprintf("msg %d", start+i),
			Time: "12:00:00",
		}
	}
	return out
}

func TestViewStateEmpty(t *testing.T) {
	v := NewViewState()

	if v.NodeCount() != 0 {
		t.Errorf("expected empty roster, got %d", v.NodeCount())
	}
	if v.Mode() != "" {
		t.Errorf("expected empty mode, got %q", v.Mode())
	}
	if len(v.Gossip()) != 0 || len(v.Events()) != 0 {
		t.Error("expected empty logs")
	}
	if v.GossipCapacity() != 50 || v.EventCapacity() != 10 {
		t.Errorf("unexpected capacities %d/%d", v.GossipCapacity(), v.EventCapacity())
	}
}

func TestViewStateTickReplacesRoster(t *testing.T) {
	v := NewViewState()

	first := []protocol.Node{
		{ID: protocol.NumberID(0), Name: "Relic-0", Vector: []float64{0.1, 0.2, 0.3, 0.4}},
		{ID: protocol.NumberID(1), Name: "Relic-1", Vector: []float64{0.5, 0.6, 0.7, 0.8}},
	}
	v.Apply(tick(first, protocol.ModeCompute))

	second := []protocol.Node{
		{ID: protocol.NumberID(2), Name: "Relic-2", Vector: []float64{0.9, 0, 0, 0}},
	}
	if !v.Apply(tick(second, protocol.ModePersona)) {
		t.Fatal("expected TICK to change state")
	}

	roster := v.Roster()
	if len(roster) != 1 || roster[0].Name != "Relic-2" {
		t.Fatalf("expected roster replaced by Relic-2, got %+v", roster)
	}
	if _, ok := v.Node(protocol.NumberID(0)); ok {
		t.Error("expected Relic-0 gone after replacement")
	}
	if v.Mode() != protocol.ModePersona {
		t.Errorf("expected PERSONA, got %s", v.Mode())
	}
}

func TestViewStateTickEmptyNodes(t *testing.T) {
	v := NewViewState()
	v.Apply(tick([]protocol.Node{{ID: protocol.NumberID(0)}}, protocol.ModeCompute))

	v.Apply(tick(nil, protocol.ModeCompute))
	if v.NodeCount() != 0 {
		t.Errorf("expected empty roster, got %d", v.NodeCount())
	}
}

func TestViewStateTickKeepsModeWhenAbsent(t *testing.T) {
	v := NewViewState()
	v.Apply(tick(nil, protocol.ModePersona))
	v.Apply(tick(nil, ""))

	if v.Mode() != protocol.ModePersona {
		t.Errorf("expected mode kept as PERSONA, got %q", v.Mode())
	}
}

func TestViewStateRosterIsolation(t *testing.T) {
	v := NewViewState()
	nodes := []protocol.Node{{ID: protocol.NumberID(0), Name: "Relic-0"}}
	v.Apply(tick(nodes, protocol.ModeCompute))

	nodes[0].Name = "mutated"
	got := v.Roster()
	got[0].Name = "also mutated"

	if n, _ := v.Node(protocol.NumberID(0)); n.Name != "Relic-0" {
		t.Errorf("roster aliased caller slice, name=%q", n.Name)
	}
}

func TestViewStateRosterDeepCopy(t *testing.T) {
	v := NewViewState()
	nodes := []protocol.Node{{
		ID:     protocol.NumberID(0),
		Name:   "Relic-0",
		Vector: []float64{0.1, 0.2, 0.3},
		Peers:  []protocol.ID{protocol.NumberID(1)},
	}}
	v.Apply(tick(nodes, protocol.ModeCompute))

	// Caller keeps writing into the decoded slices.
	nodes[0].Vector[0] = 9
	nodes[0].Peers[0] = protocol.NumberID(7)

	got := v.Roster()
	got[0].Vector[1] = 9
	got[0].Peers[0] = protocol.NumberID(8)

	n, _ := v.Node(protocol.NumberID(0))
	n.Vector[2] = 9

	stored, _ := v.Node(protocol.NumberID(0))
	if !reflect.DeepEqual(stored.Vector, []float64{0.1, 0.2, 0.3}) {
		t.Errorf("stored vector changed: %v", stored.Vector)
	}
	if !reflect.DeepEqual(stored.Peers, []protocol.ID{protocol.NumberID(1)}) {
		t.Errorf("stored peers changed: %v", stored.Peers)
	}
}

func TestViewStateGossipNewestFirst(t *testing.T) {
	v := NewViewState()

	v.Apply(tick(nil, protocol.ModeCompute, gossipN(0, 2)...))
	v.Apply(tick(nil, protocol.ModeCompute, gossipN(2, 2)...))

	got := v.Gossip()
	want := []string{"g2", "g3", "g0", "g1"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID.String() != id {
			t.Errorf("entry %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestViewStateGossipCapacity(t *testing.T) {
	v := NewViewState()

	// 51 ticks of one entry each.
	for i := 0; i < 51; i++ {
		v.Apply(tick(nil, protocol.ModeCompute, gossipN(i, 1)...))
	}

	got := v.Gossip()
	if len(got) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(got))
	}
	if got[0].ID.String() != "g50" {
		t.Errorf("expected newest g50 first, got %s", got[0].ID)
	}
	if got[49].ID.String() != "g1" {
		t.Errorf("expected g1 last (g0 evicted), got %s", got[49].ID)
	}
}

func TestViewStateGossipOversizedBatch(t *testing.T) {
	v := NewViewState()
	v.Apply(tick(nil, protocol.ModeCompute, gossipN(0, 60)...))

	got := v.Gossip()
	if len(got) != 50 {
		t.Fatalf("expected 50 entries, got %d", len(got))
	}
	if got[0].ID.String() != "g0" || got[49].ID.String() != "g49" {
		t.Errorf("expected batch head kept, got %s..%s", got[0].ID, got[49].ID)
	}
}

func TestViewStateGossipNoDedup(t *testing.T) {
	v := NewViewState()
	batch := gossipN(0, 1)
	v.Apply(tick(nil, protocol.ModeCompute, batch...))
	v.Apply(tick(nil, protocol.ModeCompute, batch...))

	if len(v.Gossip()) != 2 {
		t.Errorf("expected duplicate ids kept, got %d", len(v.Gossip()))
	}
}

func TestViewStateCustomCapacity(t *testing.T) {
	v := NewViewState(WithGossipCapacity(3), WithEventCapacity(2))
	v.Apply(tick(nil, protocol.ModeCompute, gossipN(0, 5)...))
	for i := 0; i < 4; i++ {
		v.Apply(protocol.Message{Kind: protocol.KindSysEvent, Msg: "x"})
	}

	if len(v.Gossip()) != 3 {
		t.Errorf("expected 3 gossip, got %d", len(v.Gossip()))
	}
	if len(v.Events()) != 2 {
		t.Errorf("expected 2 events, got %d", len(v.Events()))
	}

	d := NewViewState(WithGossipCapacity(0), WithEventCapacity(-1))
	if d.GossipCapacity() != 50 || d.EventCapacity() != 10 {
		t.Error("expected non-positive capacities to keep defaults")
	}
}

func TestViewStateSysEvent(t *testing.T) {
	at := time.Date(2026, 3, 4, 9, 5, 7, 0, time.Local)
	v := NewViewState(WithClock(fixedClock(at)))
	v.Apply(tick([]protocol.Node{{ID: protocol.NumberID(0)}}, protocol.ModeCompute))

	if !v.Apply(protocol.Message{Kind: protocol.KindSysEvent, Msg: "Logic Updated"}) {
		t.Fatal("expected SYS_EVENT to change state")
	}

	events := v.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if got := events[0].String(); got != "[09:05:07] Logic Updated" {
		t.Errorf("unexpected event line %q", got)
	}

	if v.NodeCount() != 1 || v.Mode() != protocol.ModeCompute {
		t.Error("expected SYS_EVENT to leave roster and mode alone")
	}
}

func TestViewStateEventCapacity(t *testing.T) {
	v := NewViewState()
	for i := 0; i < 15; i++ {
		v.Apply(protocol.Message{Kind: protocol.KindSysEvent, Msg: fmt.Sprintf("e%d", i)})
	}

	events := v.Events()
	if len(events) != 10 {
		t.Fatalf("expected 10 events, got %d", len(events))
	}
	if events[0].Msg != "e14" || events[9].Msg != "e5" {
		t.Errorf("expected e14..e5, got %s..%s", events[0].Msg, events[9].Msg)
	}
}

func TestViewStateUnknownKindIgnored(t *testing.T) {
	v := NewViewState()
	v.Apply(tick([]protocol.Node{{ID: protocol.NumberID(0)}}, protocol.ModeCompute, gossipN(0, 1)...))

	before := struct {
		roster []protocol.Node
		gossip []protocol.Gossip
		events []EventLine
		mode   protocol.Mode
	}{v.Roster(), v.Gossip(), v.Events(), v.Mode()}

	if v.Apply(protocol.Message{Kind: "HEARTBEAT"}) {
		t.Error("expected unknown kind to report no change")
	}

	if !reflect.DeepEqual(before.roster, v.Roster()) ||
		!reflect.DeepEqual(before.gossip, v.Gossip()) ||
		!reflect.DeepEqual(before.events, v.Events()) ||
		before.mode != v.Mode() {
		t.Error("expected state unchanged by unknown kind")
	}
}

func TestViewStateTickIdempotentWithoutGossip(t *testing.T) {
	v := NewViewState()
	msg := tick([]protocol.Node{{ID: protocol.NumberID(3), Name: "Relic-3", Vector: []float64{1, 2}}}, protocol.ModeCompute)

	v.Apply(msg)
	first := v.Roster()
	v.Apply(msg)

	if !reflect.DeepEqual(first, v.Roster()) {
		t.Error("expected repeated TICK to give the same roster")
	}
	if len(v.Gossip()) != 0 {
		t.Error("expected no gossip")
	}
}

func TestViewStateLegacyRoster(t *testing.T) {
	v := NewViewState()
	v.Apply(tick(nil, protocol.ModePersona, gossipN(0, 1)...))

	v.Apply(protocol.Message{
		Kind:  protocol.KindRoster,
		Nodes: []protocol.Node{{ID: protocol.StringID("n1"), Name: "Relic-A"}},
	})

	if _, ok := v.Node(protocol.StringID("n1")); !ok {
		t.Error("expected roster from legacy frame")
	}
	if v.Mode() != protocol.ModePersona {
		t.Error("expected legacy roster to keep mode")
	}
	if len(v.Gossip()) != 1 {
		t.Error("expected legacy roster to keep gossip")
	}
}

func TestEventLineString(t *testing.T) {
	line := EventLine{At: time.Date(2026, 1, 1, 23, 59, 1, 0, time.Local), Msg: "New Node Spawned"}
	if got := line.String(); got != "[23:59:01] New Node Spawned" {
		t.Errorf("got %q", got)
	}
}
