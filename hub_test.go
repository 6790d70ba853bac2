package server

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func newTestHub() *Hub {
	return NewHub(DefaultConfig(), HubDeps{})
}

func TestHubJoinReturnsSnapshot(t *testing.T) {
	hub := newTestHub()
	resp := hub.Join()

	if resp.Ver != ProtocolVersion {
		t.Fatalf("expected protocol version %d, got %d", ProtocolVersion, resp.Ver)
	}
	if !strings.HasPrefix(resp.ID, "viewer-") {
		t.Fatalf("expected viewer id prefix, got %q", resp.ID)
	}
	if len(resp.Nodes) == 0 {
		t.Fatalf("expected join snapshot to carry the node layout")
	}
	if resp.Config.TickRate != hub.TickRate() {
		t.Fatalf("expected config tick rate %d in join response, got %d", hub.TickRate(), resp.Config.TickRate)
	}
}

func TestHubJoinAssignsUniqueIDs(t *testing.T) {
	hub := newTestHub()
	first := hub.Join()
	second := hub.Join()
	if first.ID == second.ID {
		t.Fatalf("expected unique viewer ids, both got %q", first.ID)
	}
}

func TestHubHeartbeatUpdatesRTT(t *testing.T) {
	hub := newTestHub()
	resp := hub.Join()

	received := time.Now()
	sent := received.Add(-40 * time.Millisecond).UnixMilli()
	rtt, ok := hub.UpdateHeartbeat(resp.ID, received, sent)
	if !ok {
		t.Fatalf("expected heartbeat accepted for a known viewer")
	}
	if rtt <= 0 {
		t.Fatalf("expected positive RTT, got %v", rtt)
	}

	if _, ok := hub.UpdateHeartbeat("viewer-999", received, sent); ok {
		t.Fatalf("expected heartbeat rejected for an unknown viewer")
	}
}

func TestHubAdvancePrunesStaleViewers(t *testing.T) {
	hub := newTestHub()
	resp := hub.Join()

	stale := time.Now().Add(disconnectAfter + time.Second)
	hub.advance(stale, 1.0/30.0, 1)

	hub.mu.Lock()
	_, stillThere := hub.viewers[resp.ID]
	hub.mu.Unlock()
	if stillThere {
		t.Fatalf("expected viewer pruned after missing heartbeats")
	}

	if _, ok := hub.UpdateHeartbeat(resp.ID, time.Now(), 0); ok {
		t.Fatalf("expected pruned viewer to be forgotten")
	}
}

func TestHubAdvanceSkipsMarshalWithoutSubscribers(t *testing.T) {
	hub := newTestHub()
	hub.Join()

	data, toClose := hub.advance(time.Now(), 1.0/30.0, 1)
	if data != nil {
		t.Fatalf("expected no state payload without websocket subscribers")
	}
	if len(toClose) != 0 {
		t.Fatalf("expected no pruned subscribers, got %d", len(toClose))
	}
}

func TestHubStateMessageShape(t *testing.T) {
	hub := newTestHub()
	hub.mu.Lock()
	msg := hub.stateMessageLocked()
	hub.mu.Unlock()

	if msg.Type != "state" || msg.Ver != ProtocolVersion {
		t.Fatalf("expected versioned state message, got type=%q ver=%d", msg.Type, msg.Ver)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	for _, key := range []string{"ver", "type", "t", "nodes", "serverTime"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("expected %q field in state payload", key)
		}
	}
}

func TestHubCommandsMutateWorld(t *testing.T) {
	hub := newTestHub()

	if !hub.TransmitPacket("", StrategyFlood) {
		t.Fatalf("expected flood command to succeed")
	}
	if hub.TransmitPacket("", "warp") {
		t.Fatalf("expected unknown strategy command to fail")
	}

	before := len(hub.world.Nodes())
	if !hub.AddNode("repeater") {
		t.Fatalf("expected repeater placement to succeed on the default canvas")
	}
	if len(hub.world.Nodes()) != before+1 {
		t.Fatalf("expected node count to grow by one")
	}

	hub.ResetNetwork()
	if len(hub.world.Broadcasts()) != 0 {
		t.Fatalf("expected reset to clear in-flight broadcasts")
	}
}

func TestHubDiagnosticsListsViewers(t *testing.T) {
	hub := newTestHub()
	resp := hub.Join()

	viewers := hub.DiagnosticsSnapshot()
	if len(viewers) != 1 {
		t.Fatalf("expected one diagnostics entry, got %d", len(viewers))
	}
	if viewers[0].ID != resp.ID {
		t.Fatalf("expected diagnostics entry for %q, got %q", resp.ID, viewers[0].ID)
	}
	if viewers[0].Ver != ProtocolVersion {
		t.Fatalf("expected protocol version in diagnostics entry, got %d", viewers[0].Ver)
	}
}

func TestTelemetryCountersAggregate(t *testing.T) {
	counters := newTelemetryCounters()

	counters.RecordBroadcast(100, 3)
	counters.RecordBroadcast(50, 2)
	counters.RecordTick(4 * time.Millisecond)

	snap := counters.Snapshot()
	if snap.BytesSent != 100*3+50*2 {
		t.Fatalf("expected %d bytes sent, got %d", 100*3+50*2, snap.BytesSent)
	}
	if snap.SnapshotsSent != 5 {
		t.Fatalf("expected 5 snapshots sent, got %d", snap.SnapshotsSent)
	}
	if snap.Ticks != 1 {
		t.Fatalf("expected 1 tick recorded, got %d", snap.Ticks)
	}
	if snap.TickDuration != 4 {
		t.Fatalf("expected 4ms tick duration, got %d", snap.TickDuration)
	}
	if snap.LastBroadcastBytes != 50 {
		t.Fatalf("expected last broadcast of 50 bytes, got %d", snap.LastBroadcastBytes)
	}
}
