package server

import "testing"

func unicastTestStrategy(speed float64, maxHops int) StrategyConfig {
	return StrategyConfig{Kind: "unicast", Size: 6, Speed: speed, MaxHops: maxHops}
}

func TestCreatePacketRejectsWhenNoRoute(t *testing.T) {
	metrics := newCountingMetrics()
	w := NewWorld(emptyNetworkConfig(), WorldDeps{Metrics: metrics})
	a := addTestNode(w, "client-a", NodeClient, 0, 0, 50, 12)
	b := addTestNode(w, "client-b", NodeClient, 500, 0, 50, 12)

	if pkt := w.createPacket(a, b, StrategyDirect, unicastTestStrategy(50, 5)); pkt != nil {
		t.Fatalf("expected nil packet for unreachable target")
	}
	if metrics.routesFailed != 1 {
		t.Fatalf("expected 1 failed route, got %d", metrics.routesFailed)
	}
	if metrics.rejected[rejectReasonNoRoute] != 1 {
		t.Fatalf("expected 1 no-route rejection, got %d", metrics.rejected[rejectReasonNoRoute])
	}
	if metrics.sent != 0 {
		t.Fatalf("expected no packets sent, got %d", metrics.sent)
	}
}

func TestCreatePacketRejectsOverHopLimit(t *testing.T) {
	metrics := newCountingMetrics()
	w := NewWorld(emptyNetworkConfig(), WorldDeps{Metrics: metrics})
	a := addTestNode(w, "client-a", NodeClient, 0, 0, 120, 12)
	addTestNode(w, "repeater-1", NodeRepeater, 100, 0, 120, 14)
	b := addTestNode(w, "client-b", NodeClient, 200, 0, 120, 12)

	if pkt := w.createPacket(a, b, StrategyDirect, unicastTestStrategy(50, 1)); pkt != nil {
		t.Fatalf("expected nil packet for route over hop budget")
	}
	if metrics.rejected[rejectReasonHopLimit] != 1 {
		t.Fatalf("expected 1 hop-limit rejection, got %d", metrics.rejected[rejectReasonHopLimit])
	}
	if metrics.routesFailed != 0 {
		t.Fatalf("route discovery succeeded, expected no failed-route count, got %d", metrics.routesFailed)
	}
}

func TestPacketDirectDeliveryAndFade(t *testing.T) {
	metrics := newCountingMetrics()
	w := NewWorld(emptyNetworkConfig(), WorldDeps{Metrics: metrics})
	a := addTestNode(w, "client-a", NodeClient, 0, 0, 150, 12)
	b := addTestNode(w, "client-b", NodeClient, 100, 0, 150, 12)

	pkt := w.createPacket(a, b, StrategyDirect, unicastTestStrategy(25, 5))
	if pkt == nil {
		t.Fatalf("expected packet for in-range pair")
	}
	if metrics.sent != 1 {
		t.Fatalf("expected 1 packet sent, got %d", metrics.sent)
	}
	if pkt.X != a.X || pkt.Y != a.Y {
		t.Fatalf("expected packet to start at source, got (%v,%v)", pkt.X, pkt.Y)
	}

	// 100 units at 25 units/sec with dt=1 crosses in exactly 4 steps.
	for step := 1; step <= 3; step++ {
		w.Step(uint64(step), 1)
		if pkt.Delivered {
			t.Fatalf("packet delivered early at step %d", step)
		}
	}
	if pkt.X != 75 {
		t.Fatalf("expected x=75 after 3 steps, got %v", pkt.X)
	}

	w.Step(4, 1)
	if !pkt.Delivered {
		t.Fatalf("expected delivery on step 4")
	}
	if pkt.X != b.X || pkt.Y != b.Y {
		t.Fatalf("expected delivered packet snapped to target, got (%v,%v)", pkt.X, pkt.Y)
	}
	if metrics.delivered != 1 {
		t.Fatalf("expected 1 delivery, got %d", metrics.delivered)
	}

	// A full second of fade exceeds the fade window; the packet retires.
	w.Step(5, 1)
	if len(w.packets) != 0 {
		t.Fatalf("expected packet retired after fade, %d still active", len(w.packets))
	}
	if w.packetPool.FreeLen() != 1 {
		t.Fatalf("expected retired packet parked in pool, free list has %d", w.packetPool.FreeLen())
	}
	if w.trailPool.FreeLen() != 1 {
		t.Fatalf("expected exactly one trail returned to pool, free list has %d", w.trailPool.FreeLen())
	}
}

func TestPacketHopSnapRecyclesTrail(t *testing.T) {
	w := newEmptyTestWorld()
	a := addTestNode(w, "client-a", NodeClient, 0, 0, 120, 12)
	r := addTestNode(w, "repeater-1", NodeRepeater, 100, 0, 120, 14)
	b := addTestNode(w, "client-b", NodeClient, 200, 0, 120, 12)

	pkt := w.createPacket(a, b, StrategyDirect, unicastTestStrategy(50, 5))
	if pkt == nil {
		t.Fatalf("expected relay route packet")
	}
	if got := len(pkt.Route()); got != 3 {
		t.Fatalf("expected 3-hop route through repeater, got %d hops", got)
	}

	w.Step(1, 1)
	if pkt.Trail().Len() != 1 {
		t.Fatalf("expected one trail sample after first step, got %d", pkt.Trail().Len())
	}

	// Second step closes the 100-unit leg; the trail restarts for the new leg.
	w.Step(2, 1)
	if pkt.HopIndex() != 1 {
		t.Fatalf("expected hop index 1 after reaching repeater, got %d", pkt.HopIndex())
	}
	if pkt.X != r.X || pkt.Y != r.Y {
		t.Fatalf("expected packet snapped to repeater, got (%v,%v)", pkt.X, pkt.Y)
	}
	if pkt.Trail().Len() != 0 {
		t.Fatalf("expected trail recycled at hop, got %d samples", pkt.Trail().Len())
	}
	if pkt.Delivered {
		t.Fatalf("intermediate hop must not deliver")
	}

	w.Step(3, 1)
	w.Step(4, 1)
	if !pkt.Delivered {
		t.Fatalf("expected delivery after final leg")
	}
	if pkt.X != b.X {
		t.Fatalf("expected packet at target, got x=%v", pkt.X)
	}
}

func TestPacketPoolReusesRetiredInstance(t *testing.T) {
	w := newEmptyTestWorld()
	a := addTestNode(w, "client-a", NodeClient, 0, 0, 150, 12)
	b := addTestNode(w, "client-b", NodeClient, 100, 0, 150, 12)

	first := w.createPacket(a, b, StrategyDirect, unicastTestStrategy(200, 5))
	w.Step(1, 1) // delivers in one step
	w.Step(2, 1) // fades out
	if len(w.packets) != 0 {
		t.Fatalf("expected first packet retired, %d active", len(w.packets))
	}

	second := w.createPacket(a, b, StrategyDirect, unicastTestStrategy(200, 5))
	if second != first {
		t.Fatalf("expected pooled packet instance to be reused")
	}
	if second.Delivered || second.FadeProgress != 0 || second.HopIndex() != 0 {
		t.Fatalf("expected reused packet fully reset, got delivered=%v fade=%v hop=%d",
			second.Delivered, second.FadeProgress, second.HopIndex())
	}
	if second.ID != "packet-2" {
		t.Fatalf("expected reused packet to carry a fresh id, got %q", second.ID)
	}
}

func TestPacketResetReleasesTrailOnce(t *testing.T) {
	trails := NewPool(func() *Trail { return newTrail() })
	pkt := &Packet{trails: trails, trail: trails.Acquire()}

	pkt.Reset()
	if trails.FreeLen() != 1 {
		t.Fatalf("expected trail released on reset, free list has %d", trails.FreeLen())
	}

	pkt.Reset()
	if trails.FreeLen() != 1 {
		t.Fatalf("expected second reset to release nothing, free list has %d", trails.FreeLen())
	}
}
