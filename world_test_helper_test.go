package server

// Test worlds start with an empty canvas so each scenario can place nodes at
// exact coordinates instead of fighting the seeded layout.

func emptyNetworkConfig() Config {
	return Config{
		Seed: "test",
		NodeTypes: map[string]NodeTypeConfig{
			string(NodeClient):   {Count: 0, Size: 10, Hitbox: 12, Range: 170},
			string(NodeRepeater): {Count: 0, Size: 13, Hitbox: 14, Range: 240},
		},
	}
}

func newTestWorld(cfg Config) *World {
	return NewWorld(cfg, WorldDeps{})
}

func newEmptyTestWorld() *World {
	return newTestWorld(emptyNetworkConfig())
}

// addTestNode places a node at an exact position and relinks the neighbor
// sets, bypassing the layout spacing rules.
func addTestNode(w *World, id string, nodeType NodeType, x, y, txRange, hitbox float64) *Node {
	node := &Node{
		ID:     id,
		Type:   nodeType,
		X:      x,
		Y:      y,
		Size:   10,
		Hitbox: hitbox,
		Range:  txRange,
	}
	w.nodes = append(w.nodes, node)
	w.nodesByID[node.ID] = node
	w.computeNeighbors()
	return node
}

func routeIDs(route []RouteHop) []string {
	ids := make([]string, 0, len(route))
	for _, hop := range route {
		ids = append(ids, hop.ID)
	}
	return ids
}

// countingMetrics records engine counters for assertions.
type countingMetrics struct {
	sent         int
	delivered    int
	rejected     map[string]int
	routesFailed int
	broadcasts   int
	rebroadcasts int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{rejected: make(map[string]int)}
}

func (m *countingMetrics) RecordPacketSent(string)          { m.sent++ }
func (m *countingMetrics) RecordPacketDelivered()           { m.delivered++ }
func (m *countingMetrics) RecordPacketRejected(reason string) { m.rejected[reason]++ }
func (m *countingMetrics) RecordRouteFailed()               { m.routesFailed++ }
func (m *countingMetrics) RecordBroadcast(rebroadcast bool) {
	m.broadcasts++
	if rebroadcast {
		m.rebroadcasts++
	}
}
func (m *countingMetrics) SetEntityCounts(int, int, int) {}
