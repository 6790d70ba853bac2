package server

import (
	"context"
	"math/rand"

	"packetmesh/server/internal/logging"
)

// MetricsRecorder receives engine-side counters; satisfied by the
// observability collector and by nopMetrics in tests.
type MetricsRecorder interface {
	RecordPacketSent(strategy string)
	RecordPacketDelivered()
	RecordPacketRejected(reason string)
	RecordRouteFailed()
	RecordBroadcast(rebroadcast bool)
	SetEntityCounts(nodes, packets, broadcasts int)
}

type nopMetrics struct{}

func (nopMetrics) RecordPacketSent(string)     {}
func (nopMetrics) RecordPacketDelivered()      {}
func (nopMetrics) RecordPacketRejected(string) {}
func (nopMetrics) RecordRouteFailed()          {}
func (nopMetrics) RecordBroadcast(bool)        {}
func (nopMetrics) SetEntityCounts(int, int, int) {}

// WorldDeps bundles runtime dependencies injected into a World.
type WorldDeps struct {
	Logger  logging.Logger
	Metrics MetricsRecorder
	// RNG overrides the deterministic per-subsystem factory when set.
	RNG func(rootSeed, label string) *rand.Rand
}

// World owns the authoritative simulation state: the node set, in-flight
// packets and wavefronts, their pools, and the flood seen-set. All mutation
// happens under the hub mutex; nothing here is safe for concurrent use.
type World struct {
	config Config
	seed   string
	logger logging.Logger

	rngFactory func(rootSeed, label string) *rand.Rand
	layoutRNG  *rand.Rand
	trafficRNG *rand.Rand

	nodes     []*Node
	nodesByID map[string]*Node

	packets    []*Packet
	broadcasts []*Broadcast
	seen       map[string]map[string]struct{}

	packetPool    *Pool[*Packet]
	trailPool     *Pool[*Trail]
	broadcastPool *Pool[*Broadcast]

	metrics MetricsRecorder

	currentTick  uint64
	elapsed      float64
	nextNodeID   map[NodeType]uint64
	nextPacketID uint64
	nextBroadcastID uint64
}

// NewWorld constructs a world with normalized configuration, seeded RNG
// streams, and the initial node layout placed and linked.
func NewWorld(cfg Config, deps WorldDeps) *World {
	normalized := cfg.normalized()

	logger := deps.Logger
	if logger == nil {
		logger = logging.Noop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	factory := deps.RNG
	if factory == nil {
		factory = newDeterministicRNG
	}

	w := &World{
		config:     normalized,
		seed:       normalized.Seed,
		logger:     logger,
		rngFactory: factory,
		nodesByID:  make(map[string]*Node),
		seen:       make(map[string]map[string]struct{}),
		metrics:    metrics,
		nextNodeID: make(map[NodeType]uint64),
		packetPool: NewPool(func() *Packet { return &Packet{} }),
		trailPool:  NewPool(func() *Trail { return newTrail() }),
		broadcastPool: NewPool(func() *Broadcast { return &Broadcast{} }),
	}
	w.layoutRNG = factory(w.seed, "layout")
	w.trafficRNG = factory(w.seed, "traffic")

	w.layoutNodes()
	w.computeNeighbors()
	w.reportEntityCounts()
	return w
}

// Config returns the normalized configuration captured at construction time.
func (w *World) Config() Config { return w.config }

// Seed reports the deterministic seed behind every RNG stream.
func (w *World) Seed() string { return w.seed }

// Nodes exposes the live node list; callers must not mutate it.
func (w *World) Nodes() []*Node { return w.nodes }

// NodeByID looks up a node by id.
func (w *World) NodeByID(id string) (*Node, bool) {
	n, ok := w.nodesByID[id]
	return n, ok
}

// Packets exposes the active unicast packets.
func (w *World) Packets() []*Packet { return w.packets }

// Broadcasts exposes the active flood wavefronts.
func (w *World) Broadcasts() []*Broadcast { return w.broadcasts }

// Step advances every lifecycle by dt seconds. The caller owns delta
// clamping and rate limiting; dt ≤ 0 is normalized to one nominal tick.
func (w *World) Step(tick uint64, dt float64) {
	if dt <= 0 {
		dt = 1.0 / float64(w.config.TickRate)
	}
	w.currentTick = tick
	w.elapsed += dt

	w.advancePackets(dt)
	w.advanceBroadcasts(dt)
	w.reportEntityCounts()
}

// TransmitPacket starts a transmission from the named node, or from a random
// client when nodeID is empty. Unknown strategies and node ids log a warning
// and mutate nothing. Returns false when nothing was transmitted.
func (w *World) TransmitPacket(nodeID, strategy string) bool {
	cfg, ok := w.config.Strategies[strategy]
	if !ok {
		w.logger.Warn(context.Background(), "unknown routing strategy",
			logging.String("strategy", strategy))
		return false
	}

	var source *Node
	if nodeID != "" {
		source, ok = w.nodesByID[nodeID]
		if !ok {
			w.logger.Warn(context.Background(), "transmit from unknown node",
				logging.String("node", nodeID))
			return false
		}
	} else {
		source = w.randomClient()
		if source == nil {
			return false
		}
	}

	switch cfg.Kind {
	case "flood":
		w.createBroadcast(source, "", cfg)
		return true
	case "unicast":
		return w.transmitUnicast(source, strategy, cfg) != nil
	default:
		w.logger.Warn(context.Background(), "unknown strategy kind",
			logging.String("strategy", strategy),
			logging.String("kind", cfg.Kind))
		return false
	}
}

// AddNode places one node of the given type, honoring minimum spacing within
// the placement retry budget. Silently a no-op when space cannot be found;
// an unknown type logs a warning.
func (w *World) AddNode(rawType string) *Node {
	nodeType, ok := parseNodeType(rawType)
	if !ok {
		w.logger.Warn(context.Background(), "unknown node type",
			logging.String("type", rawType))
		return nil
	}
	cfg, ok := w.config.NodeTypes[string(nodeType)]
	if !ok {
		w.logger.Warn(context.Background(), "node type missing from config",
			logging.String("type", rawType))
		return nil
	}

	node := w.placeRandomNode(nodeType, cfg)
	if node == nil {
		w.logger.Debug(context.Background(), "placement exhausted, node not added",
			logging.String("type", rawType),
			logging.Int("attempts", w.config.PlacementAttempts))
		return nil
	}
	w.computeNeighbors()
	w.reportEntityCounts()
	return node
}

// Reset tears down the whole simulation: active collections are cleared, the
// pools drop their free lists wholesale (no per-object reset), the seen-set
// empties, and a fresh layout is generated from the same seed streams.
func (w *World) Reset() {
	w.packets = nil
	w.broadcasts = nil
	w.packetPool.Clear()
	w.trailPool.Clear()
	w.broadcastPool.Clear()
	w.seen = make(map[string]map[string]struct{})

	w.nodes = nil
	w.nodesByID = make(map[string]*Node)
	w.nextNodeID = make(map[NodeType]uint64)
	w.elapsed = 0

	w.layoutNodes()
	w.computeNeighbors()
	w.reportEntityCounts()
	w.logger.Info(context.Background(), "network reset",
		logging.Int("nodes", len(w.nodes)))
}

func (w *World) randomClient() *Node {
	clients := make([]*Node, 0, len(w.nodes))
	for _, n := range w.nodes {
		if n.Type == NodeClient {
			clients = append(clients, n)
		}
	}
	if len(clients) == 0 {
		return nil
	}
	return clients[w.trafficRNG.Intn(len(clients))]
}

func (w *World) reportEntityCounts() {
	w.metrics.SetEntityCounts(len(w.nodes), len(w.packets), len(w.broadcasts))
}
