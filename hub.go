package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"packetmesh/server/internal/logging"
)

// HubMetrics receives transport-side gauges; satisfied by the observability
// collector.
type HubMetrics interface {
	SetSubscriberCount(count int)
	ObserveTickDuration(seconds float64)
}

type nopHubMetrics struct{}

func (nopHubMetrics) SetSubscriberCount(int)      {}
func (nopHubMetrics) ObserveTickDuration(float64) {}

// HubDeps bundles the hub's injected dependencies.
type HubDeps struct {
	Logger       logging.Logger
	WorldMetrics MetricsRecorder
	HubMetrics   HubMetrics
}

// Hub owns the authoritative world, all live viewers, and the simulation
// loop. Every engine mutation happens under its mutex, so the world itself
// needs no locking discipline.
type Hub struct {
	mu      sync.Mutex
	world   *World
	viewers map[string]*viewerState

	subscribers map[string]*subscriber
	nextID      atomic.Uint64

	logger    logging.Logger
	metrics   HubMetrics
	telemetry *telemetryCounters
}

type viewerState struct {
	id            string
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) writeMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// NewHub creates a hub around a freshly laid-out world.
func NewHub(cfg Config, deps HubDeps) *Hub {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Noop()
	}
	metrics := deps.HubMetrics
	if metrics == nil {
		metrics = nopHubMetrics{}
	}

	return &Hub{
		world: NewWorld(cfg, WorldDeps{
			Logger:  logger,
			Metrics: deps.WorldMetrics,
		}),
		viewers:     make(map[string]*viewerState),
		subscribers: make(map[string]*subscriber),
		logger:      logger,
		metrics:     metrics,
		telemetry:   newTelemetryCounters(),
	}
}

// Join registers a new viewer and returns the current snapshot.
func (h *Hub) Join() joinResponse {
	id := h.nextID.Add(1)
	viewerID := fmt.Sprintf("viewer-%d", id)

	h.mu.Lock()
	h.viewers[viewerID] = &viewerState{id: viewerID, lastHeartbeat: time.Now()}
	nodes, packets, broadcasts := h.world.Snapshot()
	cfg := h.world.Config()
	h.mu.Unlock()

	return joinResponse{
		Ver:        ProtocolVersion,
		ID:         viewerID,
		Nodes:      nodes,
		Packets:    packets,
		Broadcasts: broadcasts,
		Config:     cfg,
	}
}

// Subscribe associates a websocket connection with an existing viewer.
func (h *Hub) Subscribe(viewerID string, conn *websocket.Conn) (*subscriber, []byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	viewer, ok := h.viewers[viewerID]
	if !ok {
		return nil, nil, false
	}
	viewer.lastHeartbeat = time.Now()

	if existing, ok := h.subscribers[viewerID]; ok {
		existing.conn.Close()
	}
	sub := &subscriber{conn: conn}
	h.subscribers[viewerID] = sub
	h.metrics.SetSubscriberCount(len(h.subscribers))

	data, err := json.Marshal(h.stateMessageLocked())
	if err != nil {
		h.logger.Error(context.Background(), "marshal initial state",
			logging.Any("error", err))
		return sub, nil, true
	}
	return sub, data, true
}

// Disconnect removes a viewer and closes any active subscriber connection.
func (h *Hub) Disconnect(viewerID string) {
	h.mu.Lock()
	sub, subOK := h.subscribers[viewerID]
	if subOK {
		delete(h.subscribers, viewerID)
	}
	delete(h.viewers, viewerID)
	h.metrics.SetSubscriberCount(len(h.subscribers))
	h.mu.Unlock()

	if subOK {
		sub.conn.Close()
	}
}

// UpdateHeartbeat records the most recent heartbeat time and RTT for a viewer.
func (h *Hub) UpdateHeartbeat(viewerID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	viewer, ok := h.viewers[viewerID]
	if !ok {
		return 0, false
	}
	viewer.lastHeartbeat = receivedAt

	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			viewer.lastRTT = rtt
		}
	}
	return viewer.lastRTT, true
}

// TransmitPacket triggers a transmission on behalf of the UI.
func (h *Hub) TransmitPacket(nodeID, strategy string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.world.TransmitPacket(nodeID, strategy)
}

// AddNode places one node of the given type, if space allows.
func (h *Hub) AddNode(nodeType string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.world.AddNode(nodeType) != nil
}

// ResetNetwork clears and relays out the entire simulation.
func (h *Hub) ResetNetwork() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.world.Reset()
}

// advance runs a single simulation step and returns the marshaled snapshot
// plus subscribers dropped for heartbeat timeouts.
func (h *Hub) advance(now time.Time, dt float64, tick uint64) ([]byte, []*subscriber) {
	h.mu.Lock()

	toClose := make([]*subscriber, 0)
	for id, viewer := range h.viewers {
		if viewer.lastHeartbeat.IsZero() || now.Sub(viewer.lastHeartbeat) <= disconnectAfter {
			continue
		}
		if sub, ok := h.subscribers[id]; ok {
			toClose = append(toClose, sub)
			delete(h.subscribers, id)
		}
		delete(h.viewers, id)
		h.logger.Info(context.Background(), "viewer heartbeat timeout",
			logging.String("viewer", id))
	}
	h.metrics.SetSubscriberCount(len(h.subscribers))

	h.world.Step(tick, dt)

	var data []byte
	if len(h.subscribers) > 0 {
		var err error
		data, err = json.Marshal(h.stateMessageLocked())
		if err != nil {
			h.logger.Error(context.Background(), "marshal state message",
				logging.Any("error", err))
			data = nil
		}
	}
	h.mu.Unlock()

	return data, toClose
}

func (h *Hub) stateMessageLocked() stateMessage {
	nodes, packets, broadcasts := h.world.Snapshot()
	return stateMessage{
		Ver:        ProtocolVersion,
		Type:       "state",
		Tick:       h.world.currentTick,
		Nodes:      nodes,
		Packets:    packets,
		Broadcasts: broadcasts,
		ServerTime: time.Now().UnixMilli(),
	}
}

// RunSimulation drives the fixed-rate tick loop until the stop channel
// closes. The loop owns delta computation and clamping; the world only ever
// sees a sanitized dt.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	tickRate := h.world.Config().TickRate
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	budget := 1.0 / float64(tickRate)
	maxDt := budget * 4
	last := time.Now()
	var tick uint64

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = budget
			} else if dt > maxDt {
				dt = maxDt
			}
			last = now
			tick++

			start := time.Now()
			data, toClose := h.advance(now, dt, tick)
			elapsed := time.Since(start)
			h.telemetry.RecordTick(elapsed)
			h.metrics.ObserveTickDuration(elapsed.Seconds())

			for _, sub := range toClose {
				sub.conn.Close()
			}
			if data != nil {
				h.broadcastState(data)
			}
		}
	}
}

// RunAutonomousTraffic emits background bursts of transmissions with jittered
// spacing until the stop channel closes. Sends within a burst are staggered
// so packets leave a little apart instead of as one clump.
func (h *Hub) RunAutonomousTraffic(stop <-chan struct{}) {
	cfg := h.world.Config().Autonomous
	if !cfg.Enabled {
		return
	}
	rng := h.world.subsystemRNG("traffic.schedule")
	stagger := time.Duration(cfg.StaggerMillis) * time.Millisecond

	for {
		interval := randomBetween(rng, cfg.MinIntervalSec, cfg.MaxIntervalSec)
		timer := time.NewTimer(time.Duration(interval * float64(time.Second)))
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		for i := 0; i < cfg.BatchSize; i++ {
			strategy := StrategyDirect
			if rng.Float64() < cfg.FloodChance {
				strategy = StrategyFlood
			}
			h.TransmitPacket("", strategy)

			if i < cfg.BatchSize-1 {
				select {
				case <-stop:
					return
				case <-time.After(stagger):
				}
			}
		}
	}
}

// DiagnosticsSnapshot exposes heartbeat data for the diagnostics endpoint.
func (h *Hub) DiagnosticsSnapshot() []diagnosticsViewer {
	h.mu.Lock()
	defer h.mu.Unlock()

	viewers := make([]diagnosticsViewer, 0, len(h.viewers))
	for _, viewer := range h.viewers {
		viewers = append(viewers, diagnosticsViewer{
			Ver:           ProtocolVersion,
			ID:            viewer.id,
			LastHeartbeat: viewer.lastHeartbeat.UnixMilli(),
			RTTMillis:     viewer.lastRTT.Milliseconds(),
		})
	}
	return viewers
}

// TelemetrySnapshot exposes tick/broadcast counters for diagnostics.
func (h *Hub) TelemetrySnapshot() telemetrySnapshot {
	return h.telemetry.Snapshot()
}

// TickRate reports the configured tick frequency.
func (h *Hub) TickRate() int {
	return h.world.Config().TickRate
}

// Seed reports the deterministic seed behind the current session.
func (h *Hub) Seed() string {
	return h.world.Seed()
}

// broadcastState sends the latest snapshot to every subscriber.
func (h *Hub) broadcastState(data []byte) {
	h.mu.Lock()
	subs := make(map[string]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	h.telemetry.RecordBroadcast(len(data), len(subs))

	for id, sub := range subs {
		if err := sub.writeMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warn(context.Background(), "send failed, dropping viewer",
				logging.String("viewer", id),
				logging.Any("error", err))
			h.Disconnect(id)
		}
	}
}
