package server

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Broadcast is one flood wavefront: a circle expanding from a fixed center
// until its radius reaches the source node's transmission range. Wavefronts
// spawned by relay rebroadcasts share the originating FloodID.
type Broadcast struct {
	ID       string
	FloodID  string
	SourceID string
	X        float64
	Y        float64
	Radius   float64
	Range    float64
	Opacity  float64

	speed      float64
	maxOpacity float64
}

// Reset clears all instance fields.
func (b *Broadcast) Reset() {
	*b = Broadcast{}
}

// createBroadcast acquires a wavefront centered on the source node. An empty
// floodID starts a new flood group; relays pass the originating id through.
// The source is marked seen immediately so its own wavefront cannot
// re-trigger it.
func (w *World) createBroadcast(source *Node, floodID string, cfg StrategyConfig) *Broadcast {
	rebroadcast := floodID != ""
	if floodID == "" {
		floodID = uuid.NewString()
	}

	w.nextBroadcastID++
	b := w.broadcastPool.Acquire()
	b.ID = fmt.Sprintf("broadcast-%d", w.nextBroadcastID)
	b.FloodID = floodID
	b.SourceID = source.ID
	b.X = source.X
	b.Y = source.Y
	b.Radius = 0
	b.Range = source.Range
	b.Opacity = cfg.FadeOpacity
	b.speed = cfg.Speed
	b.maxOpacity = cfg.FadeOpacity

	w.markSeen(floodID, source.ID)
	w.broadcasts = append(w.broadcasts, b)
	w.metrics.RecordBroadcast(rebroadcast)
	return b
}

// advanceBroadcasts expands every wavefront, sweeps it past the source's
// neighbors, and retires it at full range. Iteration runs in reverse over the
// live slice: splice-removal is safe, and wavefronts spawned by a relay this
// tick land at higher indices, so a child is first advanced on the next tick,
// never retroactively within the tick that spawned it.
func (w *World) advanceBroadcasts(dt float64) {
	for i := len(w.broadcasts) - 1; i >= 0; i-- {
		b := w.broadcasts[i]

		b.Radius += b.speed * dt
		fade := 1 - b.Radius/b.Range
		if fade < 0 {
			fade = 0
		}
		b.Opacity = b.maxOpacity * fade

		w.collideBroadcast(b)

		if b.Radius >= b.Range {
			w.broadcasts = append(w.broadcasts[:i], w.broadcasts[i+1:]...)
			floodID := b.FloodID
			w.broadcastPool.Release(b)
			if !w.floodActive(floodID) {
				w.purgeSeen(floodID)
			}
		}
	}
}

// collideBroadcast tests the wavefront's thin annulus against the source
// node's precomputed neighbors. A neighbor the wavefront has just swept past
// is marked seen for the flood; repeaters rebroadcast at most once per flood
// id, immediately, as a new wavefront centered on themselves.
func (w *World) collideBroadcast(b *Broadcast) {
	source, ok := w.nodesByID[b.SourceID]
	if !ok {
		return
	}
	for _, neighbor := range source.neighbors {
		if w.hasSeen(b.FloodID, neighbor.ID) {
			continue
		}
		dx := neighbor.X - b.X
		dy := neighbor.Y - b.Y
		dist := math.Hypot(dx, dy)
		if dist < b.Radius-neighbor.Hitbox || dist > b.Radius+neighbor.Hitbox {
			continue
		}
		w.markSeen(b.FloodID, neighbor.ID)
		if neighbor.Type == NodeRepeater {
			w.createBroadcast(neighbor, b.FloodID, w.config.Strategies[StrategyFlood])
		}
	}
}

// floodActive reports whether any wavefront still carries the flood id.
func (w *World) floodActive(floodID string) bool {
	for _, b := range w.broadcasts {
		if b.FloodID == floodID {
			return true
		}
	}
	return false
}

func (w *World) markSeen(floodID, nodeID string) {
	nodes, ok := w.seen[floodID]
	if !ok {
		nodes = make(map[string]struct{})
		w.seen[floodID] = nodes
	}
	nodes[nodeID] = struct{}{}
}

func (w *World) hasSeen(floodID, nodeID string) bool {
	nodes, ok := w.seen[floodID]
	if !ok {
		return false
	}
	_, ok = nodes[nodeID]
	return ok
}

// purgeSeen drops every seen-set entry for a retired flood group, bounding
// memory and letting future floods revisit the same nodes.
func (w *World) purgeSeen(floodID string) {
	delete(w.seen, floodID)
}
