package server

import (
	"context"
	"fmt"
	"math"

	"packetmesh/server/internal/logging"
)

// Packet is one unicast transmission in flight along a discovered route.
// Position always lies on the segment between the current and next hop; once
// Delivered is set the position is frozen and only the fade progress advances.
type Packet struct {
	ID           string
	Strategy     string
	SourceID     string
	TargetID     string
	X            float64
	Y            float64
	Size         float64
	Delivered    bool
	FadeProgress float64

	route    []RouteHop
	hopIndex int
	speed    float64
	trail    *Trail
	trails   *Pool[*Trail]
}

// Route returns the positional snapshot this packet travels along.
func (p *Packet) Route() []RouteHop { return p.route }

// HopIndex reports the index of the hop the packet last reached.
func (p *Packet) HopIndex() int { return p.hopIndex }

// Trail exposes the packet's recent-position ring buffer.
func (p *Packet) Trail() *Trail { return p.trail }

// Reset clears all instance fields, returning the owned trail to its pool.
// Safe to call twice; the second call finds no trail to release.
func (p *Packet) Reset() {
	if p.trail != nil && p.trails != nil {
		p.trails.Release(p.trail)
	}
	*p = Packet{}
}

const (
	rejectReasonNoRoute  = "no_route"
	rejectReasonHopLimit = "hop_limit"
)

// createPacket runs route discovery and, on success, acquires a packet and a
// fresh trail seeded at the source. Returns nil when no route exists or the
// route exceeds the strategy's hop budget.
func (w *World) createPacket(source, target *Node, strategy string, cfg StrategyConfig) *Packet {
	route := w.findRoute(source, target)
	if len(route) < 2 {
		w.metrics.RecordRouteFailed()
		w.metrics.RecordPacketRejected(rejectReasonNoRoute)
		return nil
	}
	if cfg.MaxHops > 0 && len(route)-1 > cfg.MaxHops {
		w.metrics.RecordPacketRejected(rejectReasonHopLimit)
		return nil
	}

	w.nextPacketID++
	pkt := w.packetPool.Acquire()
	pkt.ID = fmt.Sprintf("packet-%d", w.nextPacketID)
	pkt.Strategy = strategy
	pkt.SourceID = source.ID
	pkt.TargetID = target.ID
	pkt.X = route[0].X
	pkt.Y = route[0].Y
	pkt.Size = cfg.Size
	pkt.route = route
	pkt.hopIndex = 0
	pkt.speed = cfg.Speed
	pkt.trails = w.trailPool
	pkt.trail = w.trailPool.Acquire()

	w.packets = append(w.packets, pkt)
	w.metrics.RecordPacketSent(strategy)
	return pkt
}

// advancePackets moves every active packet by speed×dt and retires faded
// deliveries. Iterates in reverse so splice-removal is safe mid-loop.
func (w *World) advancePackets(dt float64) {
	for i := len(w.packets) - 1; i >= 0; i-- {
		pkt := w.packets[i]

		if pkt.Delivered {
			pkt.FadeProgress += dt / deliveredFadeSeconds
			if pkt.FadeProgress >= 1 {
				w.packets = append(w.packets[:i], w.packets[i+1:]...)
				w.packetPool.Release(pkt)
			}
			continue
		}

		pkt.trail.Append(pkt.X, pkt.Y, w.elapsed)

		next := pkt.route[pkt.hopIndex+1]
		dx := next.X - pkt.X
		dy := next.Y - pkt.Y
		remaining := math.Hypot(dx, dy)
		step := pkt.speed * dt

		if step >= remaining {
			// Snap to the hop and recycle the trail whether or not this
			// hop is final.
			pkt.X = next.X
			pkt.Y = next.Y
			pkt.hopIndex++
			w.trailPool.Release(pkt.trail)
			pkt.trail = w.trailPool.Acquire()

			if pkt.hopIndex == len(pkt.route)-1 {
				pkt.Delivered = true
				pkt.FadeProgress = 0
				w.metrics.RecordPacketDelivered()
				w.logger.Debug(context.Background(), "packet delivered",
					logging.String("packet", pkt.ID),
					logging.String("target", pkt.TargetID),
					logging.Int("hops", len(pkt.route)-1),
				)
			}
			continue
		}

		pkt.X += dx / remaining * step
		pkt.Y += dy / remaining * step
	}
}
