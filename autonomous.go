package server

import "math"

// transmitUnicast picks a delivery target for an autonomous send and creates
// the packet. Multi-hop relay chains animate better than short hops, so
// selection leans that way; it carries no correctness weight beyond never
// producing an invalid route:
//
//  1. With high probability, try a bounded number of random far clients,
//     preferring routes with longer repeater chains but probabilistically
//     accepting a short one.
//  2. Fall back to the nearest in-range client for a direct delivery.
//  3. Fall back to a brute-force scan for any reachable far client.
//  4. Otherwise create nothing.
func (w *World) transmitUnicast(source *Node, strategy string, cfg StrategyConfig) *Packet {
	if w.trafficRNG.Float64() < multiHopPreferenceChance {
		if pkt := w.tryFarClientDelivery(source, strategy, cfg); pkt != nil {
			return pkt
		}
	}
	if target := nearestClient(source); target != nil {
		if pkt := w.createPacket(source, target, strategy, cfg); pkt != nil {
			return pkt
		}
	}
	return w.scanFarClients(source, strategy, cfg)
}

// tryFarClientDelivery samples far clients within the attempt budget. A route
// whose chain is long enough is taken immediately; a shorter valid route is
// taken with a coin flip, or kept as the fallback if every attempt passes.
func (w *World) tryFarClientDelivery(source *Node, strategy string, cfg StrategyConfig) *Packet {
	far := source.farClients
	if len(far) == 0 {
		return nil
	}

	var fallback *Node
	for attempt := 0; attempt < multiHopAttemptBudget; attempt++ {
		candidate := far[w.trafficRNG.Intn(len(far))]
		route := w.findRoute(source, candidate)
		if len(route) < 2 {
			continue
		}
		if cfg.MaxHops > 0 && len(route)-1 > cfg.MaxHops {
			continue
		}
		if len(route)-1 >= longChainMinHops {
			return w.createPacket(source, candidate, strategy, cfg)
		}
		if w.trafficRNG.Float64() < shortChainAcceptChance {
			return w.createPacket(source, candidate, strategy, cfg)
		}
		fallback = candidate
	}
	if fallback != nil {
		return w.createPacket(source, fallback, strategy, cfg)
	}
	return nil
}

// scanFarClients walks every far client until one is reachable.
func (w *World) scanFarClients(source *Node, strategy string, cfg StrategyConfig) *Packet {
	for _, candidate := range source.farClients {
		route := w.findRoute(source, candidate)
		if len(route) < 2 {
			continue
		}
		if cfg.MaxHops > 0 && len(route)-1 > cfg.MaxHops {
			continue
		}
		return w.createPacket(source, candidate, strategy, cfg)
	}
	return nil
}

func nearestClient(source *Node) *Node {
	var nearest *Node
	best := math.MaxFloat64
	for _, candidate := range source.nearClients {
		dx := candidate.X - source.X
		dy := candidate.Y - source.Y
		d := dx*dx + dy*dy
		if d < best {
			best = d
			nearest = candidate
		}
	}
	return nearest
}
