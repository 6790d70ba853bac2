package server

// NodeView is the render-facing copy of one node.
type NodeView struct {
	ID    string   `json:"id"`
	Type  NodeType `json:"type"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Size  float64  `json:"size"`
	Range float64  `json:"range"`
}

// PacketView is the render-facing copy of one unicast packet. Trail points
// run oldest to newest.
type PacketView struct {
	ID           string       `json:"id"`
	Strategy     string       `json:"strategy"`
	SourceID     string       `json:"sourceId"`
	TargetID     string       `json:"targetId"`
	X            float64      `json:"x"`
	Y            float64      `json:"y"`
	Size         float64      `json:"size"`
	Delivered    bool         `json:"delivered"`
	FadeProgress float64      `json:"fadeProgress"`
	Trail        []TrailPoint `json:"trail,omitempty"`
}

// BroadcastView is the render-facing copy of one flood wavefront.
type BroadcastView struct {
	ID      string  `json:"id"`
	FloodID string  `json:"floodId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Radius  float64 `json:"radius"`
	Range   float64 `json:"range"`
	Opacity float64 `json:"opacity"`
}

// Snapshot copies nodes, packets, and broadcasts into broadcast-friendly
// structs. The copies are detached; later ticks never mutate them.
func (w *World) Snapshot() ([]NodeView, []PacketView, []BroadcastView) {
	nodes := make([]NodeView, 0, len(w.nodes))
	for _, n := range w.nodes {
		nodes = append(nodes, NodeView{
			ID:    n.ID,
			Type:  n.Type,
			X:     n.X,
			Y:     n.Y,
			Size:  n.Size,
			Range: n.Range,
		})
	}

	packets := make([]PacketView, 0, len(w.packets))
	for _, p := range w.packets {
		packets = append(packets, PacketView{
			ID:           p.ID,
			Strategy:     p.Strategy,
			SourceID:     p.SourceID,
			TargetID:     p.TargetID,
			X:            p.X,
			Y:            p.Y,
			Size:         p.Size,
			Delivered:    p.Delivered,
			FadeProgress: p.FadeProgress,
			Trail:        p.trail.Points(),
		})
	}

	broadcasts := make([]BroadcastView, 0, len(w.broadcasts))
	for _, b := range w.broadcasts {
		broadcasts = append(broadcasts, BroadcastView{
			ID:      b.ID,
			FloodID: b.FloodID,
			X:       b.X,
			Y:       b.Y,
			Radius:  b.Radius,
			Range:   b.Range,
			Opacity: b.Opacity,
		})
	}

	return nodes, packets, broadcasts
}
