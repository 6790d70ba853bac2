package server

import (
	"fmt"
	"math"
	"sort"
)

// layoutNodes places the configured node population. Types are laid out in a
// stable order so a given seed always yields the same network.
func (w *World) layoutNodes() {
	typeNames := make([]string, 0, len(w.config.NodeTypes))
	for name := range w.config.NodeTypes {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)

	for _, name := range typeNames {
		nodeType, ok := parseNodeType(name)
		if !ok {
			continue
		}
		cfg := w.config.NodeTypes[name]
		if cfg.GridPlacement {
			w.placeGridNodes(nodeType, cfg)
			continue
		}
		for i := 0; i < cfg.Count; i++ {
			w.placeRandomNode(nodeType, cfg)
		}
	}
}

// placeGridNodes spreads count nodes across a jittered grid covering the
// canvas, so repeaters end up roughly evenly distributed instead of clumped.
func (w *World) placeGridNodes(nodeType NodeType, cfg NodeTypeConfig) {
	if cfg.Count <= 0 {
		return
	}
	cols := int(math.Ceil(math.Sqrt(float64(cfg.Count))))
	rows := int(math.Ceil(float64(cfg.Count) / float64(cols)))
	cellW := w.config.Width / float64(cols)
	cellH := w.config.Height / float64(rows)

	placed := 0
	for row := 0; row < rows && placed < cfg.Count; row++ {
		for col := 0; col < cols && placed < cfg.Count; col++ {
			// Jitter inside the middle half of each cell.
			x := (float64(col)+0.5)*cellW + (w.layoutRNG.Float64()-0.5)*cellW*0.5
			y := (float64(row)+0.5)*cellH + (w.layoutRNG.Float64()-0.5)*cellH*0.5
			w.spawnNode(nodeType, cfg, x, y)
			placed++
		}
	}
}

// placeRandomNode tries up to the placement budget to find a spot honoring
// the minimum inter-node spacing, returning nil when the canvas is saturated.
func (w *World) placeRandomNode(nodeType NodeType, cfg NodeTypeConfig) *Node {
	margin := cfg.Size * 2
	for attempt := 0; attempt < w.config.PlacementAttempts; attempt++ {
		x := randomBetween(w.layoutRNG, margin, w.config.Width-margin)
		y := randomBetween(w.layoutRNG, margin, w.config.Height-margin)
		if !w.spacingSatisfied(x, y) {
			continue
		}
		return w.spawnNode(nodeType, cfg, x, y)
	}
	return nil
}

func (w *World) spacingSatisfied(x, y float64) bool {
	minSq := w.config.MinSpacing * w.config.MinSpacing
	for _, other := range w.nodes {
		dx := other.X - x
		dy := other.Y - y
		if dx*dx+dy*dy < minSq {
			return false
		}
	}
	return true
}

// spawnNode materializes a node at a fixed position, applying the one-time
// range variance draw. Does not recompute neighbor sets.
func (w *World) spawnNode(nodeType NodeType, cfg NodeTypeConfig, x, y float64) *Node {
	w.nextNodeID[nodeType]++
	txRange := cfg.Range
	if cfg.RangeVariance > 0 {
		txRange += (w.layoutRNG.Float64()*2 - 1) * cfg.RangeVariance
	}

	node := &Node{
		ID:     fmt.Sprintf("%s-%d", nodeType, w.nextNodeID[nodeType]),
		Type:   nodeType,
		X:      x,
		Y:      y,
		Size:   cfg.Size,
		Hitbox: cfg.Hitbox,
		Range:  txRange,
	}
	w.nodes = append(w.nodes, node)
	w.nodesByID[node.ID] = node
	return node
}
