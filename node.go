package server

// NodeType distinguishes end-user clients from dedicated relays.
type NodeType string

const (
	NodeClient   NodeType = "client"
	NodeRepeater NodeType = "repeater"
)

func parseNodeType(raw string) (NodeType, bool) {
	switch NodeType(raw) {
	case NodeClient:
		return NodeClient, true
	case NodeRepeater:
		return NodeRepeater, true
	}
	return "", false
}

// Node is one radio in the simulated mesh. Position and range are fixed after
// creation; the derived neighbor sets are owned by computeNeighbors and are
// only valid until the node set changes again.
type Node struct {
	ID     string
	Type   NodeType
	X      float64
	Y      float64
	Size   float64
	Hitbox float64
	Range  float64

	neighbors   []*Node
	nearClients []*Node
	farClients  []*Node
}

// Neighbors returns the nodes inside this node's transmission range as of the
// last recompute.
func (n *Node) Neighbors() []*Node {
	if n == nil {
		return nil
	}
	return n.neighbors
}

// NearClients returns the in-range clients as of the last recompute.
func (n *Node) NearClients() []*Node {
	if n == nil {
		return nil
	}
	return n.nearClients
}

// FarClients returns the out-of-range clients as of the last recompute.
func (n *Node) FarClients() []*Node {
	if n == nil {
		return nil
	}
	return n.farClients
}

// computeNeighbors rebuilds every node's derived neighbor sets from scratch.
// The range test uses the evaluating node's own range, so in-range is not a
// symmetric relation when ranges differ between the pair. O(n²) over the node
// set; node counts stay in the tens, so no incremental update is attempted.
func (w *World) computeNeighbors() {
	for _, node := range w.nodes {
		node.neighbors = node.neighbors[:0]
		node.nearClients = node.nearClients[:0]
		node.farClients = node.farClients[:0]

		rangeSq := node.Range * node.Range
		for _, other := range w.nodes {
			if other == node {
				continue
			}
			dx := other.X - node.X
			dy := other.Y - node.Y
			if dx*dx+dy*dy <= rangeSq {
				node.neighbors = append(node.neighbors, other)
				if other.Type == NodeClient {
					node.nearClients = append(node.nearClients, other)
				}
			} else if other.Type == NodeClient {
				node.farClients = append(node.farClients, other)
			}
		}
	}
}
