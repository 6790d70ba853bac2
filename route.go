package server

// RouteHop is one leg of a discovered route. Hops are positional snapshots
// taken at route-computation time, not live node references.
type RouteHop struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func hopForNode(n *Node) RouteHop {
	return RouteHop{ID: n.ID, X: n.X, Y: n.Y}
}

// findRoute searches the neighbor graph for a shortest acceptable hop path
// from source to target. A path is acceptable when it is a direct hop
// (length ≤ 2) or when every interior node is a repeater; shortest paths that
// relay through a client are discarded and the search continues, so a longer
// repeater-clean path can still win.
//
// The queue holds partial paths rather than frontier nodes, and a node is
// marked visited only when it is dequeued as a path's tail. Several
// equally-short partial paths to the same node may therefore coexist in the
// queue; whichever was enqueued first (neighbor insertion order) is expanded.
// The target itself is never marked visited, so a rejected path through it
// does not block later candidates.
//
// A single-element path holding only the source's position snapshot is the
// "no route" sentinel, returned when the queue empties and for the trivial
// self-route.
func (w *World) findRoute(source, target *Node) []RouteHop {
	sentinel := []RouteHop{hopForNode(source)}
	if source == nil || target == nil || source.ID == target.ID {
		return sentinel
	}

	queue := [][]*Node{{source}}
	visited := make(map[string]bool, len(w.nodes))

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		tail := path[len(path)-1]

		if tail.ID == target.ID {
			if len(path) <= 2 || interiorAllRepeaters(path) {
				route := make([]RouteHop, 0, len(path))
				for _, n := range path {
					route = append(route, hopForNode(n))
				}
				return route
			}
			continue
		}

		if visited[tail.ID] {
			continue
		}
		visited[tail.ID] = true

		for _, neighbor := range tail.neighbors {
			if visited[neighbor.ID] {
				continue
			}
			next := make([]*Node, len(path), len(path)+1)
			copy(next, path)
			queue = append(queue, append(next, neighbor))
		}
	}

	return sentinel
}

func interiorAllRepeaters(path []*Node) bool {
	for i := 1; i < len(path)-1; i++ {
		if path[i].Type != NodeRepeater {
			return false
		}
	}
	return true
}
