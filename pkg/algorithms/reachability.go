package algorithms

import (
	"container/list"
	"sort"
)

// Topology is the read-only view of a directed traffic graph that the
// reachability algorithms need. *level.Level satisfies it.
type Topology interface {
	NodeIDs() []string
	Successors(id string) []string
}

// ShortestRoute finds the shortest directed route from start to end using
// BFS. Neighbours are visited in the order Successors returns them, so the
// result is deterministic. Returns nil when no route exists.
func ShortestRoute(graph Topology, start, end string) []string {
	if start == end {
		return []string{start}
	}

	parent := map[string]string{start: start}
	queue := list.New()
	queue.PushBack(start)

	for queue.Len() > 0 {
		current := queue.Remove(queue.Front()).(string)

		for _, next := range graph.Successors(current) {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = current
			if next == end {
				return walkBack(parent, start, end)
			}
			queue.PushBack(next)
		}
	}

	return nil
}

// walkBack rebuilds the route from the BFS parent map
func walkBack(parent map[string]string, start, end string) []string {
	route := []string{end}
	for current := end; current != start; {
		current = parent[current]
		route = append(route, current)
	}
	for i, j := 0, len(route)-1; i < j; i, j = i+1, j-1 {
		route[i], route[j] = route[j], route[i]
	}
	return route
}

// Reachable returns every node reachable from any of the given sources,
// sources included, as a set.
func Reachable(graph Topology, sources ...string) map[string]bool {
	visited := make(map[string]bool, len(sources))
	queue := list.New()
	for _, s := range sources {
		if !visited[s] {
			visited[s] = true
			queue.PushBack(s)
		}
	}

	for queue.Len() > 0 {
		current := queue.Remove(queue.Front()).(string)
		for _, next := range graph.Successors(current) {
			if !visited[next] {
				visited[next] = true
				queue.PushBack(next)
			}
		}
	}

	return visited
}

// Predecessors inverts the graph: for every node the sorted list of nodes
// with an edge into it.
func Predecessors(graph Topology) map[string][]string {
	incoming := make(map[string][]string)
	for _, id := range graph.NodeIDs() {
		for _, next := range graph.Successors(id) {
			incoming[next] = append(incoming[next], id)
		}
	}
	for id := range incoming {
		sort.Strings(incoming[id])
	}
	return incoming
}

// Dependents returns the nodes that transitively route traffic into any of
// the failed nodes, excluding the failed nodes themselves. The result is
// sorted. A failure "cascades" to exactly these nodes.
func Dependents(incoming map[string][]string, failed ...string) []string {
	isFailed := make(map[string]bool, len(failed))
	for _, id := range failed {
		isFailed[id] = true
	}

	visited := make(map[string]bool)
	queue := list.New()
	for _, id := range failed {
		queue.PushBack(id)
	}

	for queue.Len() > 0 {
		current := queue.Remove(queue.Front()).(string)
		for _, prev := range incoming[current] {
			if visited[prev] || isFailed[prev] {
				continue
			}
			visited[prev] = true
			queue.PushBack(prev)
		}
	}

	out := make([]string, 0, len(visited))
	for id := range visited {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Unreachable lists, in declaration order, the nodes that no source reaches.
func Unreachable(graph Topology, sources ...string) []string {
	seen := Reachable(graph, sources...)
	var out []string
	for _, id := range graph.NodeIDs() {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}
