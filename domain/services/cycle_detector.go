package services

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
)

// CycleDetector finds circular chains in the prerequisite sub-graph.
// All walks are iterative and stop descending at maxDepth.
type CycleDetector struct {
	maxDepth int
}

// NewCycleDetector creates a cycle detector with the given traversal depth cap
func NewCycleDetector(maxDepth int) *CycleDetector {
	if maxDepth <= 0 {
		maxDepth = 256
	}
	return &CycleDetector{maxDepth: maxDepth}
}

// adjacency maps a node to its sorted, de-duplicated neighbours
type adjacency map[string][]string

func buildAdjacency(links []entities.ContentLink, reverse bool) adjacency {
	seen := make(map[string]map[string]bool)
	adj := make(adjacency)
	for _, l := range links {
		if l.Type != entities.RelationshipPrerequisite {
			continue
		}
		from, to := l.SourceID, l.TargetID
		if reverse {
			from, to = to, from
		}
		if seen[from] == nil {
			seen[from] = make(map[string]bool)
		}
		if seen[from][to] {
			continue
		}
		seen[from][to] = true
		adj[from] = append(adj[from], to)
		if _, ok := adj[to]; !ok {
			adj[to] = nil
		}
	}
	for k := range adj {
		sort.Strings(adj[k])
	}
	return adj
}

func (a adjacency) sortedNodes() []string {
	nodes := make([]string, 0, len(a))
	for n := range a {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

// DetectCycles reports every circular dependency among the given links. The
// walk runs over the reverse adjacency (target to sources). Each cycle is a
// node sequence closed by repeating its first node, reported once.
func (d *CycleDetector) DetectCycles(links []entities.ContentLink) [][]string {
	return d.findCycles(buildAdjacency(links, true))
}

// ValidateBatchForCircularDependencies checks only the proposed links, ignoring
// anything already persisted. It returns the cycles confined to the batch.
func (d *CycleDetector) ValidateBatchForCircularDependencies(proposed []entities.ContentLink) [][]string {
	return d.findCycles(buildAdjacency(proposed, false))
}

type dfsFrame struct {
	node string
	next int
}

func (d *CycleDetector) findCycles(adj adjacency) [][]string {
	var cycles [][]string
	reported := make(map[string]bool)
	done := make(map[string]bool)

	for _, start := range adj.sortedNodes() {
		if done[start] {
			continue
		}

		stack := []dfsFrame{{node: start}}
		onPath := map[string]int{start: 0}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			neighbours := adj[top.node]

			if top.next >= len(neighbours) || len(stack) > d.maxDepth {
				done[top.node] = true
				delete(onPath, top.node)
				stack = stack[:len(stack)-1]
				continue
			}

			next := neighbours[top.next]
			top.next++

			if pos, ok := onPath[next]; ok {
				cycle := make([]string, 0, len(stack)-pos+1)
				for _, f := range stack[pos:] {
					cycle = append(cycle, f.node)
				}
				cycle = append(cycle, next)
				if key := canonicalCycleKey(cycle); !reported[key] {
					reported[key] = true
					cycles = append(cycles, cycle)
				}
				continue
			}
			if done[next] {
				continue
			}

			onPath[next] = len(stack)
			stack = append(stack, dfsFrame{node: next})
		}
	}

	return d.coverComponents(adj, cycles, reported)
}

// coverComponents extends the DFS result so every edge inside a strongly
// connected component lies on at least one reported cycle. Finished nodes are
// skipped by the DFS, which otherwise hides cycles that share a component.
func (d *CycleDetector) coverComponents(adj adjacency, cycles [][]string, reported map[string]bool) [][]string {
	covered := make(map[[2]string]bool)
	markCovered := func(cycle []string) {
		for i := 0; i+1 < len(cycle); i++ {
			covered[[2]string{cycle[i], cycle[i+1]}] = true
		}
	}
	for _, c := range cycles {
		markCovered(c)
	}

	for _, component := range components(adj) {
		members := make(map[string]bool, len(component))
		for _, n := range component {
			members[n] = true
		}
		for _, from := range component {
			for _, to := range adj[from] {
				if !members[to] || covered[[2]string{from, to}] {
					continue
				}
				path := d.shortestPath(adj, members, to, from)
				if path == nil {
					continue
				}
				cycle := append([]string{from}, path...)
				markCovered(cycle)
				if key := canonicalCycleKey(cycle); !reported[key] {
					reported[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}
	}
	return cycles
}

// shortestPath walks from start to goal inside members, returning the node
// sequence including both ends, or nil when goal is not within maxDepth
func (d *CycleDetector) shortestPath(adj adjacency, members map[string]bool, start, goal string) []string {
	if start == goal {
		return []string{start}
	}
	parent := map[string]string{start: ""}
	depth := map[string]int{start: 0}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if depth[current] >= d.maxDepth {
			continue
		}
		for _, next := range adj[current] {
			if !members[next] {
				continue
			}
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = current
			depth[next] = depth[current] + 1
			if next == goal {
				var path []string
				for n := goal; n != start; n = parent[n] {
					path = append(path, n)
				}
				path = append(path, start)
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// canonicalCycleKey identifies a closed cycle independent of its starting node
func canonicalCycleKey(cycle []string) string {
	open := cycle[:len(cycle)-1]
	if len(open) == 0 {
		return ""
	}
	minIdx := 0
	for i, n := range open {
		if n < open[minIdx] {
			minIdx = i
		}
	}
	rotated := append(append([]string{}, open[minIdx:]...), open[:minIdx]...)
	return strings.Join(rotated, "\x00")
}

// WouldCreateCycle reports whether adding a prerequisite link source->target
// closes a loop, that is whether source is reachable from target.
func (d *CycleDetector) WouldCreateCycle(links []entities.ContentLink, sourceID, targetID string) bool {
	if sourceID == targetID {
		return true
	}

	adj := buildAdjacency(links, false)
	visited := map[string]bool{targetID: true}
	type item struct {
		node  string
		depth int
	}
	queue := []item{{targetID, 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= d.maxDepth {
			continue
		}
		for _, next := range adj[current.node] {
			if next == sourceID {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, item{next, current.depth + 1})
			}
		}
	}

	return false
}

// StronglyConnected returns the prerequisite components that contain a cycle,
// each sorted, using Tarjan's algorithm.
func (d *CycleDetector) StronglyConnected(links []entities.ContentLink) [][]string {
	return components(buildAdjacency(links, false))
}

// components returns the strongly connected components of adj with more than
// one node, each sorted and ordered by first member
func components(adj adjacency) [][]string {
	nodes := adj.sortedNodes()

	ids := make(map[string]int64, len(nodes))
	g := simple.NewDirectedGraph()
	for i, n := range nodes {
		ids[n] = int64(i)
		g.AddNode(simple.Node(int64(i)))
	}
	for from, tos := range adj {
		for _, to := range tos {
			if from == to {
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(ids[from]), T: simple.Node(ids[to])})
		}
	}

	var out [][]string
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		component := make([]string, 0, len(scc))
		for _, n := range scc {
			component = append(component, nodes[n.ID()])
		}
		sort.Strings(component)
		out = append(out, component)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
