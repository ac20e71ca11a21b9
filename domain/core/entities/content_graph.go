package entities

import "time"

// ContentGraphNode is the graph view of a module. It is derived, never persisted.
type ContentGraphNode struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Type          string   `json:"type"`
	Tags          []string `json:"tags"`
	Difficulty    float64  `json:"difficulty"`
	IncomingLinks []string `json:"incomingLinks"`
	OutgoingLinks []string `json:"outgoingLinks"`
}

// Degree returns the combined in/out degree
func (n *ContentGraphNode) Degree() int {
	return len(n.IncomingLinks) + len(n.OutgoingLinks)
}

// ContentGraph holds nodes and the links whose endpoints are both nodes
type ContentGraph struct {
	Nodes   map[string]*ContentGraphNode `json:"nodes"`
	Edges   map[string]ContentLink       `json:"edges"`
	BuiltAt time.Time                    `json:"builtAt"`
}

// NewContentGraph creates an empty graph
func NewContentGraph() *ContentGraph {
	return &ContentGraph{
		Nodes: make(map[string]*ContentGraphNode),
		Edges: make(map[string]ContentLink),
	}
}

// EdgeList returns the edges as a slice
func (g *ContentGraph) EdgeList() []ContentLink {
	edges := make([]ContentLink, 0, len(g.Edges))
	for _, e := range g.Edges {
		edges = append(edges, e)
	}
	return edges
}

// NodeList returns the nodes as a slice
func (g *ContentGraph) NodeList() []*ContentGraphNode {
	nodes := make([]*ContentGraphNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, n)
	}
	return nodes
}

// DependencyChain describes the transitive prerequisites and dependents of a node
type DependencyChain struct {
	NodeID        string   `json:"nodeId"`
	Prerequisites []string `json:"prerequisites"`
	Dependents    []string `json:"dependents"`
	Depth         int      `json:"depth"`
	CanAccess     bool     `json:"canAccess"`

	// Truncated is set when traversal stopped at the depth cap
	Truncated bool `json:"truncated,omitempty"`
}
