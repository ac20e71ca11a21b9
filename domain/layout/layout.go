// Package layout assigns 2D positions to content graph nodes.
package layout

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/valueobjects"
	pkgerrors "github.com/moatasim-KT/interactive-knowledge-system-sub006/pkg/errors"
)

// Type selects a layout strategy
type Type string

const (
	TypeForceDirected Type = "force-directed"
	TypeHierarchical  Type = "hierarchical"
	TypeCircular      Type = "circular"
	TypeGrid          Type = "grid"
	TypeTree          Type = "tree"
)

// IsValid checks if the layout type is known
func (t Type) IsValid() bool {
	switch t {
	case TypeForceDirected, TypeHierarchical, TypeCircular, TypeGrid, TypeTree:
		return true
	default:
		return false
	}
}

// Config describes the canvas and strategy
type Config struct {
	Type         Type    `json:"type"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	NodeSpacing  float64 `json:"nodeSpacing"`
	LevelSpacing float64 `json:"levelSpacing"`

	// Iterations of the force simulation, 300 when unset
	Iterations int `json:"iterations,omitempty"`

	// Seed for initial force-directed positions; zero picks a time-based seed
	Seed int64 `json:"seed,omitempty"`
}

// DefaultConfig returns an 800x600 force-directed layout
func DefaultConfig() Config {
	return Config{
		Type:         TypeForceDirected,
		Width:        800,
		Height:       600,
		NodeSpacing:  100,
		LevelSpacing: 120,
		Iterations:   300,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Type == "" {
		c.Type = d.Type
	}
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.NodeSpacing <= 0 {
		c.NodeSpacing = d.NodeSpacing
	}
	if c.LevelSpacing <= 0 {
		c.LevelSpacing = d.LevelSpacing
	}
	if c.Iterations <= 0 {
		c.Iterations = d.Iterations
	}
	return c
}

// VisualNode is a graph node with its layout state
type VisualNode struct {
	entities.ContentGraphNode
	Position valueobjects.Position  `json:"position"`
	Velocity *valueobjects.Position `json:"velocity,omitempty"`
	Force    *valueobjects.Position `json:"force,omitempty"`
	Level    *int                   `json:"level,omitempty"`
	Cluster  string                 `json:"cluster,omitempty"`
	Fixed    bool                   `json:"fixed,omitempty"`
}

// Engine runs layout strategies
type Engine struct {
	newRand func(seed int64) *rand.Rand
}

// NewEngine creates a layout engine
func NewEngine() *Engine {
	return &Engine{newRand: func(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }}
}

// Apply positions the nodes with the configured strategy. Output is sorted by node id.
func (e *Engine) Apply(ctx context.Context, nodes []*entities.ContentGraphNode, edges []entities.ContentLink, cfg Config) ([]VisualNode, error) {
	cfg = cfg.withDefaults()
	if !cfg.Type.IsValid() {
		return nil, pkgerrors.NewValidation(fmt.Sprintf("unknown layout type: %s", cfg.Type))
	}

	visual := make([]VisualNode, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		visual = append(visual, VisualNode{ContentGraphNode: *n})
	}
	sort.Slice(visual, func(i, j int) bool { return visual[i].ID < visual[j].ID })
	if len(visual) == 0 {
		return visual, nil
	}

	switch cfg.Type {
	case TypeHierarchical:
		hierarchical(visual, edges, cfg)
	case TypeCircular:
		circular(visual, cfg)
	case TypeGrid:
		grid(visual, cfg)
	case TypeTree:
		tree(visual, edges, cfg)
	default:
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		if err := forceDirected(ctx, visual, edges, cfg, e.newRand(seed)); err != nil {
			return nil, err
		}
	}

	return visual, nil
}

// indexByID maps node ids to positions in the slice
func indexByID(nodes []VisualNode) map[string]int {
	idx := make(map[string]int, len(nodes))
	for i, n := range nodes {
		idx[n.ID] = i
	}
	return idx
}

// prerequisiteChildren returns, for nodes in the set, the sorted targets of
// their prerequisite links and the in-set incoming prerequisite count.
func prerequisiteChildren(nodes []VisualNode, edges []entities.ContentLink) (map[string][]string, map[string]int) {
	idx := indexByID(nodes)
	children := make(map[string][]string)
	incoming := make(map[string]int)
	seen := make(map[string]bool)
	for _, e := range edges {
		if e.Type != entities.RelationshipPrerequisite || e.SourceID == e.TargetID {
			continue
		}
		if _, ok := idx[e.SourceID]; !ok {
			continue
		}
		if _, ok := idx[e.TargetID]; !ok {
			continue
		}
		key := e.SourceID + "\x00" + e.TargetID
		if seen[key] {
			continue
		}
		seen[key] = true
		children[e.SourceID] = append(children[e.SourceID], e.TargetID)
		incoming[e.TargetID]++
	}
	for k := range children {
		sort.Strings(children[k])
	}
	return children, incoming
}

// bfsLevels assigns each node its BFS distance from a root. Roots are nodes
// without an incoming prerequisite link; nodes only reachable through a cycle
// seed a new traversal at level zero. parent records the first BFS parent.
func bfsLevels(nodes []VisualNode, edges []entities.ContentLink) (levels map[string]int, parent map[string]string, roots []string) {
	children, incoming := prerequisiteChildren(nodes, edges)
	levels = make(map[string]int, len(nodes))
	parent = make(map[string]string)

	walk := func(start string) {
		levels[start] = 0
		roots = append(roots, start)
		queue := []string{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, child := range children[cur] {
				if _, done := levels[child]; done {
					continue
				}
				levels[child] = levels[cur] + 1
				parent[child] = cur
				queue = append(queue, child)
			}
		}
	}

	for _, n := range nodes {
		if incoming[n.ID] == 0 {
			walk(n.ID)
		}
	}
	for _, n := range nodes {
		if _, done := levels[n.ID]; !done {
			walk(n.ID)
		}
	}
	return levels, parent, roots
}
