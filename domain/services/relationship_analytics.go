package services

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
)

// ConnectionCount is a node with its combined in/out degree
type ConnectionCount struct {
	ContentID   string `json:"contentId"`
	Connections int    `json:"connections"`
}

// LinkAnalytics summarizes every persisted link
type LinkAnalytics struct {
	TotalLinks      int                               `json:"totalLinks"`
	LinksByType     map[entities.RelationshipType]int `json:"linksByType"`
	AverageStrength float64                           `json:"averageStrength"`
	AutomaticLinks  int                               `json:"automaticLinks"`
	ManualLinks     int                               `json:"manualLinks"`
	MostConnected   []ConnectionCount                 `json:"mostConnected"`
	WeakestLinks    []entities.ContentLink            `json:"weakestLinks"`
	StrongestLinks  []entities.ContentLink            `json:"strongestLinks"`
}

// Cluster groups nodes under a label
type Cluster struct {
	Label   string   `json:"label"`
	NodeIDs []string `json:"nodeIds"`
}

// RelationshipAnalysis is the graph-wide report for a module set
type RelationshipAnalysis struct {
	StrongestConnections []entities.ContentLink `json:"strongestConnections"`
	Clusters             []Cluster              `json:"clusters"`
	CriticalPath         []string               `json:"criticalPath"`
	IsolatedNodes        []string               `json:"isolatedNodes"`
	CircularDependencies [][]string             `json:"circularDependencies"`
	RecommendedLinks     []LinkSuggestion       `json:"recommendedLinks"`

	Communities []Cluster          `json:"communities"`
	Influence   map[string]float64 `json:"influence"`
}

// RelationshipAnalyticsService aggregates graph-wide statistics
type RelationshipAnalyticsService struct {
	cycles    *CycleDetector
	suggester *LinkSuggester

	// LPAIterations bounds label propagation rounds
	LPAIterations int
}

// NewRelationshipAnalyticsService creates a new analytics service
func NewRelationshipAnalyticsService(cycles *CycleDetector, suggester *LinkSuggester) *RelationshipAnalyticsService {
	if cycles == nil {
		cycles = NewCycleDetector(0)
	}
	if suggester == nil {
		suggester = NewLinkSuggester(nil)
	}
	return &RelationshipAnalyticsService{cycles: cycles, suggester: suggester, LPAIterations: 20}
}

// ComputeLinkAnalytics counts links by type and ranks nodes and links
func ComputeLinkAnalytics(links []entities.ContentLink, mostConnected, extremes int) LinkAnalytics {
	analytics := LinkAnalytics{
		TotalLinks:     len(links),
		LinksByType:    make(map[entities.RelationshipType]int),
		MostConnected:  []ConnectionCount{},
		WeakestLinks:   []entities.ContentLink{},
		StrongestLinks: []entities.ContentLink{},
	}
	if len(links) == 0 {
		return analytics
	}

	degree := make(map[string]int)
	total := 0.0
	for _, l := range links {
		analytics.LinksByType[l.Type]++
		total += l.Strength
		if l.Metadata.Automatic {
			analytics.AutomaticLinks++
		} else {
			analytics.ManualLinks++
		}
		degree[l.SourceID]++
		degree[l.TargetID]++
	}
	analytics.AverageStrength = total / float64(len(links))

	for id, n := range degree {
		analytics.MostConnected = append(analytics.MostConnected, ConnectionCount{ContentID: id, Connections: n})
	}
	sort.Slice(analytics.MostConnected, func(i, j int) bool {
		a, b := analytics.MostConnected[i], analytics.MostConnected[j]
		if a.Connections != b.Connections {
			return a.Connections > b.Connections
		}
		return a.ContentID < b.ContentID
	})
	analytics.MostConnected = limit(analytics.MostConnected, mostConnected)

	byStrength := sortedByStrength(links)
	analytics.WeakestLinks = limit(append([]entities.ContentLink{}, byStrength...), extremes)
	for i, j := 0, len(byStrength)-1; i < j; i, j = i+1, j-1 {
		byStrength[i], byStrength[j] = byStrength[j], byStrength[i]
	}
	analytics.StrongestLinks = limit(byStrength, extremes)

	return analytics
}

// Analyze builds the full relationship report for a graph built from modules
func (s *RelationshipAnalyticsService) Analyze(
	ctx context.Context,
	graph *entities.ContentGraph,
	modules []entities.ContentModule,
	opts SuggestionOptions,
) (*RelationshipAnalysis, error) {
	edges := graph.EdgeList()

	strongest := sortedByStrength(edges)
	for i, j := 0, len(strongest)-1; i < j; i, j = i+1, j-1 {
		strongest[i], strongest[j] = strongest[j], strongest[i]
	}

	recommended, err := s.suggester.Suggest(ctx, modules, edges, opts)
	if err != nil {
		return nil, err
	}

	cycles := s.cycles.DetectCycles(edges)
	if cycles == nil {
		cycles = [][]string{}
	}

	return &RelationshipAnalysis{
		StrongestConnections: limit(strongest, 10),
		Clusters:             ClusterByFirstTag(modules),
		CriticalPath:         s.CriticalPath(edges),
		IsolatedNodes:        IsolatedNodes(graph),
		CircularDependencies: cycles,
		RecommendedLinks:     recommended,
		Communities:          s.Communities(graph),
		Influence:            Influence(graph),
	}, nil
}

// ClusterByFirstTag groups modules by their first tag in a single pass.
// Modules without tags fall into "uncategorized".
func ClusterByFirstTag(modules []entities.ContentModule) []Cluster {
	index := make(map[string]int)
	clusters := make([]Cluster, 0)
	for _, m := range modules {
		label := "uncategorized"
		if len(m.Metadata.Tags) > 0 && m.Metadata.Tags[0] != "" {
			label = m.Metadata.Tags[0]
		}
		i, ok := index[label]
		if !ok {
			i = len(clusters)
			index[label] = i
			clusters = append(clusters, Cluster{Label: label})
		}
		clusters[i].NodeIDs = append(clusters[i].NodeIDs, m.ID)
	}
	return clusters
}

// IsolatedNodes returns graph nodes with no edge in the graph's edge set
func IsolatedNodes(graph *entities.ContentGraph) []string {
	connected := make(map[string]bool)
	for _, e := range graph.Edges {
		connected[e.SourceID] = true
		connected[e.TargetID] = true
	}
	isolated := make([]string, 0)
	for id := range graph.Nodes {
		if !connected[id] {
			isolated = append(isolated, id)
		}
	}
	sort.Strings(isolated)
	return isolated
}

type pathFrame struct {
	node string
	next int
}

// CriticalPath returns the longest chain of prerequisite links. Longest
// suffixes are memoized during a depth-first walk; nodes already on the
// current path are skipped so cyclic data still terminates.
func (s *RelationshipAnalyticsService) CriticalPath(links []entities.ContentLink) []string {
	adj := buildAdjacency(links, false)
	length := make(map[string]int)
	successor := make(map[string]string)

	for _, start := range adj.sortedNodes() {
		if _, ok := length[start]; ok {
			continue
		}
		onPath := map[string]bool{start: true}
		stack := []pathFrame{{node: start}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succs := adj[top.node]

			if top.next < len(succs) {
				n := succs[top.next]
				top.next++
				if _, ok := length[n]; ok || onPath[n] || len(stack) >= s.cycles.maxDepth {
					continue
				}
				onPath[n] = true
				stack = append(stack, pathFrame{node: n})
				continue
			}

			best, bestNext := 1, ""
			for _, n := range succs {
				if l, ok := length[n]; ok && l+1 > best {
					best, bestNext = l+1, n
				}
			}
			length[top.node] = best
			if bestNext != "" {
				successor[top.node] = bestNext
			}
			delete(onPath, top.node)
			stack = stack[:len(stack)-1]
		}
	}

	start, best := "", 0
	for _, n := range adj.sortedNodes() {
		if length[n] > best {
			start, best = n, length[n]
		}
	}
	if best < 2 {
		return []string{}
	}

	path := make([]string, 0, best)
	seen := make(map[string]bool)
	for n := start; n != "" && !seen[n]; n = successor[n] {
		seen[n] = true
		path = append(path, n)
	}
	return path
}

// Communities detects groups of densely linked nodes by label propagation
// over all edges treated as undirected and weighted by strength.
// Singleton communities are dropped.
func (s *RelationshipAnalyticsService) Communities(graph *entities.ContentGraph) []Cluster {
	ids := make([]string, 0, len(graph.Nodes))
	for id := range graph.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	adj := make(map[string]map[string]float64, len(ids))
	for _, id := range ids {
		adj[id] = make(map[string]float64)
	}
	for _, e := range graph.Edges {
		if e.SourceID == e.TargetID {
			continue
		}
		if _, ok := adj[e.SourceID]; !ok {
			continue
		}
		if _, ok := adj[e.TargetID]; !ok {
			continue
		}
		w := e.Strength
		if w <= 0 {
			w = 0.01
		}
		adj[e.SourceID][e.TargetID] += w
		adj[e.TargetID][e.SourceID] += w
	}

	labels := make(map[string]string, len(ids))
	for _, id := range ids {
		labels[id] = id
	}

	for iter := 0; iter < s.LPAIterations; iter++ {
		changed := 0
		for _, u := range ids {
			if len(adj[u]) == 0 {
				continue
			}
			weights := make(map[string]float64)
			bestWeight := 0.0
			for v, w := range adj[u] {
				weights[labels[v]] += w
				if weights[labels[v]] > bestWeight {
					bestWeight = weights[labels[v]]
				}
			}
			var candidates []string
			for label, w := range weights {
				if w == bestWeight {
					candidates = append(candidates, label)
				}
			}
			sort.Strings(candidates)
			best := candidates[len(candidates)-1]
			if labels[u] != best {
				labels[u] = best
				changed++
			}
		}
		if changed == 0 {
			break
		}
	}

	groups := make(map[string][]string)
	for _, id := range ids {
		groups[labels[id]] = append(groups[labels[id]], id)
	}
	communities := make([]Cluster, 0)
	for label, members := range groups {
		if len(members) < 2 {
			continue
		}
		communities = append(communities, Cluster{Label: label, NodeIDs: members})
	}
	sort.Slice(communities, func(i, j int) bool { return communities[i].Label < communities[j].Label })
	return communities
}

// Influence ranks nodes by PageRank over every directed edge
func Influence(graph *entities.ContentGraph) map[string]float64 {
	if len(graph.Nodes) == 0 {
		return map[string]float64{}
	}
	ids := make([]string, 0, len(graph.Nodes))
	for id := range graph.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	index := make(map[string]int64, len(ids))
	g := simple.NewDirectedGraph()
	for i, id := range ids {
		index[id] = int64(i)
		g.AddNode(simple.Node(int64(i)))
	}
	for _, e := range graph.Edges {
		from, okFrom := index[e.SourceID]
		to, okTo := index[e.TargetID]
		if !okFrom || !okTo || from == to {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}

	ranks := network.PageRank(g, 0.85, 1e-6)
	out := make(map[string]float64, len(ranks))
	for id, r := range ranks {
		out[ids[id]] = r
	}
	return out
}

func sortedByStrength(links []entities.ContentLink) []entities.ContentLink {
	out := append([]entities.ContentLink{}, links...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Strength != out[j].Strength {
			return out[i].Strength < out[j].Strength
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
