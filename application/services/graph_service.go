package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/ports"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/config"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/layout"
	domainservices "github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/services"
	pkgerrors "github.com/moatasim-KT/interactive-knowledge-system-sub006/pkg/errors"
)

// GraphService builds content graphs from module sets and derives layouts,
// dependency chains and relationship reports from them. Every result is
// cached until the next link mutation or TTL expiry.
type GraphService struct {
	links     *LinkService
	cache     ports.Cache
	engine    *layout.Engine
	analyzer  *domainservices.DependencyAnalyzer
	analytics *domainservices.RelationshipAnalyticsService
	group     singleflight.Group
	logger    *zap.Logger
	now       func() time.Time

	cfgMu  sync.RWMutex
	config *config.GraphConfig
}

// NewGraphService creates a new graph service
func NewGraphService(
	links *LinkService,
	cache ports.Cache,
	engine *layout.Engine,
	analyzer *domainservices.DependencyAnalyzer,
	analytics *domainservices.RelationshipAnalyticsService,
	cfg *config.GraphConfig,
	logger *zap.Logger,
) *GraphService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.DefaultGraphConfig()
	}
	cfg = cfg.Normalize()
	if engine == nil {
		engine = layout.NewEngine()
	}
	if analyzer == nil {
		analyzer = domainservices.NewDependencyAnalyzer(cfg.MaxTraversalDepth, nil)
	}
	if analytics == nil {
		analytics = domainservices.NewRelationshipAnalyticsService(nil, nil)
	}
	return &GraphService{
		links:     links,
		cache:     cache,
		engine:    engine,
		analyzer:  analyzer,
		analytics: analytics,
		logger:    logger,
		now:       time.Now,
		config:    cfg,
	}
}

// UpdateConfig swaps the tuning in place
func (s *GraphService) UpdateConfig(cfg *config.GraphConfig) {
	s.cfgMu.Lock()
	s.config = cfg.Normalize()
	s.cfgMu.Unlock()
}

func (s *GraphService) cfg() *config.GraphConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.config
}

// BuildContentGraph assembles the graph of a module set. Edges are the stored
// links whose endpoints are both in the set. Concurrent calls for the same
// set and link generation share one build.
func (s *GraphService) BuildContentGraph(ctx context.Context, modules []entities.ContentModule) (*entities.ContentGraph, error) {
	key := cacheKeyGraph + fingerprint(modules)
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached.(*entities.ContentGraph), nil
	}

	gen := s.links.Generation()
	v, err, shared := s.group.Do(fmt.Sprintf("%s@%d", key, gen), func() (interface{}, error) {
		if cached, ok := s.cache.Get(ctx, key); ok {
			return cached, nil
		}
		graph, err := s.build(ctx, modules)
		if err != nil {
			return nil, err
		}
		if !s.links.cacheIfCurrent(ctx, gen, key, graph, s.cfg().CacheTTL) {
			s.logger.Debug("Links changed during graph build, not caching", zap.String("key", key))
		}
		return graph, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Shared concurrent graph build", zap.String("key", key))
	}
	return v.(*entities.ContentGraph), nil
}

func (s *GraphService) build(ctx context.Context, modules []entities.ContentModule) (*entities.ContentGraph, error) {
	links, err := s.links.AllLinks(ctx)
	if err != nil {
		return nil, err
	}

	graph := entities.NewContentGraph()
	graph.BuiltAt = s.now().UTC()
	for _, m := range modules {
		if m.ID == "" {
			continue
		}
		graph.Nodes[m.ID] = &entities.ContentGraphNode{
			ID:            m.ID,
			Title:         m.Title,
			Type:          m.DominantBlockType(),
			Tags:          m.Metadata.Tags,
			Difficulty:    m.Metadata.Difficulty.Rank(),
			IncomingLinks: []string{},
			OutgoingLinks: []string{},
		}
	}

	for _, l := range links {
		src, hasSrc := graph.Nodes[l.SourceID]
		tgt, hasTgt := graph.Nodes[l.TargetID]
		if hasSrc {
			src.OutgoingLinks = append(src.OutgoingLinks, l.ID)
		}
		if hasTgt {
			tgt.IncomingLinks = append(tgt.IncomingLinks, l.ID)
		}
		if hasSrc && hasTgt {
			graph.Edges[l.ID] = l
		}
	}
	for _, n := range graph.Nodes {
		sort.Strings(n.IncomingLinks)
		sort.Strings(n.OutgoingLinks)
	}

	s.logger.Debug("Built content graph",
		zap.Int("nodes", len(graph.Nodes)),
		zap.Int("edges", len(graph.Edges)),
	)
	return graph, nil
}

// ApplyLayout positions the graph's nodes. Results are cached by layout type
// and graph size.
func (s *GraphService) ApplyLayout(ctx context.Context, graph *entities.ContentGraph, cfg layout.Config) ([]layout.VisualNode, error) {
	if graph == nil {
		return nil, pkgerrors.NewValidation("graph is required")
	}
	if cfg.Type == "" {
		cfg.Type = layout.TypeForceDirected
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = s.cfg().LayoutIterations
	}

	key := fmt.Sprintf("%s%s:%d:%d", cacheKeyLayout, cfg.Type, len(graph.Nodes), len(graph.Edges))
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cloneVisualNodes(cached.([]layout.VisualNode)), nil
	}

	gen := s.links.Generation()
	nodes, err := s.engine.Apply(ctx, graph.NodeList(), graph.EdgeList(), cfg)
	if err != nil {
		return nil, err
	}
	s.links.cacheIfCurrent(ctx, gen, key, cloneVisualNodes(nodes), s.cfg().CacheTTL)
	return nodes, nil
}

// cloneVisualNodes copies a layout so callers never share the cached slice
func cloneVisualNodes(nodes []layout.VisualNode) []layout.VisualNode {
	out := make([]layout.VisualNode, len(nodes))
	for i, n := range nodes {
		out[i] = n
		out[i].Tags = cloneStrings(n.Tags)
		out[i].IncomingLinks = cloneStrings(n.IncomingLinks)
		out[i].OutgoingLinks = cloneStrings(n.OutgoingLinks)
		if n.Velocity != nil {
			v := *n.Velocity
			out[i].Velocity = &v
		}
		if n.Force != nil {
			f := *n.Force
			out[i].Force = &f
		}
		if n.Level != nil {
			l := *n.Level
			out[i].Level = &l
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}

// AnalyzeDependencyChain returns the prerequisites and dependents of a content
// id. The traversal is cached per id; access is evaluated per call.
func (s *GraphService) AnalyzeDependencyChain(ctx context.Context, contentID string, completed map[string]bool) (*entities.DependencyChain, error) {
	if contentID == "" {
		return nil, pkgerrors.NewValidation("content id is required")
	}

	key := cacheKeyDeps + contentID
	var chain entities.DependencyChain
	if cached, ok := s.cache.Get(ctx, key); ok {
		chain = *cached.(*entities.DependencyChain)
	} else {
		gen := s.links.Generation()
		links, err := s.links.AllLinks(ctx)
		if err != nil {
			return nil, err
		}
		chain = s.analyzer.Analyze(links, contentID, nil)
		stored := chain
		s.links.cacheIfCurrent(ctx, gen, key, &stored, s.cfg().CacheTTL)
		if chain.Truncated {
			s.logger.Warn("Dependency traversal hit the depth cap",
				zap.String("contentID", contentID),
				zap.Int("maxDepth", s.cfg().MaxTraversalDepth),
			)
		}
	}

	chain.CanAccess = s.analyzer.CanAccess(chain, completed)
	return &chain, nil
}

// AnalyzeRelationships builds the relationship report of a module set
func (s *GraphService) AnalyzeRelationships(ctx context.Context, modules []entities.ContentModule) (*domainservices.RelationshipAnalysis, error) {
	key := cacheKeyAnalysis + fingerprint(modules)
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached.(*domainservices.RelationshipAnalysis), nil
	}

	gen := s.links.Generation()
	graph, err := s.BuildContentGraph(ctx, modules)
	if err != nil {
		return nil, err
	}
	cfg := s.cfg()
	report, err := s.analytics.Analyze(ctx, graph, modules, domainservices.SuggestionOptions{
		Threshold:    cfg.SimilarityThreshold,
		MaxPerModule: cfg.MaxSuggestionsPerModule,
		MaxTotal:     cfg.MaxRecommendedLinks,
		Workers:      cfg.ScoringWorkers,
		Now:          s.now().UTC(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to analyze relationships")
	}
	s.links.cacheIfCurrent(ctx, gen, key, report, cfg.CacheTTL)
	return report, nil
}

// fingerprint keys a module set by its sorted, de-duplicated ids
func fingerprint(modules []entities.ContentModule) string {
	ids := make([]string, 0, len(modules))
	seen := make(map[string]bool, len(modules))
	for _, m := range modules {
		if !seen[m.ID] {
			seen[m.ID] = true
			ids = append(ids, m.ID)
		}
	}
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(strings.Join(ids, "\x00")))
	return hex.EncodeToString(sum[:12])
}
