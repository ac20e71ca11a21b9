package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/services"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/layout"
	domainservices "github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/services"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/cache"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/persistence/memory"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/tests/fixtures"
)

func newServices(policy domainservices.AccessPolicy) (*services.LinkService, *services.GraphService) {
	shared := cache.NewMemoryCache(100, nil)
	links := services.NewLinkService(memory.NewRecordStore[entities.ContentLink](), shared, nil, nil, nil, nil, nil)
	links.SetClock(fixedClock())
	graphs := services.NewGraphService(links, shared, nil, domainservices.NewDependencyAnalyzer(0, policy), nil, nil, nil)
	return links, graphs
}

func TestBuildContentGraph_NodesAndEdges(t *testing.T) {
	// Arrange
	links, graphs := newServices(nil)
	ctx := context.Background()
	modules := []entities.ContentModule{
		fixtures.NewModuleBuilder("a").WithTitle("Intro").WithTags("go").WithDifficultyLabel("beginner").WithBlocks("text", "text", "quiz").Build(),
		fixtures.NewModuleBuilder("b").Build(),
	}
	inside, err := links.CreateLink(ctx, "a", "b", entities.RelationshipExample)
	require.NoError(t, err)
	outside, err := links.CreateLink(ctx, "a", "elsewhere", entities.RelationshipReference)
	require.NoError(t, err)

	// Act
	graph, err := graphs.BuildContentGraph(ctx, modules)

	// Assert
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 2)
	assert.Len(t, graph.Edges, 1)
	assert.Contains(t, graph.Edges, inside.ID)
	a := graph.Nodes["a"]
	assert.Equal(t, "Intro", a.Title)
	assert.Equal(t, "text", a.Type)
	assert.Equal(t, 1.0, a.Difficulty)
	assert.ElementsMatch(t, []string{inside.ID, outside.ID}, a.OutgoingLinks)
	assert.Equal(t, "module", graph.Nodes["b"].Type)
	assert.Equal(t, []string{inside.ID}, graph.Nodes["b"].IncomingLinks)
}

func TestBuildContentGraph_CacheIdentityAndInvalidation(t *testing.T) {
	links, graphs := newServices(nil)
	ctx := context.Background()
	modules := fixtures.Modules("a", "b", "c")

	first, err := graphs.BuildContentGraph(ctx, modules)
	require.NoError(t, err)
	reordered, err := graphs.BuildContentGraph(ctx, fixtures.Modules("c", "a", "b"))
	require.NoError(t, err)
	assert.Same(t, first, reordered, "module order must not change the cache key")

	_, err = links.CreateLink(ctx, "a", "b", entities.RelationshipRelated)
	require.NoError(t, err)

	rebuilt, err := graphs.BuildContentGraph(ctx, modules)
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
	assert.Len(t, rebuilt.Edges, 2)
}

func TestBuildContentGraph_ConcurrentCallersAgree(t *testing.T) {
	_, graphs := newServices(nil)
	ctx := context.Background()
	modules := fixtures.Modules("a", "b")

	var wg sync.WaitGroup
	results := make([]*entities.ContentGraph, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g, err := graphs.BuildContentGraph(ctx, modules)
			assert.NoError(t, err)
			results[i] = g
		}(i)
	}
	wg.Wait()

	for _, g := range results {
		require.NotNil(t, g)
		assert.Len(t, g.Nodes, 2)
	}
}

func TestApplyLayout_CachedBySize(t *testing.T) {
	_, graphs := newServices(nil)
	ctx := context.Background()
	graph, err := graphs.BuildContentGraph(ctx, fixtures.Modules("a", "b", "c", "d"))
	require.NoError(t, err)
	cfg := layout.Config{Type: layout.TypeGrid, Width: 400, Height: 400}

	first, err := graphs.ApplyLayout(ctx, graph, cfg)
	require.NoError(t, err)
	require.Len(t, first, 4)
	second, err := graphs.ApplyLayout(ctx, graph, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 100.0, first[0].Position.X)
}

func TestApplyLayout_CallersGetIndependentCopies(t *testing.T) {
	_, graphs := newServices(nil)
	ctx := context.Background()
	graph, err := graphs.BuildContentGraph(ctx, fixtures.Modules("a", "b"))
	require.NoError(t, err)
	cfg := layout.Config{Type: layout.TypeHierarchical, Width: 400, Height: 400}

	first, err := graphs.ApplyLayout(ctx, graph, cfg)
	require.NoError(t, err)
	want := first[0].Position
	first[0].Position.X = -1
	*first[0].Level = 99

	second, err := graphs.ApplyLayout(ctx, graph, cfg)
	require.NoError(t, err)
	assert.Equal(t, want, second[0].Position)
	require.NotNil(t, second[0].Level)
	assert.Equal(t, 0, *second[0].Level)
}

func newGatedServices() (*gatedStore, *services.LinkService, *services.GraphService) {
	store := newGatedStore()
	shared := cache.NewMemoryCache(100, nil)
	links := services.NewLinkService(store, shared, nil, nil, nil, nil, nil)
	links.SetClock(fixedClock())
	graphs := services.NewGraphService(links, shared, nil, nil, nil, nil, nil)
	return store, links, graphs
}

// readDuringWrite runs read against a link snapshot taken before a write
// commits, then returns once both have finished
func readDuringWrite(t *testing.T, store *gatedStore, links *services.LinkService, read func()) {
	t.Helper()
	loaded, release := store.arm()
	done := make(chan struct{})
	go func() {
		defer close(done)
		read()
	}()
	<-loaded
	_, err := links.CreateLink(context.Background(), "a", "b", entities.RelationshipSequence)
	require.NoError(t, err)
	close(release)
	<-done
}

func TestBuildContentGraph_DoesNotCacheViewOlderThanWrite(t *testing.T) {
	// Arrange
	store, links, graphs := newGatedServices()
	ctx := context.Background()
	modules := fixtures.Modules("a", "b")

	// Act
	readDuringWrite(t, store, links, func() {
		_, err := graphs.BuildContentGraph(ctx, modules)
		assert.NoError(t, err)
	})
	graph, err := graphs.BuildContentGraph(ctx, modules)

	// Assert
	require.NoError(t, err)
	assert.Len(t, graph.Edges, 1)
	assert.Equal(t, uint64(1), links.Generation())
}

func TestGetAnalytics_DoesNotCacheViewOlderThanWrite(t *testing.T) {
	store, links, _ := newGatedServices()
	ctx := context.Background()

	readDuringWrite(t, store, links, func() {
		_, err := links.GetAnalytics(ctx)
		assert.NoError(t, err)
	})
	analytics, err := links.GetAnalytics(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, analytics.TotalLinks)
}

func TestAnalyzeDependencyChain_DoesNotCacheViewOlderThanWrite(t *testing.T) {
	store, links, graphs := newGatedServices()
	ctx := context.Background()

	loaded, release := store.arm()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := graphs.AnalyzeDependencyChain(ctx, "b", nil)
		assert.NoError(t, err)
	}()
	<-loaded
	_, err := links.CreateLinksBatch(ctx, []services.LinkOperation{
		{SourceID: "a", TargetID: "b", Type: entities.RelationshipPrerequisite},
	})
	require.NoError(t, err)
	close(release)
	<-done

	chain, err := graphs.AnalyzeDependencyChain(ctx, "b", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, chain.Prerequisites)
}

func TestAnalyzeDependencyChain_PolicyAndInvalidation(t *testing.T) {
	// Arrange
	links, graphs := newServices(domainservices.RequireAllPrerequisites)
	ctx := context.Background()
	_, err := links.CreateLink(ctx, "a", "b", entities.RelationshipPrerequisite)
	require.NoError(t, err)
	second, err := links.CreateLink(ctx, "b", "c", entities.RelationshipPrerequisite)
	require.NoError(t, err)

	// Act
	locked, err := graphs.AnalyzeDependencyChain(ctx, "c", map[string]bool{"a": true})
	require.NoError(t, err)
	open, err := graphs.AnalyzeDependencyChain(ctx, "c", map[string]bool{"a": true, "b": true})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, []string{"a", "b"}, locked.Prerequisites)
	assert.Equal(t, 2, locked.Depth)
	assert.False(t, locked.CanAccess)
	assert.True(t, open.CanAccess)

	_, err = links.DeleteLink(ctx, second.ID)
	require.NoError(t, err)
	after, err := graphs.AnalyzeDependencyChain(ctx, "c", nil)
	require.NoError(t, err)
	assert.Empty(t, after.Prerequisites)
	assert.Equal(t, 0, after.Depth)
	assert.True(t, after.CanAccess)
}

func TestAnalyzeRelationships(t *testing.T) {
	links, graphs := newServices(nil)
	ctx := context.Background()
	modules := []entities.ContentModule{
		fixtures.NewModuleBuilder("a").WithTags("math").Build(),
		fixtures.NewModuleBuilder("b").WithTags("math").Build(),
		fixtures.NewModuleBuilder("c").WithTags("art").Build(),
	}
	_, err := links.CreateLink(ctx, "a", "b", entities.RelationshipPrerequisite)
	require.NoError(t, err)

	report, err := graphs.AnalyzeRelationships(ctx, modules)

	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, report.IsolatedNodes)
	assert.Equal(t, []string{"a", "b"}, report.CriticalPath)
	assert.Empty(t, report.CircularDependencies)
	assert.LessOrEqual(t, len(report.RecommendedLinks), 20)

	cached, err := graphs.AnalyzeRelationships(ctx, modules)
	require.NoError(t, err)
	assert.Same(t, report, cached)
}
