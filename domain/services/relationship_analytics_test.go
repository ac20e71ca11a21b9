package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/services"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/tests/fixtures"
)

func graphOf(modules []entities.ContentModule, links []entities.ContentLink) *entities.ContentGraph {
	g := entities.NewContentGraph()
	for _, m := range modules {
		g.Nodes[m.ID] = &entities.ContentGraphNode{ID: m.ID, Title: m.Title, Tags: m.Metadata.Tags}
	}
	for _, l := range links {
		g.Edges[l.ID] = l
	}
	return g
}

func TestComputeLinkAnalytics_Empty(t *testing.T) {
	analytics := services.ComputeLinkAnalytics(nil, 10, 5)

	assert.Equal(t, 0, analytics.TotalLinks)
	assert.Equal(t, 0.0, analytics.AverageStrength)
	assert.NotNil(t, analytics.StrongestLinks)
	assert.Empty(t, analytics.StrongestLinks)
	assert.Empty(t, analytics.WeakestLinks)
	assert.Empty(t, analytics.MostConnected)
}

func TestComputeLinkAnalytics_Counts(t *testing.T) {
	links := []entities.ContentLink{
		fixtures.NewLinkBuilder("a", "b").WithStrength(0.2).Build(),
		fixtures.NewLinkBuilder("a", "c").WithStrength(0.9).WithType(entities.RelationshipExample).Build(),
		fixtures.NewLinkBuilder("c", "d").WithStrength(0.4).Automatic().Build(),
	}

	analytics := services.ComputeLinkAnalytics(links, 1, 2)

	assert.Equal(t, 3, analytics.TotalLinks)
	assert.InDelta(t, 0.5, analytics.AverageStrength, 1e-9)
	assert.Equal(t, 2, analytics.LinksByType[entities.RelationshipRelated])
	assert.Equal(t, 1, analytics.LinksByType[entities.RelationshipExample])
	assert.Equal(t, 1, analytics.AutomaticLinks)
	assert.Equal(t, 2, analytics.ManualLinks)
	require.Len(t, analytics.MostConnected, 1)
	assert.Equal(t, "a", analytics.MostConnected[0].ContentID)
	require.Len(t, analytics.WeakestLinks, 2)
	assert.Equal(t, 0.2, analytics.WeakestLinks[0].Strength)
	require.Len(t, analytics.StrongestLinks, 2)
	assert.Equal(t, 0.9, analytics.StrongestLinks[0].Strength)
}

func TestRelationshipAnalytics_Analyze(t *testing.T) {
	// Arrange
	modules := []entities.ContentModule{
		fixtures.NewModuleBuilder("a").WithTags("math").Build(),
		fixtures.NewModuleBuilder("b").WithTags("math", "algebra").Build(),
		fixtures.NewModuleBuilder("c").WithTags("physics").Build(),
		fixtures.NewModuleBuilder("d").WithTags("physics").Build(),
		fixtures.NewModuleBuilder("lonely").Build(),
	}
	links := append(fixtures.PrerequisiteChain("a", "b", "c"), fixtures.Prerequisite("a", "d"))
	svc := services.NewRelationshipAnalyticsService(nil, nil)

	// Act
	report, err := svc.Analyze(context.Background(), graphOf(modules, links), modules, services.SuggestionOptions{
		Threshold: 0.7, MaxPerModule: 5, MaxTotal: 20,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, report.CriticalPath)
	assert.Equal(t, []string{"lonely"}, report.IsolatedNodes)
	assert.Empty(t, report.CircularDependencies)
	assert.Equal(t, []services.Cluster{
		{Label: "math", NodeIDs: []string{"a", "b"}},
		{Label: "physics", NodeIDs: []string{"c", "d"}},
		{Label: "uncategorized", NodeIDs: []string{"lonely"}},
	}, report.Clusters)
	assert.Len(t, report.StrongestConnections, 3)
	assert.LessOrEqual(t, len(report.RecommendedLinks), 20)
	for _, rec := range report.RecommendedLinks {
		assert.False(t, rec.Link.Connects("a") && rec.Link.Connects("b"))
	}
	assert.Len(t, report.Influence, 5)
	assert.Greater(t, report.Influence["c"], report.Influence["lonely"])
}

func TestRelationshipAnalytics_CriticalPathOnCyclicData(t *testing.T) {
	svc := services.NewRelationshipAnalyticsService(nil, nil)
	links := fixtures.PrerequisiteChain("a", "b", "c", "a")

	path := svc.CriticalPath(links)

	assert.Len(t, path, 3)
}

func TestRelationshipAnalytics_Communities(t *testing.T) {
	modules := fixtures.Modules("a", "b", "c", "x", "y", "z")
	links := []entities.ContentLink{
		fixtures.NewLinkBuilder("a", "b").Build(),
		fixtures.NewLinkBuilder("b", "c").Build(),
		fixtures.NewLinkBuilder("c", "a").Build(),
		fixtures.NewLinkBuilder("x", "y").Build(),
		fixtures.NewLinkBuilder("y", "z").Build(),
		fixtures.NewLinkBuilder("z", "x").Build(),
	}
	svc := services.NewRelationshipAnalyticsService(nil, nil)

	communities := svc.Communities(graphOf(modules, links))

	require.Len(t, communities, 2)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, communities[0].NodeIDs)
	assert.ElementsMatch(t, []string{"x", "y", "z"}, communities[1].NodeIDs)
}
