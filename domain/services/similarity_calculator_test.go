package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/services"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/tests/fixtures"
)

func TestSimilarityCalculator_Factors(t *testing.T) {
	// Arrange
	a := fixtures.NewModuleBuilder("a").WithTags("go", "graphs").WithDifficulty(2).WithBlocks("text", "code").Build()
	b := fixtures.NewModuleBuilder("b").WithTags("GO", "testing", "tools").WithDifficulty(4).WithBlocks("code", "quiz").Build()
	calc := services.NewSimilarityCalculator(nil)

	// Act
	score := calc.Calculate(a, b)

	// Assert
	assert.Equal(t, "b", score.ContentID)
	assert.InDelta(t, 1.0/3.0, score.Factors.TagOverlap, 1e-9)
	assert.InDelta(t, 0.8, score.Factors.DifficultyProximity, 1e-9)
	assert.InDelta(t, 1.0/3.0, score.Factors.ContentTypeSimilarity, 1e-9)
	assert.InDelta(t, 0.4/3.0+0.24+0.1, score.Score, 1e-9)
	assert.Len(t, score.Reasons, 3)
}

func TestSimilarityCalculator_NonPositiveSpanUsesDefault(t *testing.T) {
	a := fixtures.NewModuleBuilder("a").WithDifficulty(2).Build()
	b := fixtures.NewModuleBuilder("b").WithDifficulty(4).Build()

	for _, span := range []float64{0, -3} {
		cfg := services.DefaultSimilarityConfig()
		cfg.DifficultySpan = span

		score := services.NewSimilarityCalculator(cfg).Calculate(a, b)

		assert.InDelta(t, 0.8, score.Factors.DifficultyProximity, 1e-9, "span %v", span)
		assert.InDelta(t, 0.24, score.Score, 1e-9, "span %v", span)
		assert.Equal(t, span, cfg.DifficultySpan, "caller config is left untouched")
	}
}

func TestSimilarityCalculator_Symmetry(t *testing.T) {
	a := fixtures.NewModuleBuilder("a").WithTags("x", "y").WithDifficultyLabel("beginner").WithBlocks("text").Build()
	b := fixtures.NewModuleBuilder("b").WithTags("y").WithDifficulty(4).WithBlocks("text", "video").Build()
	calc := services.NewSimilarityCalculator(nil)

	assert.InDelta(t, calc.Calculate(a, b).Score, calc.Calculate(b, a).Score, 1e-12)
}

func TestSimilarityCalculator_EmptyModules(t *testing.T) {
	score := services.NewSimilarityCalculator(nil).Calculate(entities.ContentModule{ID: "a"}, entities.ContentModule{ID: "b"})

	assert.Equal(t, 0.0, score.Factors.TagOverlap)
	assert.Equal(t, 0.0, score.Factors.ContentTypeSimilarity)
	assert.Equal(t, 1.0, score.Factors.DifficultyProximity)
	assert.InDelta(t, 0.3, score.Score, 1e-9)
}

func TestSimilarityCalculator_SuggestRelationshipType(t *testing.T) {
	calc := services.NewSimilarityCalculator(nil)
	easy := fixtures.NewModuleBuilder("easy").WithDifficultyLabel("beginner").Build()
	hard := fixtures.NewModuleBuilder("hard").WithDifficultyLabel("intermediate").Build()
	peer := fixtures.NewModuleBuilder("peer").WithDifficulty(1).Build()

	tests := []struct {
		name     string
		a, b     entities.ContentModule
		score    services.SimilarityScore
		expected entities.RelationshipType
	}{
		{"large difficulty gap", easy, hard, services.SimilarityScore{Score: 0.9}, entities.RelationshipPrerequisite},
		{"close and very similar", easy, peer, services.SimilarityScore{Score: 0.85}, entities.RelationshipRelated},
		{"same content types", easy, peer, services.SimilarityScore{Score: 0.5, Factors: services.SimilarityFactors{ContentTypeSimilarity: 0.7}}, entities.RelationshipSimilar},
		{"fallback", easy, peer, services.SimilarityScore{Score: 0.5}, entities.RelationshipRelated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calc.SuggestRelationshipType(tt.a, tt.b, tt.score))
		})
	}

	source, target := services.OrientPair(hard, easy, entities.RelationshipPrerequisite)
	assert.Equal(t, "easy", source.ID)
	assert.Equal(t, "hard", target.ID)
}

func TestLinkSuggester_TwoMatchingModules(t *testing.T) {
	// Arrange
	modules := []entities.ContentModule{
		fixtures.NewModuleBuilder("a").WithDifficulty(1).WithTags("x").Build(),
		fixtures.NewModuleBuilder("b").WithDifficulty(1).WithTags("x").Build(),
	}
	suggester := services.NewLinkSuggester(nil)

	// Act
	suggestions, err := suggester.Suggest(context.Background(), modules, nil, services.SuggestionOptions{
		Threshold: 0.5, MaxPerModule: 5, Now: fixtures.FixedTime,
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	link := suggestions[0].Link
	assert.Contains(t, []entities.RelationshipType{entities.RelationshipRelated, entities.RelationshipSimilar}, link.Type)
	assert.True(t, link.Metadata.Automatic)
	assert.GreaterOrEqual(t, suggestions[0].Score.Score, 0.5)
	assert.Equal(t, suggestions[0].Score.Score, link.Strength)
	assert.Contains(t, link.ID, "auto-")
}

func TestLinkSuggester_SkipsLinkedPairsAndCaps(t *testing.T) {
	modules := []entities.ContentModule{
		fixtures.NewModuleBuilder("hub").WithTags("x").Build(),
		fixtures.NewModuleBuilder("s1").WithTags("x").Build(),
		fixtures.NewModuleBuilder("s2").WithTags("x").Build(),
		fixtures.NewModuleBuilder("s3").WithTags("x").Build(),
	}
	existing := []entities.ContentLink{fixtures.NewLinkBuilder("s1", "hub").Build()}

	suggestions, err := services.NewLinkSuggester(nil).Suggest(context.Background(), modules, existing, services.SuggestionOptions{
		Threshold: 0.5, MaxPerModule: 1, Workers: 2, Now: time.Unix(0, 0),
	})

	require.NoError(t, err)
	perSource := map[string]int{}
	for _, s := range suggestions {
		perSource[s.Link.SourceID]++
		assert.False(t, s.Link.Connects("hub") && s.Link.Connects("s1"), "already linked pair must be skipped")
	}
	for source, n := range perSource {
		assert.Equal(t, 1, n, source)
	}
}

func TestLinkSuggester_OrientsPrerequisites(t *testing.T) {
	modules := []entities.ContentModule{
		fixtures.NewModuleBuilder("hard").WithTags("x").WithDifficulty(5).WithBlocks("text").Build(),
		fixtures.NewModuleBuilder("easy").WithTags("x").WithDifficulty(1).WithBlocks("text").Build(),
	}

	suggestions, err := services.NewLinkSuggester(nil).Suggest(context.Background(), modules, nil, services.SuggestionOptions{Threshold: 0.1})

	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, entities.RelationshipPrerequisite, suggestions[0].Link.Type)
	assert.Equal(t, "easy", suggestions[0].Link.SourceID)
	assert.Equal(t, "hard", suggestions[0].Link.TargetID)
}

func TestLinkSuggester_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := services.NewLinkSuggester(nil).Suggest(ctx, fixtures.Modules("a", "b"), nil, services.SuggestionOptions{Threshold: 0})

	assert.ErrorIs(t, err, context.Canceled)
}
