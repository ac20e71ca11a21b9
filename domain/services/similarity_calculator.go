package services

import (
	"fmt"
	"math"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
)

// SimilarityConfig configures the weighted similarity composite
type SimilarityConfig struct {
	TagWeight         float64 // Weight of the tag overlap ratio
	DifficultyWeight  float64 // Weight of the difficulty proximity
	ContentTypeWeight float64 // Weight of the block-type Jaccard similarity

	// DifficultySpan is the difficulty distance at which proximity reaches zero
	DifficultySpan float64

	// Relationship suggestion thresholds
	PrerequisiteRankGap     float64
	RelatedScoreThreshold   float64
	SimilarContentThreshold float64
}

// DefaultSimilarityConfig returns the standard 40/30/30 weighting
func DefaultSimilarityConfig() *SimilarityConfig {
	return &SimilarityConfig{
		TagWeight:               0.4,
		DifficultyWeight:        0.3,
		ContentTypeWeight:       0.3,
		DifficultySpan:          10,
		PrerequisiteRankGap:     2,
		RelatedScoreThreshold:   0.8,
		SimilarContentThreshold: 0.6,
	}
}

// SimilarityFactors keeps each component of the composite for explainability
type SimilarityFactors struct {
	TagOverlap            float64 `json:"tagOverlap"`
	DifficultyProximity   float64 `json:"difficultyProximity"`
	ContentTypeSimilarity float64 `json:"contentTypeSimilarity"`
}

// SimilarityScore is the similarity of a candidate module to a reference module
type SimilarityScore struct {
	ContentID string            `json:"contentId"`
	Score     float64           `json:"score"`
	Reasons   []string          `json:"reasons"`
	Factors   SimilarityFactors `json:"factors"`
}

// SimilarityCalculator scores pairwise content similarity
type SimilarityCalculator struct {
	config *SimilarityConfig
}

// NewSimilarityCalculator creates a new similarity calculator. A non-positive
// DifficultySpan falls back to the default span.
func NewSimilarityCalculator(config *SimilarityConfig) *SimilarityCalculator {
	if config == nil {
		config = DefaultSimilarityConfig()
	}
	cfg := *config
	if !(cfg.DifficultySpan > 0) || math.IsInf(cfg.DifficultySpan, 0) {
		cfg.DifficultySpan = DefaultSimilarityConfig().DifficultySpan
	}
	return &SimilarityCalculator{config: &cfg}
}

// Calculate scores b against a. The result's ContentID is b's id.
func (sc *SimilarityCalculator) Calculate(a, b entities.ContentModule) SimilarityScore {
	tagsA := a.NormalizedTags()
	tagsB := b.NormalizedTags()
	tagOverlap := overlapRatio(tagsA, tagsB)

	diffA := a.Metadata.Difficulty.Rank()
	diffB := b.Metadata.Difficulty.Rank()
	proximity := math.Max(0, 1-math.Abs(diffA-diffB)/sc.config.DifficultySpan)

	typeSim := jaccard(a.BlockTypes(), b.BlockTypes())

	score := tagOverlap*sc.config.TagWeight +
		proximity*sc.config.DifficultyWeight +
		typeSim*sc.config.ContentTypeWeight

	reasons := make([]string, 0, 3)
	if tagOverlap > 0 {
		reasons = append(reasons, fmt.Sprintf("%d shared tags (%.0f%% overlap)",
			intersectionSize(tagsA, tagsB), tagOverlap*100))
	}
	if diffA == diffB {
		reasons = append(reasons, "same difficulty level")
	} else if proximity > 0 {
		reasons = append(reasons, fmt.Sprintf("difficulty within %.1f levels", math.Abs(diffA-diffB)))
	}
	if typeSim > 0 {
		reasons = append(reasons, fmt.Sprintf("%.0f%% content type similarity", typeSim*100))
	}

	return SimilarityScore{
		ContentID: b.ID,
		Score:     math.Min(score, 1.0),
		Reasons:   reasons,
		Factors: SimilarityFactors{
			TagOverlap:            tagOverlap,
			DifficultyProximity:   proximity,
			ContentTypeSimilarity: typeSim,
		},
	}
}

// SuggestRelationshipType proposes the relationship type for a scored pair.
// Orientation of a prerequisite suggestion is resolved with OrientPair.
func (sc *SimilarityCalculator) SuggestRelationshipType(a, b entities.ContentModule, similarity SimilarityScore) entities.RelationshipType {
	gap := math.Abs(a.Metadata.Difficulty.Rank() - b.Metadata.Difficulty.Rank())

	switch {
	case gap >= sc.config.PrerequisiteRankGap:
		return entities.RelationshipPrerequisite
	case gap <= 1 && similarity.Score >= sc.config.RelatedScoreThreshold:
		return entities.RelationshipRelated
	case similarity.Factors.ContentTypeSimilarity >= sc.config.SimilarContentThreshold:
		return entities.RelationshipSimilar
	default:
		return entities.RelationshipRelated
	}
}

// OrientPair returns (source, target) for a suggested link. Prerequisite links
// point from the easier module to the harder one; other types keep the order.
func OrientPair(a, b entities.ContentModule, t entities.RelationshipType) (entities.ContentModule, entities.ContentModule) {
	if t == entities.RelationshipPrerequisite && a.Metadata.Difficulty.Rank() > b.Metadata.Difficulty.Rank() {
		return b, a
	}
	return a, b
}

// overlapRatio returns |A∩B| / max(|A|,|B|,1)
func overlapRatio(a, b map[string]bool) float64 {
	denom := math.Max(float64(max(len(a), len(b))), 1)
	return float64(intersectionSize(a, b)) / denom
}

// jaccard returns |A∩B| / |A∪B|, zero for two empty sets
func jaccard(a, b map[string]bool) float64 {
	inter := intersectionSize(a, b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func intersectionSize(a, b map[string]bool) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}
