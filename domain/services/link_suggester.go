package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
)

// SuggestionOptions bounds automatic link generation
type SuggestionOptions struct {
	Threshold    float64
	MaxPerModule int
	MaxTotal     int // 0 means unbounded
	Workers      int
	CreatedBy    string
	Now          time.Time
}

// LinkSuggestion is a proposed, unsaved link with the score that produced it
type LinkSuggestion struct {
	Link  entities.ContentLink `json:"link"`
	Score SimilarityScore      `json:"score"`
}

// LinkSuggester turns pairwise similarity into typed link proposals
type LinkSuggester struct {
	similarity *SimilarityCalculator
}

// NewLinkSuggester creates a suggester on top of a similarity calculator
func NewLinkSuggester(similarity *SimilarityCalculator) *LinkSuggester {
	if similarity == nil {
		similarity = NewSimilarityCalculator(nil)
	}
	return &LinkSuggester{similarity: similarity}
}

// Suggest scores every unordered module pair that is not already linked in
// either direction and proposes a link for pairs at or above the threshold.
// Results are sorted by score descending and capped per source module.
func (s *LinkSuggester) Suggest(
	ctx context.Context,
	modules []entities.ContentModule,
	existing []entities.ContentLink,
	opts SuggestionOptions,
) ([]LinkSuggestion, error) {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.CreatedBy == "" {
		opts.CreatedBy = "system"
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	linked := make(map[string]bool, len(existing))
	for _, l := range existing {
		linked[pairKey(l.SourceID, l.TargetID)] = true
	}

	perModule := make([][]LinkSuggestion, len(modules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i := range modules {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a := modules[i]
			for j := i + 1; j < len(modules); j++ {
				b := modules[j]
				if a.ID == b.ID || linked[pairKey(a.ID, b.ID)] {
					continue
				}
				score := s.similarity.Calculate(a, b)
				if score.Score < opts.Threshold {
					continue
				}
				perModule[i] = append(perModule[i], s.propose(a, b, score, opts))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []LinkSuggestion
	for _, batch := range perModule {
		all = append(all, batch...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Score.Score != all[j].Score.Score {
			return all[i].Score.Score > all[j].Score.Score
		}
		if all[i].Link.SourceID != all[j].Link.SourceID {
			return all[i].Link.SourceID < all[j].Link.SourceID
		}
		return all[i].Link.TargetID < all[j].Link.TargetID
	})

	counts := make(map[string]int)
	result := make([]LinkSuggestion, 0, len(all))
	for _, sug := range all {
		if opts.MaxPerModule > 0 && counts[sug.Link.SourceID] >= opts.MaxPerModule {
			continue
		}
		counts[sug.Link.SourceID]++
		result = append(result, sug)
		if opts.MaxTotal > 0 && len(result) >= opts.MaxTotal {
			break
		}
	}

	return result, nil
}

func (s *LinkSuggester) propose(a, b entities.ContentModule, score SimilarityScore, opts SuggestionOptions) LinkSuggestion {
	relType := s.similarity.SuggestRelationshipType(a, b, score)
	source, target := OrientPair(a, b, relType)
	score.ContentID = target.ID

	return LinkSuggestion{
		Link: entities.ContentLink{
			ID:       entities.NewLinkID(source.ID, target.ID, relType, opts.Now, true),
			SourceID: source.ID,
			TargetID: target.ID,
			Type:     relType,
			Strength: entities.ClampStrength(score.Score),
			Metadata: entities.LinkMetadata{
				Created:     opts.Now,
				CreatedBy:   opts.CreatedBy,
				Description: strings.Join(score.Reasons, "; "),
				Automatic:   true,
			},
		},
		Score: score,
	}
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}
