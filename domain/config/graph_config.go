package config

import "time"

// GraphConfig holds the tunable rules of the relationship graph
type GraphConfig struct {
	// Link defaults
	DefaultStrength float64 `yaml:"defaultStrength"`
	DefaultAuthor   string  `yaml:"defaultAuthor"`

	// Suggestion limits
	SimilarityThreshold     float64 `yaml:"similarityThreshold"`
	MaxSuggestionsPerModule int     `yaml:"maxSuggestionsPerModule"`
	MaxRecommendedLinks     int     `yaml:"maxRecommendedLinks"`
	ScoringWorkers          int     `yaml:"scoringWorkers"`

	// Traversal
	MaxTraversalDepth int `yaml:"maxTraversalDepth"`

	// Caching
	CacheTTL      time.Duration `yaml:"cacheTTL"`
	CacheMaxItems int           `yaml:"cacheMaxItems"`

	// Layout
	LayoutIterations int `yaml:"layoutIterations"`

	// Analytics
	MostConnectedLimit int `yaml:"mostConnectedLimit"`
	ExtremeLinksLimit  int `yaml:"extremeLinksLimit"`
}

// DefaultGraphConfig returns the default graph configuration
func DefaultGraphConfig() *GraphConfig {
	return &GraphConfig{
		DefaultStrength: 1.0,
		DefaultAuthor:   "user",

		SimilarityThreshold:     0.7,
		MaxSuggestionsPerModule: 5,
		MaxRecommendedLinks:     20,
		ScoringWorkers:          8,

		MaxTraversalDepth: 256,

		CacheTTL:      5 * time.Minute,
		CacheMaxItems: 1000,

		LayoutIterations: 300,

		MostConnectedLimit: 10,
		ExtremeLinksLimit:  5,
	}
}

// Normalize replaces unset or out-of-range values with defaults
func (c *GraphConfig) Normalize() *GraphConfig {
	d := DefaultGraphConfig()
	out := *c
	if out.DefaultStrength <= 0 || out.DefaultStrength > 1 {
		out.DefaultStrength = d.DefaultStrength
	}
	if out.DefaultAuthor == "" {
		out.DefaultAuthor = d.DefaultAuthor
	}
	if out.SimilarityThreshold <= 0 || out.SimilarityThreshold > 1 {
		out.SimilarityThreshold = d.SimilarityThreshold
	}
	if out.MaxSuggestionsPerModule <= 0 {
		out.MaxSuggestionsPerModule = d.MaxSuggestionsPerModule
	}
	if out.MaxRecommendedLinks <= 0 {
		out.MaxRecommendedLinks = d.MaxRecommendedLinks
	}
	if out.ScoringWorkers <= 0 {
		out.ScoringWorkers = d.ScoringWorkers
	}
	if out.MaxTraversalDepth <= 0 {
		out.MaxTraversalDepth = d.MaxTraversalDepth
	}
	if out.CacheTTL <= 0 {
		out.CacheTTL = d.CacheTTL
	}
	if out.CacheMaxItems <= 0 {
		out.CacheMaxItems = d.CacheMaxItems
	}
	if out.LayoutIterations <= 0 {
		out.LayoutIterations = d.LayoutIterations
	}
	if out.MostConnectedLimit <= 0 {
		out.MostConnectedLimit = d.MostConnectedLimit
	}
	if out.ExtremeLinksLimit <= 0 {
		out.ExtremeLinksLimit = d.ExtremeLinksLimit
	}
	return &out
}
