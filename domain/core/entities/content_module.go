package entities

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ContentBlock is one block of a module's body. Only its type is read by the graph.
type ContentBlock struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// ModuleMetadata holds the module attributes the graph reads
type ModuleMetadata struct {
	Tags          []string   `json:"tags"`
	Difficulty    Difficulty `json:"difficulty"`
	Prerequisites []string   `json:"prerequisites,omitempty"`
}

// ContentModule is an external content unit referenced by id
type ContentModule struct {
	ID       string         `json:"id" validate:"required"`
	Title    string         `json:"title"`
	Blocks   []ContentBlock `json:"blocks"`
	Metadata ModuleMetadata `json:"metadata"`
}

// BlockTypes returns the distinct block types of the module
func (m ContentModule) BlockTypes() map[string]bool {
	types := make(map[string]bool, len(m.Blocks))
	for _, b := range m.Blocks {
		if b.Type != "" {
			types[b.Type] = true
		}
	}
	return types
}

// DominantBlockType returns the most frequent block type, "module" when empty.
// Ties resolve to the type seen first.
func (m ContentModule) DominantBlockType() string {
	counts := make(map[string]int)
	best, bestCount := "module", 0
	for _, b := range m.Blocks {
		if b.Type == "" {
			continue
		}
		counts[b.Type]++
		if counts[b.Type] > bestCount {
			best, bestCount = b.Type, counts[b.Type]
		}
	}
	return best
}

// NormalizedTags returns lowercased, trimmed, de-duplicated tags
func (m ContentModule) NormalizedTags() map[string]bool {
	tags := make(map[string]bool, len(m.Metadata.Tags))
	for _, tag := range m.Metadata.Tags {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		if normalized != "" {
			tags[normalized] = true
		}
	}
	return tags
}

var difficultyRanks = map[string]float64{
	"beginner":     1,
	"intermediate": 3,
	"advanced":     5,
}

// Difficulty accepts either a numeric level or a categorical label
type Difficulty struct {
	Level float64
	Label string
}

// NumericDifficulty creates a numeric difficulty
func NumericDifficulty(level float64) Difficulty {
	return Difficulty{Level: level}
}

// LabeledDifficulty creates a categorical difficulty
func LabeledDifficulty(label string) Difficulty {
	return Difficulty{Label: label}
}

// Rank normalizes the difficulty onto the numeric scale. Labels map onto
// 1..5 so categorical and numeric modules compare directly; unknown labels
// and unset values rank 0.
func (d Difficulty) Rank() float64 {
	if d.Label != "" {
		return difficultyRanks[strings.ToLower(strings.TrimSpace(d.Label))]
	}
	return d.Level
}

// IsZero reports whether no difficulty was supplied
func (d Difficulty) IsZero() bool {
	return d.Label == "" && d.Level == 0
}

// MarshalJSON writes the label when present, the number otherwise
func (d Difficulty) MarshalJSON() ([]byte, error) {
	if d.Label != "" {
		return json.Marshal(d.Label)
	}
	return json.Marshal(d.Level)
}

// UnmarshalJSON reads either representation
func (d *Difficulty) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Difficulty{}
		return nil
	}
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		*d = Difficulty{Label: label}
		return nil
	}
	var level float64
	if err := json.Unmarshal(data, &level); err != nil {
		return fmt.Errorf("difficulty must be a number or a label: %w", err)
	}
	*d = Difficulty{Level: level}
	return nil
}
