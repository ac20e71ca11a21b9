package entities

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Index names maintained for every persisted link
const (
	IndexSourceID  = "sourceId"
	IndexTargetID  = "targetId"
	IndexType      = "type"
	IndexStrength  = "strength"
	IndexCreated   = "created"
	IndexAutomatic = "automatic"
)

const (
	reverseSuffix   = "-reverse"
	automaticPrefix = "auto-"
)

// LinkMetadata carries authorship and provenance of a link
type LinkMetadata struct {
	Created     time.Time `json:"created"`
	CreatedBy   string    `json:"createdBy"`
	Description string    `json:"description,omitempty"`
	Automatic   bool      `json:"automatic"`
}

// ContentLink is a directed, typed edge between two content identifiers.
// Source and target are opaque references into an external content store.
type ContentLink struct {
	ID       string           `json:"id"`
	SourceID string           `json:"sourceId"`
	TargetID string           `json:"targetId"`
	Type     RelationshipType `json:"type"`
	Strength float64          `json:"strength"`
	Metadata LinkMetadata     `json:"metadata"`

	// PairID names the other half of a bidirectional pair, empty otherwise
	PairID string `json:"pairId,omitempty"`
}

// ClampStrength limits a strength value to [0,1]
func ClampStrength(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// NewLinkID builds the id of a forward link
func NewLinkID(sourceID, targetID string, t RelationshipType, at time.Time, automatic bool) string {
	id := fmt.Sprintf("%s-%s-%s-%d", sourceID, targetID, t, at.UnixMilli())
	if automatic {
		return automaticPrefix + id
	}
	return id
}

// ReverseLinkID builds the id of the reverse half of a bidirectional pair
func ReverseLinkID(sourceID, targetID string, t RelationshipType) string {
	return fmt.Sprintf("%s-%s-%s%s", targetID, sourceID, t, reverseSuffix)
}

// GetID returns the record key
func (l ContentLink) GetID() string {
	return l.ID
}

// IndexValues returns the secondary index entries for the link
func (l ContentLink) IndexValues() map[string]string {
	return map[string]string{
		IndexSourceID:  l.SourceID,
		IndexTargetID:  l.TargetID,
		IndexType:      string(l.Type),
		IndexStrength:  strconv.FormatFloat(l.Strength, 'f', 4, 64),
		IndexCreated:   l.Metadata.Created.UTC().Format(time.RFC3339Nano),
		IndexAutomatic: strconv.FormatBool(l.Metadata.Automatic),
	}
}

// IsReverse reports whether the link is the derived half of a pair
func (l ContentLink) IsReverse() bool {
	return strings.HasSuffix(l.ID, reverseSuffix)
}

// Connects reports whether the link touches the given content id
func (l ContentLink) Connects(id string) bool {
	return l.SourceID == id || l.TargetID == id
}

// Reverse derives the paired reverse link
func (l ContentLink) Reverse() ContentLink {
	return ContentLink{
		ID:       ReverseLinkID(l.SourceID, l.TargetID, l.Type),
		SourceID: l.TargetID,
		TargetID: l.SourceID,
		Type:     l.Type.ReverseType(),
		Strength: l.Strength,
		Metadata: l.Metadata,
		PairID:   l.ID,
	}
}
