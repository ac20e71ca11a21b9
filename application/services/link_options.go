package services

import (
	"time"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
)

// LinkOption customizes a single CreateLink call
type LinkOption func(*linkOptions)

type linkOptions struct {
	strength       *float64
	description    string
	createdBy      string
	automatic      bool
	skipValidation bool
}

// WithStrength sets the link strength; values outside [0,1] are clamped
func WithStrength(s float64) LinkOption {
	return func(o *linkOptions) { o.strength = &s }
}

// WithDescription attaches a free-text description
func WithDescription(d string) LinkOption {
	return func(o *linkOptions) { o.description = d }
}

// WithCreatedBy records the author
func WithCreatedBy(author string) LinkOption {
	return func(o *linkOptions) { o.createdBy = author }
}

// AsAutomatic marks the link as machine generated
func AsAutomatic() LinkOption {
	return func(o *linkOptions) { o.automatic = true }
}

// SkipValidation bypasses the duplicate and cycle checks. Self links and
// unknown types are still rejected.
func SkipValidation() LinkOption {
	return func(o *linkOptions) { o.skipValidation = true }
}

// LinkOperation is one entry of a batch create
type LinkOperation struct {
	SourceID    string                    `json:"sourceId" validate:"required"`
	TargetID    string                    `json:"targetId" validate:"required"`
	Type        entities.RelationshipType `json:"type" validate:"required"`
	Strength    *float64                  `json:"strength,omitempty"`
	Description string                    `json:"description,omitempty"`
	CreatedBy   string                    `json:"createdBy,omitempty"`
	Automatic   bool                      `json:"automatic,omitempty"`
}

func (op LinkOperation) options() []LinkOption {
	opts := []LinkOption{SkipValidation(), WithDescription(op.Description), WithCreatedBy(op.CreatedBy)}
	if op.Strength != nil {
		opts = append(opts, WithStrength(*op.Strength))
	}
	if op.Automatic {
		opts = append(opts, AsAutomatic())
	}
	return opts
}

// BatchFailure describes a skipped batch entry
type BatchFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// BatchResult reports what a batch create committed
type BatchResult struct {
	BatchID string                 `json:"batchId"`
	Created []entities.ContentLink `json:"created"`
	Failed  []BatchFailure         `json:"failed"`
}

// LinkUpdate carries the mutable fields of a link. Nil fields are left alone.
type LinkUpdate struct {
	Strength    *float64 `json:"strength,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// StrengthRange is an inclusive strength interval
type StrengthRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// LinkFilter selects links; every set field must match
type LinkFilter struct {
	SourceIDs     []string
	TargetIDs     []string
	Types         []entities.RelationshipType
	StrengthRange *StrengthRange
	Automatic     *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// Matches reports whether a link passes every set condition
func (f LinkFilter) Matches(l entities.ContentLink) bool {
	if len(f.SourceIDs) > 0 && !containsString(f.SourceIDs, l.SourceID) {
		return false
	}
	if len(f.TargetIDs) > 0 && !containsString(f.TargetIDs, l.TargetID) {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == l.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.StrengthRange != nil && (l.Strength < f.StrengthRange.Min || l.Strength > f.StrengthRange.Max) {
		return false
	}
	if f.Automatic != nil && l.Metadata.Automatic != *f.Automatic {
		return false
	}
	if f.CreatedAfter != nil && !l.Metadata.Created.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !l.Metadata.Created.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

// ContentLinks groups the links touching one content id
type ContentLinks struct {
	Incoming []entities.ContentLink `json:"incoming"`
	Outgoing []entities.ContentLink `json:"outgoing"`
	All      []entities.ContentLink `json:"all"`
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
