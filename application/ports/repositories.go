package ports

import (
	"context"
	"time"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/events"
)

// Record is anything a RecordStore can persist and index
type Record interface {
	GetID() string
	IndexValues() map[string]string
}

// Version is one entry of a record's change history. Record is nil for deletions.
type Version[T Record] struct {
	Version     int       `json:"version"`
	Record      *T        `json:"record,omitempty"`
	Description string    `json:"description,omitempty"`
	ChangedAt   time.Time `json:"changedAt"`
	Deleted     bool      `json:"deleted,omitempty"`
}

// RecordStore defines the persistence port for keyed, indexed records.
// Every write appends a version carrying the optional change description.
type RecordStore[T Record] interface {
	// Get returns the record and whether it exists
	Get(ctx context.Context, key string) (T, bool, error)

	// GetAll returns up to limit records; limit <= 0 returns everything
	GetAll(ctx context.Context, limit int) ([]T, error)

	// Add inserts a record and fails with a conflict error if the key exists
	Add(ctx context.Context, record T, description string) error

	// Put inserts or replaces a record
	Put(ctx context.Context, record T, description string) error

	// Delete removes a record and reports whether it existed
	Delete(ctx context.Context, key string, description string) (bool, error)

	// SearchByIndex returns records whose index value matches exactly
	SearchByIndex(ctx context.Context, index, value string, limit int) ([]T, error)

	// History returns every version of the key, oldest first
	History(ctx context.Context, key string) ([]Version[T], error)
}

// LinkStore is the record store holding content links
type LinkStore = RecordStore[entities.ContentLink]

// LinkVersion is one history entry of a content link
type LinkVersion = Version[entities.ContentLink]

// EventPublisher ships domain events to a bus
type EventPublisher interface {
	Publish(ctx context.Context, evts ...events.DomainEvent) error
}

// Cache stores computed values by key. Values are returned as stored so
// repeated hits hand back the same object.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context, pattern string) int
}

// SnapshotExporter writes a point-in-time copy of every link somewhere durable
type SnapshotExporter interface {
	Export(ctx context.Context, links []entities.ContentLink) (location string, err error)
}
