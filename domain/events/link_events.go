package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
)

// Event sources
const (
	// SourceLinkService is the link store inside the API process
	SourceLinkService = "content-graph.links"

	// SourceCLI is the graphctl operator tool
	SourceCLI = "content-graph.cli"
)

// Event types
const (
	TypeLinkCreated       = "link.created"
	TypeLinkUpdated       = "link.updated"
	TypeLinkDeleted       = "link.deleted"
	TypeLinksBatchCreated = "links.batch_created"
)

// Event detail keys
const (
	DetailLinkID    = "linkId"
	DetailPairID    = "pairId"
	DetailLinkCount = "linkCount"
)

// DomainEvent is anything a publisher can ship
type DomainEvent interface {
	GetEventID() string
	GetEventType() string
	GetAggregateID() string
	GetTimestamp() time.Time
}

// BaseEvent carries the fields every event shares
type BaseEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	AggregateID string    `json:"aggregate_id"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func newBase(eventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		EventID:     uuid.New().String(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Timestamp:   at,
		Version:     1,
	}
}

func (e BaseEvent) GetEventID() string      { return e.EventID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// LinkEvent is emitted when a single link (and its pair) changes
type LinkEvent struct {
	BaseEvent
	Link   entities.ContentLink `json:"link"`
	PairID string               `json:"pair_id,omitempty"`
}

// NewLinkCreatedEvent creates a link.created event
func NewLinkCreatedEvent(link entities.ContentLink, pairID string, at time.Time) *LinkEvent {
	return &LinkEvent{BaseEvent: newBase(TypeLinkCreated, link.ID, at), Link: link, PairID: pairID}
}

// NewLinkUpdatedEvent creates a link.updated event
func NewLinkUpdatedEvent(link entities.ContentLink, pairID string, at time.Time) *LinkEvent {
	return &LinkEvent{BaseEvent: newBase(TypeLinkUpdated, link.ID, at), Link: link, PairID: pairID}
}

// NewLinkDeletedEvent creates a link.deleted event
func NewLinkDeletedEvent(link entities.ContentLink, pairID string, at time.Time) *LinkEvent {
	return &LinkEvent{BaseEvent: newBase(TypeLinkDeleted, link.ID, at), Link: link, PairID: pairID}
}

// LinksBatchCreatedEvent is emitted after a batch commits
type LinksBatchCreatedEvent struct {
	BaseEvent
	BatchID   string   `json:"batch_id"`
	LinkIDs   []string `json:"link_ids"`
	Requested int      `json:"requested"`
	Skipped   int      `json:"skipped"`
}

// NewLinksBatchCreatedEvent creates a links.batch_created event
func NewLinksBatchCreatedEvent(batchID string, linkIDs []string, requested, skipped int, at time.Time) *LinksBatchCreatedEvent {
	return &LinksBatchCreatedEvent{
		BaseEvent: newBase(TypeLinksBatchCreated, batchID, at),
		BatchID:   batchID,
		LinkIDs:   linkIDs,
		Requested: requested,
		Skipped:   skipped,
	}
}

// Detail flattens an event into the key/value detail map used by publishers
func Detail(e DomainEvent) map[string]interface{} {
	detail := map[string]interface{}{
		"eventId":   e.GetEventID(),
		"eventType": e.GetEventType(),
		"timestamp": e.GetTimestamp(),
	}
	switch ev := e.(type) {
	case *LinkEvent:
		detail[DetailLinkID] = ev.Link.ID
		detail["link"] = ev.Link
		if ev.PairID != "" {
			detail[DetailPairID] = ev.PairID
		}
	case *LinksBatchCreatedEvent:
		detail["batchId"] = ev.BatchID
		detail["linkIds"] = ev.LinkIDs
		detail[DetailLinkCount] = len(ev.LinkIDs)
	}
	return detail
}
