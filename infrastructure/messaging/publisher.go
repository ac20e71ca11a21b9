package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/ports"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/events"
)

// NoopPublisher drops every event
type NoopPublisher struct{}

// Publish does nothing
func (NoopPublisher) Publish(context.Context, ...events.DomainEvent) error { return nil }

// EventObserver counts published events
type EventObserver interface {
	ObserveEvent(eventType string, err error)
}

// ObservedPublisher logs and counts every publish of the wrapped publisher
type ObservedPublisher struct {
	inner    ports.EventPublisher
	observer EventObserver
	logger   *zap.Logger
}

// NewObservedPublisher wraps inner. observer may be nil.
func NewObservedPublisher(inner ports.EventPublisher, observer EventObserver, logger *zap.Logger) *ObservedPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObservedPublisher{inner: inner, observer: observer, logger: logger}
}

// Publish forwards events to the wrapped publisher
func (p *ObservedPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	err := p.inner.Publish(ctx, evts...)
	for _, evt := range evts {
		if p.observer != nil {
			p.observer.ObserveEvent(evt.GetEventType(), err)
		}
		if err != nil {
			p.logger.Error("Failed to publish event",
				zap.String("eventID", evt.GetEventID()),
				zap.String("eventType", evt.GetEventType()),
				zap.Error(err),
			)
		}
	}
	return err
}
