// Package messaging ships link events to EventBridge or NATS.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/events"
)

// PutEvents accepts at most this many entries per call
const eventBridgeBatchSize = 10

// EventBridgeAPI is the subset of the EventBridge client the publisher uses
type EventBridgeAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgePublisher publishes domain events to an EventBridge bus
type EventBridgePublisher struct {
	client   EventBridgeAPI
	eventBus string
	source   string
	logger   *zap.Logger
}

// NewEventBridgePublisher creates a new EventBridge publisher
func NewEventBridgePublisher(client EventBridgeAPI, eventBus, source string, logger *zap.Logger) *EventBridgePublisher {
	if eventBus == "" {
		eventBus = "default"
	}
	if source == "" {
		source = events.SourceLinkService
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBridgePublisher{client: client, eventBus: eventBus, source: source, logger: logger}
}

// Publish sends events in batches of ten
func (p *EventBridgePublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	for i := 0; i < len(evts); i += eventBridgeBatchSize {
		end := i + eventBridgeBatchSize
		if end > len(evts) {
			end = len(evts)
		}
		if err := p.publishBatch(ctx, evts[i:end]); err != nil {
			return fmt.Errorf("failed to publish event batch: %w", err)
		}
	}
	return nil
}

func (p *EventBridgePublisher) publishBatch(ctx context.Context, batch []events.DomainEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	for _, evt := range batch {
		detail, err := json.Marshal(events.Detail(evt))
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", evt.GetEventID(), err)
		}
		at := evt.GetTimestamp()
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBus),
			Source:       aws.String(p.source),
			DetailType:   aws.String(evt.GetEventType()),
			Detail:       aws.String(string(detail)),
			Resources:    []string{evt.GetAggregateID()},
			Time:         &at,
		})
	}

	output, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to put events: %w", err)
	}

	if output.FailedEntryCount > 0 {
		for i, entry := range output.Entries {
			if entry.ErrorCode != nil {
				p.logger.Error("EventBridge rejected event",
					zap.String("eventID", batch[i].GetEventID()),
					zap.String("code", aws.ToString(entry.ErrorCode)),
					zap.String("message", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%d events failed to publish", output.FailedEntryCount)
	}

	p.logger.Debug("Published events to EventBridge",
		zap.String("bus", p.eventBus),
		zap.Int("count", len(entries)),
	)
	return nil
}
