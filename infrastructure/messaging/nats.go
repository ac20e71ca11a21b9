package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/events"
)

// Conn is the part of a NATS connection the publisher uses
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes JSON encoded events on <prefix>.<event type>
type NATSPublisher struct {
	conn   Conn
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

// ConnectNATS dials url with automatic reconnection
func ConnectNATS(url, prefix string, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("content-graph"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	p := NewNATSPublisher(nc, prefix, logger)
	p.nc = nc
	return p, nil
}

// NewNATSPublisher publishes on an existing connection
func NewNATSPublisher(conn Conn, prefix string, logger *zap.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = "content-graph"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}
}

// Subject returns the subject an event type is published on
func (p *NATSPublisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

// Publish sends each event as its own message
func (p *NATSPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	for _, evt := range evts {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(events.Detail(evt))
		if err != nil {
			return fmt.Errorf("marshaling event %s: %w", evt.GetEventID(), err)
		}
		if err := p.conn.Publish(p.Subject(evt.GetEventType()), data); err != nil {
			return fmt.Errorf("publishing event %s: %w", evt.GetEventID(), err)
		}
	}
	return nil
}

// Close drains the connection opened by ConnectNATS
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
