package di

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/ports"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/services"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/cache"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/config"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/messaging"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/observability"
)

// Container holds all application dependencies. Tracer, DB, NATS and Watcher
// are nil when the configuration does not enable them.
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *observability.Collector
	Tracer       *observability.TracerProvider
	DB           *sql.DB
	NATS         *messaging.NATSPublisher
	LinkStore    ports.LinkStore
	Cache        *cache.MemoryCache
	Publisher    ports.EventPublisher
	Exporter     ports.SnapshotExporter
	LinkService  *services.LinkService
	GraphService *services.GraphService
	Watcher      *config.ConfigWatcher
}

// Shutdown releases the resources opened by the container
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	if c.NATS != nil {
		if err := c.NATS.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Tracer != nil {
		if err := c.Tracer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	_ = c.Logger.Sync()
	return errors.Join(errs...)
}
