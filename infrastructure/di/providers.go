package di

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/ports"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/services"
	domainconfig "github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/config"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/layout"
	domainservices "github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/services"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/cache"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/config"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/export"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/messaging"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/observability"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/persistence"
	dynamostore "github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/persistence/dynamodb"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/persistence/memory"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/persistence/sqlite"
)

const (
	serviceName   = "content-graph"
	linkNamespace = "links"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("content_graph")
}

// ProvideTracer installs the tracer provider when tracing is enabled
func ProvideTracer(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(ctx, serviceName, cfg.Environment, cfg.OTLPEndpoint)
}

// ProvideSQLiteDB opens the SQLite database when it backs the link store
func ProvideSQLiteDB(cfg *config.Config) (*sql.DB, error) {
	if cfg.StoreBackend != config.StoreSQLite {
		return nil, nil
	}
	return sqlite.Open(cfg.SQLitePath)
}

// ProvideLinkStore selects the configured backend and wraps it with retries,
// the circuit breaker, tracing and metrics
func ProvideLinkStore(
	cfg *config.Config,
	awsCfg aws.Config,
	db *sql.DB,
	metrics *observability.Collector,
	logger *zap.Logger,
) (ports.LinkStore, error) {
	var inner ports.LinkStore
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		if db == nil {
			return nil, fmt.Errorf("sqlite store selected without a database")
		}
		inner = sqlite.NewRecordStore[entities.ContentLink](db, linkNamespace)
	case config.StoreDynamoDB:
		inner = dynamostore.NewRecordStore[entities.ContentLink](
			awsdynamodb.NewFromConfig(awsCfg), cfg.TableName, linkNamespace, logger)
	case config.StoreMemory:
		inner = memory.NewRecordStore[entities.ContentLink]()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	logger.Info("Link store ready", zap.String("backend", cfg.StoreBackend))
	return persistence.NewResilientStore[entities.ContentLink](
		inner, cfg.StoreBackend, persistence.DefaultResilienceConfig(), metrics, logger), nil
}

// ProvideCache creates the derived-view cache and starts its sweeper
func ProvideCache(ctx context.Context, graphCfg *domainconfig.GraphConfig, logger *zap.Logger) *cache.MemoryCache {
	c := cache.NewMemoryCache(graphCfg.CacheMaxItems, logger)
	c.StartCleanup(ctx, graphCfg.CacheTTL)
	return c
}

// ProvideNATS connects to NATS when a URL is configured
func ProvideNATS(cfg *config.Config, logger *zap.Logger) (*messaging.NATSPublisher, error) {
	if cfg.NATSURL == "" {
		return nil, nil
	}
	return messaging.ConnectNATS(cfg.NATSURL, cfg.NATSSubjectPrefix, logger)
}

// ProvideEventPublisher prefers EventBridge, then NATS, and otherwise drops events
func ProvideEventPublisher(
	cfg *config.Config,
	awsCfg aws.Config,
	nats *messaging.NATSPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) ports.EventPublisher {
	var inner ports.EventPublisher
	switch {
	case cfg.EventBusName != "":
		inner = messaging.NewEventBridgePublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, "", logger)
	case nats != nil:
		inner = nats
	default:
		inner = messaging.NoopPublisher{}
	}
	return messaging.NewObservedPublisher(inner, metrics, logger)
}

// ProvideSnapshotExporter writes snapshots to S3 when a bucket is configured
// and to the local export directory otherwise
func ProvideSnapshotExporter(cfg *config.Config, awsCfg aws.Config) ports.SnapshotExporter {
	if cfg.ExportS3Bucket != "" {
		client := export.NewS3Client(awsCfg, cfg.ExportS3Endpoint)
		return export.NewS3Exporter(client, cfg.ExportS3Bucket, cfg.ExportS3Key)
	}
	return export.NewFileExporter(cfg.ExportDir, "")
}

// ProvideGraphConfig exposes the graph tuning section
func ProvideGraphConfig(cfg *config.Config) *domainconfig.GraphConfig {
	return cfg.Graph.Normalize()
}

// ProvideCycleDetector creates the cycle detector
func ProvideCycleDetector(graphCfg *domainconfig.GraphConfig) *domainservices.CycleDetector {
	return domainservices.NewCycleDetector(graphCfg.MaxTraversalDepth)
}

// ProvideLinkSuggester creates the similarity based link suggester
func ProvideLinkSuggester() *domainservices.LinkSuggester {
	return domainservices.NewLinkSuggester(
		domainservices.NewSimilarityCalculator(domainservices.DefaultSimilarityConfig()))
}

// ProvideDependencyAnalyzer creates the analyzer with the configured access policy
func ProvideDependencyAnalyzer(cfg *config.Config, graphCfg *domainconfig.GraphConfig) *domainservices.DependencyAnalyzer {
	policy := domainservices.AllowAll
	if cfg.AccessPolicy == config.AccessPrerequisites {
		policy = domainservices.RequireAllPrerequisites
	}
	return domainservices.NewDependencyAnalyzer(graphCfg.MaxTraversalDepth, policy)
}

// ProvideRelationshipAnalytics creates the relationship analytics service
func ProvideRelationshipAnalytics(
	cycles *domainservices.CycleDetector,
	suggester *domainservices.LinkSuggester,
) *domainservices.RelationshipAnalyticsService {
	return domainservices.NewRelationshipAnalyticsService(cycles, suggester)
}

// ProvideLayoutEngine creates the layout engine
func ProvideLayoutEngine() *layout.Engine {
	return layout.NewEngine()
}

// ProvideLinkService creates the link service and reports its writes to metrics
func ProvideLinkService(
	store ports.LinkStore,
	c *cache.MemoryCache,
	publisher ports.EventPublisher,
	cycles *domainservices.CycleDetector,
	suggester *domainservices.LinkSuggester,
	graphCfg *domainconfig.GraphConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.LinkService {
	svc := services.NewLinkService(store, c, publisher, cycles, suggester, graphCfg, logger)
	svc.SetObserver(metrics)
	return svc
}

// ProvideGraphService creates the graph service
func ProvideGraphService(
	links *services.LinkService,
	c *cache.MemoryCache,
	engine *layout.Engine,
	analyzer *domainservices.DependencyAnalyzer,
	analytics *domainservices.RelationshipAnalyticsService,
	graphCfg *domainconfig.GraphConfig,
	logger *zap.Logger,
) *services.GraphService {
	return services.NewGraphService(links, c, engine, analyzer, analytics, graphCfg, logger)
}

// ProvideConfigWatcher watches the YAML config file, when there is one, and
// pushes graph tuning changes into the services
func ProvideConfigWatcher(
	ctx context.Context,
	cfg *config.Config,
	links *services.LinkService,
	graphs *services.GraphService,
	logger *zap.Logger,
) (*config.ConfigWatcher, error) {
	if cfg.ConfigFile == "" {
		return nil, nil
	}
	watcher, err := config.NewConfigWatcher(cfg.ConfigFile, cfg.Graph, logger)
	if err != nil {
		return nil, err
	}
	watcher.OnChange(func(next *domainconfig.GraphConfig) {
		links.UpdateConfig(next)
		graphs.UpdateConfig(next)
		links.InvalidateCache(ctx)
	})
	return watcher, nil
}
