//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/config"
)

// InfrastructureSet provides clients, storage, messaging and observability
var InfrastructureSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideMetrics,
	ProvideTracer,
	ProvideSQLiteDB,
	ProvideLinkStore,
	ProvideCache,
	ProvideNATS,
	ProvideEventPublisher,
	ProvideSnapshotExporter,
)

// DomainSet provides the graph algorithms and application services
var DomainSet = wire.NewSet(
	ProvideGraphConfig,
	ProvideCycleDetector,
	ProvideLinkSuggester,
	ProvideDependencyAnalyzer,
	ProvideRelationshipAnalytics,
	ProvideLayoutEngine,
	ProvideLinkService,
	ProvideGraphService,
	ProvideConfigWatcher,
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	InfrastructureSet,
	DomainSet,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
