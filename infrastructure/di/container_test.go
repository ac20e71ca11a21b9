package di_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/config"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/di"
)

func TestInitializeContainer(t *testing.T) {
	tests := []struct {
		name    string
		backend string
	}{
		{"memory", config.StoreMemory},
		{"sqlite", config.StoreSQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			cfg := config.Default()
			cfg.LogLevel = "error"
			cfg.StoreBackend = tt.backend
			cfg.SQLitePath = filepath.Join(t.TempDir(), "graph.db")
			cfg.ExportDir = t.TempDir()

			// Act
			container, err := di.InitializeContainer(ctx, cfg)
			require.NoError(t, err)
			defer container.Shutdown(ctx)

			_, err = container.LinkService.CreateLink(ctx, "a", "b", entities.RelationshipSimilar)
			require.NoError(t, err)
			location, count, err := container.LinkService.ExportSnapshot(ctx, container.Exporter)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, 2, count)
			assert.Equal(t, cfg.ExportDir, filepath.Dir(location))
			assert.Equal(t, 2.0, testutil.ToFloat64(container.Metrics.LinksCreated))
			assert.Nil(t, container.Watcher)
			assert.Nil(t, container.NATS)
			if tt.backend == config.StoreSQLite {
				assert.NotNil(t, container.DB)
			} else {
				assert.Nil(t, container.DB)
			}
		})
	}
}

func TestProvideLogger_RejectsUnknownLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "chatty"

	_, err := di.ProvideLogger(cfg)

	assert.Error(t, err)
}
