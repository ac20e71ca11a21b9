package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/config"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/di"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/interfaces/http/rest"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	handler := newRouter(container).Setup()

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("store", cfg.StoreBackend),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}
	cancel()
	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to release resources: %v", err)
	}

	log.Println("Server stopped")
}

func newRouter(container *di.Container) *rest.Router {
	cfg := container.Config
	metrics := container.Metrics
	if !cfg.EnableMetrics {
		metrics = nil
	}
	return rest.NewRouter(
		container.LinkService,
		container.GraphService,
		container.Exporter,
		metrics,
		container.Logger,
		rest.Options{
			EnableCORS:    cfg.EnableCORS,
			EnableTracing: cfg.EnableTracing,
			Ready: func(ctx context.Context) error {
				_, err := container.LinkStore.GetAll(ctx, 1)
				return err
			},
		},
	)
}
