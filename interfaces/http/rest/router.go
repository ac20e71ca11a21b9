package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/ports"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/services"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/observability"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/interfaces/http/rest/handlers"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/interfaces/http/rest/middleware"
)

// Options toggles the optional parts of the router
type Options struct {
	ServiceName    string
	EnableCORS     bool
	AllowedOrigins []string
	EnableTracing  bool
	RequestTimeout time.Duration

	// Ready reports whether dependencies can serve traffic; nil means always ready
	Ready func(ctx context.Context) error
}

// Router creates and configures the HTTP router
type Router struct {
	links    *services.LinkService
	graphs   *services.GraphService
	exporter ports.SnapshotExporter
	metrics  *observability.Collector
	logger   *zap.Logger
	options  Options
}

// NewRouter creates a new router instance. metrics and exporter may be nil.
func NewRouter(
	links *services.LinkService,
	graphs *services.GraphService,
	exporter ports.SnapshotExporter,
	metrics *observability.Collector,
	logger *zap.Logger,
	options Options,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.ServiceName == "" {
		options.ServiceName = "content-graph"
	}
	if options.RequestTimeout <= 0 {
		options.RequestTimeout = 30 * time.Second
	}
	if len(options.AllowedOrigins) == 0 {
		options.AllowedOrigins = []string{"*"}
	}
	return &Router{
		links:    links,
		graphs:   graphs,
		exporter: exporter,
		metrics:  metrics,
		logger:   logger,
		options:  options,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.options.EnableTracing {
		router.Use(observability.TracingMiddleware(rt.options.ServiceName))
	}
	if rt.metrics != nil {
		router.Use(observability.MetricsMiddleware(rt.metrics))
	}
	if rt.options.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.options.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-Trace-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	linkHandler := handlers.NewLinkHandler(rt.links, rt.logger)
	graphHandler := handlers.NewGraphHandler(rt.graphs, rt.logger)
	suggestionHandler := handlers.NewSuggestionHandler(rt.links, rt.logger)
	snapshotHandler := handlers.NewSnapshotHandler(rt.links, rt.exporter, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(rt.options.RequestTimeout))

		r.Route("/links", func(r chi.Router) {
			r.Post("/", linkHandler.CreateLink)
			r.Get("/", linkHandler.ListLinks)
			r.Post("/batch", linkHandler.CreateLinksBatch)
			r.Get("/{linkID}", linkHandler.GetLink)
			r.Patch("/{linkID}", linkHandler.UpdateLink)
			r.Delete("/{linkID}", linkHandler.DeleteLink)
			r.Get("/{linkID}/history", linkHandler.GetLinkHistory)
		})

		r.Route("/content/{contentID}", func(r chi.Router) {
			r.Get("/links", linkHandler.GetContentLinks)
			r.Post("/dependencies", graphHandler.AnalyzeDependencies)
		})

		r.Get("/cycles", linkHandler.GetCycles)
		r.Get("/analytics", linkHandler.GetAnalytics)

		r.Route("/graph", func(r chi.Router) {
			r.Post("/", graphHandler.BuildGraph)
			r.Post("/layout", graphHandler.ApplyLayout)
			r.Post("/analysis", graphHandler.AnalyzeRelationships)
		})

		r.Route("/suggestions", func(r chi.Router) {
			r.Post("/", suggestionHandler.Suggest)
			r.Post("/accept", suggestionHandler.Accept)
		})

		r.Post("/snapshots", snapshotHandler.ExportSnapshot)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports whether the link store answers
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if rt.options.Ready != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := rt.options.Ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
