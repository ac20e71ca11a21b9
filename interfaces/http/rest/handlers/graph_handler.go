package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/services"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/layout"
)

// GraphHandler serves graph construction, layout and analysis
type GraphHandler struct {
	responder
	graphs *services.GraphService
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(graphs *services.GraphService, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{responder: responder{logger: logger}, graphs: graphs}
}

// ModulesRequest carries the module set a graph is built from
type ModulesRequest struct {
	Modules []entities.ContentModule `json:"modules" validate:"required,min=1,dive"`
}

// LayoutRequest carries the module set and the layout to apply
type LayoutRequest struct {
	Modules []entities.ContentModule `json:"modules" validate:"required,min=1,dive"`
	Layout  LayoutOptions            `json:"layout"`
}

// LayoutOptions mirrors layout.Config with request validation
type LayoutOptions struct {
	Type         string  `json:"type,omitempty" validate:"omitempty,layout"`
	Width        float64 `json:"width,omitempty" validate:"gte=0"`
	Height       float64 `json:"height,omitempty" validate:"gte=0"`
	NodeSpacing  float64 `json:"nodeSpacing,omitempty" validate:"gte=0"`
	LevelSpacing float64 `json:"levelSpacing,omitempty" validate:"gte=0"`
	Iterations   int     `json:"iterations,omitempty" validate:"gte=0,lte=5000"`
	Seed         int64   `json:"seed,omitempty"`
}

// DependenciesRequest lists the content ids a learner has completed
type DependenciesRequest struct {
	Completed []string `json:"completed"`
}

// BuildGraph handles POST /graph
func (h *GraphHandler) BuildGraph(w http.ResponseWriter, r *http.Request) {
	var req ModulesRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}
	graph, err := h.graphs.BuildContentGraph(r.Context(), req.Modules)
	if err != nil {
		h.respondAppError(w, r, err, "Failed to build graph")
		return
	}
	h.respondJSON(w, http.StatusOK, graph)
}

// ApplyLayout handles POST /graph/layout
func (h *GraphHandler) ApplyLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}
	graph, err := h.graphs.BuildContentGraph(r.Context(), req.Modules)
	if err != nil {
		h.respondAppError(w, r, err, "Failed to build graph")
		return
	}
	nodes, err := h.graphs.ApplyLayout(r.Context(), graph, layout.Config{
		Type:         layout.Type(req.Layout.Type),
		Width:        req.Layout.Width,
		Height:       req.Layout.Height,
		NodeSpacing:  req.Layout.NodeSpacing,
		LevelSpacing: req.Layout.LevelSpacing,
		Iterations:   req.Layout.Iterations,
		Seed:         req.Layout.Seed,
	})
	if err != nil {
		h.respondAppError(w, r, err, "Failed to apply layout")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"nodes": nodes,
		"edges": graph.EdgeList(),
	})
}

// AnalyzeRelationships handles POST /graph/analysis
func (h *GraphHandler) AnalyzeRelationships(w http.ResponseWriter, r *http.Request) {
	var req ModulesRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}
	report, err := h.graphs.AnalyzeRelationships(r.Context(), req.Modules)
	if err != nil {
		h.respondAppError(w, r, err, "Failed to analyze relationships")
		return
	}
	h.respondJSON(w, http.StatusOK, report)
}

// AnalyzeDependencies handles POST /content/{contentID}/dependencies. The body
// is optional; without it nothing counts as completed.
func (h *GraphHandler) AnalyzeDependencies(w http.ResponseWriter, r *http.Request) {
	var req DependenciesRequest
	if !h.decodeAndValidate(w, r, &req, true) {
		return
	}
	completed := make(map[string]bool, len(req.Completed))
	for _, id := range req.Completed {
		completed[id] = true
	}
	chain, err := h.graphs.AnalyzeDependencyChain(r.Context(), chi.URLParam(r, "contentID"), completed)
	if err != nil {
		h.respondAppError(w, r, err, "Failed to analyze dependencies")
		return
	}
	h.respondJSON(w, http.StatusOK, chain)
}
