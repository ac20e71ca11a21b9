package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/ports"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/services"
)

// SnapshotHandler exports the link store
type SnapshotHandler struct {
	responder
	links    *services.LinkService
	exporter ports.SnapshotExporter
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(links *services.LinkService, exporter ports.SnapshotExporter, logger *zap.Logger) *SnapshotHandler {
	return &SnapshotHandler{responder: responder{logger: logger}, links: links, exporter: exporter}
}

// ExportSnapshot handles POST /snapshots
func (h *SnapshotHandler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	location, count, err := h.links.ExportSnapshot(r.Context(), h.exporter)
	if err != nil {
		h.respondAppError(w, r, err, "Failed to export snapshot")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"location": location,
		"links":    count,
	})
}
