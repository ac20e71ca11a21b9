package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/services"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	pkgerrors "github.com/moatasim-KT/interactive-knowledge-system-sub006/pkg/errors"
)

// LinkHandler handles link-related HTTP requests
type LinkHandler struct {
	responder
	links *services.LinkService
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(links *services.LinkService, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{responder: responder{logger: logger}, links: links}
}

// CreateLinkRequest represents the request body for creating a link
type CreateLinkRequest struct {
	SourceID    string   `json:"sourceId" validate:"required"`
	TargetID    string   `json:"targetId" validate:"required"`
	Type        string   `json:"type" validate:"required,relationship"`
	Strength    *float64 `json:"strength,omitempty"`
	Description string   `json:"description,omitempty" validate:"max=1000"`
	CreatedBy   string   `json:"createdBy,omitempty"`
	Automatic   bool     `json:"automatic,omitempty"`
}

func (req CreateLinkRequest) operation() services.LinkOperation {
	return services.LinkOperation{
		SourceID:    req.SourceID,
		TargetID:    req.TargetID,
		Type:        entities.RelationshipType(req.Type),
		Strength:    req.Strength,
		Description: req.Description,
		CreatedBy:   req.CreatedBy,
		Automatic:   req.Automatic,
	}
}

// BatchCreateRequest represents the request body for creating links in bulk
type BatchCreateRequest struct {
	Links []CreateLinkRequest `json:"links" validate:"required,min=1,max=500,dive"`
}

// UpdateLinkRequest represents the request body for updating a link
type UpdateLinkRequest struct {
	Strength    *float64 `json:"strength,omitempty"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// CreateLink handles POST /links
func (h *LinkHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}

	op := req.operation()
	var opts []services.LinkOption
	if op.Strength != nil {
		opts = append(opts, services.WithStrength(*op.Strength))
	}
	if op.Description != "" {
		opts = append(opts, services.WithDescription(op.Description))
	}
	if op.CreatedBy != "" {
		opts = append(opts, services.WithCreatedBy(op.CreatedBy))
	}
	if op.Automatic {
		opts = append(opts, services.AsAutomatic())
	}

	link, err := h.links.CreateLink(r.Context(), op.SourceID, op.TargetID, op.Type, opts...)
	if err != nil {
		h.respondAppError(w, r, err, "Failed to create link")
		return
	}
	h.respondJSON(w, http.StatusCreated, link)
}

// CreateLinksBatch handles POST /links/batch
func (h *LinkHandler) CreateLinksBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchCreateRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}

	ops := make([]services.LinkOperation, 0, len(req.Links))
	for _, l := range req.Links {
		ops = append(ops, l.operation())
	}
	result, err := h.links.CreateLinksBatch(r.Context(), ops)
	if err != nil {
		h.respondAppError(w, r, err, "Failed to create links")
		return
	}
	h.respondJSON(w, http.StatusCreated, result)
}

// ListLinks handles GET /links. Filters: sourceId, targetId and type take
// comma separated lists; minStrength, maxStrength, automatic, createdAfter
// and createdBefore narrow further.
func (h *LinkHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLinkFilter(r)
	if err != nil {
		h.respondAppError(w, r, err, "Failed to list links")
		return
	}
	links, err := h.links.FindLinks(r.Context(), filter)
	if err != nil {
		h.respondAppError(w, r, err, "Failed to list links")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"links": links,
		"count": len(links),
	})
}

// GetLink handles GET /links/{linkID}
func (h *LinkHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.links.GetLink(r.Context(), chi.URLParam(r, "linkID"))
	if err != nil {
		h.respondAppError(w, r, err, "Failed to get link")
		return
	}
	h.respondJSON(w, http.StatusOK, link)
}

// UpdateLink handles PATCH /links/{linkID}
func (h *LinkHandler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	linkID := chi.URLParam(r, "linkID")
	var req UpdateLinkRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}
	if req.Strength == nil && req.Description == nil {
		h.respondError(w, http.StatusBadRequest, pkgerrors.ErrorTypeValidation, "Nothing to update")
		return
	}

	link, err := h.links.UpdateLink(r.Context(), linkID, services.LinkUpdate{
		Strength:    req.Strength,
		Description: req.Description,
	})
	if err != nil {
		h.respondAppError(w, r, err, "Failed to update link")
		return
	}
	if link == nil {
		h.respondError(w, http.StatusNotFound, pkgerrors.ErrorTypeNotFound, "Link not found")
		return
	}
	h.respondJSON(w, http.StatusOK, link)
}

// DeleteLink handles DELETE /links/{linkID}
func (h *LinkHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.links.DeleteLink(r.Context(), chi.URLParam(r, "linkID"))
	if err != nil {
		h.respondAppError(w, r, err, "Failed to delete link")
		return
	}
	if !deleted {
		h.respondError(w, http.StatusNotFound, pkgerrors.ErrorTypeNotFound, "Link not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLinkHistory handles GET /links/{linkID}/history
func (h *LinkHandler) GetLinkHistory(w http.ResponseWriter, r *http.Request) {
	versions, err := h.links.History(r.Context(), chi.URLParam(r, "linkID"))
	if err != nil {
		h.respondAppError(w, r, err, "Failed to load link history")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"versions": versions})
}

// GetContentLinks handles GET /content/{contentID}/links
func (h *LinkHandler) GetContentLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.links.GetLinksForContent(r.Context(), chi.URLParam(r, "contentID"))
	if err != nil {
		h.respondAppError(w, r, err, "Failed to load content links")
		return
	}
	h.respondJSON(w, http.StatusOK, links)
}

// GetCycles handles GET /cycles
func (h *LinkHandler) GetCycles(w http.ResponseWriter, r *http.Request) {
	report, err := h.links.AuditCycles(r.Context())
	if err != nil {
		h.respondAppError(w, r, err, "Failed to detect cycles")
		return
	}
	h.respondJSON(w, http.StatusOK, report)
}

// GetAnalytics handles GET /analytics
func (h *LinkHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.links.GetAnalytics(r.Context())
	if err != nil {
		h.respondAppError(w, r, err, "Failed to compute link analytics")
		return
	}
	h.respondJSON(w, http.StatusOK, analytics)
}

func parseLinkFilter(r *http.Request) (services.LinkFilter, error) {
	q := r.URL.Query()
	filter := services.LinkFilter{
		SourceIDs: splitList(q.Get("sourceId")),
		TargetIDs: splitList(q.Get("targetId")),
	}

	for _, t := range splitList(q.Get("type")) {
		rt := entities.RelationshipType(t)
		if !rt.IsValid() {
			return filter, pkgerrors.NewValidation("unknown relationship type: " + t)
		}
		filter.Types = append(filter.Types, rt)
	}

	minRaw, maxRaw := q.Get("minStrength"), q.Get("maxStrength")
	if minRaw != "" || maxRaw != "" {
		sr := &services.StrengthRange{Min: 0, Max: 1}
		var err error
		if minRaw != "" {
			if sr.Min, err = strconv.ParseFloat(minRaw, 64); err != nil {
				return filter, pkgerrors.NewValidation("minStrength must be a number")
			}
		}
		if maxRaw != "" {
			if sr.Max, err = strconv.ParseFloat(maxRaw, 64); err != nil {
				return filter, pkgerrors.NewValidation("maxStrength must be a number")
			}
		}
		filter.StrengthRange = sr
	}

	if raw := q.Get("automatic"); raw != "" {
		automatic, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, pkgerrors.NewValidation("automatic must be true or false")
		}
		filter.Automatic = &automatic
	}

	for name, dst := range map[string]**time.Time{
		"createdAfter":  &filter.CreatedAfter,
		"createdBefore": &filter.CreatedBefore,
	} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, pkgerrors.NewValidation(name + " must be an RFC3339 timestamp")
		}
		*dst = &t
	}
	return filter, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
