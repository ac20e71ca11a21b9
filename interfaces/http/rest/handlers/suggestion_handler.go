package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/services"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
)

// SuggestionHandler proposes automatic links and persists accepted ones
type SuggestionHandler struct {
	responder
	links *services.LinkService
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(links *services.LinkService, logger *zap.Logger) *SuggestionHandler {
	return &SuggestionHandler{responder: responder{logger: logger}, links: links}
}

// SuggestRequest represents the request body for link suggestions
type SuggestRequest struct {
	Modules      []entities.ContentModule `json:"modules" validate:"required,min=2,dive"`
	Threshold    float64                  `json:"threshold,omitempty" validate:"gte=0,lte=1"`
	MaxPerModule int                      `json:"maxPerModule,omitempty" validate:"gte=0,lte=100"`
}

// AcceptRequest carries suggested links to persist
type AcceptRequest struct {
	Links []AcceptedLink `json:"links" validate:"required,min=1,max=500,dive"`
}

// AcceptedLink is one suggested link as returned by POST /suggestions
type AcceptedLink struct {
	SourceID    string  `json:"sourceId" validate:"required"`
	TargetID    string  `json:"targetId" validate:"required"`
	Type        string  `json:"type" validate:"required,relationship"`
	Strength    float64 `json:"strength"`
	Description string  `json:"description,omitempty"`
	CreatedBy   string  `json:"createdBy,omitempty"`
}

// Suggest handles POST /suggestions
func (h *SuggestionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}
	suggestions, err := h.links.GenerateAutomaticLinks(r.Context(), req.Modules, req.Threshold, req.MaxPerModule)
	if err != nil {
		h.respondAppError(w, r, err, "Failed to generate suggestions")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// Accept handles POST /suggestions/accept
func (h *SuggestionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req AcceptRequest
	if !h.decodeAndValidate(w, r, &req, false) {
		return
	}
	links := make([]entities.ContentLink, 0, len(req.Links))
	for _, l := range req.Links {
		links = append(links, entities.ContentLink{
			SourceID: l.SourceID,
			TargetID: l.TargetID,
			Type:     entities.RelationshipType(l.Type),
			Strength: l.Strength,
			Metadata: entities.LinkMetadata{
				Description: l.Description,
				CreatedBy:   l.CreatedBy,
				Automatic:   true,
			},
		})
	}
	result, err := h.links.AcceptSuggestions(r.Context(), links)
	if err != nil {
		h.respondAppError(w, r, err, "Failed to accept suggestions")
		return
	}
	h.respondJSON(w, http.StatusCreated, result)
}
