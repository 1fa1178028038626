// Package httpapi is the thin HTTP layer over the registry services. Handlers
// decode, delegate, and translate errors; no clustering or override logic
// lives here.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/autoconfirm"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/evidence"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/platform/metrics"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/platform/middleware"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/registry"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/suggest"
	dErrors "github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/domain-errors"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/platform/httputil"
)

// RegistryService defines the registry operations the HTTP layer exposes.
type RegistryService interface {
	Build(ctx context.Context) (*registry.BuildSummary, error)
	Group(ctx context.Context, id string) (*registry.Registry, *registry.Group, error)
	Confirm(ctx context.Context, groupID, name string) error
	Merge(ctx context.Context, targetID, sourceID, reason string) error
	Split(ctx context.Context, groupID, name, targetID, reason string) (string, error)
	DismissSuggestion(ctx context.Context, groupID, suggestedID, reason string) error
	SetDisplayName(ctx context.Context, groupID, name string) error
	SetURL(ctx context.Context, groupID, url string) error
}

// Suggester computes ranked affiliate suggestions.
type Suggester interface {
	ForGroup(ctx context.Context, groupID string) ([]suggest.Suggestion, error)
}

// Explainer answers membership-evidence queries.
type Explainer interface {
	Explain(ctx context.Context, groupID, name string) (*evidence.Explanation, error)
}

// AutoConfirmer runs an auto-confirmation pass.
type AutoConfirmer interface {
	Run(ctx context.Context) (*autoconfirm.Summary, error)
}

// Handler handles all registry endpoints.
type Handler struct {
	logger      *slog.Logger
	registry    RegistryService
	suggest     Suggester
	evidence    Explainer
	autoconfirm AutoConfirmer
	validator   middleware.TokenValidator
	metrics     *metrics.Metrics
}

func New(
	reg RegistryService,
	suggester Suggester,
	explainer Explainer,
	confirmer AutoConfirmer,
	validator middleware.TokenValidator,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		logger:      logger,
		registry:    reg,
		suggest:     suggester,
		evidence:    explainer,
		autoconfirm: confirmer,
		validator:   validator,
		metrics:     m,
	}
}

// Register mounts every route. Reads are open; anything that mutates the
// registry requires an operator token.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Get("/groups/{id}", h.handleGetGroup)
		r.Get("/groups/{id}/suggestions", h.handleSuggestions)
		r.Get("/groups/{id}/evidence", h.handleEvidence)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Post("/registry/build", h.handleBuild)
		r.Post("/registry/autoconfirm", h.handleAutoConfirm)
		r.Post("/groups/{id}/confirm", h.handleConfirm)
		r.Post("/groups/merge", h.handleMerge)
		r.Post("/groups/{id}/split", h.handleSplit)
		r.Post("/groups/{id}/dismiss", h.handleDismiss)
		r.Put("/groups/{id}/display-name", h.handleSetDisplayName)
		r.Put("/groups/{id}/url", h.handleSetURL)
	})
}

// groupResponse is one group with its override-resolved display name and
// confirmed-name list attached.
type groupResponse struct {
	*registry.Group
	ResolvedDisplayName string   `json:"resolved_display_name"`
	ConfirmedNames      []string `json:"confirmed_names,omitempty"`
	URL                 string   `json:"url,omitempty"`
}

func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	reg, g, err := h.registry.Group(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, groupResponse{
		Group:               g,
		ResolvedDisplayName: reg.DisplayNameFor(g),
		ConfirmedNames:      reg.Overrides.Confirmed[id],
		URL:                 reg.Overrides.URL[id],
	})
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.suggest.ForGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (h *Handler) handleEvidence(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "name query parameter is required"))
		return
	}
	explanation, err := h.evidence.Explain(r.Context(), chi.URLParam(r, "id"), name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, explanation)
}

func (h *Handler) handleBuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.registry.Build(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "registry build failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleAutoConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.autoconfirm.Run(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "auto-confirm pass failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

type confirmRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[confirmRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.Name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "name is required"))
		return
	}
	if err := h.registry.Confirm(r.Context(), chi.URLParam(r, "id"), req.Name); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mergeRequest struct {
	TargetID string `json:"target_id"`
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

func (h *Handler) handleMerge(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[mergeRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.TargetID == "" || req.SourceID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "target_id and source_id are required"))
		return
	}
	if err := h.registry.Merge(r.Context(), req.TargetID, req.SourceID, req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type splitRequest struct {
	Name     string `json:"name"`
	TargetID string `json:"target_id,omitempty"`
	Reason   string `json:"reason"`
}

func (h *Handler) handleSplit(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[splitRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.Name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "name is required"))
		return
	}
	targetID, err := h.registry.Split(r.Context(), chi.URLParam(r, "id"), req.Name, req.TargetID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"target_id": targetID})
}

type dismissRequest struct {
	SuggestedID string `json:"suggested_id"`
	Reason      string `json:"reason"`
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[dismissRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.SuggestedID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "suggested_id is required"))
		return
	}
	if err := h.registry.DismissSuggestion(r.Context(), chi.URLParam(r, "id"), req.SuggestedID, req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type displayNameRequest struct {
	DisplayName string `json:"display_name"`
}

func (h *Handler) handleSetDisplayName(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[displayNameRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.registry.SetDisplayName(r.Context(), chi.URLParam(r, "id"), req.DisplayName); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type urlRequest struct {
	URL string `json:"url"`
}

func (h *Handler) handleSetURL(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[urlRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.registry.SetURL(r.Context(), chi.URLParam(r, "id"), req.URL); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
