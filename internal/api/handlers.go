package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/postrater/internal/snapshot"
	"github.com/hyperengineering/postrater/internal/store"
	"github.com/hyperengineering/postrater/internal/types"
	"github.com/hyperengineering/postrater/internal/validation"
)

// MaxPostsPerRequest caps the size of a post ingestion batch.
const MaxPostsPerRequest = 100

// RunTracker starts background scoring runs and reports on them.
type RunTracker interface {
	Trigger() string
	Status(id string) (types.RunStatus, bool)
}

// Models names the models reported by the health endpoint.
type Models struct {
	Embedding string
	Scoring   string
}

// Handler implements the API handlers
type Handler struct {
	store    store.Store
	runs     RunTracker
	uploader snapshot.Uploader
	models   Models
	version  string
}

// NewHandler creates a new Handler.
func NewHandler(s store.Store, runs RunTracker, uploader snapshot.Uploader, models Models, version string) *Handler {
	return &Handler{
		store:    s,
		runs:     runs,
		uploader: uploader,
		models:   models,
		version:  version,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "component", "api", "error", err)
	}
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	version, err := h.store.SchemaVersion(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:         "healthy",
		Version:        h.version,
		EmbeddingModel: h.models.Embedding,
		ScoringModel:   h.models.Scoring,
		SchemaVersion:  version,
	})
}

// TriggerScoring handles POST /api/v1/scoring/trigger. The run continues
// after the response is written.
func (h *Handler) TriggerScoring(w http.ResponseWriter, r *http.Request) {
	id := h.runs.Trigger()
	writeJSON(w, http.StatusAccepted, types.TriggerResponse{
		Status: "Scoring started",
		RunID:  id,
	})
}

// RunStatus handles GET /api/v1/scoring/runs/{id}
func (h *Handler) RunStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if verr := validation.ValidateULID("id", id); verr != nil {
		WriteProblemWithErrors(w, r, http.StatusBadRequest, "Invalid run id", []validation.ValidationError{*verr})
		return
	}

	status, ok := h.runs.Status(id)
	if !ok {
		WriteProblem(w, r, http.StatusNotFound, fmt.Sprintf("Run %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Stats handles GET /api/v1/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// CreatePosts handles POST /api/v1/posts. The batch is all-or-nothing.
func (h *Handler) CreatePosts(w http.ResponseWriter, r *http.Request) {
	var req types.CreatePostsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if len(req.Posts) == 0 || len(req.Posts) > MaxPostsPerRequest {
		WriteProblem(w, r, http.StatusBadRequest,
			fmt.Sprintf("posts must contain between 1 and %d entries", MaxPostsPerRequest))
		return
	}

	var errs []validation.ValidationError
	for i, p := range req.Posts {
		errs = append(errs, validation.ValidateNewPost(i, p)...)
	}
	if len(errs) > 0 {
		WriteProblemWithErrors(w, r, http.StatusUnprocessableEntity, "Request contains invalid posts", errs)
		return
	}

	ids, err := h.store.InsertPosts(r.Context(), req.Posts)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.CreatePostsResponse{IDs: ids})
}

// PostRating handles GET /api/v1/posts/{id}/rating
func (h *Handler) PostRating(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteProblem(w, r, http.StatusBadRequest, "Post id must be a positive integer")
		return
	}

	rating, err := h.store.GetRatingByPost(r.Context(), id)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rating)
}

// Snapshot handles GET /api/v1/snapshot
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	link, expiry, err := h.uploader.PresignedURL(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SnapshotURLResponse{URL: link, ExpiresAt: expiry.UTC()})
}
