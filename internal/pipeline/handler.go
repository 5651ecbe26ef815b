// HTTP handlers for the pipeline service.
//
// All mutating routes expect an x-user-id header forwarded by the Gateway;
// its value becomes the actor on history entries and events.
//
// Routes:
//
//	POST /candidates                       → create candidate at applied
//	GET  /candidates/{id}                  → fetch candidate
//	GET  /candidates/{id}/history          → stage history, oldest first
//	POST /candidates/{id}/transition       → move candidate to a new stage
//	POST /candidates/bulk-transition       → batch of independent transitions
//	GET  /pipeline/distribution            → per-stage counts
//	GET  /pipeline/stats                   → distribution + rates
//	GET  /stages/{stage}/transitions       → stages reachable from {stage}
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hireflow/pipeline-service/internal/domain"
)

// Handler exposes the Service over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler returns a configured Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts all pipeline-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/candidates", h.handleCandidates)
	mux.HandleFunc("/candidates/", h.handleCandidateAction)
	mux.HandleFunc("/pipeline/distribution", h.handleDistribution)
	mux.HandleFunc("/pipeline/stats", h.handleStats)
	mux.HandleFunc("/stages/", h.handleStageTransitions)
}

// ─── Route dispatch ──────────────────────────────────────────────────────────

func (h *Handler) handleCandidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.createCandidate(w, r)
}

// handleCandidateAction dispatches
// /candidates/bulk-transition and /candidates/{id}[/history|/transition].
func (h *Handler) handleCandidateAction(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[1] == "bulk-transition":
		if r.Method != http.MethodPost {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.bulkTransition(w, r)
	case len(parts) == 2:
		if r.Method != http.MethodGet {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.getCandidate(w, r, parts[1])
	case len(parts) == 3 && parts[2] == "history":
		if r.Method != http.MethodGet {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.getHistory(w, r, parts[1])
	case len(parts) == 3 && parts[2] == "transition":
		if r.Method != http.MethodPost {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.transition(w, r, parts[1])
	default:
		jsonError(w, "invalid path", http.StatusNotFound)
	}
}

// ─── Individual handlers ─────────────────────────────────────────────────────

func (h *Handler) createCandidate(w http.ResponseWriter, r *http.Request) {
	actor := r.Header.Get("x-user-id")
	if actor == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	var body struct {
		FullName string   `json:"fullName"`
		Email    string   `json:"email"`
		Location string   `json:"location"`
		Skills   []string `json:"skills"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	cand, err := h.svc.CreateCandidate(r.Context(), NewCandidate{
		FullName: body.FullName,
		Email:    body.Email,
		Location: body.Location,
		Skills:   body.Skills,
	}, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cand)
}

func (h *Handler) getCandidate(w http.ResponseWriter, r *http.Request, id string) {
	cand, err := h.svc.GetCandidate(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cand)
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request, id string) {
	history, err := h.svc.GetHistory(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, id string) {
	actor := r.Header.Get("x-user-id")
	if actor == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	var body struct {
		ToStage string `json:"toStage"`
		Notes   string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ToStage == "" {
		jsonError(w, "body must contain toStage", http.StatusBadRequest)
		return
	}

	cand, err := h.svc.Transition(r.Context(), id, body.ToStage, actor, body.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cand)
}

func (h *Handler) bulkTransition(w http.ResponseWriter, r *http.Request) {
	actor := r.Header.Get("x-user-id")
	if actor == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return
	}

	var body struct {
		Requests []BulkRequest `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Requests) == 0 {
		jsonError(w, "body must contain a non-empty requests array", http.StatusBadRequest)
		return
	}

	// Item failures land in the result body, never in the HTTP status.
	result := h.svc.BulkTransition(r.Context(), body.Requests, actor)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDistribution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	filter, err := parseStatsFilter(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	dist, err := h.svc.StageDistribution(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dist)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	filter, err := parseStatsFilter(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	stats, err := h.svc.PipelineStats(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleStageTransitions handles GET /stages/{stage}/transitions.
func (h *Handler) handleStageTransitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] != "transitions" {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}

	stages, err := h.svc.ValidTransitionsFrom(parts[1])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stage":       parts[1],
		"transitions": stages,
	})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// parseStatsFilter reads appliedAfter/appliedBefore (RFC 3339), location and
// skills (comma-separated) query parameters.
func parseStatsFilter(r *http.Request) (domain.StatsFilter, error) {
	var filter domain.StatsFilter
	q := r.URL.Query()

	if raw := q.Get("appliedAfter"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("appliedAfter must be RFC 3339: %q", raw)
		}
		filter.AppliedAfter = &ts
	}
	if raw := q.Get("appliedBefore"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("appliedBefore must be RFC 3339: %q", raw)
		}
		filter.AppliedBefore = &ts
	}
	filter.Location = q.Get("location")
	if raw := q.Get("skills"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Skills = append(filter.Skills, s)
			}
		}
	}
	return filter, nil
}

// writeError maps the error taxonomy to HTTP statuses. Stale transitions are
// conflicts the caller can retry after a re-read; persistence failures are
// retryable as-is.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		notFound *NotFoundError
		invalid  *InvalidTransitionError
		stale    *StaleTransitionError
		valErr   *ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &invalid):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &stale):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.As(err, &valErr):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("pipeline request failed", "err", err)
		jsonError(w, "storage unavailable, retry later", http.StatusServiceUnavailable)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
