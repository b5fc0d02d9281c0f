package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/Retrieval-Evaluation-Platform/pkg/errors"
)

// RunSource lists persisted experiment runs, newest first.
type RunSource interface {
	LatestRun(ctx context.Context) (*RunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

type Handler struct {
	runs   RunSource
	logger *slog.Logger
}

func NewHandler(runs RunSource) *Handler {
	return &Handler{
		runs:   runs,
		logger: slog.Default().With("component", "analytics-handler"),
	}
}

// Latest answers GET /api/v1/runs/latest.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.LatestRun(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if run == nil {
		h.writeError(w, apperrors.New(apperrors.ErrNotFound, http.StatusNotFound, "no experiment runs recorded"))
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

// List answers GET /api/v1/runs?limit=n.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be between 1 and 100"))
			return
		}
		limit = n
	}
	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []RunSummary{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("analytics request failed", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
