package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kpssprep/marathon/internal/model"
)

func (h *Handler) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.store.ListAttempts(r.URL.Query().Get("exam_type"))
	if err != nil {
		slog.Error("list attempts", "error", err)
		writeError(w, r, http.StatusInternalServerError, "InternalError", nil)
		return
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.GetAttempt(chi.URLParam(r, "attemptID"))
	if err != nil {
		slog.Error("get attempt", "error", err)
		writeError(w, r, http.StatusInternalServerError, "InternalError", nil)
		return
	}
	if a == nil {
		writeError(w, r, http.StatusNotFound, "AttemptNotFound", nil)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleDeleteAttempt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "attemptID")
	ok, err := h.store.DeleteAttempt(id)
	if err != nil {
		slog.Error("delete attempt", "id", id, "error", err)
		writeError(w, r, http.StatusInternalServerError, "InternalError", nil)
		return
	}
	if !ok {
		writeError(w, r, http.StatusNotFound, "AttemptNotFound", nil)
		return
	}
	slog.Info("attempt deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	exp, err := h.store.ExportAttempts(r.URL.Query().Get("exam_type"))
	if err != nil {
		slog.Error("export attempts", "error", err)
		writeError(w, r, http.StatusInternalServerError, "InternalError", nil)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="kpss-attempts.json"`)
	writeJSON(w, http.StatusOK, exp)
}
