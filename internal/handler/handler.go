package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kpssprep/marathon/internal/catalog"
	"github.com/kpssprep/marathon/internal/exam"
	"github.com/kpssprep/marathon/internal/i18n"
	"github.com/kpssprep/marathon/internal/store"
)

const maxBodyBytes = 1 << 16

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	session *exam.Session
	catalog *catalog.Catalog
	store   *store.Store
}

// New creates a new Handler.
func New(sess *exam.Session, cat *catalog.Catalog, s *store.Store) (*Handler, error) {
	if sess == nil || cat == nil || s == nil {
		return nil, errors.New("handler: session, catalog and store are required")
	}
	return &Handler{session: sess, catalog: cat, store: s}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/exam-types", h.handleExamTypes)

		r.Get("/session", h.handleSession)
		r.Post("/session/start", h.handleStart)
		r.Post("/session/select", h.handleSelect)
		r.Post("/session/navigate", h.handleNavigate)
		r.Post("/session/jump", h.handleJump)
		r.Post("/session/finish", h.handleFinish)
		r.Post("/session/restart", h.handleRestart)
		r.Post("/session/retake", h.handleRetake)
		r.Post("/session/exit", h.handleExit)

		r.Get("/attempts", h.handleListAttempts)
		r.Get("/attempts/{attemptID}", h.handleGetAttempt)
		r.Delete("/attempts/{attemptID}", h.handleDeleteAttempt)
		r.Get("/export", h.handleExport)
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type sessionResponse struct {
	exam.View
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Summary string `json:"summary,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msgID string, data map[string]any) {
	writeJSON(w, status, errorResponse{
		Error:   msgID,
		Message: i18n.Td(r.Context(), msgID, data),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		slog.Debug("bad request body", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusBadRequest, "BadRequest", nil)
		return false
	}
	return true
}

// writeSessionError maps session errors to status codes.
func writeSessionError(w http.ResponseWriter, r *http.Request, err error, data map[string]any) {
	switch {
	case errors.Is(err, exam.ErrUnknownExamType):
		writeError(w, r, http.StatusBadRequest, "UnknownExamType", data)
	case errors.Is(err, exam.ErrInvalidOption):
		writeError(w, r, http.StatusBadRequest, "InvalidOption", nil)
	case errors.Is(err, exam.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, "InvalidTransition", nil)
	case errors.Is(err, exam.ErrSuperseded):
		writeError(w, r, http.StatusConflict, "ExamSuperseded", nil)
	case exam.IsStartFailure(err):
		writeError(w, r, http.StatusBadGateway, "ExamStartFailed", nil)
	default:
		slog.Error("session operation failed", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, "InternalError", nil)
	}
}

func (h *Handler) sessionResponse(ctx context.Context) sessionResponse {
	v := h.session.View()
	resp := sessionResponse{View: v}
	switch v.Step {
	case exam.StepIntro:
		if v.Err != nil {
			resp.Error = i18n.T(ctx, "ExamStartFailed")
		}
	case exam.StepLoading:
		resp.Message = i18n.Td(ctx, "LoadingFirstBatch", map[string]any{"Batch": 1, "Total": v.Batches})
	case exam.StepActive:
		switch {
		case v.NextPending:
			resp.Message = i18n.T(ctx, "NextPending")
		case v.Streaming:
			resp.Message = i18n.Td(ctx, "BackgroundLoading", map[string]any{"Loaded": v.Loaded, "Target": v.Target})
		}
	case exam.StepResult:
		if v.Result != nil {
			resp.Summary = i18n.Tp(ctx, "QuestionsEvaluated", v.Result.Score.Total())
		}
	}
	return resp
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessionResponse(r.Context()))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.AttemptCount(); err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleExamTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.All())
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	h.writeSession(w, r)
}

type startRequest struct {
	ExamTypeID string `json:"exam_type_id"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ExamTypeID == "" {
		writeError(w, r, http.StatusBadRequest, "BadRequest", nil)
		return
	}

	// Background streaming outlives the request.
	ctx := context.WithoutCancel(r.Context())
	if err := h.session.Start(ctx, req.ExamTypeID); err != nil {
		writeSessionError(w, r, err, map[string]any{"ID": req.ExamTypeID})
		return
	}
	h.writeSession(w, r)
}

type selectRequest struct {
	Option string `json:"option"`
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	key, err := exam.ParseOptionKey(req.Option)
	if err == nil {
		err = h.session.SelectOption(key)
	}
	if err != nil {
		writeSessionError(w, r, err, nil)
		return
	}
	h.writeSession(w, r)
}

type navigateRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.session.Navigate(req.Delta); err != nil {
		writeSessionError(w, r, err, nil)
		return
	}
	h.writeSession(w, r)
}

func (h *Handler) handleJump(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.session.JumpToNextUnanswered)
}

func (h *Handler) handleFinish(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.session.Finish)
}

func (h *Handler) handleExit(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.session.Exit)
}

func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	h.apply(w, r, func() error { return h.session.Restart(ctx) })
}

func (h *Handler) handleRetake(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	h.apply(w, r, func() error { return h.session.Retake(ctx) })
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, op func() error) {
	if err := op(); err != nil {
		writeSessionError(w, r, err, nil)
		return
	}
	h.writeSession(w, r)
}
