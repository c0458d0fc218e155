package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/homestead/homestead/internal/auth"
	"github.com/homestead/homestead/internal/handler/dto"
	"github.com/homestead/homestead/internal/service"
)

// FaithHandler serves the rosary pages and bible lookups.
type FaithHandler struct {
	svc    *service.FaithService
	logger *slog.Logger
}

// NewFaithHandler creates a new FaithHandler.
func NewFaithHandler(svc *service.FaithService, logger *slog.Logger) *FaithHandler {
	return &FaithHandler{
		svc:    svc,
		logger: logger,
	}
}

// Streak handles GET /api/glaube/rosary-streak.
func (h *FaithHandler) Streak(w http.ResponseWriter, r *http.Request) {
	streak, err := h.svc.Streak(r.Context(), auth.UsernameFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, streak)
}

// SetStreak handles POST /api/glaube/rosary-streak.
func (h *FaithHandler) SetStreak(w http.ResponseWriter, r *http.Request) {
	var req dto.StreakRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.Length == nil {
		writeError(w, http.StatusBadRequest, "INVALID_STREAK", service.ErrInvalidStreak.Error())
		return
	}

	user := auth.UsernameFromContext(r.Context())
	streak, err := h.svc.SetStreak(r.Context(), user, *req.Length, req.LastPrayed)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("rosary_streak_set", "user", user, "length", streak.Length)
	writeJSON(w, http.StatusOK, streak)
}

// Pray handles POST /api/glaube/rosary-streak/pray.
func (h *FaithHandler) Pray(w http.ResponseWriter, r *http.Request) {
	user := auth.UsernameFromContext(r.Context())
	streak, err := h.svc.Pray(r.Context(), user)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("rosary_prayed", "user", user, "length", streak.Length)
	writeJSON(w, http.StatusOK, streak)
}

// Rosary handles GET /api/glaube/rosary.
func (h *FaithHandler) Rosary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Rosary(queryBool(r, "luminous"), r.URL.Query().Get("mystery")))
}

// RandomVerse handles GET /api/glaube/bibel/zufallszitat.
func (h *FaithHandler) RandomVerse(w http.ResponseWriter, r *http.Request) {
	quote, err := h.svc.RandomVerse()
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// Passage handles GET /api/glaube/bibel/{reference}.
func (h *FaithHandler) Passage(w http.ResponseWriter, r *http.Request) {
	ref, err := url.PathUnescape(chi.URLParam(r, "reference"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REFERENCE", service.ErrInvalidReference.Error())
		return
	}

	passage, err := h.svc.Passage(ref)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, passage)
}

// handleServiceError maps service errors to HTTP responses.
func (h *FaithHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidStreak):
		writeError(w, http.StatusBadRequest, "INVALID_STREAK", err.Error())
	case errors.Is(err, service.ErrInvalidStreakDay):
		writeError(w, http.StatusBadRequest, "INVALID_DATE", err.Error())
	case errors.Is(err, service.ErrInvalidReference):
		writeError(w, http.StatusBadRequest, "INVALID_REFERENCE", err.Error())
	case errors.Is(err, service.ErrVersesNotFound):
		writeError(w, http.StatusNotFound, "VERSES_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrBibleUnavailable):
		writeError(w, http.StatusServiceUnavailable, "BIBLE_UNAVAILABLE", err.Error())
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
