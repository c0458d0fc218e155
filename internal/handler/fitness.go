package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homestead/homestead/internal/auth"
	"github.com/homestead/homestead/internal/handler/dto"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/repository"
	"github.com/homestead/homestead/internal/service"
)

// Paging defaults of the fitness lists.
const (
	defaultExerciseLimit = 50
	defaultSessionLimit  = 20
)

// FitnessHandler serves the exercise catalog, workout templates and sessions.
type FitnessHandler struct {
	svc    *service.FitnessService
	logger *slog.Logger
}

// NewFitnessHandler creates a new FitnessHandler.
func NewFitnessHandler(svc *service.FitnessService, logger *slog.Logger) *FitnessHandler {
	return &FitnessHandler{
		svc:    svc,
		logger: logger,
	}
}

// ListExercises handles GET /api/fitness/exercises.
func (h *FitnessHandler) ListExercises(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.svc.ListExercises(r.Context(), repository.ExerciseFilter{
		Search:     q.Get("search"),
		BodyPart:   q.Get("bodyPart"),
		Equipment:  q.Get("equipment"),
		Target:     q.Get("target"),
		Difficulty: q.Get("difficulty"),
		Limit:      queryInt(r, "limit", defaultExerciseLimit),
		Offset:     queryInt(r, "offset", 0),
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetExercise handles GET /api/fitness/exercises/{id}.
func (h *FitnessHandler) GetExercise(w http.ResponseWriter, r *http.Request) {
	ex, err := h.svc.GetExercise(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

// ExerciseFilters handles GET /api/fitness/exercises/filters.
func (h *FitnessHandler) ExerciseFilters(w http.ResponseWriter, r *http.Request) {
	filters, err := h.svc.ExerciseFilters(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, filters)
}

// ListTemplates handles GET /api/fitness/workouts.
func (h *FitnessHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.svc.ListTemplates(r.Context(), auth.UsernameFromContext(r.Context()), queryBool(r, "include_public"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if templates == nil {
		templates = []*model.WorkoutTemplate{}
	}
	writeJSON(w, http.StatusOK, dto.TemplateListResponse{Templates: templates})
}

func templateInput(req *dto.TemplateRequest) service.TemplateInput {
	return service.TemplateInput{
		Name:        req.Name,
		Description: req.Description,
		Exercises:   req.Exercises,
		IsPublic:    req.IsPublic,
	}
}

// CreateTemplate handles POST /api/fitness/workouts.
func (h *FitnessHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req dto.TemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user := auth.UsernameFromContext(r.Context())
	t, err := h.svc.CreateTemplate(r.Context(), user, templateInput(&req))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("workout_template_created", "template_id", t.ID, "user", user)
	writeJSON(w, http.StatusCreated, dto.TemplateResponse{Template: t})
}

// GetTemplate handles GET /api/fitness/workouts/{id}.
func (h *FitnessHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTemplate(r.Context(), chi.URLParam(r, "id"), auth.UsernameFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.TemplateResponse{Template: t})
}

// UpdateTemplate handles PUT /api/fitness/workouts/{id}.
func (h *FitnessHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req dto.TemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	t, err := h.svc.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), auth.UsernameFromContext(r.Context()), templateInput(&req))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.TemplateResponse{Template: t})
}

// DeleteTemplate handles DELETE /api/fitness/workouts/{id}.
func (h *FitnessHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteTemplate(r.Context(), id, auth.UsernameFromContext(r.Context())); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("workout_template_deleted", "template_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET /api/fitness/sessions.
func (h *FitnessHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultSessionLimit)
	offset := queryInt(r, "offset", 0)

	sessions, total, err := h.svc.ListSessions(r.Context(), auth.UsernameFromContext(r.Context()), limit, offset)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if sessions == nil {
		sessions = []*model.WorkoutSession{}
	}
	writeJSON(w, http.StatusOK, dto.SessionListResponse{
		Sessions: sessions,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

func sessionInput(req *dto.SessionRequest) service.SessionInput {
	return service.SessionInput{
		TemplateID: req.TemplateID,
		Name:       req.Name,
		Exercises:  req.Exercises,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Notes:      req.Notes,
	}
}

// CreateSession handles POST /api/fitness/sessions.
func (h *FitnessHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req dto.SessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user := auth.UsernameFromContext(r.Context())
	s, err := h.svc.CreateSession(r.Context(), user, sessionInput(&req))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("workout_session_created",
		"session_id", s.ID,
		"user", user,
		"exercises", len(s.Exercises),
	)
	writeJSON(w, http.StatusCreated, dto.WorkoutSessionResponse{Session: s})
}

// GetSession handles GET /api/fitness/sessions/{id}.
func (h *FitnessHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "id"), auth.UsernameFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WorkoutSessionResponse{Session: s})
}

// UpdateSession handles PUT /api/fitness/sessions/{id}.
func (h *FitnessHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var req dto.SessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	s, err := h.svc.UpdateSession(r.Context(), chi.URLParam(r, "id"), auth.UsernameFromContext(r.Context()), sessionInput(&req))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WorkoutSessionResponse{Session: s})
}

// DeleteSession handles DELETE /api/fitness/sessions/{id}.
func (h *FitnessHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteSession(r.Context(), id, auth.UsernameFromContext(r.Context())); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("workout_session_deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *FitnessHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrExerciseNotFound):
		writeError(w, http.StatusNotFound, "EXERCISE_NOT_FOUND", "Exercise not found")
	case errors.Is(err, service.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "TEMPLATE_NOT_FOUND", "Workout template not found")
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Workout session not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Not allowed to modify this resource")
	case errors.Is(err, service.ErrInvalidPageSize):
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", "Invalid pagination parameters")
	case errors.Is(err, service.ErrInvalidDifficulty),
		errors.Is(err, service.ErrExerciseInvalid),
		errors.Is(err, service.ErrWorkoutNameRequired),
		errors.Is(err, service.ErrWorkoutNameTooLong),
		errors.Is(err, service.ErrDescriptionTooLong),
		errors.Is(err, service.ErrExercisesRequired),
		errors.Is(err, service.ErrExerciseNameRequired),
		errors.Is(err, service.ErrSetsRequired),
		errors.Is(err, service.ErrInvalidReps),
		errors.Is(err, service.ErrInvalidWeight),
		errors.Is(err, service.ErrInvalidRPE),
		errors.Is(err, service.ErrInvalidRestTime),
		errors.Is(err, service.ErrSessionEndBeforeStart):
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
