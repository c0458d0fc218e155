package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/homestead/homestead/internal/auth"
	"github.com/homestead/homestead/internal/handler/dto"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/service"
	"github.com/homestead/homestead/internal/tournament"
)

// anonymousCreator is recorded when a tournament is created without a session.
const anonymousCreator = "anonymous"

// TournamentHandler serves the Mario Kart tournament API.
type TournamentHandler struct {
	svc    *service.TournamentService
	logger *slog.Logger
}

// NewTournamentHandler creates a new TournamentHandler.
func NewTournamentHandler(svc *service.TournamentService, logger *slog.Logger) *TournamentHandler {
	return &TournamentHandler{
		svc:    svc,
		logger: logger,
	}
}

func (h *TournamentHandler) respond(w http.ResponseWriter, t *model.Tournament, err error) {
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.TournamentResponse{Tournament: t})
}

// List handles GET /api/mario-kart/tournaments.
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if list == nil {
		list = []*model.Tournament{}
	}
	writeJSON(w, http.StatusOK, dto.TournamentListResponse{Tournaments: list})
}

// Create handles POST /api/mario-kart/tournaments.
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTournamentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	creator := auth.UsernameFromContext(r.Context())
	if creator == "" {
		creator = anonymousCreator
	}

	t, err := h.svc.Create(r.Context(), req.Name, creator, req.RoundsPerMatch, req.MatchSize)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.TournamentResponse{Tournament: t})
}

// Get handles GET /api/mario-kart/tournaments/{id}.
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, t, err)
}

// Update handles PUT /api/mario-kart/tournaments/{id}.
func (h *TournamentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateTournamentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	t, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), tournament.Update{
		Name:           req.Name,
		RoundsPerMatch: req.RoundsPerMatch,
		Status:         req.Status,
	})
	h.respond(w, t, err)
}

// Delete handles DELETE /api/mario-kart/tournaments/{id}.
func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("tournament_deleted", "tournament_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// AddContestant handles POST /api/mario-kart/tournaments/{id}/contestants.
func (h *TournamentHandler) AddContestant(w http.ResponseWriter, r *http.Request) {
	var req dto.ContestantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	t, c, err := h.svc.AddContestant(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ContestantResponse{Tournament: t, Contestant: c})
}

// RemoveContestant handles DELETE /api/mario-kart/tournaments/{id}/contestants/{cid}.
func (h *TournamentHandler) RemoveContestant(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.RemoveContestant(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "cid"))
	h.respond(w, t, err)
}

// SetDNF handles PATCH /api/mario-kart/tournaments/{id}/contestants/{cid}/dnf.
func (h *TournamentHandler) SetDNF(w http.ResponseWriter, r *http.Request) {
	var req dto.DNFRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.DNF == nil {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "dnf is required")
		return
	}

	t, err := h.svc.SetDNF(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "cid"), *req.DNF)
	h.respond(w, t, err)
}

// CreateGroups handles POST /api/mario-kart/tournaments/{id}/groups.
func (h *TournamentHandler) CreateGroups(w http.ResponseWriter, r *http.Request) {
	var req dto.GroupsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	opts := tournament.GroupOptions{
		NumberOfGroups:   req.NumberOfGroups,
		MaxUsersPerGroup: req.MaxUsersPerGroup,
	}
	for _, gc := range req.GroupConfigs {
		opts.Configs = append(opts.Configs, tournament.GroupConfig{
			Name:          gc.Name,
			ContestantIDs: gc.ContestantIDs,
		})
	}

	t, err := h.svc.CreateGroups(r.Context(), chi.URLParam(r, "id"), opts)
	h.respond(w, t, err)
}

// GroupScores handles POST /api/mario-kart/tournaments/{id}/groups/{groupId}/scores.
func (h *TournamentHandler) GroupScores(w http.ResponseWriter, r *http.Request) {
	var req dto.GroupScoresRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	t, err := h.svc.RecordGroupScores(r.Context(),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "groupId"),
		req.MatchID,
		req.RoundNumber,
		req.Scores,
	)
	h.respond(w, t, err)
}

// GenerateBracket handles POST /api/mario-kart/tournaments/{id}/bracket.
// An empty body uses the default qualifier count.
func (h *TournamentHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	var req dto.BracketRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
			return
		}
	}

	t, err := h.svc.GenerateBracket(r.Context(), chi.URLParam(r, "id"), req.TopNFromEachGroup)
	h.respond(w, t, err)
}

// BracketScores handles POST /api/mario-kart/tournaments/{id}/bracket/matches/{matchId}/scores.
func (h *TournamentHandler) BracketScores(w http.ResponseWriter, r *http.Request) {
	var req dto.BracketScoresRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	t, err := h.svc.RecordBracketScores(r.Context(),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "matchId"),
		req.RoundNumber,
		req.Scores,
	)
	h.respond(w, t, err)
}

// handleServiceError maps service errors to HTTP responses.
func (h *TournamentHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTournamentNotFound):
		writeError(w, http.StatusNotFound, "TOURNAMENT_NOT_FOUND", "Tournament not found")
	case errors.Is(err, tournament.ErrContestantNotFound):
		writeError(w, http.StatusNotFound, "CONTESTANT_NOT_FOUND", err.Error())
	case errors.Is(err, tournament.ErrGroupNotFound):
		writeError(w, http.StatusNotFound, "GROUP_NOT_FOUND", err.Error())
	case errors.Is(err, tournament.ErrMatchNotFound):
		writeError(w, http.StatusNotFound, "MATCH_NOT_FOUND", err.Error())
	case errors.Is(err, tournament.ErrDuplicateContestant):
		writeError(w, http.StatusBadRequest, "DUPLICATE_CONTESTANT", err.Error())
	case errors.Is(err, tournament.ErrNotInSetup),
		errors.Is(err, tournament.ErrNotGroupStage),
		errors.Is(err, tournament.ErrNoBracket):
		writeError(w, http.StatusConflict, "INVALID_STAGE", err.Error())
	case errors.Is(err, tournament.ErrNameRequired),
		errors.Is(err, tournament.ErrNameTooLong),
		errors.Is(err, tournament.ErrInvalidRounds),
		errors.Is(err, tournament.ErrInvalidMatchSize),
		errors.Is(err, tournament.ErrInvalidStatus),
		errors.Is(err, tournament.ErrNotEnoughContestants),
		errors.Is(err, tournament.ErrGroupConfigRequired),
		errors.Is(err, tournament.ErrScoresRequired),
		errors.Is(err, tournament.ErrNoStandings),
		errors.Is(err, tournament.ErrNotEnoughQualified):
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
