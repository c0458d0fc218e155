package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/homestead/homestead/internal/auth"
	"github.com/homestead/homestead/internal/handler/dto"
	"github.com/homestead/homestead/internal/middleware"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/service"
)

// FavoritesHandler serves per-user favorites and the shared to-try list.
type FavoritesHandler struct {
	favorites *service.FavoritesService
	recipes   *service.RecipeService
	toTry     *service.ToTryService
	logger    *slog.Logger
}

// NewFavoritesHandler creates a new FavoritesHandler.
func NewFavoritesHandler(favorites *service.FavoritesService, recipes *service.RecipeService, toTry *service.ToTryService, logger *slog.Logger) *FavoritesHandler {
	return &FavoritesHandler{
		favorites: favorites,
		recipes:   recipes,
		toTry:     toTry,
		logger:    logger,
	}
}

// List handles GET /api/rezepte/favorites.
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.favorites.IDs(r.Context(), auth.UsernameFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, dto.FavoritesResponse{Favorites: ids})
}

func (h *FavoritesHandler) decodeFavorite(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req dto.FavoriteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return "", false
	}
	if strings.TrimSpace(req.RecipeID) == "" {
		writeError(w, http.StatusBadRequest, "MISSING_RECIPE_ID", "recipe_id is required")
		return "", false
	}
	return req.RecipeID, true
}

// Add handles POST /api/rezepte/favorites.
func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	shortName, ok := h.decodeFavorite(w, r)
	if !ok {
		return
	}
	user := auth.UsernameFromContext(r.Context())
	if err := h.favorites.Add(r.Context(), user, shortName); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("favorite_added", "user", user, "short_name", shortName)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Remove handles DELETE /api/rezepte/favorites.
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	shortName, ok := h.decodeFavorite(w, r)
	if !ok {
		return
	}
	user := auth.UsernameFromContext(r.Context())
	if err := h.favorites.Remove(r.Context(), user, shortName); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("favorite_removed", "user", user, "short_name", shortName)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Check handles GET /api/rezepte/favorites/check/{short_name}.
func (h *FavoritesHandler) Check(w http.ResponseWriter, r *http.Request) {
	is, err := h.favorites.IsFavorite(r.Context(), auth.UsernameFromContext(r.Context()), chi.URLParam(r, "short_name"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FavoriteCheckResponse{IsFavorite: is})
}

// Recipes handles GET /api/{lang}/favorites/recipes.
func (h *FavoritesHandler) Recipes(w http.ResponseWriter, r *http.Request) {
	lang, ok := model.ParseLang(chi.URLParam(r, "lang"))
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}
	ids, err := h.favorites.IDs(r.Context(), auth.UsernameFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	briefs, err := h.recipes.BriefsByIDs(r.Context(), lang, ids)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeBriefs(w, briefs)
}

// ListToTry handles GET /api/{lang}/to-try.
func (h *FavoritesHandler) ListToTry(w http.ResponseWriter, r *http.Request) {
	items, err := h.toTry.List(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if items == nil {
		items = []*model.ToTryRecipe{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *FavoritesHandler) decodeToTry(w http.ResponseWriter, r *http.Request) (*dto.ToTryRequest, bool) {
	var req dto.ToTryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return nil, false
	}
	if req.Links != nil {
		for _, l := range *req.Links {
			if strings.TrimSpace(l.URL) == "" {
				continue
			}
			if err := middleware.ValidateLinkURL(l.URL); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_LINK", err.Error())
				return nil, false
			}
		}
	}
	return &req, true
}

func toTryInput(req *dto.ToTryRequest) service.ToTryInput {
	return service.ToTryInput{Name: req.Name, Links: req.Links, Notes: req.Notes}
}

// CreateToTry handles POST /api/{lang}/to-try.
func (h *FavoritesHandler) CreateToTry(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeToTry(w, r)
	if !ok {
		return
	}
	user := auth.UsernameFromContext(r.Context())
	item, err := h.toTry.Create(r.Context(), user, toTryInput(req))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("to_try_created", "id", item.ID, "user", user)
	writeJSON(w, http.StatusCreated, item)
}

// UpdateToTry handles PATCH /api/{lang}/to-try.
func (h *FavoritesHandler) UpdateToTry(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeToTry(w, r)
	if !ok {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "id is required")
		return
	}
	item, err := h.toTry.Update(r.Context(), req.ID, toTryInput(req))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteToTry handles DELETE /api/{lang}/to-try.
func (h *FavoritesHandler) DeleteToTry(w http.ResponseWriter, r *http.Request) {
	var req dto.IDRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "id is required")
		return
	}
	if err := h.toTry.Delete(r.Context(), req.ID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("to_try_deleted", "id", req.ID)
	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *FavoritesHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrRecipeNotFound):
		writeError(w, http.StatusNotFound, "RECIPE_NOT_FOUND", "Recipe not found")
	case errors.Is(err, service.ErrToTryNotFound):
		writeError(w, http.StatusNotFound, "TO_TRY_NOT_FOUND", "Item not found")
	case errors.Is(err, service.ErrToTryNameRequired):
		writeError(w, http.StatusBadRequest, "MISSING_NAME", "Name is required")
	case errors.Is(err, service.ErrToTryLinkRequired):
		writeError(w, http.StatusBadRequest, "MISSING_LINK", "At least one link is required")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
