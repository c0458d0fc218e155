package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/homestead/homestead/internal/auth"
	"github.com/homestead/homestead/internal/handler/dto"
	"github.com/homestead/homestead/internal/middleware"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/recipe"
	"github.com/homestead/homestead/internal/service"
)

// RecipeHandler serves the recipe catalog in both languages.
type RecipeHandler struct {
	svc       *service.RecipeService
	favorites *service.FavoritesService
	logger    *slog.Logger
}

// NewRecipeHandler creates a new RecipeHandler. favorites may be nil, in
// which case favorites-only searches return nothing.
func NewRecipeHandler(svc *service.RecipeService, favorites *service.FavoritesService, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{
		svc:       svc,
		favorites: favorites,
		logger:    logger,
	}
}

// lang reads the {lang} route segment. Unknown languages answer 404.
func (h *RecipeHandler) lang(w http.ResponseWriter, r *http.Request) (model.Lang, bool) {
	lang, ok := model.ParseLang(chi.URLParam(r, "lang"))
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return "", false
	}
	return lang, true
}

// writeBriefs answers with a brief list, never null.
func writeBriefs(w http.ResponseWriter, briefs []*model.BriefRecipe) {
	if briefs == nil {
		briefs = []*model.BriefRecipe{}
	}
	writeJSON(w, http.StatusOK, briefs)
}

// AllBrief handles GET /api/{lang}/items/all_brief.
func (h *RecipeHandler) AllBrief(w http.ResponseWriter, r *http.Request) {
	lang, ok := h.lang(w, r)
	if !ok {
		return
	}
	briefs, err := h.svc.AllBrief(r.Context(), lang)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeBriefs(w, briefs)
}

// InSeason handles GET /api/{lang}/items/in_season/{month}.
func (h *RecipeHandler) InSeason(w http.ResponseWriter, r *http.Request) {
	lang, ok := h.lang(w, r)
	if !ok {
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_MONTH", "Month must be between 1 and 12")
		return
	}
	briefs, err := h.svc.InSeason(r.Context(), lang, month)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeBriefs(w, briefs)
}

// Categories handles GET /api/{lang}/items/category.
func (h *RecipeHandler) Categories(w http.ResponseWriter, r *http.Request) {
	h.distinct(w, r, h.svc.Categories)
}

// Tags handles GET /api/{lang}/items/tag.
func (h *RecipeHandler) Tags(w http.ResponseWriter, r *http.Request) {
	h.distinct(w, r, h.svc.Tags)
}

// Icons handles GET /api/{lang}/items/icon.
func (h *RecipeHandler) Icons(w http.ResponseWriter, r *http.Request) {
	h.distinct(w, r, h.svc.Icons)
}

func (h *RecipeHandler) distinct(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, lang model.Lang) ([]string, error)) {
	lang, ok := h.lang(w, r)
	if !ok {
		return
	}
	values, err := list(r.Context(), lang)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// ByCategory handles GET /api/{lang}/items/category/{category}.
func (h *RecipeHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, "category", h.svc.ByCategory)
}

// ByTag handles GET /api/{lang}/items/tag/{tag}.
func (h *RecipeHandler) ByTag(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, "tag", h.svc.ByTag)
}

// ByIcon handles GET /api/{lang}/items/icon/{icon}.
func (h *RecipeHandler) ByIcon(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, "icon", h.svc.ByIcon)
}

func (h *RecipeHandler) filtered(w http.ResponseWriter, r *http.Request, param string, list func(ctx context.Context, lang model.Lang, value string) ([]*model.BriefRecipe, error)) {
	lang, ok := h.lang(w, r)
	if !ok {
		return
	}
	briefs, err := list(r.Context(), lang, chi.URLParam(r, param))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeBriefs(w, briefs)
}

// Get handles GET /api/{lang}/items/{name}. Query flags y0, y1, ... swap
// the N-th yeast ingredient and multiplier is echoed for scaling.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	lang, ok := h.lang(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Get(r.Context(), lang, chi.URLParam(r, "name"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	q := r.URL.Query()
	recipe.SwapYeast(rec, recipe.YeastToggles(q), lang.IsEnglish())
	writeJSON(w, http.StatusOK, dto.RecipeResponse{
		Recipe:     rec,
		Multiplier: recipe.Multiplier(q),
	})
}

// Search handles GET /api/{lang}/search.
func (h *RecipeHandler) Search(w http.ResponseWriter, r *http.Request) {
	lang, ok := h.lang(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	f := recipe.Filter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Icon:     q.Get("icon"),
		Tags:     recipe.ParseList(firstParam(q.Get("tags"), q.Get("tag"))),
	}
	for _, s := range recipe.ParseList(firstParam(q.Get("seasons"), q.Get("season"))) {
		if month, err := strconv.Atoi(s); err == nil {
			f.Seasons = append(f.Seasons, month)
		}
	}

	if queryBool(r, "favorites") {
		f.FavoritesOnly = true
		if user := auth.UsernameFromContext(r.Context()); user != "" && h.favorites != nil {
			ids, err := h.favorites.IDs(r.Context(), user)
			if err != nil {
				h.handleServiceError(w, err)
				return
			}
			f.FavoriteIDs = ids
		}
	}

	briefs, err := h.svc.Search(r.Context(), lang, f)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeBriefs(w, briefs)
}

func firstParam(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// JSONLD handles GET /api/{lang}/json-ld/{name}.
func (h *RecipeHandler) JSONLD(w http.ResponseWriter, r *http.Request) {
	lang, ok := h.lang(w, r)
	if !ok {
		return
	}
	doc, err := h.svc.JSONLD(r.Context(), lang, chi.URLParam(r, "name"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/ld+json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(doc)
}

// OfflineDB handles GET /api/{lang}/offline-db. The ETag covers the recipe
// content only, so a client that already holds it gets 304.
func (h *RecipeHandler) OfflineDB(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.lang(w, r); !ok {
		return
	}
	dump, err := h.svc.OfflineDump(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	content, err := json.Marshal(struct {
		Brief []*model.BriefRecipe `json:"brief"`
		Full  []*model.Recipe      `json:"full"`
	}{dump.Brief, dump.Full})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	etag := `"` + auth.ContentHash(content) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.logger.Info("offline_db_served",
		"recipes", len(dump.Full),
	)
	writeJSON(w, http.StatusOK, dump)
}

// CheckReferences handles GET /api/rezepte/check-references/{id}.
func (h *RecipeHandler) CheckReferences(w http.ResponseWriter, r *http.Request) {
	refs, err := h.svc.CheckReferences(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ReferencesResponse{
		IsReferenced: len(refs) > 0,
		References:   refs,
	})
}

func (h *RecipeHandler) decodeWrite(w http.ResponseWriter, r *http.Request) (*dto.RecipeWriteRequest, bool) {
	var req dto.RecipeWriteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return nil, false
	}
	return &req, true
}

func (h *RecipeHandler) validShortName(w http.ResponseWriter, rec *model.Recipe) bool {
	if rec == nil {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "recipe is required")
		return false
	}
	if err := middleware.ValidateShortName(rec.ShortName); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_SHORT_NAME", err.Error())
		return false
	}
	return true
}

// Create handles POST /api/rezepte/add.
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeWrite(w, r)
	if !ok || !h.validShortName(w, req.Recipe) {
		return
	}

	rec, err := h.svc.Create(r.Context(), req.Recipe)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("recipe_created",
		"recipe_id", rec.ID,
		"short_name", rec.ShortName,
		"user", auth.UsernameFromContext(r.Context()),
	)
	writeJSON(w, http.StatusCreated, rec)
}

// Update handles PUT /api/rezepte/edit.
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeWrite(w, r)
	if !ok || !h.validShortName(w, req.Recipe) {
		return
	}
	old := req.OldShortName
	if old == "" {
		old = req.Recipe.ShortName
	}

	rec, err := h.svc.Update(r.Context(), old, req.Recipe)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("recipe_updated",
		"recipe_id", rec.ID,
		"short_name", rec.ShortName,
		"renamed", old != rec.ShortName,
	)
	writeJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/rezepte/delete.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeWrite(w, r)
	if !ok {
		return
	}
	if req.OldShortName == "" {
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "old_short_name is required")
		return
	}

	if err := h.svc.Delete(r.Context(), req.OldShortName); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("recipe_deleted", "short_name", req.OldShortName)
	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *RecipeHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrRecipeNotFound):
		writeError(w, http.StatusNotFound, "RECIPE_NOT_FOUND", "Recipe not found")
	case errors.Is(err, service.ErrShortNameExists):
		writeError(w, http.StatusConflict, "SHORT_NAME_TAKEN", "A recipe with this short name already exists")
	case errors.Is(err, service.ErrRecipeFieldsMissing):
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "short_name and name are required")
	case errors.Is(err, service.ErrInvalidMonth):
		writeError(w, http.StatusBadRequest, "INVALID_MONTH", "Month must be between 1 and 12")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
