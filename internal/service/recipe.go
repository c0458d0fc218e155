package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/homestead/homestead/internal/cache"
	"github.com/homestead/homestead/internal/metrics"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/recipe"
	"github.com/homestead/homestead/internal/repository"
	"github.com/homestead/homestead/internal/shuffle"
)

// Recipe errors.
var (
	ErrRecipeNotFound      = errors.New("recipe not found")
	ErrShortNameExists     = errors.New("short_name already exists")
	ErrRecipeFieldsMissing = errors.New("short_name and name are required")
	ErrInvalidMonth        = errors.New("month must be between 1 and 12")
)

// RecipeStore persists recipes.
type RecipeStore interface {
	CreateRecipe(ctx context.Context, r *model.Recipe) error
	UpdateRecipe(ctx context.Context, r *model.Recipe) error
	DeleteRecipe(ctx context.Context, id string) error
	GetRecipeByID(ctx context.Context, id string) (*model.Recipe, error)
	GetRecipeByShortName(ctx context.Context, shortName string) (*model.Recipe, error)
	GetRecipeByEnglishShortName(ctx context.Context, shortName string) (*model.Recipe, error)
	ListRecipes(ctx context.Context) ([]*model.Recipe, error)
	ListRecipesReferencing(ctx context.Context, id string) ([]*model.Recipe, error)
}

// RecipeCache caches brief listings.
type RecipeCache interface {
	JSONCache
	InvalidateRecipes(ctx context.Context) (int, error)
}

// RecipeService handles recipe business logic.
type RecipeService struct {
	repo    RecipeStore
	cache   RecipeCache
	metrics metrics.Recorder
	baseURL string
	author  string
	now     func() time.Time
}

// NewRecipeService creates a new RecipeService.
func NewRecipeService(repo RecipeStore, c RecipeCache, baseURL, author string, recorder metrics.Recorder) *RecipeService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &RecipeService{
		repo:    repo,
		cache:   c,
		metrics: recorder,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		author:  author,
		now:     time.Now,
	}
}

// BaseURL returns the configured public origin.
func (s *RecipeService) BaseURL() string {
	return s.baseURL
}

func (s *RecipeService) recordCache(hit bool) {
	if hit {
		s.metrics.IncRecipeCacheHit()
	} else {
		s.metrics.IncRecipeCacheMiss()
	}
}

func (s *RecipeService) jsonCache() JSONCache {
	if s.cache == nil {
		return nil
	}
	return s.cache
}

// find loads the stored recipe addressed by name in lang.
func (s *RecipeService) find(ctx context.Context, lang model.Lang, name string) (*model.Recipe, error) {
	var (
		r   *model.Recipe
		err error
	)
	if lang.IsEnglish() {
		r, err = s.repo.GetRecipeByEnglishShortName(ctx, name)
	} else {
		r, err = s.repo.GetRecipeByShortName(ctx, name)
	}
	if err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *RecipeService) lookup(ctx context.Context, id string) (*model.Recipe, error) {
	r, err := s.repo.GetRecipeByID(ctx, id)
	if errors.Is(err, repository.ErrRecipeNotFound) {
		return nil, nil
	}
	return r, err
}

// Get returns the recipe as seen from lang with its base recipes resolved.
func (s *RecipeService) Get(ctx context.Context, lang model.Lang, name string) (*model.Recipe, error) {
	stored, err := s.find(ctx, lang, name)
	if err != nil {
		return nil, err
	}

	r, err := recipe.Localize(stored, lang)
	if err != nil {
		if errors.Is(err, recipe.ErrNoTranslation) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}

	if err := recipe.ResolveReferences(ctx, r, lang, s.lookup); err != nil {
		return nil, fmt.Errorf("failed to resolve references: %w", err)
	}
	return r, nil
}

// AllBrief returns the brief list of lang in storage order.
func (s *RecipeService) AllBrief(ctx context.Context, lang model.Lang) ([]*model.BriefRecipe, error) {
	return readThrough(ctx, s.jsonCache(), cache.AllBriefKey(lang), cache.DefaultTTL, s.recordCache,
		func() ([]*model.BriefRecipe, error) {
			all, err := s.repo.ListRecipes(ctx)
			if err != nil {
				return nil, err
			}
			return recipe.Briefs(all, lang), nil
		})
}

// filtered caches a subset of the brief list under key.
func (s *RecipeService) filtered(ctx context.Context, lang model.Lang, key string, keep func(*model.BriefRecipe) bool) ([]*model.BriefRecipe, error) {
	return readThrough(ctx, s.jsonCache(), key, cache.DefaultTTL, s.recordCache,
		func() ([]*model.BriefRecipe, error) {
			all, err := s.AllBrief(ctx, lang)
			if err != nil {
				return nil, err
			}
			out := make([]*model.BriefRecipe, 0, len(all))
			for _, b := range all {
				if keep(b) {
					out = append(out, b)
				}
			}
			return out, nil
		})
}

// InSeason returns the briefs in season for month in daily shuffle order.
func (s *RecipeService) InSeason(ctx context.Context, lang model.Lang, month int) ([]*model.BriefRecipe, error) {
	if month < 1 || month > 12 {
		return nil, ErrInvalidMonth
	}
	briefs, err := s.filtered(ctx, lang, cache.InSeasonKey(lang, month), func(b *model.BriefRecipe) bool {
		return slices.Contains(b.Season, month)
	})
	if err != nil {
		return nil, err
	}
	return shuffle.Daily(briefs, s.now()), nil
}

// ByCategory returns the briefs of category in daily shuffle order.
func (s *RecipeService) ByCategory(ctx context.Context, lang model.Lang, category string) ([]*model.BriefRecipe, error) {
	briefs, err := s.filtered(ctx, lang, cache.CategoryKey(lang, category), func(b *model.BriefRecipe) bool {
		return b.Category == category
	})
	if err != nil {
		return nil, err
	}
	return shuffle.Daily(briefs, s.now()), nil
}

// ByTag returns the briefs tagged with tag in daily shuffle order.
func (s *RecipeService) ByTag(ctx context.Context, lang model.Lang, tag string) ([]*model.BriefRecipe, error) {
	briefs, err := s.filtered(ctx, lang, cache.TagKey(lang, tag), func(b *model.BriefRecipe) bool {
		return slices.Contains(b.Tags, tag)
	})
	if err != nil {
		return nil, err
	}
	return shuffle.Daily(briefs, s.now()), nil
}

// ByIcon returns the briefs with icon in daily shuffle order.
func (s *RecipeService) ByIcon(ctx context.Context, lang model.Lang, icon string) ([]*model.BriefRecipe, error) {
	briefs, err := s.filtered(ctx, lang, cache.IconKey(lang, icon), func(b *model.BriefRecipe) bool {
		return b.Icon == icon
	})
	if err != nil {
		return nil, err
	}
	return shuffle.Daily(briefs, s.now()), nil
}

// Categories returns the distinct categories of lang, sorted.
func (s *RecipeService) Categories(ctx context.Context, lang model.Lang) ([]string, error) {
	return s.distinct(ctx, lang, func(b *model.BriefRecipe) []string { return []string{b.Category} })
}

// Tags returns the distinct tags of lang, sorted.
func (s *RecipeService) Tags(ctx context.Context, lang model.Lang) ([]string, error) {
	return s.distinct(ctx, lang, func(b *model.BriefRecipe) []string { return b.Tags })
}

// Icons returns the distinct icons of lang, sorted.
func (s *RecipeService) Icons(ctx context.Context, lang model.Lang) ([]string, error) {
	return s.distinct(ctx, lang, func(b *model.BriefRecipe) []string { return []string{b.Icon} })
}

func (s *RecipeService) distinct(ctx context.Context, lang model.Lang, values func(*model.BriefRecipe) []string) ([]string, error) {
	all, err := s.AllBrief(ctx, lang)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, b := range all {
		for _, v := range values(b) {
			if v != "" && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

// Search filters the brief list of lang.
func (s *RecipeService) Search(ctx context.Context, lang model.Lang, f recipe.Filter) ([]*model.BriefRecipe, error) {
	all, err := s.AllBrief(ctx, lang)
	if err != nil {
		return nil, err
	}
	return f.Apply(all), nil
}

// BriefsByIDs returns the briefs of lang whose IDs are in ids.
func (s *RecipeService) BriefsByIDs(ctx context.Context, lang model.Lang, ids []string) ([]*model.BriefRecipe, error) {
	return s.Search(ctx, lang, recipe.Filter{FavoritesOnly: true, FavoriteIDs: ids})
}

// JSONLD renders structured data for the recipe addressed by name.
func (s *RecipeService) JSONLD(ctx context.Context, lang model.Lang, name string) (*recipe.JSONLD, error) {
	r, err := s.Get(ctx, lang, name)
	if err != nil {
		return nil, err
	}
	return recipe.BuildJSONLD(r, s.baseURL, lang, s.author), nil
}

// ReferenceInfo names a recipe that embeds another.
type ReferenceInfo struct {
	ID        string `json:"id"`
	ShortName string `json:"short_name"`
	Name      string `json:"name"`
}

// CheckReferences lists the recipes embedding the recipe with id.
func (s *RecipeService) CheckReferences(ctx context.Context, id string) ([]ReferenceInfo, error) {
	refs, err := s.repo.ListRecipesReferencing(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]ReferenceInfo, 0, len(refs))
	for _, r := range refs {
		out = append(out, ReferenceInfo{ID: r.ID, ShortName: r.ShortName, Name: r.Name})
	}
	return out, nil
}

func validateRecipe(r *model.Recipe) error {
	r.ShortName = strings.TrimSpace(r.ShortName)
	if r.ShortName == "" || strings.TrimSpace(r.Name) == "" {
		return ErrRecipeFieldsMissing
	}
	return nil
}

// Create stores a new recipe.
func (s *RecipeService) Create(ctx context.Context, r *model.Recipe) (*model.Recipe, error) {
	if err := validateRecipe(r); err != nil {
		return nil, err
	}
	recipe.Sanitize(r)

	now := s.now().UTC()
	r.ID = newID()
	r.DateCreated = now
	r.DateModified = now

	if err := s.repo.CreateRecipe(ctx, r); err != nil {
		if errors.Is(err, repository.ErrShortNameExists) {
			return nil, ErrShortNameExists
		}
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	s.invalidate(ctx)
	return r, nil
}

// Update replaces the recipe currently stored as oldShortName. An approved
// translation is marked for review when the German content changed.
func (s *RecipeService) Update(ctx context.Context, oldShortName string, r *model.Recipe) (*model.Recipe, error) {
	if err := validateRecipe(r); err != nil {
		return nil, err
	}
	before, err := s.find(ctx, model.LangDE, oldShortName)
	if err != nil {
		return nil, err
	}
	recipe.Sanitize(r)

	r.ID = before.ID
	r.DateCreated = before.DateCreated
	r.DateModified = s.now().UTC()
	recipe.MarkStale(before, r)

	if err := s.repo.UpdateRecipe(ctx, r); err != nil {
		switch {
		case errors.Is(err, repository.ErrShortNameExists):
			return nil, ErrShortNameExists
		case errors.Is(err, repository.ErrRecipeNotFound):
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to update recipe: %w", err)
	}

	s.invalidate(ctx)
	return r, nil
}

// Delete removes the recipe stored as shortName. Recipes embedding it get the
// embedded sections copied in first.
func (s *RecipeService) Delete(ctx context.Context, shortName string) error {
	target, err := s.find(ctx, model.LangDE, shortName)
	if err != nil {
		return err
	}

	dependents, err := s.repo.ListRecipesReferencing(ctx, target.ID)
	if err != nil {
		return err
	}
	for _, dep := range dependents {
		if !recipe.InlineReference(dep, target) {
			continue
		}
		dep.DateModified = s.now().UTC()
		if err := s.repo.UpdateRecipe(ctx, dep); err != nil {
			return fmt.Errorf("failed to inline reference in %s: %w", dep.ShortName, err)
		}
	}

	if err := s.repo.DeleteRecipe(ctx, target.ID); err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return ErrRecipeNotFound
		}
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *RecipeService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	// Entries expire on their own when invalidation fails.
	_, _ = s.cache.InvalidateRecipes(ctx)
}

// OfflineDump returns every recipe for offline use. German briefs and full
// records are always included; English briefs cover approved translations.
func (s *RecipeService) OfflineDump(ctx context.Context) (*model.OfflineDump, error) {
	all, err := s.repo.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}

	full := make([]*model.Recipe, 0, len(all))
	for _, stored := range all {
		r := *stored
		if err := recipe.ResolveReferences(ctx, &r, model.LangDE, s.lookup); err != nil {
			return nil, fmt.Errorf("failed to resolve references: %w", err)
		}
		full = append(full, &r)
	}

	s.metrics.IncOfflineDumpServed()
	return &model.OfflineDump{
		Brief:    recipe.Briefs(all, model.LangDE),
		BriefEN:  recipe.Briefs(all, model.LangEN),
		Full:     full,
		SyncedAt: s.now().UTC(),
	}, nil
}
