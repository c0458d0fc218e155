package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/homestead/homestead/internal/cache"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/repository"
)

// FavoritesStore persists favorites.
type FavoritesStore interface {
	AddFavorite(ctx context.Context, username, recipeID string) error
	RemoveFavorite(ctx context.Context, username, recipeID string) error
	ListFavorites(ctx context.Context, username string) ([]string, error)
	GetRecipeByShortName(ctx context.Context, shortName string) (*model.Recipe, error)
}

// FavoritesCache mirrors favorites in a Redis set per user.
type FavoritesCache interface {
	GetFavorites(ctx context.Context, username string) ([]string, error)
	SetFavorites(ctx context.Context, username string, ids []string) error
	AddFavorite(ctx context.Context, username, id string) error
	RemoveFavorite(ctx context.Context, username, id string) error
}

// FavoritesService manages per-user favorite recipes.
type FavoritesService struct {
	repo  FavoritesStore
	cache FavoritesCache
}

// NewFavoritesService creates a new FavoritesService.
func NewFavoritesService(repo FavoritesStore, c FavoritesCache) *FavoritesService {
	return &FavoritesService{repo: repo, cache: c}
}

// IDs returns the favorite recipe IDs of username.
func (s *FavoritesService) IDs(ctx context.Context, username string) ([]string, error) {
	if s.cache != nil {
		ids, err := s.cache.GetFavorites(ctx, username)
		if err == nil {
			return ids, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			_ = err // fall back to the database
		}
	}

	ids, err := s.repo.ListFavorites(ctx, username)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}

	if s.cache != nil {
		if err := s.cache.SetFavorites(ctx, username, ids); err != nil {
			_ = err
		}
	}
	return ids, nil
}

func (s *FavoritesService) resolve(ctx context.Context, shortName string) (*model.Recipe, error) {
	r, err := s.repo.GetRecipeByShortName(ctx, shortName)
	if err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return r, nil
}

// Add favorites the recipe stored as shortName. Adding twice is a no-op.
func (s *FavoritesService) Add(ctx context.Context, username, shortName string) error {
	r, err := s.resolve(ctx, shortName)
	if err != nil {
		return err
	}
	if err := s.repo.AddFavorite(ctx, username, r.ID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.AddFavorite(ctx, username, r.ID); err != nil {
			_ = err
		}
	}
	return nil
}

// Remove drops the recipe stored as shortName from the favorites.
func (s *FavoritesService) Remove(ctx context.Context, username, shortName string) error {
	r, err := s.resolve(ctx, shortName)
	if err != nil {
		return err
	}
	if err := s.repo.RemoveFavorite(ctx, username, r.ID); err != nil && !errors.Is(err, repository.ErrFavoriteNotFound) {
		return err
	}
	if s.cache != nil {
		if err := s.cache.RemoveFavorite(ctx, username, r.ID); err != nil {
			_ = err
		}
	}
	return nil
}

// IsFavorite reports whether the recipe stored as shortName is a favorite.
func (s *FavoritesService) IsFavorite(ctx context.Context, username, shortName string) (bool, error) {
	r, err := s.resolve(ctx, shortName)
	if err != nil {
		return false, err
	}
	ids, err := s.IDs(ctx, username)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, r.ID), nil
}

// To-try errors.
var (
	ErrToTryNotFound     = errors.New("to-try recipe not found")
	ErrToTryNameRequired = errors.New("name is required")
	ErrToTryLinkRequired = errors.New("at least one link is required")
)

// ToTryStore persists to-try recipes.
type ToTryStore interface {
	ListToTry(ctx context.Context) ([]*model.ToTryRecipe, error)
	GetToTry(ctx context.Context, id string) (*model.ToTryRecipe, error)
	CreateToTry(ctx context.Context, item *model.ToTryRecipe) error
	UpdateToTry(ctx context.Context, item *model.ToTryRecipe) error
	DeleteToTry(ctx context.Context, id string) error
}

// ToTryService manages the shared list of recipe ideas.
type ToTryService struct {
	repo ToTryStore
	now  func() time.Time
}

// NewToTryService creates a new ToTryService.
func NewToTryService(repo ToTryStore) *ToTryService {
	return &ToTryService{repo: repo, now: time.Now}
}

// ToTryInput carries the editable fields. Nil fields are left unchanged on update.
type ToTryInput struct {
	Name  *string
	Links *[]model.ToTryLink
	Notes *string
}

func cleanLinks(links []model.ToTryLink) []model.ToTryLink {
	out := make([]model.ToTryLink, 0, len(links))
	for _, l := range links {
		l.URL = strings.TrimSpace(l.URL)
		l.Label = strings.TrimSpace(l.Label)
		if l.URL != "" {
			out = append(out, l)
		}
	}
	return out
}

// List returns every item, newest first.
func (s *ToTryService) List(ctx context.Context) ([]*model.ToTryRecipe, error) {
	items, err := s.repo.ListToTry(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*model.ToTryRecipe{}
	}
	return items, nil
}

// Create adds an item on behalf of username.
func (s *ToTryService) Create(ctx context.Context, username string, in ToTryInput) (*model.ToTryRecipe, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, ErrToTryNameRequired
	}
	var links []model.ToTryLink
	if in.Links != nil {
		links = cleanLinks(*in.Links)
	}
	if len(links) == 0 {
		return nil, ErrToTryLinkRequired
	}

	now := s.now().UTC()
	item := &model.ToTryRecipe{
		ID:        newID(),
		Name:      strings.TrimSpace(*in.Name),
		Links:     links,
		AddedBy:   username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Notes != nil {
		item.Notes = strings.TrimSpace(*in.Notes)
	}

	if err := s.repo.CreateToTry(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Update changes the fields set in in.
func (s *ToTryService) Update(ctx context.Context, id string, in ToTryInput) (*model.ToTryRecipe, error) {
	item, err := s.repo.GetToTry(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrToTryNotFound) {
			return nil, ErrToTryNotFound
		}
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, ErrToTryNameRequired
		}
		item.Name = name
	}
	if in.Links != nil {
		links := cleanLinks(*in.Links)
		if len(links) == 0 {
			return nil, ErrToTryLinkRequired
		}
		item.Links = links
	}
	if in.Notes != nil {
		item.Notes = strings.TrimSpace(*in.Notes)
	}
	item.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateToTry(ctx, item); err != nil {
		if errors.Is(err, repository.ErrToTryNotFound) {
			return nil, ErrToTryNotFound
		}
		return nil, err
	}
	return item, nil
}

// Delete removes an item.
func (s *ToTryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteToTry(ctx, id); err != nil {
		if errors.Is(err, repository.ErrToTryNotFound) {
			return ErrToTryNotFound
		}
		return err
	}
	return nil
}
