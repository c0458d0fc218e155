package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/homestead/homestead/internal/cache"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/repository"
)

type fakeFavoritesStore struct {
	*fakeRecipeStore
	favorites map[string][]string
	reads     int
}

func (s *fakeFavoritesStore) AddFavorite(_ context.Context, username, recipeID string) error {
	if !slices.Contains(s.favorites[username], recipeID) {
		s.favorites[username] = append(s.favorites[username], recipeID)
	}
	return nil
}

func (s *fakeFavoritesStore) RemoveFavorite(_ context.Context, username, recipeID string) error {
	ids := s.favorites[username]
	i := slices.Index(ids, recipeID)
	if i < 0 {
		return repository.ErrFavoriteNotFound
	}
	s.favorites[username] = slices.Delete(ids, i, i+1)
	return nil
}

func (s *fakeFavoritesStore) ListFavorites(_ context.Context, username string) ([]string, error) {
	s.reads++
	return slices.Clone(s.favorites[username]), nil
}

type setCache struct {
	sets map[string][]string
}

func (c *setCache) GetFavorites(_ context.Context, username string) ([]string, error) {
	ids, ok := c.sets[username]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return ids, nil
}

func (c *setCache) SetFavorites(_ context.Context, username string, ids []string) error {
	if len(ids) > 0 {
		c.sets[username] = slices.Clone(ids)
	}
	return nil
}

func (c *setCache) AddFavorite(_ context.Context, username, id string) error {
	if ids, ok := c.sets[username]; ok && !slices.Contains(ids, id) {
		c.sets[username] = append(ids, id)
	}
	return nil
}

func (c *setCache) RemoveFavorite(_ context.Context, username, id string) error {
	if ids, ok := c.sets[username]; ok {
		c.sets[username] = slices.DeleteFunc(ids, func(v string) bool { return v == id })
	}
	return nil
}

func TestFavoritesService(t *testing.T) {
	store := &fakeFavoritesStore{fakeRecipeStore: newFakeRecipeStore(testRecipes()...), favorites: map[string][]string{}}
	c := &setCache{sets: map[string][]string{}}
	svc := NewFavoritesService(store, c)
	ctx := context.Background()

	if err := svc.Add(ctx, "anna", "zopf"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := svc.Add(ctx, "anna", "zopf"); err != nil {
		t.Fatalf("Add twice: %v", err)
	}

	ids, err := svc.IDs(ctx, "anna")
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != "r1" {
		t.Fatalf("unexpected favorites: %v", ids)
	}

	if _, err := svc.IDs(ctx, "anna"); err != nil {
		t.Fatalf("IDs: %v", err)
	}
	if store.reads != 1 {
		t.Fatalf("expected cached read, store read %d times", store.reads)
	}

	fav, err := svc.IsFavorite(ctx, "anna", "pizza")
	if err != nil || fav {
		t.Fatalf("expected pizza not favorite, got %v %v", fav, err)
	}

	if err := svc.Remove(ctx, "anna", "zopf"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := svc.Remove(ctx, "anna", "zopf"); err != nil {
		t.Fatalf("Remove twice: %v", err)
	}
	if err := svc.Add(ctx, "anna", "missing"); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestFavoritesServiceWithoutCache(t *testing.T) {
	store := &fakeFavoritesStore{fakeRecipeStore: newFakeRecipeStore(testRecipes()...), favorites: map[string][]string{}}
	svc := NewFavoritesService(store, nil)

	ids, err := svc.IDs(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", ids)
	}
}

type fakeToTryStore struct {
	items map[string]*model.ToTryRecipe
}

func (s *fakeToTryStore) ListToTry(context.Context) ([]*model.ToTryRecipe, error) {
	var out []*model.ToTryRecipe
	for _, it := range s.items {
		out = append(out, it)
	}
	return out, nil
}

func (s *fakeToTryStore) GetToTry(_ context.Context, id string) (*model.ToTryRecipe, error) {
	it, ok := s.items[id]
	if !ok {
		return nil, repository.ErrToTryNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *fakeToTryStore) CreateToTry(_ context.Context, item *model.ToTryRecipe) error {
	s.items[item.ID] = item
	return nil
}

func (s *fakeToTryStore) UpdateToTry(_ context.Context, item *model.ToTryRecipe) error {
	if _, ok := s.items[item.ID]; !ok {
		return repository.ErrToTryNotFound
	}
	s.items[item.ID] = item
	return nil
}

func (s *fakeToTryStore) DeleteToTry(_ context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return repository.ErrToTryNotFound
	}
	delete(s.items, id)
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestToTryService(t *testing.T) {
	svc := NewToTryService(&fakeToTryStore{items: map[string]*model.ToTryRecipe{}})
	ctx := context.Background()

	list, err := svc.List(ctx)
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v %v", list, err)
	}

	tests := []struct {
		name    string
		input   ToTryInput
		wantErr error
	}{
		{"missing_name", ToTryInput{Links: &[]model.ToTryLink{{URL: "https://a.example"}}}, ErrToTryNameRequired},
		{"blank_name", ToTryInput{Name: ptr("  "), Links: &[]model.ToTryLink{{URL: "https://a.example"}}}, ErrToTryNameRequired},
		{"no_links", ToTryInput{Name: ptr("Ramen")}, ErrToTryLinkRequired},
		{"empty_links", ToTryInput{Name: ptr("Ramen"), Links: &[]model.ToTryLink{{URL: " "}}}, ErrToTryLinkRequired},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, "anna", test.input); !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
		})
	}

	item, err := svc.Create(ctx, "anna", ToTryInput{
		Name:  ptr(" Ramen "),
		Links: &[]model.ToTryLink{{URL: " https://a.example "}, {URL: ""}},
		Notes: ptr("scharf"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if item.Name != "Ramen" || len(item.Links) != 1 || item.Links[0].URL != "https://a.example" || item.AddedBy != "anna" {
		t.Fatalf("unexpected item: %+v", item)
	}

	updated, err := svc.Update(ctx, item.ID, ToTryInput{Notes: ptr("mild")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Notes != "mild" || updated.Name != "Ramen" {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if err := svc.Delete(ctx, item.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, item.ID); !errors.Is(err, ErrToTryNotFound) {
		t.Fatalf("expected ErrToTryNotFound, got %v", err)
	}
	if _, err := svc.Update(ctx, item.ID, ToTryInput{}); !errors.Is(err, ErrToTryNotFound) {
		t.Fatalf("expected ErrToTryNotFound, got %v", err)
	}
}
