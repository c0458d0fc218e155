package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/homestead/homestead/internal/cache"
	"github.com/homestead/homestead/internal/metrics"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/repository"
)

type fakeRecipeStore struct {
	mu      sync.Mutex
	recipes map[string]*model.Recipe
	order   []string
	lists   int
	deleted []string
}

func newFakeRecipeStore(recipes ...*model.Recipe) *fakeRecipeStore {
	s := &fakeRecipeStore{recipes: make(map[string]*model.Recipe)}
	for _, r := range recipes {
		s.recipes[r.ID] = r
		s.order = append(s.order, r.ID)
	}
	return s
}

func (s *fakeRecipeStore) CreateRecipe(_ context.Context, r *model.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.recipes {
		if existing.ShortName == r.ShortName {
			return repository.ErrShortNameExists
		}
	}
	s.recipes[r.ID] = r
	s.order = append(s.order, r.ID)
	return nil
}

func (s *fakeRecipeStore) UpdateRecipe(_ context.Context, r *model.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[r.ID]; !ok {
		return repository.ErrRecipeNotFound
	}
	s.recipes[r.ID] = r
	return nil
}

func (s *fakeRecipeStore) DeleteRecipe(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[id]; !ok {
		return repository.ErrRecipeNotFound
	}
	delete(s.recipes, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeRecipeStore) GetRecipeByID(_ context.Context, id string) (*model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[id]
	if !ok {
		return nil, repository.ErrRecipeNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeRecipeStore) find(match func(*model.Recipe) bool) (*model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if r, ok := s.recipes[id]; ok && match(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrRecipeNotFound
}

func (s *fakeRecipeStore) GetRecipeByShortName(_ context.Context, shortName string) (*model.Recipe, error) {
	return s.find(func(r *model.Recipe) bool { return r.ShortName == shortName })
}

func (s *fakeRecipeStore) GetRecipeByEnglishShortName(_ context.Context, shortName string) (*model.Recipe, error) {
	return s.find(func(r *model.Recipe) bool {
		return r.Translations.EN != nil && r.Translations.EN.ShortName == shortName
	})
}

func (s *fakeRecipeStore) ListRecipes(context.Context) ([]*model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	out := make([]*model.Recipe, 0, len(s.order))
	for _, id := range s.order {
		if r, ok := s.recipes[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeRecipeStore) ListRecipesReferencing(_ context.Context, id string) ([]*model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Recipe
	for _, rid := range s.order {
		r, ok := s.recipes[rid]
		if !ok {
			continue
		}
		for _, sec := range r.Ingredients {
			if sec.Type == model.SectionReference && sec.BaseRecipeRef == id {
				cp := *r
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func testRecipes() []*model.Recipe {
	return []*model.Recipe{
		{
			ID: "r1", ShortName: "zopf", Name: "Zopf", Category: "Brot", Icon: "🍞",
			Tags: []string{"Hefe"}, Season: []int{1, 12},
			Ingredients: []model.IngredientSection{{Name: "Teig", List: []model.Ingredient{{Name: "Mehl", Amount: "500", Unit: "g"}}}},
			Translations: model.Translations{EN: &model.RecipeTranslation{
				ShortName: "braided-bread", Name: "Braided Bread", Category: "Bread",
				TranslationStatus: model.TranslationApproved,
			}},
		},
		{
			ID: "r2", ShortName: "pizza", Name: "Pizza", Category: "Hauptspeise", Icon: "🍕",
			Tags: []string{"Hefe", "Ofen"}, Season: []int{6},
			Ingredients: []model.IngredientSection{
				{Name: "Belag", List: []model.Ingredient{{Name: "Tomate"}}},
				{Type: model.SectionReference, BaseRecipeRef: "r1"},
			},
		},
	}
}

func TestRecipeServiceAllBriefCaches(t *testing.T) {
	store := newFakeRecipeStore(testRecipes()...)
	c := newMemoryCache()
	rec := metrics.NewInMemory()
	svc := NewRecipeService(store, c, "https://example.com/", "Kitchen", rec)

	for range 2 {
		briefs, err := svc.AllBrief(context.Background(), model.LangDE)
		if err != nil {
			t.Fatalf("AllBrief: %v", err)
		}
		if len(briefs) != 2 {
			t.Fatalf("expected 2 briefs, got %d", len(briefs))
		}
	}

	if store.lists != 1 {
		t.Fatalf("expected one store read, got %d", store.lists)
	}
	snap := rec.Snapshot()
	if snap.RecipeCacheMisses != 1 || snap.RecipeCacheHits != 1 {
		t.Fatalf("unexpected cache metrics: %+v", snap)
	}
	if !c.has(cache.AllBriefKey(model.LangDE)) {
		t.Fatal("expected brief list to be cached")
	}
	if svc.BaseURL() != "https://example.com" {
		t.Fatalf("unexpected base URL %q", svc.BaseURL())
	}
}

func TestRecipeServiceEnglishBriefsApprovedOnly(t *testing.T) {
	svc := NewRecipeService(newFakeRecipeStore(testRecipes()...), nil, "", "", nil)

	briefs, err := svc.AllBrief(context.Background(), model.LangEN)
	if err != nil {
		t.Fatalf("AllBrief: %v", err)
	}
	if len(briefs) != 1 || briefs[0].ShortName != "braided-bread" || briefs[0].GermanShortName != "zopf" {
		t.Fatalf("unexpected english briefs: %+v", briefs)
	}
}

func TestRecipeServiceGet(t *testing.T) {
	svc := NewRecipeService(newFakeRecipeStore(testRecipes()...), nil, "", "", nil)
	ctx := context.Background()

	r, err := svc.Get(ctx, model.LangDE, "pizza")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	ref := r.Ingredients[1].ResolvedRecipe
	if ref == nil || ref.ShortName != "zopf" {
		t.Fatalf("expected resolved base recipe, got %+v", ref)
	}

	en, err := svc.Get(ctx, model.LangEN, "braided-bread")
	if err != nil {
		t.Fatalf("Get english: %v", err)
	}
	if en.Name != "Braided Bread" || en.GermanShortName != "zopf" {
		t.Fatalf("unexpected english view: %+v", en)
	}

	if _, err := svc.Get(ctx, model.LangEN, "pizza"); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound for german name on english route, got %v", err)
	}
	if _, err := svc.Get(ctx, model.LangDE, "missing"); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestRecipeServiceFilters(t *testing.T) {
	svc := NewRecipeService(newFakeRecipeStore(testRecipes()...), newMemoryCache(), "", "", nil)
	ctx := context.Background()

	winter, err := svc.InSeason(ctx, model.LangDE, 12)
	if err != nil {
		t.Fatalf("InSeason: %v", err)
	}
	if len(winter) != 1 || winter[0].ID != "r1" {
		t.Fatalf("unexpected season result: %+v", winter)
	}
	if _, err := svc.InSeason(ctx, model.LangDE, 13); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}

	tagged, err := svc.ByTag(ctx, model.LangDE, "Hefe")
	if err != nil {
		t.Fatalf("ByTag: %v", err)
	}
	if len(tagged) != 2 {
		t.Fatalf("expected 2 tagged recipes, got %d", len(tagged))
	}

	tags, err := svc.Tags(ctx, model.LangDE)
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if len(tags) != 2 || tags[0] != "Hefe" || tags[1] != "Ofen" {
		t.Fatalf("unexpected tags: %v", tags)
	}

	categories, err := svc.Categories(ctx, model.LangEN)
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(categories) != 1 || categories[0] != "Bread" {
		t.Fatalf("unexpected english categories: %v", categories)
	}
}

func TestRecipeServiceCreateInvalidates(t *testing.T) {
	store := newFakeRecipeStore(testRecipes()...)
	c := newMemoryCache()
	svc := NewRecipeService(store, c, "", "", nil)
	ctx := context.Background()

	if _, err := svc.AllBrief(ctx, model.LangDE); err != nil {
		t.Fatalf("AllBrief: %v", err)
	}

	created, err := svc.Create(ctx, &model.Recipe{ShortName: " brot ", Name: "Brot", Description: "<b>fein</b>"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.ShortName != "brot" || created.DateCreated.IsZero() {
		t.Fatalf("unexpected created recipe: %+v", created)
	}
	if c.has(cache.AllBriefKey(model.LangDE)) {
		t.Fatal("expected brief cache to be invalidated")
	}

	if _, err := svc.Create(ctx, &model.Recipe{ShortName: "zopf", Name: "Zopf"}); !errors.Is(err, ErrShortNameExists) {
		t.Fatalf("expected ErrShortNameExists, got %v", err)
	}
	if _, err := svc.Create(ctx, &model.Recipe{ShortName: "x"}); !errors.Is(err, ErrRecipeFieldsMissing) {
		t.Fatalf("expected ErrRecipeFieldsMissing, got %v", err)
	}
}

func TestRecipeServiceUpdateMarksTranslationStale(t *testing.T) {
	store := newFakeRecipeStore(testRecipes()...)
	svc := NewRecipeService(store, nil, "", "", nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

	edited := *store.recipes["r1"]
	edited.Description = "Neu beschrieben"

	updated, err := svc.Update(context.Background(), "zopf", &edited)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != "r1" {
		t.Fatalf("expected ID to be kept, got %q", updated.ID)
	}
	if got := updated.Translations.EN.TranslationStatus; got != model.TranslationNeedsUpdate {
		t.Fatalf("expected needs_update, got %q", got)
	}
}

func TestRecipeServiceDeleteInlinesDependents(t *testing.T) {
	store := newFakeRecipeStore(testRecipes()...)
	svc := NewRecipeService(store, nil, "", "", nil)

	refs, err := svc.CheckReferences(context.Background(), "r1")
	if err != nil {
		t.Fatalf("CheckReferences: %v", err)
	}
	if len(refs) != 1 || refs[0].ShortName != "pizza" {
		t.Fatalf("unexpected references: %+v", refs)
	}

	if err := svc.Delete(context.Background(), "zopf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	pizza := store.recipes["r2"]
	for _, sec := range pizza.Ingredients {
		if sec.Type == model.SectionReference {
			t.Fatalf("expected reference to be inlined, got %+v", pizza.Ingredients)
		}
	}
	if len(pizza.Ingredients) != 2 || pizza.Ingredients[1].Name != "Teig" {
		t.Fatalf("unexpected inlined sections: %+v", pizza.Ingredients)
	}
	if err := svc.Delete(context.Background(), "zopf"); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestRecipeServiceOfflineDump(t *testing.T) {
	rec := metrics.NewInMemory()
	svc := NewRecipeService(newFakeRecipeStore(testRecipes()...), nil, "", "", rec)

	dump, err := svc.OfflineDump(context.Background())
	if err != nil {
		t.Fatalf("OfflineDump: %v", err)
	}
	if len(dump.Brief) != 2 || len(dump.BriefEN) != 1 || len(dump.Full) != 2 {
		t.Fatalf("unexpected dump sizes: %d %d %d", len(dump.Brief), len(dump.BriefEN), len(dump.Full))
	}
	if dump.Full[1].Ingredients[1].ResolvedRecipe == nil {
		t.Fatal("expected references resolved in offline dump")
	}
	if rec.Snapshot().OfflineDumpsServed != 1 {
		t.Fatal("expected offline dump metric")
	}
}
