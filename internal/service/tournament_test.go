package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/homestead/homestead/internal/metrics"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/repository"
	"github.com/homestead/homestead/internal/tournament"
)

type fakeTournamentStore struct {
	items map[string]*model.Tournament
}

func clone(t *model.Tournament) *model.Tournament {
	raw, _ := json.Marshal(t)
	var out model.Tournament
	_ = json.Unmarshal(raw, &out)
	return &out
}

func (s *fakeTournamentStore) CreateTournament(_ context.Context, t *model.Tournament) error {
	s.items[t.ID] = clone(t)
	return nil
}

func (s *fakeTournamentStore) GetTournament(_ context.Context, id string) (*model.Tournament, error) {
	t, ok := s.items[id]
	if !ok {
		return nil, repository.ErrTournamentNotFound
	}
	return clone(t), nil
}

func (s *fakeTournamentStore) ListTournaments(context.Context) ([]*model.Tournament, error) {
	return nil, nil
}

func (s *fakeTournamentStore) UpdateTournament(_ context.Context, id string, fn func(*model.Tournament) error) (*model.Tournament, error) {
	t, ok := s.items[id]
	if !ok {
		return nil, repository.ErrTournamentNotFound
	}
	work := clone(t)
	if err := fn(work); err != nil {
		return nil, err
	}
	s.items[id] = clone(work)
	return work, nil
}

func (s *fakeTournamentStore) DeleteTournament(_ context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return repository.ErrTournamentNotFound
	}
	delete(s.items, id)
	return nil
}

func TestTournamentServiceGroupStage(t *testing.T) {
	store := &fakeTournamentStore{items: map[string]*model.Tournament{}}
	rec := metrics.NewInMemory()
	svc := NewTournamentService(store, discardLogger(), rec)
	ctx := context.Background()

	tr, err := svc.Create(ctx, "Friday Cup", "anna", 2, 4)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var ids []string
	for _, name := range []string{"Mario", "Luigi", "Peach", "Toad"} {
		_, c, err := svc.AddContestant(ctx, tr.ID, name)
		if err != nil {
			t.Fatalf("AddContestant(%s): %v", name, err)
		}
		ids = append(ids, c.ID)
	}
	if _, _, err := svc.AddContestant(ctx, tr.ID, "Mario"); !errors.Is(err, tournament.ErrDuplicateContestant) {
		t.Fatalf("expected ErrDuplicateContestant, got %v", err)
	}

	tr, err = svc.CreateGroups(ctx, tr.ID, tournament.GroupOptions{
		Configs: []tournament.GroupConfig{{Name: "Rainbow", ContestantIDs: ids}},
	})
	if err != nil {
		t.Fatalf("CreateGroups: %v", err)
	}
	if tr.Status != model.StatusGroupStage || len(tr.Groups) != 1 || tr.Groups[0].Name != "Rainbow" {
		t.Fatalf("unexpected groups: %+v", tr.Groups)
	}

	g := tr.Groups[0]
	scores := map[string]int{ids[0]: 15, ids[1]: 12, ids[2]: 10, ids[3]: 9}
	tr, err = svc.RecordGroupScores(ctx, tr.ID, g.ID, g.Matches[0].ID, 1, scores)
	if err != nil {
		t.Fatalf("RecordGroupScores: %v", err)
	}
	if tr.Groups[0].Standings[0].ContestantID != ids[0] {
		t.Fatalf("expected %s to lead, got %+v", ids[0], tr.Groups[0].Standings)
	}
	if rec.Snapshot().GroupScoresRecorded != 1 {
		t.Fatal("expected group score metric")
	}

	if _, err := svc.RecordGroupScores(ctx, tr.ID, "nope", g.Matches[0].ID, 1, scores); !errors.Is(err, tournament.ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
	if store.items[tr.ID].Groups[0].Standings[0].ContestantID != ids[0] {
		t.Fatal("failed update must not change the stored tournament")
	}

	if err := svc.Delete(ctx, tr.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, tr.ID); !errors.Is(err, ErrTournamentNotFound) {
		t.Fatalf("expected ErrTournamentNotFound, got %v", err)
	}
	if _, _, err := svc.AddContestant(ctx, tr.ID, "Yoshi"); !errors.Is(err, ErrTournamentNotFound) {
		t.Fatalf("expected ErrTournamentNotFound, got %v", err)
	}
}

func TestTournamentServiceList(t *testing.T) {
	svc := NewTournamentService(&fakeTournamentStore{items: map[string]*model.Tournament{}}, discardLogger(), nil)
	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", list)
	}
	if _, err := svc.Create(context.Background(), " ", "anna", 0, 0); !errors.Is(err, tournament.ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
}
