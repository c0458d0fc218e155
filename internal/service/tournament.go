package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/homestead/homestead/internal/metrics"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/repository"
	"github.com/homestead/homestead/internal/tournament"
)

// ErrTournamentNotFound is returned for unknown tournament IDs.
var ErrTournamentNotFound = errors.New("tournament not found")

// DefaultQualifiersPerGroup is the bracket qualifier count when none is given.
const DefaultQualifiersPerGroup = 2

// TournamentStore persists tournaments.
type TournamentStore interface {
	CreateTournament(ctx context.Context, t *model.Tournament) error
	GetTournament(ctx context.Context, id string) (*model.Tournament, error)
	ListTournaments(ctx context.Context) ([]*model.Tournament, error)
	UpdateTournament(ctx context.Context, id string, fn func(*model.Tournament) error) (*model.Tournament, error)
	DeleteTournament(ctx context.Context, id string) error
}

// TournamentService runs tournaments through groups and brackets. Every change
// is applied under the store's row lock.
type TournamentService struct {
	repo    TournamentStore
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewTournamentService creates a new TournamentService.
func NewTournamentService(repo TournamentStore, logger *slog.Logger, recorder metrics.Recorder) *TournamentService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TournamentService{
		repo:    repo,
		logger:  logger.With("component", "tournament"),
		metrics: recorder,
		now:     time.Now,
	}
}

func mapTournamentErr(err error) error {
	if errors.Is(err, repository.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	return err
}

// List returns all tournaments, newest first.
func (s *TournamentService) List(ctx context.Context) ([]*model.Tournament, error) {
	list, err := s.repo.ListTournaments(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*model.Tournament{}
	}
	return list, nil
}

// Get returns one tournament.
func (s *TournamentService) Get(ctx context.Context, id string) (*model.Tournament, error) {
	t, err := s.repo.GetTournament(ctx, id)
	if err != nil {
		return nil, mapTournamentErr(err)
	}
	return t, nil
}

// Create starts a tournament in setup.
func (s *TournamentService) Create(ctx context.Context, name, createdBy string, roundsPerMatch, matchSize int) (*model.Tournament, error) {
	t, err := tournament.New(name, createdBy, roundsPerMatch, matchSize, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateTournament(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	s.logger.Info("tournament_created", slog.String("tournament_id", t.ID), slog.String("name", t.Name))
	return t, nil
}

// Delete removes a tournament.
func (s *TournamentService) Delete(ctx context.Context, id string) error {
	return mapTournamentErr(s.repo.DeleteTournament(ctx, id))
}

// modify applies fn under lock and stamps the update time.
func (s *TournamentService) modify(ctx context.Context, id string, fn func(*model.Tournament) error) (*model.Tournament, error) {
	t, err := s.repo.UpdateTournament(ctx, id, func(t *model.Tournament) error {
		if err := fn(t); err != nil {
			return err
		}
		t.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return nil, mapTournamentErr(err)
	}
	return t, nil
}

// Update changes name, rounds per match or status.
func (s *TournamentService) Update(ctx context.Context, id string, u tournament.Update) (*model.Tournament, error) {
	return s.modify(ctx, id, u.Apply)
}

// AddContestant adds a contestant, joining running groups when needed.
func (s *TournamentService) AddContestant(ctx context.Context, id, name string) (*model.Tournament, *model.Contestant, error) {
	var added *model.Contestant
	t, err := s.modify(ctx, id, func(t *model.Tournament) error {
		c, err := tournament.AddContestant(t, name)
		added = c
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return t, added, nil
}

// RemoveContestant removes a contestant during setup.
func (s *TournamentService) RemoveContestant(ctx context.Context, id, contestantID string) (*model.Tournament, error) {
	return s.modify(ctx, id, func(t *model.Tournament) error {
		return tournament.RemoveContestant(t, contestantID)
	})
}

// SetDNF marks a contestant as having dropped out, or reverts it.
func (s *TournamentService) SetDNF(ctx context.Context, id, contestantID string, dnf bool) (*model.Tournament, error) {
	return s.modify(ctx, id, func(t *model.Tournament) error {
		return tournament.SetDNF(t, contestantID, dnf)
	})
}

// CreateGroups assigns contestants to groups and starts the group stage.
func (s *TournamentService) CreateGroups(ctx context.Context, id string, opts tournament.GroupOptions) (*model.Tournament, error) {
	t, err := s.modify(ctx, id, func(t *model.Tournament) error {
		return tournament.CreateGroups(t, opts)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("tournament_groups_created", slog.String("tournament_id", id), slog.Int("groups", len(t.Groups)))
	return t, nil
}

// RecordGroupScores stores one round of a group match.
func (s *TournamentService) RecordGroupScores(ctx context.Context, id, groupID, matchID string, roundNumber int, scores map[string]int) (*model.Tournament, error) {
	t, err := s.modify(ctx, id, func(t *model.Tournament) error {
		return tournament.RecordGroupScores(t, groupID, matchID, roundNumber, scores, s.now().UTC())
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTournamentScoreRecorded(metrics.StageGroup)
	return t, nil
}

// GenerateBracket seeds the elimination bracket from the group standings.
func (s *TournamentService) GenerateBracket(ctx context.Context, id string, topN int) (*model.Tournament, error) {
	if topN <= 0 {
		topN = DefaultQualifiersPerGroup
	}
	t, err := s.modify(ctx, id, func(t *model.Tournament) error {
		return tournament.GenerateBracket(t, topN)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("tournament_bracket_generated", slog.String("tournament_id", id), slog.Int("top_n", topN))
	return t, nil
}

// RecordBracketScores stores one round of a bracket match and advances winners.
func (s *TournamentService) RecordBracketScores(ctx context.Context, id, matchID string, roundNumber int, scores map[string]int) (*model.Tournament, error) {
	t, err := s.modify(ctx, id, func(t *model.Tournament) error {
		return tournament.RecordBracketScores(t, matchID, roundNumber, scores, s.now().UTC())
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTournamentScoreRecorded(metrics.StageBracket)
	if t.Status == model.StatusCompleted {
		s.logger.Info("tournament_completed", slog.String("tournament_id", id))
	}
	return t, nil
}
