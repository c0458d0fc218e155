package service

import (
	"context"
	"errors"
	"time"

	"github.com/homestead/homestead/internal/bible"
	"github.com/homestead/homestead/internal/faith"
	"github.com/homestead/homestead/internal/model"
)

// Faith errors.
var (
	ErrInvalidStreak    = errors.New("valid streak length required")
	ErrInvalidStreakDay = errors.New("last_prayed must be YYYY-MM-DD")
	ErrBibleUnavailable = errors.New("bible text not loaded")
	ErrInvalidReference = errors.New("invalid bible reference")
	ErrVersesNotFound   = errors.New("no verses found for reference")
)

// StreakStore persists rosary streaks.
type StreakStore interface {
	GetRosaryStreak(ctx context.Context, username string) (*model.RosaryStreak, error)
	SaveRosaryStreak(ctx context.Context, s *model.RosaryStreak) error
}

// BibleSource provides the currently loaded bible text.
type BibleSource interface {
	Bible() *bible.Bible
}

// FaithService handles prayer streaks, the rosary and bible lookups.
type FaithService struct {
	repo  StreakStore
	bible BibleSource
	now   func() time.Time
	pick  func(n int) int
}

// NewFaithService creates a new FaithService. A nil bible disables the bible endpoints.
func NewFaithService(repo StreakStore, src BibleSource) *FaithService {
	return &FaithService{repo: repo, bible: src, now: time.Now}
}

// Streak returns the user's rosary streak.
func (s *FaithService) Streak(ctx context.Context, username string) (*model.RosaryStreak, error) {
	return s.repo.GetRosaryStreak(ctx, username)
}

// SetStreak stores a client supplied streak.
func (s *FaithService) SetStreak(ctx context.Context, username string, length int, lastPrayed *string) (*model.RosaryStreak, error) {
	if err := faith.ValidateStreak(length, lastPrayed); err != nil {
		if errors.Is(err, faith.ErrInvalidDate) {
			return nil, ErrInvalidStreakDay
		}
		return nil, ErrInvalidStreak
	}
	streak := &model.RosaryStreak{
		Username:   username,
		Length:     length,
		LastPrayed: lastPrayed,
		UpdatedAt:  s.now().UTC(),
	}
	if err := s.repo.SaveRosaryStreak(ctx, streak); err != nil {
		return nil, err
	}
	return streak, nil
}

// Pray records a prayer for today. A second prayer on the same day leaves the
// streak unchanged.
func (s *FaithService) Pray(ctx context.Context, username string) (*model.RosaryStreak, error) {
	streak, err := s.repo.GetRosaryStreak(ctx, username)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !faith.RecordPrayer(streak, now) {
		return streak, nil
	}
	streak.Username = username
	streak.UpdatedAt = now.UTC()
	if err := s.repo.SaveRosaryStreak(ctx, streak); err != nil {
		return nil, err
	}
	return streak, nil
}

// Rosary returns the mystery to pray today.
func (s *FaithService) Rosary(luminous bool, requested string) faith.RosaryDay {
	return faith.Rosary(s.now(), luminous, requested)
}

func (s *FaithService) text() (*bible.Bible, error) {
	if s.bible == nil {
		return nil, ErrBibleUnavailable
	}
	b := s.bible.Bible()
	if b == nil || b.Len() == 0 {
		return nil, ErrBibleUnavailable
	}
	return b, nil
}

// RandomVerse returns a random verse.
func (s *FaithService) RandomVerse() (*bible.Quote, error) {
	b, err := s.text()
	if err != nil {
		return nil, err
	}
	return b.Random(s.pick)
}

// Passage returns the verses named by reference.
func (s *FaithService) Passage(reference string) (*bible.Passage, error) {
	b, err := s.text()
	if err != nil {
		return nil, err
	}
	p, err := b.Lookup(reference)
	if err != nil {
		switch {
		case errors.Is(err, bible.ErrInvalidReference):
			return nil, ErrInvalidReference
		case errors.Is(err, bible.ErrNotFound):
			return nil, ErrVersesNotFound
		}
		return nil, err
	}
	return p, nil
}
