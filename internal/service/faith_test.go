package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/homestead/homestead/internal/bible"
	"github.com/homestead/homestead/internal/model"
)

type fakeStreakStore struct {
	streaks map[string]*model.RosaryStreak
	saves   int
}

func (s *fakeStreakStore) GetRosaryStreak(_ context.Context, username string) (*model.RosaryStreak, error) {
	if st, ok := s.streaks[username]; ok {
		cp := *st
		return &cp, nil
	}
	return &model.RosaryStreak{Username: username}, nil
}

func (s *fakeStreakStore) SaveRosaryStreak(_ context.Context, st *model.RosaryStreak) error {
	s.saves++
	s.streaks[st.Username] = st
	return nil
}

type staticBible struct{ b *bible.Bible }

func (s staticBible) Bible() *bible.Bible { return s.b }

func TestFaithServicePray(t *testing.T) {
	store := &fakeStreakStore{streaks: map[string]*model.RosaryStreak{}}
	svc := NewFaithService(store, nil)
	day := time.Date(2026, 5, 10, 20, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day }
	ctx := context.Background()

	st, err := svc.Pray(ctx, "anna")
	if err != nil {
		t.Fatalf("Pray: %v", err)
	}
	if st.Length != 1 || *st.LastPrayed != "2026-05-10" {
		t.Fatalf("unexpected streak: %+v", st)
	}

	if _, err := svc.Pray(ctx, "anna"); err != nil {
		t.Fatalf("Pray: %v", err)
	}
	if store.saves != 1 {
		t.Fatalf("expected second prayer on the same day to be a no-op, saved %d times", store.saves)
	}

	day = day.AddDate(0, 0, 1)
	st, err = svc.Pray(ctx, "anna")
	if err != nil {
		t.Fatalf("Pray: %v", err)
	}
	if st.Length != 2 {
		t.Fatalf("expected streak of 2, got %d", st.Length)
	}

	day = day.AddDate(0, 0, 3)
	st, err = svc.Pray(ctx, "anna")
	if err != nil {
		t.Fatalf("Pray: %v", err)
	}
	if st.Length != 1 {
		t.Fatalf("expected streak to restart, got %d", st.Length)
	}
}

func TestFaithServiceSetStreak(t *testing.T) {
	svc := NewFaithService(&fakeStreakStore{streaks: map[string]*model.RosaryStreak{}}, nil)
	ctx := context.Background()

	if _, err := svc.SetStreak(ctx, "anna", -1, nil); !errors.Is(err, ErrInvalidStreak) {
		t.Fatalf("expected ErrInvalidStreak, got %v", err)
	}
	if _, err := svc.SetStreak(ctx, "anna", 3, ptr("10.05.2026")); !errors.Is(err, ErrInvalidStreakDay) {
		t.Fatalf("expected ErrInvalidStreakDay, got %v", err)
	}
	st, err := svc.SetStreak(ctx, "anna", 3, ptr("2026-05-10"))
	if err != nil {
		t.Fatalf("SetStreak: %v", err)
	}
	if st.Length != 3 || st.Username != "anna" {
		t.Fatalf("unexpected streak: %+v", st)
	}
}

func TestFaithServiceBible(t *testing.T) {
	none := NewFaithService(nil, nil)
	if _, err := none.RandomVerse(); !errors.Is(err, ErrBibleUnavailable) {
		t.Fatalf("expected ErrBibleUnavailable, got %v", err)
	}

	b, err := bible.Parse(strings.NewReader(
		"Johannes\tJoh\t43\t3\t16\tAlso hat Gott die Welt geliebt.\n" +
			"Johannes\tJoh\t43\t3\t17\tDenn Gott hat seinen Sohn nicht gesandt.\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	svc := NewFaithService(nil, staticBible{b})
	svc.pick = func(int) int { return 1 }

	q, err := svc.RandomVerse()
	if err != nil {
		t.Fatalf("RandomVerse: %v", err)
	}
	if q.Reference != "Johannes 3:17" {
		t.Fatalf("unexpected verse: %+v", q)
	}

	p, err := svc.Passage("Joh 3:16-17")
	if err != nil {
		t.Fatalf("Passage: %v", err)
	}
	if len(p.Verses) != 2 {
		t.Fatalf("expected 2 verses, got %d", len(p.Verses))
	}
	if _, err := svc.Passage("nonsense"); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if _, err := svc.Passage("Joh 9:1"); !errors.Is(err, ErrVersesNotFound) {
		t.Fatalf("expected ErrVersesNotFound, got %v", err)
	}
}
