package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/homestead/homestead/internal/bible"
	"github.com/homestead/homestead/internal/faith"
	"github.com/homestead/homestead/internal/handler/dto"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/service"
)

type memStreakStore struct {
	streaks map[string]*model.RosaryStreak
}

func (s *memStreakStore) GetRosaryStreak(_ context.Context, username string) (*model.RosaryStreak, error) {
	if st, ok := s.streaks[username]; ok {
		cp := *st
		return &cp, nil
	}
	return &model.RosaryStreak{Username: username}, nil
}

func (s *memStreakStore) SaveRosaryStreak(_ context.Context, st *model.RosaryStreak) error {
	s.streaks[st.Username] = st
	return nil
}

type fixedBible struct{ b *bible.Bible }

func (f fixedBible) Bible() *bible.Bible { return f.b }

func newFaithRouter(t *testing.T, withBible bool) *chi.Mux {
	t.Helper()
	src := fixedBible{}
	if withBible {
		b, err := bible.Parse(strings.NewReader(
			"Johannes\tJoh\t43\t3\t16\tAlso hat Gott die Welt geliebt.\n" +
				"Johannes\tJoh\t43\t3\t17\tDenn Gott hat seinen Sohn nicht gesandt.\n"))
		if err != nil {
			t.Fatalf("failed to parse bible: %v", err)
		}
		src.b = b
	}
	store := &memStreakStore{streaks: map[string]*model.RosaryStreak{}}
	h := NewFaithHandler(service.NewFaithService(store, src), discardLogger())

	r := chi.NewRouter()
	r.Get("/rosary-streak", h.Streak)
	r.Post("/rosary-streak", h.SetStreak)
	r.Post("/rosary-streak/pray", h.Pray)
	r.Get("/rosary", h.Rosary)
	r.Get("/bibel/zufallszitat", h.RandomVerse)
	r.Get("/bibel/{reference}", h.Passage)
	return r
}

func TestFaithHandler_Streak(t *testing.T) {
	router := newFaithRouter(t, false)

	rec := serve(router, newRequest(t, http.MethodGet, "/rosary-streak", nil, "anna"))
	var st model.RosaryStreak
	decodeBody(t, rec, &st)
	if st.Length != 0 || st.LastPrayed != nil {
		t.Fatalf("expected empty streak, got %+v", st)
	}

	rec = serve(router, newRequest(t, http.MethodPost, "/rosary-streak/pray", nil, "anna"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &st)
	if st.Length != 1 || st.LastPrayed == nil {
		t.Fatalf("expected streak of 1, got %+v", st)
	}

	day := "2026-01-05"
	length := 7
	rec = serve(router, newRequest(t, http.MethodPost, "/rosary-streak", dto.StreakRequest{Length: &length, LastPrayed: &day}, "anna"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &st)
	if st.Length != 7 || *st.LastPrayed != day {
		t.Fatalf("unexpected streak: %+v", st)
	}
}

func TestFaithHandler_SetStreakValidation(t *testing.T) {
	router := newFaithRouter(t, false)

	negative := -1
	badDay := "05.01.2026"
	one := 1

	tests := []struct {
		name string
		body dto.StreakRequest
		code string
	}{
		{"missing length", dto.StreakRequest{}, "INVALID_STREAK"},
		{"negative length", dto.StreakRequest{Length: &negative}, "INVALID_STREAK"},
		{"bad date", dto.StreakRequest{Length: &one, LastPrayed: &badDay}, "INVALID_DATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, newRequest(t, http.MethodPost, "/rosary-streak", tt.body, "anna"))
			assertError(t, rec, http.StatusBadRequest, tt.code)
		})
	}
}

func TestFaithHandler_Rosary(t *testing.T) {
	router := newFaithRouter(t, false)

	rec := serve(router, newRequest(t, http.MethodGet, "/rosary?luminous=true&mystery=lichtreichen", nil, ""))
	var day faith.RosaryDay
	decodeBody(t, rec, &day)
	if day.Mystery != model.MysteryLuminous || !day.Luminous {
		t.Fatalf("expected luminous mysteries, got %+v", day)
	}

	rec = serve(router, newRequest(t, http.MethodGet, "/rosary?mystery=lichtreichen", nil, ""))
	decodeBody(t, rec, &day)
	if day.Mystery == model.MysteryLuminous {
		t.Fatalf("luminous mysteries must not be chosen when disabled")
	}
}

func TestFaithHandler_Bible(t *testing.T) {
	router := newFaithRouter(t, true)

	rec := serve(router, newRequest(t, http.MethodGet, "/bibel/zufallszitat", nil, ""))
	var q bible.Quote
	decodeBody(t, rec, &q)
	if q.Book != "Johannes" || q.Chapter != 3 {
		t.Fatalf("unexpected quote: %+v", q)
	}

	rec = serve(router, newRequest(t, http.MethodGet, "/bibel/Joh%203:16-17", nil, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var p bible.Passage
	decodeBody(t, rec, &p)
	if len(p.Verses) != 2 {
		t.Fatalf("expected 2 verses, got %d", len(p.Verses))
	}

	rec = serve(router, newRequest(t, http.MethodGet, "/bibel/Joh%209:1", nil, ""))
	assertError(t, rec, http.StatusNotFound, "VERSES_NOT_FOUND")

	rec = serve(router, newRequest(t, http.MethodGet, "/bibel/nonsense", nil, ""))
	assertError(t, rec, http.StatusBadRequest, "INVALID_REFERENCE")
}

func TestFaithHandler_BibleUnavailable(t *testing.T) {
	router := newFaithRouter(t, false)

	rec := serve(router, newRequest(t, http.MethodGet, "/bibel/zufallszitat", nil, ""))
	assertError(t, rec, http.StatusServiceUnavailable, "BIBLE_UNAVAILABLE")
}
