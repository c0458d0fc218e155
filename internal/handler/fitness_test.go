package handler

import (
	"context"
	"net/http"
	"sort"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/homestead/homestead/internal/handler/dto"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/repository"
	"github.com/homestead/homestead/internal/service"
)

type memFitnessStore struct {
	exercises map[string]*model.Exercise
	templates map[string]*model.WorkoutTemplate
	sessions  map[string]*model.WorkoutSession
}

func newMemFitnessStore() *memFitnessStore {
	return &memFitnessStore{
		exercises: map[string]*model.Exercise{},
		templates: map[string]*model.WorkoutTemplate{},
		sessions:  map[string]*model.WorkoutSession{},
	}
}

func (s *memFitnessStore) UpsertExercise(_ context.Context, e *model.Exercise) (bool, error) {
	_, exists := s.exercises[e.ExerciseID]
	cp := *e
	s.exercises[e.ExerciseID] = &cp
	return !exists, nil
}

func (s *memFitnessStore) GetExercise(_ context.Context, exerciseID string) (*model.Exercise, error) {
	e, ok := s.exercises[exerciseID]
	if !ok {
		return nil, repository.ErrExerciseNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *memFitnessStore) ListExercises(_ context.Context, f repository.ExerciseFilter) ([]*model.Exercise, int, error) {
	var out []*model.Exercise
	for _, e := range s.exercises {
		if f.BodyPart != "" && e.BodyPart != f.BodyPart {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExerciseID < out[j].ExerciseID })
	return out, len(out), nil
}

func (s *memFitnessStore) ExerciseFilterValues(context.Context) (*model.ExerciseFilters, error) {
	return &model.ExerciseFilters{}, nil
}

func (s *memFitnessStore) CreateTemplate(_ context.Context, t *model.WorkoutTemplate) error {
	cp := *t
	s.templates[t.ID] = &cp
	return nil
}

func (s *memFitnessStore) UpdateTemplate(_ context.Context, t *model.WorkoutTemplate) error {
	if _, ok := s.templates[t.ID]; !ok {
		return repository.ErrTemplateNotFound
	}
	cp := *t
	s.templates[t.ID] = &cp
	return nil
}

func (s *memFitnessStore) DeleteTemplate(_ context.Context, id string) error {
	if _, ok := s.templates[id]; !ok {
		return repository.ErrTemplateNotFound
	}
	delete(s.templates, id)
	return nil
}

func (s *memFitnessStore) GetTemplate(_ context.Context, id string) (*model.WorkoutTemplate, error) {
	t, ok := s.templates[id]
	if !ok {
		return nil, repository.ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memFitnessStore) ListTemplates(_ context.Context, username string, includePublic bool) ([]*model.WorkoutTemplate, error) {
	var out []*model.WorkoutTemplate
	for _, t := range s.templates {
		if t.CreatedBy == username || (includePublic && t.IsPublic) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memFitnessStore) CreateSession(_ context.Context, ws *model.WorkoutSession) error {
	cp := *ws
	s.sessions[ws.ID] = &cp
	return nil
}

func (s *memFitnessStore) UpdateSession(_ context.Context, ws *model.WorkoutSession) error {
	if _, ok := s.sessions[ws.ID]; !ok {
		return repository.ErrSessionNotFound
	}
	cp := *ws
	s.sessions[ws.ID] = &cp
	return nil
}

func (s *memFitnessStore) DeleteSession(_ context.Context, id string) error {
	if _, ok := s.sessions[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *memFitnessStore) GetSession(_ context.Context, id string) (*model.WorkoutSession, error) {
	ws, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *ws
	return &cp, nil
}

func (s *memFitnessStore) ListSessions(_ context.Context, username string, limit, offset int) ([]*model.WorkoutSession, int, error) {
	var all []*model.WorkoutSession
	for _, ws := range s.sessions {
		if ws.CreatedBy == username {
			cp := *ws
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.After(all[j].StartTime) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func newFitnessRouter(store *memFitnessStore) *chi.Mux {
	h := NewFitnessHandler(service.NewFitnessService(store), discardLogger())

	r := chi.NewRouter()
	r.Get("/fitness/exercises", h.ListExercises)
	r.Get("/fitness/exercises/{id}", h.GetExercise)
	r.Get("/fitness/workouts", h.ListTemplates)
	r.Post("/fitness/workouts", h.CreateTemplate)
	r.Get("/fitness/workouts/{id}", h.GetTemplate)
	r.Put("/fitness/workouts/{id}", h.UpdateTemplate)
	r.Delete("/fitness/workouts/{id}", h.DeleteTemplate)
	r.Get("/fitness/sessions", h.ListSessions)
	r.Post("/fitness/sessions", h.CreateSession)
	r.Get("/fitness/sessions/{id}", h.GetSession)
	r.Delete("/fitness/sessions/{id}", h.DeleteSession)
	return r
}

func pushDay(public bool) dto.TemplateRequest {
	return dto.TemplateRequest{
		Name: "Push day",
		Exercises: []model.WorkoutExercise{
			{Name: "bench press", Sets: []model.WorkoutSet{{Reps: 8}, {Reps: 8}}},
		},
		IsPublic: public,
	}
}

func createTemplate(t *testing.T, router http.Handler, user string, req dto.TemplateRequest) *model.WorkoutTemplate {
	t.Helper()
	rec := serve(router, newRequest(t, http.MethodPost, "/fitness/workouts", req, user))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp dto.TemplateResponse
	decodeBody(t, rec, &resp)
	return resp.Template
}

func TestFitnessHandler_CreateTemplate(t *testing.T) {
	router := newFitnessRouter(newMemFitnessStore())

	tmpl := createTemplate(t, router, "anna", pushDay(false))
	if tmpl.ID == "" {
		t.Error("expected an ID")
	}
	if tmpl.CreatedBy != "anna" {
		t.Errorf("expected owner anna, got %s", tmpl.CreatedBy)
	}
	if got := tmpl.Exercises[0].RestTime; got != model.DefaultRestTime {
		t.Errorf("expected default rest time %d, got %d", model.DefaultRestTime, got)
	}
}

func TestFitnessHandler_TemplateValidation(t *testing.T) {
	router := newFitnessRouter(newMemFitnessStore())

	tests := []struct {
		name string
		req  dto.TemplateRequest
	}{
		{"missing name", dto.TemplateRequest{Exercises: pushDay(false).Exercises}},
		{"no exercises", dto.TemplateRequest{Name: "Empty"}},
		{"no sets", dto.TemplateRequest{
			Name:      "Legs",
			Exercises: []model.WorkoutExercise{{Name: "squat"}},
		}},
		{"too many reps", dto.TemplateRequest{
			Name:      "Legs",
			Exercises: []model.WorkoutExercise{{Name: "squat", Sets: []model.WorkoutSet{{Reps: 1001}}}},
		}},
		{"rest too short", dto.TemplateRequest{
			Name:      "Legs",
			Exercises: []model.WorkoutExercise{{Name: "squat", Sets: []model.WorkoutSet{{Reps: 5}}, RestTime: 5}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, newRequest(t, http.MethodPost, "/fitness/workouts", tt.req, "anna"))
			assertError(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
		})
	}
}

func TestFitnessHandler_TemplateOwnership(t *testing.T) {
	router := newFitnessRouter(newMemFitnessStore())

	private := createTemplate(t, router, "anna", pushDay(false))
	public := createTemplate(t, router, "anna", pushDay(true))

	rec := serve(router, newRequest(t, http.MethodGet, "/fitness/workouts/"+private.ID, nil, "ben"))
	assertError(t, rec, http.StatusNotFound, "TEMPLATE_NOT_FOUND")

	rec = serve(router, newRequest(t, http.MethodGet, "/fitness/workouts/"+public.ID, nil, "ben"))
	if rec.Code != http.StatusOK {
		t.Errorf("expected public template to be readable, got %d", rec.Code)
	}

	rec = serve(router, newRequest(t, http.MethodPut, "/fitness/workouts/"+public.ID, pushDay(false), "ben"))
	assertError(t, rec, http.StatusForbidden, "FORBIDDEN")

	rec = serve(router, newRequest(t, http.MethodDelete, "/fitness/workouts/"+public.ID, nil, "ben"))
	assertError(t, rec, http.StatusForbidden, "FORBIDDEN")

	rec = serve(router, newRequest(t, http.MethodDelete, "/fitness/workouts/"+public.ID, nil, "anna"))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
}

func TestFitnessHandler_ListTemplates(t *testing.T) {
	router := newFitnessRouter(newMemFitnessStore())

	createTemplate(t, router, "anna", pushDay(true))
	createTemplate(t, router, "ben", dto.TemplateRequest{
		Name:      "Legs",
		Exercises: []model.WorkoutExercise{{Name: "squat", Sets: []model.WorkoutSet{{Reps: 5}}}},
	})

	var own dto.TemplateListResponse
	decodeBody(t, serve(router, newRequest(t, http.MethodGet, "/fitness/workouts", nil, "ben")), &own)
	if len(own.Templates) != 1 {
		t.Errorf("expected 1 own template, got %d", len(own.Templates))
	}

	var all dto.TemplateListResponse
	decodeBody(t, serve(router, newRequest(t, http.MethodGet, "/fitness/workouts?include_public=true", nil, "ben")), &all)
	if len(all.Templates) != 2 {
		t.Errorf("expected own and public templates, got %d", len(all.Templates))
	}
}

func TestFitnessHandler_Sessions(t *testing.T) {
	router := newFitnessRouter(newMemFitnessStore())
	tmpl := createTemplate(t, router, "anna", pushDay(false))

	body := dto.SessionRequest{
		TemplateID: tmpl.ID,
		Name:       "Monday",
		Exercises: []model.CompletedExercise{
			{Name: "bench press", Sets: []model.CompletedSet{{Reps: 8, Completed: true}}},
		},
	}
	rec := serve(router, newRequest(t, http.MethodPost, "/fitness/sessions", body, "anna"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created dto.WorkoutSessionResponse
	decodeBody(t, rec, &created)
	if created.Session.TemplateName != "Push day" {
		t.Errorf("expected template name to be copied, got %q", created.Session.TemplateName)
	}

	rec = serve(router, newRequest(t, http.MethodGet, "/fitness/sessions/"+created.Session.ID, nil, "ben"))
	assertError(t, rec, http.StatusNotFound, "SESSION_NOT_FOUND")

	var list dto.SessionListResponse
	decodeBody(t, serve(router, newRequest(t, http.MethodGet, "/fitness/sessions", nil, "anna")), &list)
	if list.Total != 1 || len(list.Sessions) != 1 {
		t.Errorf("expected one session, got total=%d len=%d", list.Total, len(list.Sessions))
	}
	if list.Limit != defaultSessionLimit {
		t.Errorf("expected default limit %d, got %d", defaultSessionLimit, list.Limit)
	}

	rec = serve(router, newRequest(t, http.MethodPost, "/fitness/sessions", dto.SessionRequest{Name: "Empty"}, "anna"))
	assertError(t, rec, http.StatusBadRequest, "VALIDATION_FAILED")
}

func TestFitnessHandler_ExerciseNotFound(t *testing.T) {
	router := newFitnessRouter(newMemFitnessStore())

	rec := serve(router, newRequest(t, http.MethodGet, "/fitness/exercises/9999", nil, "anna"))
	assertError(t, rec, http.StatusNotFound, "EXERCISE_NOT_FOUND")
}
