package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/repository"
)

// Fitness errors.
var (
	ErrExerciseNotFound      = errors.New("exercise not found")
	ErrExerciseInvalid       = errors.New("exercise_id, name and at least one instruction are required")
	ErrInvalidDifficulty     = errors.New("invalid difficulty")
	ErrTemplateNotFound      = errors.New("workout template not found")
	ErrSessionNotFound       = errors.New("workout session not found")
	ErrWorkoutNameRequired   = errors.New("name is required")
	ErrWorkoutNameTooLong    = errors.New("name is too long")
	ErrDescriptionTooLong    = errors.New("description is too long")
	ErrExercisesRequired     = errors.New("at least one exercise is required")
	ErrExerciseNameRequired  = errors.New("each exercise needs a name")
	ErrSetsRequired          = errors.New("each exercise needs at least one set")
	ErrInvalidReps           = errors.New("reps must be between 1 and 1000")
	ErrInvalidWeight         = errors.New("weight must be between 0 and 1000")
	ErrInvalidRPE            = errors.New("rpe must be between 1 and 10")
	ErrInvalidRestTime       = errors.New("rest_time must be between 10 and 600 seconds")
	ErrSessionEndBeforeStart = errors.New("end_time must not be before start_time")
)

// Fitness listing limits.
const (
	DefaultExercisePageSize = 50
	MaxExercisePageSize     = 200
	DefaultSessionPageSize  = 20
	MaxSessionPageSize      = 100
)

// FitnessStore persists exercises, templates and sessions.
type FitnessStore interface {
	UpsertExercise(ctx context.Context, e *model.Exercise) (bool, error)
	GetExercise(ctx context.Context, exerciseID string) (*model.Exercise, error)
	ListExercises(ctx context.Context, f repository.ExerciseFilter) ([]*model.Exercise, int, error)
	ExerciseFilterValues(ctx context.Context) (*model.ExerciseFilters, error)

	CreateTemplate(ctx context.Context, t *model.WorkoutTemplate) error
	UpdateTemplate(ctx context.Context, t *model.WorkoutTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
	GetTemplate(ctx context.Context, id string) (*model.WorkoutTemplate, error)
	ListTemplates(ctx context.Context, username string, includePublic bool) ([]*model.WorkoutTemplate, error)

	CreateSession(ctx context.Context, s *model.WorkoutSession) error
	UpdateSession(ctx context.Context, s *model.WorkoutSession) error
	DeleteSession(ctx context.Context, id string) error
	GetSession(ctx context.Context, id string) (*model.WorkoutSession, error)
	ListSessions(ctx context.Context, username string, limit, offset int) ([]*model.WorkoutSession, int, error)
}

// FitnessService handles exercises, workout templates and logged sessions.
type FitnessService struct {
	repo FitnessStore
	now  func() time.Time
}

// NewFitnessService creates a new FitnessService.
func NewFitnessService(repo FitnessStore) *FitnessService {
	return &FitnessService{repo: repo, now: time.Now}
}

// ExercisePage is one page of the exercise catalog.
type ExercisePage struct {
	Exercises []*model.Exercise `json:"exercises"`
	Total     int               `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

// ListExercises returns active exercises matching f.
func (s *FitnessService) ListExercises(ctx context.Context, f repository.ExerciseFilter) (*ExercisePage, error) {
	if f.Difficulty != "" && !model.Difficulty(f.Difficulty).IsValid() {
		return nil, ErrInvalidDifficulty
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Limit, f.Offset = pageBounds(f.Limit, f.Offset, DefaultExercisePageSize, MaxExercisePageSize)

	list, total, err := s.repo.ListExercises(ctx, f)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*model.Exercise{}
	}
	return &ExercisePage{Exercises: list, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// GetExercise returns one exercise by its catalog ID.
func (s *FitnessService) GetExercise(ctx context.Context, exerciseID string) (*model.Exercise, error) {
	e, err := s.repo.GetExercise(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrExerciseNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return e, nil
}

// ExerciseFilters returns the values available for filtering.
func (s *FitnessService) ExerciseFilters(ctx context.Context) (*model.ExerciseFilters, error) {
	return s.repo.ExerciseFilterValues(ctx)
}

// ImportResult counts the outcome of a catalog import.
type ImportResult struct {
	Created int
	Updated int
}

// ImportExercises upserts a catalog by exercise_id. The first invalid entry
// aborts the import.
func (s *FitnessService) ImportExercises(ctx context.Context, exercises []*model.Exercise) (ImportResult, error) {
	var res ImportResult
	now := s.now().UTC()
	for i, e := range exercises {
		e.ExerciseID = strings.TrimSpace(e.ExerciseID)
		e.Name = strings.TrimSpace(e.Name)
		if e.ExerciseID == "" || e.Name == "" || len(e.Instructions) == 0 {
			return res, fmt.Errorf("entry %d: %w", i, ErrExerciseInvalid)
		}
		if e.Difficulty == "" {
			e.Difficulty = model.DifficultyIntermediate
		}
		if !e.Difficulty.IsValid() {
			return res, fmt.Errorf("entry %d: %w", i, ErrInvalidDifficulty)
		}
		if e.SecondaryMuscles == nil {
			e.SecondaryMuscles = []string{}
		}
		if e.ID == "" {
			e.ID = newID()
		}
		e.CreatedAt = now
		e.UpdatedAt = now

		created, err := s.repo.UpsertExercise(ctx, e)
		if err != nil {
			return res, fmt.Errorf("entry %d (%s): %w", i, e.ExerciseID, err)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res, nil
}

// TemplateInput carries the editable fields of a template.
type TemplateInput struct {
	Name        string
	Description string
	Exercises   []model.WorkoutExercise
	IsPublic    bool
}

func validateTemplate(in *TemplateInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return ErrWorkoutNameRequired
	}
	if utf8.RuneCountInString(in.Name) > model.MaxTemplateNameLength {
		return ErrWorkoutNameTooLong
	}
	if utf8.RuneCountInString(in.Description) > model.MaxTemplateDescriptionLength {
		return ErrDescriptionTooLong
	}
	if len(in.Exercises) == 0 {
		return ErrExercisesRequired
	}

	for i := range in.Exercises {
		ex := &in.Exercises[i]
		ex.Name = strings.TrimSpace(ex.Name)
		if ex.Name == "" {
			return ErrExerciseNameRequired
		}
		if len(ex.Sets) == 0 {
			return ErrSetsRequired
		}
		if ex.RestTime == 0 {
			ex.RestTime = model.DefaultRestTime
		}
		if ex.RestTime < model.MinRestTime || ex.RestTime > model.MaxRestTime {
			return ErrInvalidRestTime
		}
		for _, set := range ex.Sets {
			if set.Reps < 1 || set.Reps > model.MaxReps {
				return ErrInvalidReps
			}
			if set.Weight != nil && (*set.Weight < 0 || *set.Weight > model.MaxWeight) {
				return ErrInvalidWeight
			}
			if set.RPE != nil && (*set.RPE < model.MinRPE || *set.RPE > model.MaxRPE) {
				return ErrInvalidRPE
			}
		}
	}
	return nil
}

// ListTemplates returns the user's templates and, optionally, public ones.
func (s *FitnessService) ListTemplates(ctx context.Context, username string, includePublic bool) ([]*model.WorkoutTemplate, error) {
	list, err := s.repo.ListTemplates(ctx, username, includePublic)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*model.WorkoutTemplate{}
	}
	return list, nil
}

// GetTemplate returns a template owned by username or public.
func (s *FitnessService) GetTemplate(ctx context.Context, id, username string) (*model.WorkoutTemplate, error) {
	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if t.CreatedBy != username && !t.IsPublic {
		return nil, ErrTemplateNotFound
	}
	return t, nil
}

// CreateTemplate stores a template owned by username.
func (s *FitnessService) CreateTemplate(ctx context.Context, username string, in TemplateInput) (*model.WorkoutTemplate, error) {
	if err := validateTemplate(&in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	t := &model.WorkoutTemplate{
		ID:          newID(),
		Name:        in.Name,
		Description: in.Description,
		Exercises:   in.Exercises,
		CreatedBy:   username,
		IsPublic:    in.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return t, nil
}

func (s *FitnessService) ownedTemplate(ctx context.Context, id, username string) (*model.WorkoutTemplate, error) {
	t, err := s.GetTemplate(ctx, id, username)
	if err != nil {
		return nil, err
	}
	if t.CreatedBy != username {
		return nil, ErrForbidden
	}
	return t, nil
}

// UpdateTemplate replaces a template. Only the owner may edit.
func (s *FitnessService) UpdateTemplate(ctx context.Context, id, username string, in TemplateInput) (*model.WorkoutTemplate, error) {
	t, err := s.ownedTemplate(ctx, id, username)
	if err != nil {
		return nil, err
	}
	if err := validateTemplate(&in); err != nil {
		return nil, err
	}
	t.Name = in.Name
	t.Description = in.Description
	t.Exercises = in.Exercises
	t.IsPublic = in.IsPublic
	t.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateTemplate(ctx, t); err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return t, nil
}

// DeleteTemplate removes a template. Only the owner may delete.
func (s *FitnessService) DeleteTemplate(ctx context.Context, id, username string) error {
	if _, err := s.ownedTemplate(ctx, id, username); err != nil {
		return err
	}
	if err := s.repo.DeleteTemplate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}
	return nil
}

// SessionInput carries the editable fields of a workout session.
type SessionInput struct {
	TemplateID string
	Name       string
	Exercises  []model.CompletedExercise
	StartTime  *time.Time
	EndTime    *time.Time
	Notes      string
}

func validateSession(in *SessionInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrWorkoutNameRequired
	}
	if len(in.Exercises) == 0 {
		return ErrExercisesRequired
	}
	for _, ex := range in.Exercises {
		if strings.TrimSpace(ex.Name) == "" {
			return ErrExerciseNameRequired
		}
	}
	if in.StartTime != nil && in.EndTime != nil && in.EndTime.Before(*in.StartTime) {
		return ErrSessionEndBeforeStart
	}
	return nil
}

// durationMinutes returns the rounded length of a session in minutes.
func durationMinutes(start time.Time, end *time.Time) *int {
	if end == nil {
		return nil
	}
	d := int(end.Sub(start).Round(time.Minute) / time.Minute)
	return &d
}

// ListSessions returns a page of the user's sessions, newest first.
func (s *FitnessService) ListSessions(ctx context.Context, username string, limit, offset int) ([]*model.WorkoutSession, int, error) {
	limit, offset = pageBounds(limit, offset, DefaultSessionPageSize, MaxSessionPageSize)
	list, total, err := s.repo.ListSessions(ctx, username, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if list == nil {
		list = []*model.WorkoutSession{}
	}
	return list, total, nil
}

// GetSession returns a session owned by username.
func (s *FitnessService) GetSession(ctx context.Context, id, username string) (*model.WorkoutSession, error) {
	ws, err := s.repo.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if ws.CreatedBy != username {
		return nil, ErrSessionNotFound
	}
	return ws, nil
}

// CreateSession logs a workout for username. The template name is copied
// when the template exists.
func (s *FitnessService) CreateSession(ctx context.Context, username string, in SessionInput) (*model.WorkoutSession, error) {
	if err := validateSession(&in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	start := now
	if in.StartTime != nil {
		start = in.StartTime.UTC()
	}

	ws := &model.WorkoutSession{
		ID:        newID(),
		Name:      in.Name,
		Exercises: in.Exercises,
		StartTime: start,
		EndTime:   in.EndTime,
		Duration:  durationMinutes(start, in.EndTime),
		Notes:     strings.TrimSpace(in.Notes),
		CreatedBy: username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.TemplateID != "" {
		ws.TemplateID = in.TemplateID
		if t, err := s.repo.GetTemplate(ctx, in.TemplateID); err == nil {
			ws.TemplateName = t.Name
		} else if !errors.Is(err, repository.ErrTemplateNotFound) {
			return nil, err
		}
	}

	if err := s.repo.CreateSession(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return ws, nil
}

// UpdateSession replaces a session owned by username.
func (s *FitnessService) UpdateSession(ctx context.Context, id, username string, in SessionInput) (*model.WorkoutSession, error) {
	ws, err := s.GetSession(ctx, id, username)
	if err != nil {
		return nil, err
	}
	if in.StartTime == nil {
		start := ws.StartTime
		in.StartTime = &start
	}
	if err := validateSession(&in); err != nil {
		return nil, err
	}

	ws.Name = in.Name
	ws.Exercises = in.Exercises
	ws.StartTime = in.StartTime.UTC()
	ws.EndTime = in.EndTime
	ws.Duration = durationMinutes(ws.StartTime, in.EndTime)
	ws.Notes = strings.TrimSpace(in.Notes)
	ws.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateSession(ctx, ws); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return ws, nil
}

// DeleteSession removes a session owned by username.
func (s *FitnessService) DeleteSession(ctx context.Context, id, username string) error {
	if _, err := s.GetSession(ctx, id, username); err != nil {
		return err
	}
	if err := s.repo.DeleteSession(ctx, id); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}
