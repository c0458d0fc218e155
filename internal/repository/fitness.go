package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/homestead/homestead/internal/model"
)

// Common errors for fitness repository operations.
var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrTemplateNotFound = errors.New("workout template not found")
	ErrSessionNotFound  = errors.New("workout session not found")
)

// ExerciseFilter narrows exercise listings. Empty fields match everything.
type ExerciseFilter struct {
	Search     string
	BodyPart   string
	Equipment  string
	Target     string
	Difficulty string
	Limit      int
	Offset     int
}

const exerciseColumns = `
	id, exercise_id, name, gif_url, body_part, equipment, target, secondary_muscles,
	instructions, category, difficulty, is_active, created_at, updated_at
`

// UpsertExercise inserts an exercise or updates it by exercise_id.
// It reports whether a new row was created.
func (r *Repository) UpsertExercise(ctx context.Context, e *model.Exercise) (bool, error) {
	query := `
		INSERT INTO exercises (` + exerciseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (exercise_id) DO UPDATE SET
			name = EXCLUDED.name,
			gif_url = EXCLUDED.gif_url,
			body_part = EXCLUDED.body_part,
			equipment = EXCLUDED.equipment,
			target = EXCLUDED.target,
			secondary_muscles = EXCLUDED.secondary_muscles,
			instructions = EXCLUDED.instructions,
			category = EXCLUDED.category,
			difficulty = EXCLUDED.difficulty,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
		RETURNING id, (xmax = 0)
	`

	secondary := e.SecondaryMuscles
	if secondary == nil {
		secondary = []string{}
	}

	var inserted bool
	err := r.pool.QueryRow(ctx, query,
		e.ID,
		e.ExerciseID,
		e.Name,
		e.GifURL,
		e.BodyPart,
		e.Equipment,
		e.Target,
		secondary,
		e.Instructions,
		e.Category,
		e.Difficulty,
		e.IsActive,
		e.CreatedAt,
		e.UpdatedAt,
	).Scan(&e.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert exercise: %w", err)
	}
	return inserted, nil
}

// GetExercise retrieves an active exercise by its exercise_id.
func (r *Repository) GetExercise(ctx context.Context, exerciseID string) (*model.Exercise, error) {
	query := `SELECT ` + exerciseColumns + ` FROM exercises WHERE exercise_id = $1 AND is_active`

	e, err := scanExercise(r.pool.QueryRow(ctx, query, exerciseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExerciseNotFound
		}
		return nil, fmt.Errorf("failed to get exercise: %w", err)
	}
	return e, nil
}

// ListExercises returns a page of active exercises and the total match count.
// Searches rank name matches above matches in other fields.
func (r *Repository) ListExercises(ctx context.Context, f ExerciseFilter) ([]*model.Exercise, int, error) {
	where := []string{"is_active"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	for _, eq := range [][2]string{
		{"body_part", f.BodyPart},
		{"equipment", f.Equipment},
		{"target", f.Target},
		{"difficulty", f.Difficulty},
	} {
		if eq[1] != "" {
			where = append(where, "lower("+eq[0]+") = lower("+arg(eq[1])+")")
		}
	}

	order := "name"
	if f.Search != "" {
		p := arg("%" + strings.ToLower(f.Search) + "%")
		where = append(where, "(lower(name) LIKE "+p+
			" OR lower(body_part) LIKE "+p+
			" OR lower(target) LIKE "+p+
			" OR lower(equipment) LIKE "+p+
			" OR EXISTS (SELECT 1 FROM unnest(secondary_muscles) m WHERE lower(m) LIKE "+p+"))")
		order = "CASE WHEN lower(name) LIKE " + p + " THEN 0 ELSE 1 END, name"
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM exercises WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count exercises: %w", err)
	}

	query := `SELECT ` + exerciseColumns + ` FROM exercises WHERE ` + cond +
		` ORDER BY ` + order + ` LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list exercises: %w", err)
	}
	defer rows.Close()

	var out []*model.Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan exercise: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate exercises: %w", err)
	}
	return out, total, nil
}

// ExerciseFilterValues returns the distinct sorted filter values of active exercises.
func (r *Repository) ExerciseFilterValues(ctx context.Context) (*model.ExerciseFilters, error) {
	distinct := func(col string) ([]string, error) {
		rows, err := r.pool.Query(ctx, `SELECT DISTINCT `+col+` FROM exercises WHERE is_active ORDER BY 1`)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s values: %w", col, err)
		}
		return pgx.CollectRows(rows, pgx.RowTo[string])
	}

	var (
		f   model.ExerciseFilters
		err error
	)
	if f.BodyParts, err = distinct("body_part"); err != nil {
		return nil, err
	}
	if f.Equipment, err = distinct("equipment"); err != nil {
		return nil, err
	}
	if f.Targets, err = distinct("target"); err != nil {
		return nil, err
	}
	f.Difficulties = model.Difficulties
	return &f, nil
}

func scanExercise(row pgx.Row) (*model.Exercise, error) {
	var e model.Exercise
	err := row.Scan(
		&e.ID,
		&e.ExerciseID,
		&e.Name,
		&e.GifURL,
		&e.BodyPart,
		&e.Equipment,
		&e.Target,
		&e.SecondaryMuscles,
		&e.Instructions,
		&e.Category,
		&e.Difficulty,
		&e.IsActive,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const templateColumns = `id, name, description, exercises, created_by, is_public, created_at, updated_at`

// CreateTemplate inserts a workout template.
func (r *Repository) CreateTemplate(ctx context.Context, t *model.WorkoutTemplate) error {
	exercises, err := jsonb(t.Exercises)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workout_templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query, t.ID, t.Name, t.Description, exercises, t.CreatedBy, t.IsPublic, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// UpdateTemplate replaces a workout template.
func (r *Repository) UpdateTemplate(ctx context.Context, t *model.WorkoutTemplate) error {
	exercises, err := jsonb(t.Exercises)
	if err != nil {
		return err
	}

	query := `
		UPDATE workout_templates
		SET name = $2, description = $3, exercises = $4, is_public = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, t.ID, t.Name, t.Description, exercises, t.IsPublic, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// DeleteTemplate removes a workout template.
func (r *Repository) DeleteTemplate(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM workout_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// GetTemplate retrieves a workout template by ID.
func (r *Repository) GetTemplate(ctx context.Context, id string) (*model.WorkoutTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM workout_templates WHERE id = $1`

	t, err := scanTemplate(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return t, nil
}

// ListTemplates returns a user's templates, plus public ones when includePublic.
func (r *Repository) ListTemplates(ctx context.Context, username string, includePublic bool) ([]*model.WorkoutTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM workout_templates
		WHERE created_by = $1 OR ($2 AND is_public)
		ORDER BY updated_at DESC
	`
	rows, err := r.pool.Query(ctx, query, username, includePublic)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var out []*model.WorkoutTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTemplate(row pgx.Row) (*model.WorkoutTemplate, error) {
	var (
		t         model.WorkoutTemplate
		exercises []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &exercises, &t.CreatedBy, &t.IsPublic, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(exercises, &t.Exercises); err != nil {
		return nil, fmt.Errorf("failed to decode template exercises: %w", err)
	}
	return &t, nil
}

const sessionColumns = `
	id, template_id, template_name, name, exercises, start_time, end_time, duration,
	notes, created_by, created_at, updated_at
`

// CreateSession inserts a workout session.
func (r *Repository) CreateSession(ctx context.Context, s *model.WorkoutSession) error {
	exercises, err := jsonb(s.Exercises)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workout_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.pool.Exec(ctx, query,
		s.ID,
		nullableString(s.TemplateID),
		s.TemplateName,
		s.Name,
		exercises,
		s.StartTime,
		s.EndTime,
		s.Duration,
		s.Notes,
		s.CreatedBy,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// UpdateSession replaces a workout session.
func (r *Repository) UpdateSession(ctx context.Context, s *model.WorkoutSession) error {
	exercises, err := jsonb(s.Exercises)
	if err != nil {
		return err
	}

	query := `
		UPDATE workout_sessions
		SET name = $2, exercises = $3, start_time = $4, end_time = $5, duration = $6, notes = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, s.ID, s.Name, exercises, s.StartTime, s.EndTime, s.Duration, s.Notes, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a workout session.
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM workout_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// GetSession retrieves a workout session by ID.
func (r *Repository) GetSession(ctx context.Context, id string) (*model.WorkoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM workout_sessions WHERE id = $1`

	s, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// ListSessions returns a page of a user's sessions, latest start first, and the total.
func (r *Repository) ListSessions(ctx context.Context, username string, limit, offset int) ([]*model.WorkoutSession, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM workout_sessions WHERE created_by = $1`, username).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	query := `
		SELECT ` + sessionColumns + `
		FROM workout_sessions
		WHERE created_by = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, username, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*model.WorkoutSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return out, total, nil
}

func scanSession(row pgx.Row) (*model.WorkoutSession, error) {
	var (
		s          model.WorkoutSession
		templateID *string
		exercises  []byte
	)
	err := row.Scan(
		&s.ID,
		&templateID,
		&s.TemplateName,
		&s.Name,
		&exercises,
		&s.StartTime,
		&s.EndTime,
		&s.Duration,
		&s.Notes,
		&s.CreatedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.TemplateID = orEmpty(templateID)
	if err := json.Unmarshal(exercises, &s.Exercises); err != nil {
		return nil, fmt.Errorf("failed to decode session exercises: %w", err)
	}
	return &s, nil
}
