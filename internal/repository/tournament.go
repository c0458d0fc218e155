package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/homestead/homestead/internal/model"
)

// ErrTournamentNotFound is returned when a tournament does not exist.
var ErrTournamentNotFound = errors.New("tournament not found")

// CreateTournament inserts a tournament document.
func (r *Repository) CreateTournament(ctx context.Context, t *model.Tournament) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode tournament: %w", err)
	}

	query := `
		INSERT INTO tournaments (id, name, status, doc, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query, t.ID, t.Name, t.Status, doc, t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

// GetTournament retrieves a tournament by ID.
func (r *Repository) GetTournament(ctx context.Context, id string) (*model.Tournament, error) {
	t, err := scanTournament(r.pool.QueryRow(ctx, `SELECT doc FROM tournaments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return t, nil
}

// ListTournaments returns all tournaments, newest first.
func (r *Repository) ListTournaments(ctx context.Context) ([]*model.Tournament, error) {
	rows, err := r.pool.Query(ctx, `SELECT doc FROM tournaments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var out []*model.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTournament loads a tournament with a row lock, applies fn and saves
// the result. Concurrent score submissions are serialized by the lock.
func (r *Repository) UpdateTournament(ctx context.Context, id string, fn func(*model.Tournament) error) (*model.Tournament, error) {
	var updated *model.Tournament
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		t, err := scanTournament(tx.QueryRow(ctx, `SELECT doc FROM tournaments WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to lock tournament: %w", err)
		}

		if err := fn(t); err != nil {
			return err
		}

		doc, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode tournament: %w", err)
		}
		query := `UPDATE tournaments SET name = $2, status = $3, doc = $4, updated_at = $5 WHERE id = $1`
		if _, err := tx.Exec(ctx, query, t.ID, t.Name, t.Status, doc, t.UpdatedAt); err != nil {
			return fmt.Errorf("failed to update tournament: %w", err)
		}
		updated = t
		return nil
	})
	return updated, err
}

// DeleteTournament removes a tournament.
func (r *Repository) DeleteTournament(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTournamentNotFound
	}
	return nil
}

func scanTournament(row pgx.Row) (*model.Tournament, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		return nil, err
	}
	var t model.Tournament
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, fmt.Errorf("failed to decode tournament: %w", err)
	}
	return &t, nil
}
