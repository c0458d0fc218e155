package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/homestead/homestead/internal/model"
)

// GetRosaryStreak returns a user's streak. A user without a row gets a zero streak.
func (r *Repository) GetRosaryStreak(ctx context.Context, username string) (*model.RosaryStreak, error) {
	query := `
		SELECT username, length, to_char(last_prayed, 'YYYY-MM-DD'), updated_at
		FROM rosary_streaks
		WHERE username = $1
	`

	var s model.RosaryStreak
	err := r.pool.QueryRow(ctx, query, username).Scan(&s.Username, &s.Length, &s.LastPrayed, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.RosaryStreak{Username: username}, nil
		}
		return nil, fmt.Errorf("failed to get rosary streak: %w", err)
	}
	return &s, nil
}

// SaveRosaryStreak upserts a user's streak.
func (r *Repository) SaveRosaryStreak(ctx context.Context, s *model.RosaryStreak) error {
	query := `
		INSERT INTO rosary_streaks (username, length, last_prayed, updated_at)
		VALUES ($1, $2, $3::date, $4)
		ON CONFLICT (username) DO UPDATE SET
			length = EXCLUDED.length,
			last_prayed = EXCLUDED.last_prayed,
			updated_at = EXCLUDED.updated_at
	`

	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	if _, err := r.pool.Exec(ctx, query, s.Username, s.Length, s.LastPrayed, s.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save rosary streak: %w", err)
	}
	return nil
}
