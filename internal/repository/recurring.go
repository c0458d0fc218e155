package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/homestead/homestead/internal/model"
)

// Common errors for recurring payment operations.
var (
	ErrRecurringNotFound = errors.New("recurring payment not found")
	ErrRecurringNotDue   = errors.New("recurring payment is not due")
)

const recurringColumns = `
	id, title, description, amount, currency, paid_by, category, split_method, splits,
	frequency, cron_expression, is_active, next_execution_date, last_execution_date,
	start_date, end_date, created_by, created_at, updated_at
`

// CreateRecurring inserts a recurring payment.
func (r *Repository) CreateRecurring(ctx context.Context, rp *model.RecurringPayment) error {
	splits, err := jsonb(rp.Splits)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO recurring_payments (` + recurringColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err = r.pool.Exec(ctx, query,
		rp.ID,
		rp.Title,
		rp.Description,
		rp.Amount,
		rp.Currency,
		rp.PaidBy,
		rp.Category,
		rp.SplitMethod,
		splits,
		rp.Frequency,
		rp.CronExpression,
		rp.IsActive,
		rp.NextExecutionDate,
		rp.LastExecutionDate,
		rp.StartDate,
		rp.EndDate,
		rp.CreatedBy,
		rp.CreatedAt,
		rp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create recurring payment: %w", err)
	}
	return nil
}

// UpdateRecurring replaces a recurring payment.
func (r *Repository) UpdateRecurring(ctx context.Context, rp *model.RecurringPayment) error {
	return updateRecurring(ctx, r.pool, rp)
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func updateRecurring(ctx context.Context, db execer, rp *model.RecurringPayment) error {
	splits, err := jsonb(rp.Splits)
	if err != nil {
		return err
	}

	query := `
		UPDATE recurring_payments
		SET title = $2, description = $3, amount = $4, currency = $5, paid_by = $6, category = $7,
		    split_method = $8, splits = $9, frequency = $10, cron_expression = $11, is_active = $12,
		    next_execution_date = $13, last_execution_date = $14, start_date = $15, end_date = $16,
		    updated_at = $17
		WHERE id = $1
	`
	result, err := db.Exec(ctx, query,
		rp.ID,
		rp.Title,
		rp.Description,
		rp.Amount,
		rp.Currency,
		rp.PaidBy,
		rp.Category,
		rp.SplitMethod,
		splits,
		rp.Frequency,
		rp.CronExpression,
		rp.IsActive,
		rp.NextExecutionDate,
		rp.LastExecutionDate,
		rp.StartDate,
		rp.EndDate,
		rp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update recurring payment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRecurringNotFound
	}
	return nil
}

// DeleteRecurring removes a recurring payment.
func (r *Repository) DeleteRecurring(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM recurring_payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recurring payment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRecurringNotFound
	}
	return nil
}

// GetRecurring retrieves a recurring payment by ID.
func (r *Repository) GetRecurring(ctx context.Context, id string) (*model.RecurringPayment, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_payments WHERE id = $1`

	rp, err := scanRecurring(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecurringNotFound
		}
		return nil, fmt.Errorf("failed to get recurring payment: %w", err)
	}
	return rp, nil
}

// ListRecurring returns recurring payments ordered by next execution.
func (r *Repository) ListRecurring(ctx context.Context, activeOnly bool) ([]*model.RecurringPayment, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_payments`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY next_execution_date, id`
	return r.queryRecurring(ctx, query)
}

// ListDueRecurring returns active recurring payments due at now.
// An empty username selects payments of every user.
func (r *Repository) ListDueRecurring(ctx context.Context, now time.Time, username string) ([]*model.RecurringPayment, error) {
	query := `
		SELECT ` + recurringColumns + `
		FROM recurring_payments
		WHERE is_active
		  AND next_execution_date <= $1
		  AND (end_date IS NULL OR end_date >= $1)
		  AND ($2 = '' OR created_by = $2)
		ORDER BY next_execution_date, id
	`
	return r.queryRecurring(ctx, query, now, username)
}

func (r *Repository) queryRecurring(ctx context.Context, query string, args ...any) ([]*model.RecurringPayment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring payments: %w", err)
	}
	defer rows.Close()

	var out []*model.RecurringPayment
	for rows.Next() {
		rp, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring payment: %w", err)
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

// ExecuteRecurring stores the generated payment and the advanced schedule in
// one transaction. It returns ErrRecurringNotDue when a concurrent run has
// already advanced the schedule past the payment date.
func (r *Repository) ExecuteRecurring(ctx context.Context, rp *model.RecurringPayment, payment *model.Payment) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		var next time.Time
		err := tx.QueryRow(ctx,
			`SELECT next_execution_date FROM recurring_payments WHERE id = $1 FOR UPDATE`, rp.ID,
		).Scan(&next)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrRecurringNotFound
			}
			return fmt.Errorf("failed to lock recurring payment: %w", err)
		}
		if next.After(payment.Date) {
			return ErrRecurringNotDue
		}

		if err := insertPayment(ctx, tx, payment); err != nil {
			return err
		}
		return updateRecurring(ctx, tx, rp)
	})
}

func scanRecurring(row pgx.Row) (*model.RecurringPayment, error) {
	var (
		rp     model.RecurringPayment
		splits []byte
	)
	err := row.Scan(
		&rp.ID,
		&rp.Title,
		&rp.Description,
		&rp.Amount,
		&rp.Currency,
		&rp.PaidBy,
		&rp.Category,
		&rp.SplitMethod,
		&splits,
		&rp.Frequency,
		&rp.CronExpression,
		&rp.IsActive,
		&rp.NextExecutionDate,
		&rp.LastExecutionDate,
		&rp.StartDate,
		&rp.EndDate,
		&rp.CreatedBy,
		&rp.CreatedAt,
		&rp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(splits, &rp.Splits); err != nil {
		return nil, fmt.Errorf("failed to decode splits: %w", err)
	}
	return &rp, nil
}
