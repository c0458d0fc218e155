package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/homestead/homestead/internal/model"
)

// Common errors for payment repository operations.
var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrExchangeRateNotFound = errors.New("exchange rate not found")
)

const paymentColumns = `
	id, title, description, amount, currency, original_amount, exchange_rate,
	paid_by, date, image, category, split_method, created_by, created_at, updated_at
`

// CreatePayment inserts a payment and its splits atomically.
func (r *Repository) CreatePayment(ctx context.Context, p *model.Payment) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		return insertPayment(ctx, tx, p)
	})
}

func insertPayment(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := tx.Exec(ctx, query,
		p.ID,
		p.Title,
		p.Description,
		p.Amount,
		p.Currency,
		p.OriginalAmount,
		p.ExchangeRate,
		p.PaidBy,
		p.Date,
		p.Image,
		p.Category,
		p.SplitMethod,
		p.CreatedBy,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return insertSplits(ctx, tx, p)
}

func insertSplits(ctx context.Context, tx pgx.Tx, p *model.Payment) error {
	if len(p.Splits) == 0 {
		return nil
	}

	query := `
		INSERT INTO payment_splits (id, payment_id, username, amount, proportion, personal_amount, settled, settled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for _, s := range p.Splits {
		s.PaymentID = p.ID
		batch.Queue(query,
			s.ID,
			s.PaymentID,
			s.Username,
			s.Amount,
			s.Proportion,
			s.PersonalAmount,
			s.Settled,
			s.SettledAt,
			s.CreatedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range p.Splits {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert split %d: %w", i, err)
		}
	}
	return results.Close()
}

// UpdatePayment replaces a payment and all of its splits.
func (r *Repository) UpdatePayment(ctx context.Context, p *model.Payment) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE payments
			SET title = $2, description = $3, amount = $4, currency = $5, original_amount = $6,
			    exchange_rate = $7, paid_by = $8, date = $9, image = $10, category = $11,
			    split_method = $12, updated_at = $13
			WHERE id = $1
		`
		result, err := tx.Exec(ctx, query,
			p.ID,
			p.Title,
			p.Description,
			p.Amount,
			p.Currency,
			p.OriginalAmount,
			p.ExchangeRate,
			p.PaidBy,
			p.Date,
			p.Image,
			p.Category,
			p.SplitMethod,
			p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrPaymentNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM payment_splits WHERE payment_id = $1`, p.ID); err != nil {
			return fmt.Errorf("failed to clear splits: %w", err)
		}
		return insertSplits(ctx, tx, p)
	})
}

// DeletePayment removes a payment. Splits cascade.
func (r *Repository) DeletePayment(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// GetPayment retrieves a payment with its splits.
func (r *Repository) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	p, err := scanPayment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	if err := r.attachSplits(ctx, []*model.Payment{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPayments returns a page of payments by date, newest first, with splits.
func (r *Repository) ListPayments(ctx context.Context, limit, offset int) ([]*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		ORDER BY date DESC, created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.queryPayments(ctx, query, limit, offset)
}

// ListPaymentsForUser returns every payment the user takes part in, with all splits.
func (r *Repository) ListPaymentsForUser(ctx context.Context, username string) ([]*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE paid_by = $1 OR id IN (SELECT payment_id FROM payment_splits WHERE username = $1)
		ORDER BY date DESC, created_at DESC
	`
	return r.queryPayments(ctx, query, username)
}

// ListPaymentsSince returns payments dated at or after since, with splits.
func (r *Repository) ListPaymentsSince(ctx context.Context, since time.Time) ([]*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE date >= $1
		ORDER BY date
	`
	return r.queryPayments(ctx, query, since)
}

func (r *Repository) queryPayments(ctx context.Context, query string, args ...any) ([]*model.Payment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}

	if err := r.attachSplits(ctx, payments); err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *Repository) attachSplits(ctx context.Context, payments []*model.Payment) error {
	if len(payments) == 0 {
		return nil
	}

	ids := make([]string, len(payments))
	byID := make(map[string]*model.Payment, len(payments))
	for i, p := range payments {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	query := `
		SELECT ` + splitColumns + `
		FROM payment_splits
		WHERE payment_id = ANY($1)
		ORDER BY created_at, username
	`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to list splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSplit(rows)
		if err != nil {
			return fmt.Errorf("failed to scan split: %w", err)
		}
		if p := byID[s.PaymentID]; p != nil {
			p.Splits = append(p.Splits, s)
		}
	}
	return rows.Err()
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Amount,
		&p.Currency,
		&p.OriginalAmount,
		&p.ExchangeRate,
		&p.PaidBy,
		&p.Date,
		&p.Image,
		&p.Category,
		&p.SplitMethod,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const splitColumns = `id, payment_id, username, amount, proportion, personal_amount, settled, settled_at, created_at`

func scanSplit(row pgx.Row) (*model.PaymentSplit, error) {
	var s model.PaymentSplit
	err := row.Scan(
		&s.ID,
		&s.PaymentID,
		&s.Username,
		&s.Amount,
		&s.Proportion,
		&s.PersonalAmount,
		&s.Settled,
		&s.SettledAt,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSplits returns every split, optionally limited to one user.
func (r *Repository) ListSplits(ctx context.Context, username string) ([]*model.PaymentSplit, error) {
	query := `SELECT ` + splitColumns + ` FROM payment_splits`
	var args []any
	if username != "" {
		query += ` WHERE username = $1`
		args = append(args, username)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer rows.Close()

	var splits []*model.PaymentSplit
	for rows.Next() {
		s, err := scanSplit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, s)
	}
	return splits, rows.Err()
}

// RecentSplits returns a user's latest splits joined with their payments.
func (r *Repository) RecentSplits(ctx context.Context, username string, limit int) ([]*model.SplitWithPayment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id IN (
			SELECT payment_id FROM payment_splits WHERE username = $1
		)
		ORDER BY date DESC, created_at DESC
		LIMIT $2
	`
	payments, err := r.queryPayments(ctx, query, username, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*model.SplitWithPayment, 0, len(payments))
	for _, p := range payments {
		for _, s := range p.Splits {
			if s.Username != username {
				continue
			}
			out = append(out, &model.SplitWithPayment{PaymentSplit: *s, Payment: p})
		}
	}
	return out, nil
}

// GetExchangeRate returns a cached rate for the given day.
func (r *Repository) GetExchangeRate(ctx context.Context, from, to, date string) (*model.ExchangeRate, error) {
	query := `
		SELECT from_currency, to_currency, rate, to_char(date, 'YYYY-MM-DD'), created_at
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2 AND date = $3::date
	`

	var rate model.ExchangeRate
	err := r.pool.QueryRow(ctx, query, from, to, date).Scan(
		&rate.FromCurrency,
		&rate.ToCurrency,
		&rate.Rate,
		&rate.Date,
		&rate.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExchangeRateNotFound
		}
		return nil, fmt.Errorf("failed to get exchange rate: %w", err)
	}
	return &rate, nil
}

// SaveExchangeRate upserts a daily rate.
func (r *Repository) SaveExchangeRate(ctx context.Context, rate *model.ExchangeRate) error {
	query := `
		INSERT INTO exchange_rates (from_currency, to_currency, date, rate, created_at)
		VALUES ($1, $2, $3::date, $4, $5)
		ON CONFLICT (from_currency, to_currency, date) DO UPDATE SET rate = EXCLUDED.rate
	`
	_, err := r.pool.Exec(ctx, query, rate.FromCurrency, rate.ToCurrency, rate.Date, rate.Rate, rate.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save exchange rate: %w", err)
	}
	return nil
}
