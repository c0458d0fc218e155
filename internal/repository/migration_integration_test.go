//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homestead/homestead/internal/testutil"
	"github.com/homestead/homestead/migrations"
)

// ============================================================================
// Migration Integration Tests
// ============================================================================

func TestIntegrationMigration_ApplyAllTables(t *testing.T) {
	ctx, pool := testutil.NewTestPool(t)

	tables := []string{
		"users",
		"recipes",
		"favorites",
		"to_try_recipes",
		"payments",
		"payment_splits",
		"exchange_rates",
		"recurring_payments",
		"exercises",
		"workout_templates",
		"workout_sessions",
		"rosary_streaks",
		"tournaments",
	}

	for _, table := range tables {
		t.Run(table, func(t *testing.T) {
			exists, err := tableExists(ctx, pool, table)
			if err != nil {
				t.Fatalf("tableExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Table %q should exist after migrations", table)
			}
		})
	}
}

func TestIntegrationMigration_PaymentsSchema(t *testing.T) {
	ctx, pool := testutil.NewTestPool(t)

	expectedColumns := []string{
		"id",
		"title",
		"amount",
		"currency",
		"original_amount",
		"exchange_rate",
		"paid_by",
		"date",
		"category",
		"split_method",
		"created_by",
	}

	for _, col := range expectedColumns {
		t.Run(col, func(t *testing.T) {
			exists, err := columnExists(ctx, pool, "payments", col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column %q should exist in payments table", col)
			}
		})
	}
}

func TestIntegrationMigration_PaymentConstraints(t *testing.T) {
	ctx, pool := testutil.NewTestPool(t)

	_, err := pool.Exec(ctx, `
		INSERT INTO payments (id, title, amount, paid_by, date, category, split_method, created_by)
		VALUES ('p1', 'x', 10, 'alice', NOW(), 'bogus', 'equal', 'alice')
	`)
	if err == nil {
		t.Error("Expected check constraint violation for invalid category")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO payments (id, title, amount, paid_by, date, category, split_method, created_by)
		VALUES ('p1', 'x', 10, 'alice', NOW(), 'fun', 'equal', 'alice')
	`)
	if err != nil {
		t.Fatalf("insert payment: %v", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO payment_splits (id, payment_id, username, amount) VALUES
		('s1', 'p1', 'bob', 5), ('s2', 'p1', 'bob', 5)
	`)
	if !isUniqueViolation(err) {
		t.Errorf("Expected unique violation for duplicate (payment, username), got %v", err)
	}
}

func TestIntegrationMigration_Rollback(t *testing.T) {
	ctx, pool := testutil.NewTestPool(t)

	all, err := migrations.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	last := all[len(all)-1]

	if _, err := pool.Exec(ctx, last.Down); err != nil {
		t.Fatalf("apply down migration: %v", err)
	}

	exists, err := tableExists(ctx, pool, "tournaments")
	if err != nil {
		t.Fatalf("tableExists failed: %v", err)
	}
	if exists {
		t.Error("tournaments table should not exist after rollback")
	}

	if _, err := pool.Exec(ctx, last.Up); err != nil {
		t.Fatalf("reapply up migration: %v", err)
	}
}

func TestIntegrationMigration_Idempotency(t *testing.T) {
	ctx, pool := testutil.NewTestPool(t)

	all, err := migrations.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for _, m := range all {
		if _, err := pool.Exec(ctx, m.Up); err != nil {
			t.Fatalf("second apply of %s should not fail: %v", m.Name, err)
		}
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = $1
			AND column_name = $2
		)
	`, tableName, columnName).Scan(&exists)
	return exists, err
}
