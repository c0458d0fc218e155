package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/migrations"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops every table and re-applies all embedded migrations.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	all, err := migrations.Load()
	if err != nil {
		return err
	}

	for i := len(all) - 1; i >= 0; i-- {
		if _, err := pool.Exec(ctx, all[i].Down); err != nil {
			return fmt.Errorf("apply %s down migration: %w", all[i].Name, err)
		}
	}
	for _, m := range all {
		if _, err := pool.Exec(ctx, m.Up); err != nil {
			return fmt.Errorf("apply %s up migration: %w", m.Name, err)
		}
	}
	return nil
}

// NewTestPool connects to DATABASE_URL, takes the DB lock and resets the schema.
// Everything is released through t.Cleanup.
func NewTestPool(t *testing.T) (context.Context, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := RequireEnv(t, "DATABASE_URL")

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	unlock, err := AcquireDBLock(ctx, pool)
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := ResetSchema(ctx, pool); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return ctx, pool
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestRecipe creates a German recipe with one ingredient and one step.
func NewTestRecipe(t testing.TB, shortName string) *model.Recipe {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Recipe{
		ID:           UniqueID("recipe"),
		ShortName:    shortName,
		Name:         "Rezept " + shortName,
		Category:     "Brot",
		Icon:         "🍞",
		DateCreated:  now,
		DateModified: now,
		Description:  "Ein Testrezept",
		Tags:         []string{"test"},
		Season:       []int{int(now.Month())},
		Ingredients: []model.IngredientSection{{
			Name: "Teig",
			List: []model.Ingredient{{Name: "Mehl", Unit: "g", Amount: "500"}},
		}},
		Instructions: []model.InstructionSection{{
			Name:  "Zubereitung",
			Steps: []string{"Alles mischen."},
		}},
	}
}

// NewTestPayment creates a CHF payment split equally between two users.
func NewTestPayment(t testing.TB, paidBy, other string, amount float64) *model.Payment {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	half := amount / 2
	return &model.Payment{
		ID:          UniqueID("payment"),
		Title:       "Test payment",
		Amount:      amount,
		Currency:    model.BaseCurrency,
		PaidBy:      paidBy,
		Date:        now,
		Category:    model.CategoryGroceries,
		SplitMethod: model.SplitEqual,
		CreatedBy:   paidBy,
		CreatedAt:   now,
		UpdatedAt:   now,
		Splits: []*model.PaymentSplit{
			{ID: UniqueID("split"), Username: paidBy, Amount: -half, CreatedAt: now},
			{ID: UniqueID("split"), Username: other, Amount: half, CreatedAt: now},
		},
	}
}

var idCounter atomic.Int64

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), idCounter.Add(1))
}
