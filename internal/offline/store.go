// Package offline keeps a local copy of the recipe catalog and decides, per
// page load, whether to answer from the network or from that copy.
package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/homestead/homestead/internal/model"
)

// ErrNotFound is returned when a recipe is not in the local store.
var ErrNotFound = errors.New("recipe not available offline")

const (
	metaLastSync    = "last_sync"
	metaRecipeCount = "recipe_count"
)

const schema = `
CREATE TABLE IF NOT EXISTS recipes_brief (
	lang       TEXT NOT NULL,
	short_name TEXT NOT NULL,
	position   INTEGER NOT NULL,
	category   TEXT NOT NULL,
	icon       TEXT NOT NULL,
	data       TEXT NOT NULL,
	PRIMARY KEY (lang, short_name)
);
CREATE INDEX IF NOT EXISTS idx_brief_category ON recipes_brief(lang, category);
CREATE INDEX IF NOT EXISTS idx_brief_icon ON recipes_brief(lang, icon);

CREATE TABLE IF NOT EXISTS recipes_brief_season (
	lang       TEXT NOT NULL,
	short_name TEXT NOT NULL,
	month      INTEGER NOT NULL,
	PRIMARY KEY (lang, short_name, month)
);
CREATE INDEX IF NOT EXISTS idx_brief_season_month ON recipes_brief_season(lang, month);

CREATE TABLE IF NOT EXISTS recipes_brief_tag (
	lang       TEXT NOT NULL,
	short_name TEXT NOT NULL,
	tag        TEXT NOT NULL,
	PRIMARY KEY (lang, short_name, tag)
);
CREATE INDEX IF NOT EXISTS idx_brief_tag ON recipes_brief_tag(lang, tag);

CREATE TABLE IF NOT EXISTS recipes_full (
	short_name    TEXT PRIMARY KEY,
	en_short_name TEXT,
	data          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_full_en ON recipes_full(en_short_name);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is the local recipe database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SyncInfo describes the last successful download.
type SyncInfo struct {
	LastSync    time.Time `json:"last_sync"`
	RecipeCount int       `json:"recipe_count"`
}

func clearAll(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"recipes_brief", "recipes_brief_season", "recipes_brief_tag", "recipes_full", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func insertBriefs(ctx context.Context, tx *sql.Tx, lang model.Lang, briefs []*model.BriefRecipe) error {
	for i, b := range briefs {
		raw, err := json.Marshal(b)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO recipes_brief (lang, short_name, position, category, icon, data) VALUES (?, ?, ?, ?, ?, ?)`,
			string(lang), b.ShortName, i, b.Category, b.Icon, string(raw),
		); err != nil {
			return fmt.Errorf("failed to save brief %s: %w", b.ShortName, err)
		}
		for _, m := range b.Season {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO recipes_brief_season (lang, short_name, month) VALUES (?, ?, ?)`,
				string(lang), b.ShortName, m,
			); err != nil {
				return err
			}
		}
		for _, tag := range b.Tags {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO recipes_brief_tag (lang, short_name, tag) VALUES (?, ?, ?)`,
				string(lang), b.ShortName, tag,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// SaveAll replaces the whole store with dump in one transaction.
func (s *Store) SaveAll(ctx context.Context, dump *model.OfflineDump) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := clearAll(ctx, tx); err != nil {
		return err
	}
	if err := insertBriefs(ctx, tx, model.LangDE, dump.Brief); err != nil {
		return err
	}
	if err := insertBriefs(ctx, tx, model.LangEN, dump.BriefEN); err != nil {
		return err
	}

	for _, r := range dump.Full {
		raw, err := json.Marshal(r)
		if err != nil {
			return err
		}
		var en sql.NullString
		if r.Translations.EN != nil && r.Translations.EN.ShortName != "" {
			en = sql.NullString{String: r.Translations.EN.ShortName, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO recipes_full (short_name, en_short_name, data) VALUES (?, ?, ?)`,
			r.ShortName, en, string(raw),
		); err != nil {
			return fmt.Errorf("failed to save recipe %s: %w", r.ShortName, err)
		}
	}

	syncedAt := dump.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now()
	}
	for key, value := range map[string]string{
		metaLastSync:    syncedAt.UTC().Format(time.RFC3339Nano),
		metaRecipeCount: strconv.Itoa(len(dump.Brief)),
	} {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("failed to save sync metadata: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) queryBriefs(ctx context.Context, query string, args ...any) ([]*model.BriefRecipe, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.BriefRecipe
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var b model.BriefRecipe
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("failed to decode brief: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// AllBrief returns the stored brief list of lang in download order.
func (s *Store) AllBrief(ctx context.Context, lang model.Lang) ([]*model.BriefRecipe, error) {
	return s.queryBriefs(ctx,
		`SELECT data FROM recipes_brief WHERE lang = ? ORDER BY position`, string(lang))
}

// BriefByCategory returns the briefs of one category.
func (s *Store) BriefByCategory(ctx context.Context, lang model.Lang, category string) ([]*model.BriefRecipe, error) {
	return s.queryBriefs(ctx,
		`SELECT data FROM recipes_brief WHERE lang = ? AND category = ? ORDER BY position`, string(lang), category)
}

// BriefBySeason returns the briefs whose season contains month.
func (s *Store) BriefBySeason(ctx context.Context, lang model.Lang, month int) ([]*model.BriefRecipe, error) {
	return s.queryBriefs(ctx, `
		SELECT b.data FROM recipes_brief b
		JOIN recipes_brief_season s ON s.lang = b.lang AND s.short_name = b.short_name
		WHERE b.lang = ? AND s.month = ?
		ORDER BY b.position`, string(lang), month)
}

// BriefByTag returns the briefs carrying tag.
func (s *Store) BriefByTag(ctx context.Context, lang model.Lang, tag string) ([]*model.BriefRecipe, error) {
	return s.queryBriefs(ctx, `
		SELECT b.data FROM recipes_brief b
		JOIN recipes_brief_tag t ON t.lang = b.lang AND t.short_name = b.short_name
		WHERE b.lang = ? AND t.tag = ?
		ORDER BY b.position`, string(lang), tag)
}

// BriefByIcon returns the briefs with icon.
func (s *Store) BriefByIcon(ctx context.Context, lang model.Lang, icon string) ([]*model.BriefRecipe, error) {
	return s.queryBriefs(ctx,
		`SELECT data FROM recipes_brief WHERE lang = ? AND icon = ? ORDER BY position`, string(lang), icon)
}

// FullRecipe looks a recipe up by German short name, then by English one.
func (s *Store) FullRecipe(ctx context.Context, name string) (*model.Recipe, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM recipes_full
		WHERE short_name = ? OR en_short_name = ?
		ORDER BY CASE WHEN short_name = ? THEN 0 ELSE 1 END
		LIMIT 1`, name, name, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var r model.Recipe
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("failed to decode recipe: %w", err)
	}
	return &r, nil
}

// LastSync returns the metadata of the last download, or nil when the store
// was never filled.
func (s *Store) LastSync(ctx context.Context) (*SyncInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta WHERE key IN (?, ?)`, metaLastSync, metaRecipeCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string, 2)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	last, ok := values[metaLastSync]
	if !ok {
		return nil, nil
	}
	at, err := time.Parse(time.RFC3339Nano, last)
	if err != nil {
		return nil, fmt.Errorf("invalid last sync %q: %w", last, err)
	}
	count, _ := strconv.Atoi(values[metaRecipeCount])
	return &SyncInfo{LastSync: at, RecipeCount: count}, nil
}

// Available reports whether a download with at least one recipe exists.
// Read errors count as unavailable.
func (s *Store) Available(ctx context.Context) bool {
	info, err := s.LastSync(ctx)
	return err == nil && info != nil && info.RecipeCount > 0
}

// Clear removes every stored recipe and the sync metadata.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := clearAll(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Count returns the number of German briefs stored.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recipes_brief WHERE lang = ?`, string(model.LangDE)).Scan(&n)
	return n, err
}
