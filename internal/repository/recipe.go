package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/homestead/homestead/internal/model"
)

// Common errors for recipe repository operations.
var (
	ErrRecipeNotFound   = errors.New("recipe not found")
	ErrShortNameExists  = errors.New("short_name already exists")
	ErrToTryNotFound    = errors.New("to-try recipe not found")
	ErrFavoriteNotFound = errors.New("favorite not found")
)

const recipeColumns = `doc, date_created, date_modified`

// CreateRecipe inserts a recipe document.
func (r *Repository) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	doc, err := json.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("failed to encode recipe: %w", err)
	}

	query := `
		INSERT INTO recipes (id, short_name, en_short_name, translation_status, category, icon, tags, season, doc, date_created, date_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.pool.Exec(ctx, query, recipeArgs(recipe, doc)...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrShortNameExists
		}
		return fmt.Errorf("failed to create recipe: %w", err)
	}

	return nil
}

// UpdateRecipe replaces a recipe document by ID.
func (r *Repository) UpdateRecipe(ctx context.Context, recipe *model.Recipe) error {
	doc, err := json.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("failed to encode recipe: %w", err)
	}

	query := `
		UPDATE recipes
		SET short_name = $2, en_short_name = $3, translation_status = $4, category = $5, icon = $6,
		    tags = $7, season = $8, doc = $9, date_created = $10, date_modified = $11
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, recipeArgs(recipe, doc)...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrShortNameExists
		}
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}

	return nil
}

func recipeArgs(recipe *model.Recipe, doc []byte) []any {
	var status *string
	if en := recipe.Translations.EN; en != nil {
		s := string(en.TranslationStatus)
		status = &s
	}
	tags := recipe.Tags
	if tags == nil {
		tags = []string{}
	}
	season := recipe.Season
	if season == nil {
		season = []int{}
	}
	return []any{
		recipe.ID,
		recipe.ShortName,
		nullableString(recipe.EnglishShortName()),
		status,
		recipe.Category,
		recipe.Icon,
		tags,
		season,
		doc,
		recipe.DateCreated,
		recipe.DateModified,
	}
}

// DeleteRecipe removes a recipe by ID.
func (r *Repository) DeleteRecipe(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

// GetRecipeByID retrieves a recipe by ID.
func (r *Repository) GetRecipeByID(ctx context.Context, id string) (*model.Recipe, error) {
	return r.getRecipe(ctx, `id = $1`, id)
}

// GetRecipeByShortName retrieves a recipe by its German short name.
func (r *Repository) GetRecipeByShortName(ctx context.Context, shortName string) (*model.Recipe, error) {
	return r.getRecipe(ctx, `short_name = $1`, shortName)
}

// GetRecipeByEnglishShortName retrieves a recipe by its translated short name.
func (r *Repository) GetRecipeByEnglishShortName(ctx context.Context, shortName string) (*model.Recipe, error) {
	return r.getRecipe(ctx, `en_short_name = $1`, shortName)
}

func (r *Repository) getRecipe(ctx context.Context, where string, arg any) (*model.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE ` + where

	recipe, err := scanRecipe(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return recipe, nil
}

// ListRecipes returns every recipe, newest modification first.
func (r *Repository) ListRecipes(ctx context.Context) ([]*model.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes ORDER BY date_modified DESC, id`
	return r.queryRecipes(ctx, query)
}

// ListRecipesReferencing returns recipes with a section whose base_recipe_ref is id.
func (r *Repository) ListRecipesReferencing(ctx context.Context, id string) ([]*model.Recipe, error) {
	query := `
		SELECT ` + recipeColumns + `
		FROM recipes
		WHERE id <> $1
		  AND (doc->'ingredients' @> jsonb_build_array(jsonb_build_object('base_recipe_ref', $1::text))
		    OR doc->'instructions' @> jsonb_build_array(jsonb_build_object('base_recipe_ref', $1::text)))
		ORDER BY short_name
	`
	return r.queryRecipes(ctx, query, id)
}

func (r *Repository) queryRecipes(ctx context.Context, query string, args ...any) ([]*model.Recipe, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*model.Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}

	return recipes, nil
}

func scanRecipe(row pgx.Row) (*model.Recipe, error) {
	var (
		doc    []byte
		recipe model.Recipe
	)
	if err := row.Scan(&doc, &recipe.DateCreated, &recipe.DateModified); err != nil {
		return nil, err
	}
	created, modified := recipe.DateCreated, recipe.DateModified
	if err := json.Unmarshal(doc, &recipe); err != nil {
		return nil, fmt.Errorf("failed to decode recipe: %w", err)
	}
	recipe.DateCreated, recipe.DateModified = created, modified
	return &recipe, nil
}

// AddFavorite stores a favorite. Adding an existing favorite is a no-op.
func (r *Repository) AddFavorite(ctx context.Context, username, recipeID string) error {
	query := `
		INSERT INTO favorites (username, recipe_id)
		VALUES ($1, $2)
		ON CONFLICT (username, recipe_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, username, recipeID); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite deletes a favorite.
func (r *Repository) RemoveFavorite(ctx context.Context, username, recipeID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE username = $1 AND recipe_id = $2`, username, recipeID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrFavoriteNotFound
	}
	return nil
}

// ListFavorites returns the recipe IDs a user has favorited.
func (r *Repository) ListFavorites(ctx context.Context, username string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT recipe_id FROM favorites WHERE username = $1 ORDER BY created_at`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan favorites: %w", err)
	}
	return ids, nil
}

// ListToTry returns all to-try recipes, newest first.
func (r *Repository) ListToTry(ctx context.Context) ([]*model.ToTryRecipe, error) {
	query := `
		SELECT id, name, links, notes, added_by, created_at, updated_at
		FROM to_try_recipes
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list to-try recipes: %w", err)
	}
	defer rows.Close()

	var items []*model.ToTryRecipe
	for rows.Next() {
		item, err := scanToTry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan to-try recipe: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetToTry retrieves a to-try recipe by ID.
func (r *Repository) GetToTry(ctx context.Context, id string) (*model.ToTryRecipe, error) {
	query := `
		SELECT id, name, links, notes, added_by, created_at, updated_at
		FROM to_try_recipes
		WHERE id = $1
	`

	item, err := scanToTry(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrToTryNotFound
		}
		return nil, fmt.Errorf("failed to get to-try recipe: %w", err)
	}
	return item, nil
}

// CreateToTry inserts a to-try recipe.
func (r *Repository) CreateToTry(ctx context.Context, item *model.ToTryRecipe) error {
	links, err := jsonb(item.Links)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO to_try_recipes (id, name, links, notes, added_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query, item.ID, item.Name, links, item.Notes, item.AddedBy, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create to-try recipe: %w", err)
	}
	return nil
}

// UpdateToTry replaces the editable fields of a to-try recipe.
func (r *Repository) UpdateToTry(ctx context.Context, item *model.ToTryRecipe) error {
	links, err := jsonb(item.Links)
	if err != nil {
		return err
	}

	query := `
		UPDATE to_try_recipes
		SET name = $2, links = $3, notes = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, item.ID, item.Name, links, item.Notes, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update to-try recipe: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrToTryNotFound
	}
	return nil
}

// DeleteToTry removes a to-try recipe.
func (r *Repository) DeleteToTry(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM to_try_recipes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete to-try recipe: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrToTryNotFound
	}
	return nil
}

func scanToTry(row pgx.Row) (*model.ToTryRecipe, error) {
	var (
		item  model.ToTryRecipe
		links []byte
	)
	if err := row.Scan(&item.ID, &item.Name, &links, &item.Notes, &item.AddedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(links, &item.Links); err != nil {
		return nil, fmt.Errorf("failed to decode links: %w", err)
	}
	return &item, nil
}
