package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/homestead/homestead/internal/model"
)

// AllBriefKey caches the brief list of a language.
func AllBriefKey(lang model.Lang) string {
	return Key("recipes", string(lang), "all_brief")
}

// TagKey caches briefs carrying tag.
func TagKey(lang model.Lang, tag string) string {
	return Key("recipes", string(lang), "tag", tag)
}

// InSeasonKey caches briefs in season for month.
func InSeasonKey(lang model.Lang, month int) string {
	return Key("recipes", string(lang), "in_season", strconv.Itoa(month))
}

// CategoryKey caches briefs of a category.
func CategoryKey(lang model.Lang, category string) string {
	return Key("recipes", string(lang), "category", category)
}

// IconKey caches briefs with an icon.
func IconKey(lang model.Lang, icon string) string {
	return Key("recipes", string(lang), "icon", icon)
}

// InvalidateRecipes drops every cached recipe listing of both languages.
func (c *Cache) InvalidateRecipes(ctx context.Context) (int, error) {
	var patterns []string
	for _, lang := range []model.Lang{model.LangDE, model.LangEN} {
		patterns = append(patterns,
			AllBriefKey(lang),
			Key("recipes", string(lang), "tag", "*"),
			Key("recipes", string(lang), "in_season", "*"),
			Key("recipes", string(lang), "category", "*"),
			Key("recipes", string(lang), "icon", "*"),
		)
	}

	n, err := c.DeletePattern(ctx, patterns...)
	if err != nil {
		return n, fmt.Errorf("failed to invalidate recipe cache: %w", err)
	}
	return n, nil
}
