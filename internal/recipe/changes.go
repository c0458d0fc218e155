package recipe

import (
	"reflect"
	"slices"

	"github.com/homestead/homestead/internal/model"
)

// ChangedFields lists the German fields that differ between two versions of a recipe.
func ChangedFields(before, after *model.Recipe) []string {
	var changed []string

	simple := []struct {
		name string
		a, b string
	}{
		{"name", before.Name, after.Name},
		{"short_name", before.ShortName, after.ShortName},
		{"description", before.Description, after.Description},
		{"category", before.Category, after.Category},
		{"icon", before.Icon, after.Icon},
		{"portions", before.Portions, after.Portions},
		{"preamble", before.Preamble, after.Preamble},
		{"addendum", before.Addendum, after.Addendum},
		{"note", before.Note, after.Note},
	}
	for _, f := range simple {
		if f.a != f.b {
			changed = append(changed, f.name)
		}
	}

	if !slices.Equal(before.Tags, after.Tags) {
		changed = append(changed, "tags")
	}
	if !slices.Equal(before.Season, after.Season) {
		changed = append(changed, "season")
	}
	if !reflect.DeepEqual(before.Ingredients, after.Ingredients) {
		changed = append(changed, "ingredients")
	}
	if !reflect.DeepEqual(before.Instructions, after.Instructions) {
		changed = append(changed, "instructions")
	}
	if before.Baking != after.Baking || before.Fermentation != after.Fermentation ||
		before.Preparation != after.Preparation || before.Cooking != after.Cooking ||
		before.TotalTime != after.TotalTime {
		changed = append(changed, "add_info")
	}
	if !slices.Equal(before.Images, after.Images) {
		changed = append(changed, "images")
	}
	return changed
}

// MarkStale flips an approved translation of after to needs_update when the
// German content changed, merging the changed field names. It reports whether
// the translation was touched.
func MarkStale(before, after *model.Recipe) bool {
	t := after.Translations.EN
	if t == nil {
		return false
	}

	changed := ChangedFields(before, after)
	if len(changed) == 0 {
		return false
	}

	switch t.TranslationStatus {
	case model.TranslationApproved:
		t.TranslationStatus = model.TranslationNeedsUpdate
	case model.TranslationNeedsUpdate:
	default:
		return false
	}

	for _, f := range changed {
		if !slices.Contains(t.ChangedFields, f) {
			t.ChangedFields = append(t.ChangedFields, f)
		}
	}
	return true
}
