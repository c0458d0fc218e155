// Package recipe holds the language-aware transformations applied to recipes
// before they are served: English overlays, brief projections, search matching,
// yeast conversion, sanitizing and structured data.
package recipe

import (
	"errors"

	"github.com/homestead/homestead/internal/model"
)

// ErrNoTranslation is returned when an English view is requested for a recipe without one.
var ErrNoTranslation = errors.New("english translation not available")

// Localize returns the recipe as seen from lang. German views are returned as a
// shallow copy. English views take every translated field that is set and fall
// back to the German value otherwise.
func Localize(r *model.Recipe, lang model.Lang) (*model.Recipe, error) {
	out := *r
	if !lang.IsEnglish() {
		return &out, nil
	}

	t := r.Translations.EN
	if t == nil {
		return nil, ErrNoTranslation
	}

	out.ShortName = t.ShortName
	out.Name = t.Name
	out.Description = t.Description
	out.Preamble = t.Preamble
	out.Addendum = t.Addendum
	out.Note = t.Note
	out.Category = t.Category
	out.Tags = nonNil(t.Tags)
	out.Ingredients = t.Ingredients
	if out.Ingredients == nil {
		out.Ingredients = []model.IngredientSection{}
	}
	out.Instructions = t.Instructions
	if out.Instructions == nil {
		out.Instructions = []model.InstructionSection{}
	}
	if t.Baking != nil {
		out.Baking = *t.Baking
	}
	if t.Fermentation != nil {
		out.Fermentation = *t.Fermentation
	}
	out.Preparation = firstNonEmpty(t.Preparation, r.Preparation)
	out.Portions = firstNonEmpty(t.Portions, r.Portions)
	out.Cooking = firstNonEmpty(t.Cooking, r.Cooking)
	out.TotalTime = firstNonEmpty(t.TotalTime, r.TotalTime)
	out.Images = mergeImages(r.Images, t.Images)
	out.TranslationStatus = t.TranslationStatus
	out.GermanShortName = r.ShortName

	return &out, nil
}

// Overlay applies the English translation on top of the German fields where it
// has content. Unlike Localize it never fails: a recipe without a translation
// is returned unchanged apart from GermanShortName.
func Overlay(r *model.Recipe) *model.Recipe {
	out := *r
	out.GermanShortName = r.ShortName

	t := r.Translations.EN
	if t == nil {
		return &out
	}

	out.Name = firstNonEmpty(t.Name, r.Name)
	out.Description = firstNonEmpty(t.Description, r.Description)
	out.Preamble = firstNonEmpty(t.Preamble, r.Preamble)
	out.Addendum = firstNonEmpty(t.Addendum, r.Addendum)
	out.Note = t.Note
	out.Category = firstNonEmpty(t.Category, r.Category)
	if len(t.Tags) > 0 {
		out.Tags = t.Tags
	}
	out.Portions = firstNonEmpty(t.Portions, r.Portions)
	out.Preparation = firstNonEmpty(t.Preparation, r.Preparation)
	out.Cooking = firstNonEmpty(t.Cooking, r.Cooking)
	out.TotalTime = firstNonEmpty(t.TotalTime, r.TotalTime)
	if t.Baking != nil {
		out.Baking = *t.Baking
	}
	if t.Fermentation != nil {
		out.Fermentation = *t.Fermentation
	}
	if len(t.Ingredients) > 0 {
		out.Ingredients = t.Ingredients
	}
	if len(t.Instructions) > 0 {
		out.Instructions = t.Instructions
	}
	if t.ShortName != "" {
		out.ShortName = t.ShortName
	}
	out.Images = mergeImages(r.Images, t.Images)
	return &out
}

// Brief projects a recipe into its list view for lang. The result carries at
// most the first image.
func Brief(r *model.Recipe, lang model.Lang) *model.BriefRecipe {
	b := &model.BriefRecipe{
		ID:           r.ID,
		Name:         r.Name,
		ShortName:    r.ShortName,
		Category:     r.Category,
		Icon:         r.Icon,
		Description:  r.Description,
		Tags:         nonNil(r.Tags),
		Season:       r.Season,
		DateModified: r.DateModified,
		Images:       firstImage(r.Images),
	}
	if b.Season == nil {
		b.Season = []int{}
	}

	if lang.IsEnglish() && r.Translations.EN != nil {
		t := r.Translations.EN
		b.Name = t.Name
		b.ShortName = t.ShortName
		b.Category = t.Category
		b.Description = t.Description
		b.Tags = nonNil(t.Tags)
		b.GermanShortName = r.ShortName
	}
	return b
}

// Briefs projects every recipe visible in lang. English lists contain
// approved translations only.
func Briefs(recipes []*model.Recipe, lang model.Lang) []*model.BriefRecipe {
	out := make([]*model.BriefRecipe, 0, len(recipes))
	for _, r := range recipes {
		if lang.IsEnglish() && !r.HasApprovedTranslation() {
			continue
		}
		out = append(out, Brief(r, lang))
	}
	return out
}

func firstImage(images []model.Image) []model.Image {
	if len(images) == 0 {
		return []model.Image{}
	}
	img := images[0]
	return []model.Image{{MediaPath: img.MediaPath, Alt: img.Alt, Color: img.Color}}
}

func mergeImages(images []model.Image, texts []model.ImageText) []model.Image {
	out := make([]model.Image, len(images))
	for i, img := range images {
		out[i] = model.Image{MediaPath: img.MediaPath, Alt: img.Alt, Caption: img.Caption, Color: img.Color}
		if i < len(texts) {
			out[i].Alt = firstNonEmpty(texts[i].Alt, img.Alt)
			out[i].Caption = firstNonEmpty(texts[i].Caption, img.Caption)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
