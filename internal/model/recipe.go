// Package model defines domain entities for the application.
package model

import "time"

// Lang identifies the language route of the recipe section.
type Lang string

const (
	LangDE Lang = "rezepte"
	LangEN Lang = "recipes"
)

// ParseLang maps a route segment to a Lang.
func ParseLang(s string) (Lang, bool) {
	switch Lang(s) {
	case LangDE, LangEN:
		return Lang(s), true
	}
	return "", false
}

// IsEnglish reports whether the route serves translated content.
func (l Lang) IsEnglish() bool {
	return l == LangEN
}

// TranslationStatus tracks the review state of a recipe translation.
type TranslationStatus string

const (
	TranslationPending     TranslationStatus = "pending"
	TranslationApproved    TranslationStatus = "approved"
	TranslationNeedsUpdate TranslationStatus = "needs_update"
)

// SectionReference marks an ingredient or instruction section that embeds another recipe.
const SectionReference = "reference"

// Image is a recipe photo.
type Image struct {
	MediaPath string `json:"mediapath"`
	Alt       string `json:"alt,omitempty"`
	Caption   string `json:"caption,omitempty"`
	Color     string `json:"color,omitempty"`
}

// Baking holds oven settings.
type Baking struct {
	Temperature string `json:"temperature"`
	Length      string `json:"length"`
	Mode        string `json:"mode"`
}

// Fermentation holds dough resting times.
type Fermentation struct {
	Bulk  string `json:"bulk"`
	Final string `json:"final"`
}

// Ingredient is a single line in an ingredient list.
type Ingredient struct {
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Amount string `json:"amount"`
}

// IngredientSection groups ingredients under a heading.
type IngredientSection struct {
	Name           string       `json:"name"`
	Type           string       `json:"type,omitempty"`
	BaseRecipeRef  string       `json:"base_recipe_ref,omitempty"`
	List           []Ingredient `json:"list"`
	ResolvedRecipe *Recipe      `json:"resolved_recipe,omitempty"`
}

// InstructionSection groups steps under a heading.
type InstructionSection struct {
	Name           string   `json:"name"`
	Type           string   `json:"type,omitempty"`
	BaseRecipeRef  string   `json:"base_recipe_ref,omitempty"`
	Steps          []string `json:"steps"`
	ResolvedRecipe *Recipe  `json:"resolved_recipe,omitempty"`
}

// ImageText is the translatable part of an image.
type ImageText struct {
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// RecipeTranslation is the English overlay of a recipe.
type RecipeTranslation struct {
	ShortName         string               `json:"short_name"`
	Name              string               `json:"name"`
	Description       string               `json:"description"`
	Preamble          string               `json:"preamble,omitempty"`
	Addendum          string               `json:"addendum,omitempty"`
	Note              string               `json:"note,omitempty"`
	Category          string               `json:"category"`
	Tags              []string             `json:"tags,omitempty"`
	Ingredients       []IngredientSection  `json:"ingredients,omitempty"`
	Instructions      []InstructionSection `json:"instructions,omitempty"`
	Images            []ImageText          `json:"images,omitempty"`
	Baking            *Baking              `json:"baking,omitempty"`
	Fermentation      *Fermentation        `json:"fermentation,omitempty"`
	Preparation       string               `json:"preparation,omitempty"`
	Portions          string               `json:"portions,omitempty"`
	Cooking           string               `json:"cooking,omitempty"`
	TotalTime         string               `json:"total_time,omitempty"`
	TranslationStatus TranslationStatus    `json:"translation_status"`
	LastTranslated    *time.Time           `json:"last_translated,omitempty"`
	ChangedFields     []string             `json:"changed_fields,omitempty"`
}

// Translations holds all available overlays keyed by language.
type Translations struct {
	EN *RecipeTranslation `json:"en,omitempty"`
}

// Recipe is the full recipe document.
type Recipe struct {
	ID           string               `json:"id"`
	ShortName    string               `json:"short_name"`
	Name         string               `json:"name"`
	Category     string               `json:"category"`
	Icon         string               `json:"icon"`
	DateCreated  time.Time            `json:"date_created"`
	DateModified time.Time            `json:"date_modified"`
	Images       []Image              `json:"images"`
	Description  string               `json:"description"`
	Note         string               `json:"note,omitempty"`
	Tags         []string             `json:"tags"`
	Season       []int                `json:"season"`
	Baking       Baking               `json:"baking"`
	Preparation  string               `json:"preparation,omitempty"`
	Fermentation Fermentation         `json:"fermentation"`
	Portions     string               `json:"portions,omitempty"`
	Cooking      string               `json:"cooking,omitempty"`
	TotalTime    string               `json:"total_time,omitempty"`
	Ingredients  []IngredientSection  `json:"ingredients"`
	Instructions []InstructionSection `json:"instructions"`
	Preamble     string               `json:"preamble,omitempty"`
	Addendum     string               `json:"addendum,omitempty"`
	Translations Translations         `json:"translations"`

	// Set on English views only.
	TranslationStatus TranslationStatus `json:"translation_status,omitempty"`
	GermanShortName   string            `json:"german_short_name,omitempty"`
}

// InSeason reports whether the recipe is tagged for the given month.
func (r *Recipe) InSeason(month int) bool {
	for _, m := range r.Season {
		if m == month {
			return true
		}
	}
	return false
}

// EnglishShortName returns the translated short name, if any.
func (r *Recipe) EnglishShortName() string {
	if r.Translations.EN == nil {
		return ""
	}
	return r.Translations.EN.ShortName
}

// HasApprovedTranslation reports whether the English overlay may be served.
func (r *Recipe) HasApprovedTranslation() bool {
	return r.Translations.EN != nil && r.Translations.EN.TranslationStatus == TranslationApproved
}

// BriefRecipe is the list-view projection of a recipe.
type BriefRecipe struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	ShortName       string    `json:"short_name"`
	Category        string    `json:"category"`
	Icon            string    `json:"icon"`
	Description     string    `json:"description"`
	Tags            []string  `json:"tags"`
	Season          []int     `json:"season"`
	DateModified    time.Time `json:"date_modified"`
	Images          []Image   `json:"images,omitempty"`
	GermanShortName string    `json:"german_short_name,omitempty"`
}

// ToTryLink is a bookmark to a recipe found elsewhere.
type ToTryLink struct {
	URL   string `json:"url"`
	Label string `json:"label,omitempty"`
}

// ToTryRecipe is a recipe idea that has not been written up yet.
type ToTryRecipe struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Links     []ToTryLink `json:"links"`
	Notes     string      `json:"notes"`
	AddedBy   string      `json:"added_by"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OfflineDump is the full catalog snapshot served for offline use.
type OfflineDump struct {
	Brief    []*BriefRecipe `json:"brief"`
	BriefEN  []*BriefRecipe `json:"brief_en,omitempty"`
	Full     []*Recipe      `json:"full"`
	SyncedAt time.Time      `json:"synced_at"`
}
