package dto

import "github.com/homestead/homestead/internal/model"

// RecipeResponse is a full recipe with the scaling factor the page renders it at.
type RecipeResponse struct {
	*model.Recipe
	Multiplier float64 `json:"multiplier"`
}

// RecipeWriteRequest is the body of add, edit and delete. OldShortName
// addresses the stored recipe on edit and delete.
type RecipeWriteRequest struct {
	Recipe       *model.Recipe `json:"recipe"`
	OldShortName string        `json:"old_short_name,omitempty"`
}

// MessageResponse acknowledges a write without returning a resource.
type MessageResponse struct {
	Message string `json:"msg"`
}

// ReferencesResponse lists recipes that embed another recipe.
type ReferencesResponse struct {
	IsReferenced bool `json:"is_referenced"`
	References   any  `json:"references"`
}

// FavoriteRequest names a recipe by short name.
type FavoriteRequest struct {
	RecipeID string `json:"recipe_id"`
}

// FavoritesResponse lists the favorite recipe IDs of the user.
type FavoritesResponse struct {
	Favorites []string `json:"favorites"`
}

// FavoriteCheckResponse answers the favorite check.
type FavoriteCheckResponse struct {
	IsFavorite bool `json:"is_favorite"`
}

// ToTryRequest creates or patches a to-try entry. Absent fields are left
// unchanged on PATCH.
type ToTryRequest struct {
	ID    string             `json:"id,omitempty"`
	Name  *string            `json:"name,omitempty"`
	Links *[]model.ToTryLink `json:"links,omitempty"`
	Notes *string            `json:"notes,omitempty"`
}

// IDRequest addresses a resource by ID in the body.
type IDRequest struct {
	ID string `json:"id"`
}

// ImageAddRequest uploads a recipe image as base64 or data URL.
type ImageAddRequest struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// ImageMoveRequest renames a recipe image.
type ImageMoveRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// ImageDeleteRequest removes a recipe image.
type ImageDeleteRequest struct {
	Name string `json:"name"`
}
