package model

import (
	"github.com/google/uuid"
)

// RegisterChefArgs contain the arguments of the RegisterChef method.
type RegisterChefArgs struct {
	// ID is the principal id issued by the identity provider. Zero-value will generate a new id.
	ID uuid.UUID

	// Handle is the unique public handle.
	Handle string `validate:"required,max=64"`

	// Email is the unique email.
	Email string `validate:"required,email"`

	// Name is the display name.
	Name string `validate:"required,max=255"`
}

// CreateRecipeArgs contain the arguments of the CreateRecipe method.
type CreateRecipeArgs struct {
	// AuthorID is the authenticated principal creating the recipe.
	AuthorID uuid.UUID

	Title       string   `validate:"required,max=255"`
	Summary     string   `validate:"max=1000"`
	Ingredients []string `validate:"required,min=1,dive,required"`
	Steps       []string `validate:"required,min=1,dive,required"`
	Labels      []string `validate:"dive,required"`
	ImageURLs   []string `validate:"dive,url"`
}

// UpdateRecipeArgs contain the arguments of the UpdateRecipe method.
type UpdateRecipeArgs struct {
	// PrincipalID is the authenticated chef issuing the update.
	PrincipalID uuid.UUID

	// ID is the id of the recipe to be updated.
	ID uuid.UUID

	Title       string   `validate:"required,max=255"`
	Summary     string   `validate:"max=1000"`
	Ingredients []string `validate:"required,min=1,dive,required"`
	Steps       []string `validate:"required,min=1,dive,required"`
	Labels      []string `validate:"dive,required"`

	// ImageURLs replaces the recipe images when non-nil.
	ImageURLs []string `validate:"dive,url"`
}

// PublishRecipeArgs contain the arguments of the PublishRecipe method.
type PublishRecipeArgs struct {
	PrincipalID uuid.UUID
	ID          uuid.UUID
}

// DeleteRecipeArgs contain the arguments of the DeleteRecipe method.
type DeleteRecipeArgs struct {
	PrincipalID uuid.UUID
	ID          uuid.UUID
}

// GetRecipeArgs contain the arguments of the GetRecipe method.
type GetRecipeArgs struct {
	// PrincipalID is the chef reading the recipe. Zero-value stands for an anonymous reader.
	PrincipalID uuid.UUID
	ID          uuid.UUID
}

// PublicRecipesArgs contain the arguments for the public listing of published recipes.
type PublicRecipesArgs struct {
	// Keyword is matched against title, summary, ingredients and steps. Blank is ignored.
	Keyword string

	// Created restricts the creation time of the recipes. Nil is ignored.
	Created *TimeRange

	// ChefID restricts the listing to one author. Zero-value will be ignored as filter.
	ChefID uuid.UUID

	// ChefHandle restricts the listing to the author with that handle. It takes precedence over ChefID.
	// An unknown handle yields an empty page.
	ChefHandle string

	Page     int
	PageSize int
}

// AuthorRecipesArgs contain the arguments for a chef listing its own recipes.
type AuthorRecipesArgs struct {
	PrincipalID uuid.UUID
	Status      RecipeStatus
	Keyword     string
	Created     *TimeRange
	Page        int
	PageSize    int
}

// FollowedFeedArgs contain the arguments of the FollowedFeed method.
type FollowedFeedArgs struct {
	// ChefID is the chef whose feed is assembled.
	ChefID   uuid.UUID
	Keyword  string
	Created  *TimeRange
	Page     int
	PageSize int
}

// FollowArgs contain the arguments of Follow and Unfollow.
type FollowArgs struct {
	// FollowerID is the chef following.
	FollowerID uuid.UUID

	// FolloweeID is the chef being followed.
	FolloweeID uuid.UUID
}
