package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
)

// RecipeMutation edits a recipe inside the store's unit of work. It returns whether the recipe
// was changed; an unchanged recipe is not written back. Returning an error aborts the unit of work.
type RecipeMutation func(recipe *model.Recipe) (bool, error)

// RecipeGuard inspects a recipe inside the store's unit of work before it is removed.
type RecipeGuard func(recipe *model.Recipe) error

// RecipeRepository is the persistence port for recipes.
type RecipeRepository interface {
	// SaveRecipe durably saves a new recipe at Version 1. A zero-valued ID or CreatedAt is filled in
	// by the store; UpdatedAt always is.
	SaveRecipe(ctx context.Context, recipe *model.Recipe) error

	// GetRecipe returns the recipe or model.ErrNotFound.
	GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error)

	// MutateRecipe runs mutation against the current recipe state in a single unit of work and
	// commits the result, bumping Version and UpdatedAt. It returns model.ErrNotFound if the recipe
	// does not exist and the error of mutation, if any, untouched.
	MutateRecipe(ctx context.Context, id uuid.UUID, mutation RecipeMutation) (*model.Recipe, error)

	// DeleteRecipe removes the recipe after guard accepted it, in a single unit of work.
	// It returns model.ErrNotFound if the recipe does not exist.
	DeleteRecipe(ctx context.Context, id uuid.UUID, guard RecipeGuard) error

	// ListRecipes returns the page of recipes matching the query, newest first, plus the total count.
	ListRecipes(ctx context.Context, query ListRecipesQuery) (*ListRecipesResult, error)
}

// ListRecipesQuery gathers the parameters of a recipe listing.
type ListRecipesQuery struct {
	// Filter is translated once into the store's native query.
	Filter model.RecipeFilter

	// Limit is the maximum amount of recipes to return.
	Limit int

	// Offset is the amount of matching recipes to skip.
	Offset int
}

// ListRecipesResult gathers the result of a recipe listing.
type ListRecipesResult struct {
	// Recipes are the recipes in the requested window.
	Recipes []model.Recipe

	// Total is the amount of recipes matching the filter regardless of the window.
	Total int64
}

// ChefRepository is the persistence port for chefs.
type ChefRepository interface {
	// SaveChef durably saves a new chef. A zero-valued ID is generated by the store.
	// It returns model.ErrConflict on duplicate id, handle or email.
	SaveChef(ctx context.Context, chef *model.Chef) error

	// GetChef returns the chef or model.ErrNotFound.
	GetChef(ctx context.Context, id uuid.UUID) (*model.Chef, error)

	// GetChefByHandle returns the chef or model.ErrNotFound.
	GetChefByHandle(ctx context.Context, handle string) (*model.Chef, error)
}

// FollowRepository stores the canonical follower -> followee edges.
type FollowRepository interface {
	// Follow inserts the edge. It returns model.ErrNotFound if either chef does not exist and
	// model.ErrAlreadyFollowing if the edge exists.
	Follow(ctx context.Context, followerID, followeeID uuid.UUID) error

	// Unfollow removes the edge. It returns model.ErrNotFound if either chef does not exist and
	// model.ErrNotFollowing if there is no edge.
	Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error

	// ListFollowing returns the chefs followed by chefID.
	ListFollowing(ctx context.Context, chefID uuid.UUID) ([]model.Chef, error)

	// ListFollowers returns the chefs following chefID.
	ListFollowers(ctx context.Context, chefID uuid.UUID) ([]model.Chef, error)

	// FollowingIDs returns the ids of the chefs followed by chefID.
	FollowingIDs(ctx context.Context, chefID uuid.UUID) ([]uuid.UUID, error)

	// FollowerIDs returns the ids of the chefs following chefID.
	FollowerIDs(ctx context.Context, chefID uuid.UUID) ([]uuid.UUID, error)
}

// Store bundles the persistence ports served by a single backend.
type Store interface {
	RecipeRepository
	ChefRepository
	FollowRepository
}
