package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
)

// lifecycleEventPublisher announces committed recipe mutations. Publishing never fails the caller.
type lifecycleEventPublisher interface {
	PublishCreated(ctx context.Context, recipe model.Recipe)
	PublishUpdated(ctx context.Context, recipe model.Recipe)
	PublishPublished(ctx context.Context, recipe model.Recipe)
	PublishDeleted(ctx context.Context, recipeID uuid.UUID)
}

// RecipeServiceArgs contains the mandatory arguments for the RecipeService.
type RecipeServiceArgs struct {
	// Recipes is the repository for recipe persistence operations.
	Recipes ports.RecipeRepository

	// Chefs is the repository used to resolve authors.
	Chefs ports.ChefRepository

	// Publisher announces every committed mutation.
	Publisher lifecycleEventPublisher
}

// RecipeServiceOptArgs are the optional arguments for building a RecipeService.
type RecipeServiceOptArgs = func(*RecipeService)

// WithRecipeNowFunc can be used to override the clock used for publication times. Useful for testing.
func WithRecipeNowFunc(nowFunc func() time.Time) RecipeServiceOptArgs {
	return func(s *RecipeService) {
		s.nowFunc = nowFunc
	}
}

// NewRecipeService creates a new RecipeService.
func NewRecipeService(args RecipeServiceArgs, optArgs ...RecipeServiceOptArgs) *RecipeService {
	s := &RecipeService{
		recipes:   args.Recipes,
		chefs:     args.Chefs,
		publisher: args.Publisher,
		nowFunc:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range optArgs {
		opt(s)
	}
	return s
}

// RecipeService gathers the write path of the recipe lifecycle.
type RecipeService struct {
	recipes   ports.RecipeRepository
	chefs     ports.ChefRepository
	publisher lifecycleEventPublisher
	nowFunc   func() time.Time
}

// CreateRecipe creates a draft recipe owned by args.AuthorID.
func (s *RecipeService) CreateRecipe(ctx context.Context, args model.CreateRecipeArgs) (*model.Recipe, error) {
	args.Title = strings.TrimSpace(args.Title)
	args.Summary = strings.TrimSpace(args.Summary)
	args.Ingredients = trimAll(args.Ingredients)
	args.Steps = trimAll(args.Steps)
	args.Labels = trimAll(args.Labels)
	if args.AuthorID == uuid.Nil {
		return nil, model.Invalid("author is required")
	}
	if err := validateArgs(args); err != nil {
		return nil, err
	}

	if _, err := s.chefs.GetChef(ctx, args.AuthorID); err != nil {
		return nil, fmt.Errorf("error loading author [%s]: %w", args.AuthorID, err)
	}

	recipe := &model.Recipe{
		Title:       args.Title,
		Summary:     args.Summary,
		Ingredients: args.Ingredients,
		Steps:       args.Steps,
		Labels:      nonNil(args.Labels),
		ImageURLs:   nonNil(args.ImageURLs),
		Status:      model.RecipeStatusDraft,
		AuthorID:    args.AuthorID,
	}
	if err := s.recipes.SaveRecipe(ctx, recipe); err != nil {
		return nil, fmt.Errorf("error saving recipe in repository: %w", err)
	}

	s.publisher.PublishCreated(ctx, *recipe)
	return recipe, nil
}

// UpdateRecipe replaces the content of a recipe. Only its author may update it.
func (s *RecipeService) UpdateRecipe(ctx context.Context, args model.UpdateRecipeArgs) (*model.Recipe, error) {
	args.Title = strings.TrimSpace(args.Title)
	args.Summary = strings.TrimSpace(args.Summary)
	args.Ingredients = trimAll(args.Ingredients)
	args.Steps = trimAll(args.Steps)
	args.Labels = trimAll(args.Labels)
	if err := validateArgs(args); err != nil {
		return nil, err
	}

	recipe, err := s.recipes.MutateRecipe(ctx, args.ID, func(r *model.Recipe) (bool, error) {
		if r.AuthorID != args.PrincipalID {
			return false, model.ErrForbidden
		}
		r.Title = args.Title
		r.Summary = args.Summary
		r.Ingredients = args.Ingredients
		r.Steps = args.Steps
		r.Labels = nonNil(args.Labels)
		if args.ImageURLs != nil {
			r.ImageURLs = args.ImageURLs
		}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error updating recipe [%s]: %w", args.ID, err)
	}

	s.publisher.PublishUpdated(ctx, *recipe)
	return recipe, nil
}

// PublishRecipe moves a draft to PUBLISHED. Publishing an already published recipe leaves it
// untouched, PublishedAt included, but still announces it.
func (s *RecipeService) PublishRecipe(ctx context.Context, args model.PublishRecipeArgs) (*model.Recipe, error) {
	recipe, err := s.recipes.MutateRecipe(ctx, args.ID, func(r *model.Recipe) (bool, error) {
		if r.AuthorID != args.PrincipalID {
			return false, model.ErrForbidden
		}
		if r.IsPublished() {
			return false, nil
		}
		r.Status = model.RecipeStatusPublished
		r.PublishedAt = s.nowFunc()
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error publishing recipe [%s]: %w", args.ID, err)
	}

	s.publisher.PublishPublished(ctx, *recipe)
	return recipe, nil
}

// DeleteRecipe removes a recipe. Only its author may delete it.
func (s *RecipeService) DeleteRecipe(ctx context.Context, args model.DeleteRecipeArgs) error {
	err := s.recipes.DeleteRecipe(ctx, args.ID, func(r *model.Recipe) error {
		if r.AuthorID != args.PrincipalID {
			return model.ErrForbidden
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error deleting recipe [%s]: %w", args.ID, err)
	}

	s.publisher.PublishDeleted(ctx, args.ID)
	return nil
}

// GetRecipe returns a recipe visible to the principal. Drafts are only visible to their author;
// anyone else gets model.ErrNotFound.
func (s *RecipeService) GetRecipe(ctx context.Context, args model.GetRecipeArgs) (*model.Recipe, error) {
	recipe, err := s.recipes.GetRecipe(ctx, args.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading recipe [%s]: %w", args.ID, err)
	}
	if !recipe.IsPublished() && recipe.AuthorID != args.PrincipalID {
		return nil, fmt.Errorf("error loading recipe [%s]: %w", args.ID, model.ErrNotFound)
	}
	return recipe, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// isClientError tells whether err is the caller's fault rather than an infrastructure failure.
func isClientError(err error) bool {
	return errors.Is(err, model.ErrValidation) ||
		errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrForbidden) ||
		errors.Is(err, model.ErrConflict)
}
