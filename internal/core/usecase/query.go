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
	"github.com/rbroggi/cookbook/internal/metrics"
)

// QueryComposerArgs contains the mandatory arguments for the QueryComposer.
type QueryComposerArgs struct {
	// Recipes is the repository serving recipe listings.
	Recipes ports.RecipeRepository

	// Chefs resolves author handles.
	Chefs ports.ChefRepository
}

// NewQueryComposer creates a new QueryComposer.
func NewQueryComposer(args QueryComposerArgs) *QueryComposer {
	return &QueryComposer{recipes: args.Recipes, chefs: args.Chefs}
}

// QueryComposer turns optional filters into a single page of visible recipes.
type QueryComposer struct {
	recipes ports.RecipeRepository
	chefs   ports.ChefRepository
}

// Query returns the page of recipes matching q, newest first.
func (c *QueryComposer) Query(ctx context.Context, q model.RecipeQuery) (*model.RecipePage, error) {
	return c.query(ctx, "query", q)
}

// PublicRecipes lists published recipes for anyone.
func (c *QueryComposer) PublicRecipes(ctx context.Context, args model.PublicRecipesArgs) (*model.RecipePage, error) {
	req := model.PageRequest{Page: args.Page, Size: args.PageSize}
	filter := model.RecipeFilter{
		Status:  model.RecipeStatusPublished,
		Keyword: args.Keyword,
		Created: args.Created,
	}

	if handle := strings.TrimSpace(args.ChefHandle); handle != "" {
		chef, err := c.chefs.GetChefByHandle(ctx, handle)
		switch {
		case errors.Is(err, model.ErrNotFound):
			page, err := req.Normalize()
			if err != nil {
				return nil, err
			}
			return model.EmptyRecipePage(page), nil
		case err != nil:
			return nil, fmt.Errorf("error resolving chef handle [%s]: %w", handle, err)
		}
		filter.Authors = model.OnlyAuthors(chef.ID)
	} else if args.ChefID != uuid.Nil {
		filter.Authors = model.OnlyAuthors(args.ChefID)
	}

	return c.query(ctx, "public", model.RecipeQuery{Filter: filter, Page: req})
}

// AuthorRecipes lists the recipes of the principal in the requested status, drafts included.
func (c *QueryComposer) AuthorRecipes(ctx context.Context, args model.AuthorRecipesArgs) (*model.RecipePage, error) {
	if args.PrincipalID == uuid.Nil {
		return nil, model.Invalid("principal is required")
	}
	return c.query(ctx, "author", model.RecipeQuery{
		Filter: model.RecipeFilter{
			Status:  args.Status,
			Keyword: args.Keyword,
			Authors: model.OnlyAuthors(args.PrincipalID),
			Created: args.Created,
		},
		Page: model.PageRequest{Page: args.Page, Size: args.PageSize},
	})
}

func (c *QueryComposer) query(ctx context.Context, path string, q model.RecipeQuery) (*model.RecipePage, error) {
	page, err := c.compose(ctx, path, q)
	switch {
	case err == nil:
		metrics.RecipeQueries.WithLabelValues(path, metrics.OutcomeOK).Inc()
	case isClientError(err):
		metrics.RecipeQueries.WithLabelValues(path, metrics.OutcomeReject).Inc()
	default:
		metrics.RecipeQueries.WithLabelValues(path, metrics.OutcomeError).Inc()
	}
	return page, err
}

func (c *QueryComposer) compose(ctx context.Context, path string, q model.RecipeQuery) (*model.RecipePage, error) {
	if !q.Filter.Status.Valid() {
		return nil, model.Invalid("status must be one of %s, %s", model.RecipeStatusDraft, model.RecipeStatusPublished)
	}
	req, err := q.Page.Normalize()
	if err != nil {
		return nil, err
	}
	if q.Filter.Authors.MatchesNothing() {
		return model.EmptyRecipePage(req), nil
	}
	if q.Filter.Created != nil && q.Filter.Created.Empty() {
		return model.EmptyRecipePage(req), nil
	}

	start := time.Now()
	res, err := c.recipes.ListRecipes(ctx, ports.ListRecipesQuery{
		Filter: q.Filter,
		Limit:  req.Size,
		Offset: req.Offset(),
	})
	metrics.RecipeQueryDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("error listing recipes on the repository: %w", err)
	}
	return model.NewRecipePage(res.Recipes, req, res.Total), nil
}
