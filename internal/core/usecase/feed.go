package usecase

import (
	"context"
	"fmt"

	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
)

// FeedAssemblerArgs contains the mandatory arguments for the FeedAssembler.
type FeedAssemblerArgs struct {
	// Chefs resolves the feed owner.
	Chefs ports.ChefRepository

	// Follows resolves the followed authors.
	Follows ports.FollowRepository

	// Composer runs the recipe query.
	Composer *QueryComposer
}

// NewFeedAssembler creates a new FeedAssembler.
func NewFeedAssembler(args FeedAssemblerArgs) *FeedAssembler {
	return &FeedAssembler{chefs: args.Chefs, follows: args.Follows, composer: args.Composer}
}

// FeedAssembler builds the personalized feed of a chef.
type FeedAssembler struct {
	chefs    ports.ChefRepository
	follows  ports.FollowRepository
	composer *QueryComposer
}

// FollowedFeed returns the published recipes of the chefs args.ChefID follows. A chef following
// nobody gets an empty page and the recipe store is not queried.
func (f *FeedAssembler) FollowedFeed(ctx context.Context, args model.FollowedFeedArgs) (*model.RecipePage, error) {
	req, err := model.PageRequest{Page: args.Page, Size: args.PageSize}.Normalize()
	if err != nil {
		return nil, err
	}
	if _, err := f.chefs.GetChef(ctx, args.ChefID); err != nil {
		return nil, fmt.Errorf("error loading chef [%s]: %w", args.ChefID, err)
	}

	following, err := f.follows.FollowingIDs(ctx, args.ChefID)
	if err != nil {
		return nil, fmt.Errorf("error resolving chefs followed by [%s]: %w", args.ChefID, err)
	}
	if len(following) == 0 {
		return model.EmptyRecipePage(req), nil
	}

	return f.composer.query(ctx, "feed", model.RecipeQuery{
		Filter: model.RecipeFilter{
			Status:  model.RecipeStatusPublished,
			Keyword: args.Keyword,
			Authors: model.OnlyAuthors(following...),
			Created: args.Created,
		},
		Page: req,
	})
}
