package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/actors/memory"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFeedAssembler_FollowedFeed(t *testing.T) {
	f := newFixture(t)
	follower := f.chef(t, "fran")
	ana := f.chef(t, "ana")
	bob := f.chef(t, "bob")
	ctx := context.Background()
	require.NoError(t, f.social.Follow(ctx, model.FollowArgs{FollowerID: follower.ID, FolloweeID: ana.ID}))

	first := f.published(t, ana, "Bread", "flour")
	f.draft(t, ana, "Unfinished bread", "flour")
	second := f.published(t, ana, "Chocolate bread", "flour", "cocoa")
	f.published(t, bob, "Bob's bread", "flour")

	tests := []struct {
		name          string
		args          model.FollowedFeedArgs
		expectedErr   assert.ErrorAssertionFunc
		expectedIDs   []uuid.UUID
		expectedTotal int64
	}{
		{
			name:          "published recipes of followed chefs, newest first",
			args:          model.FollowedFeedArgs{ChefID: follower.ID, PageSize: 10},
			expectedIDs:   []uuid.UUID{second.ID, first.ID},
			expectedTotal: 2,
		},
		{
			name:          "keyword",
			args:          model.FollowedFeedArgs{ChefID: follower.ID, Keyword: "choc", PageSize: 10},
			expectedIDs:   []uuid.UUID{second.ID},
			expectedTotal: 1,
		},
		{
			name: "created range",
			args: model.FollowedFeedArgs{
				ChefID:   follower.ID,
				Created:  &model.TimeRange{From: model.MinTime, To: second.CreatedAt},
				PageSize: 10,
			},
			expectedIDs:   []uuid.UUID{first.ID},
			expectedTotal: 1,
		},
		{
			name:        "unknown chef",
			args:        model.FollowedFeedArgs{ChefID: uuid.New(), PageSize: 10},
			expectedErr: errorIs(model.ErrNotFound),
		},
		{
			name:        "zero page size",
			args:        model.FollowedFeedArgs{ChefID: follower.ID},
			expectedErr: errorIs(model.ErrValidation),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			page, err := f.feed.FollowedFeed(ctx, test.args)
			if test.expectedErr != nil {
				test.expectedErr(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expectedIDs, recipeIDs(page.Content))
			assert.Equal(t, test.expectedTotal, page.TotalElements)
		})
	}
}

func TestFeedAssembler_FollowedFeedFollowingNobody(t *testing.T) {
	store := memory.NewStore()
	loner := &model.Chef{Handle: "loner", Email: "loner@example.com", Name: "Loner"}
	require.NoError(t, store.SaveChef(context.Background(), loner))

	repo := &MockRecipeRepository{}
	feed := NewFeedAssembler(FeedAssemblerArgs{
		Chefs:    store,
		Follows:  store,
		Composer: NewQueryComposer(QueryComposerArgs{Recipes: repo, Chefs: store}),
	})

	page, err := feed.FollowedFeed(context.Background(), model.FollowedFeedArgs{ChefID: loner.ID, Page: 3, PageSize: 80})
	require.NoError(t, err)
	assert.Equal(t, &model.RecipePage{Content: []model.Recipe{}, Page: 3, Size: model.MaxPageSize}, page)
	repo.AssertNotCalled(t, "ListRecipes", mock.Anything, mock.Anything)
}
