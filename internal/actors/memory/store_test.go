package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dummyTime = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(WithNowFunc(func() time.Time { return dummyTime }))
}

func mustSaveChef(t *testing.T, s *Store, handle string) model.Chef {
	t.Helper()
	chef := &model.Chef{Handle: handle, Email: handle + "@example.com", Name: handle}
	require.NoError(t, s.SaveChef(context.Background(), chef))
	return *chef
}

func mustSaveRecipe(t *testing.T, s *Store, recipe model.Recipe) model.Recipe {
	t.Helper()
	require.NoError(t, s.SaveRecipe(context.Background(), &recipe))
	return recipe
}

func TestStore_SaveChef(t *testing.T) {
	tests := []struct {
		name        string
		existing    []model.Chef
		input       model.Chef
		expectedErr assert.ErrorAssertionFunc
	}{
		{
			name:  "new chef gets an id",
			input: model.Chef{Handle: "ana", Email: "ana@example.com", Name: "Ana"},
		},
		{
			name:     "duplicate handle",
			existing: []model.Chef{{Handle: "ana", Email: "ana@example.com", Name: "Ana"}},
			input:    model.Chef{Handle: "ana", Email: "other@example.com", Name: "Other"},
			expectedErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, model.ErrConflict)
			},
		},
		{
			name:     "duplicate email",
			existing: []model.Chef{{Handle: "ana", Email: "ana@example.com", Name: "Ana"}},
			input:    model.Chef{Handle: "bob", Email: "ana@example.com", Name: "Bob"},
			expectedErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, model.ErrConflict)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := newTestStore(t)
			for i := range test.existing {
				require.NoError(t, s.SaveChef(context.Background(), &test.existing[i]))
			}
			err := s.SaveChef(context.Background(), &test.input)
			if test.expectedErr != nil {
				test.expectedErr(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, test.input.ID)
			assert.Equal(t, dummyTime, test.input.CreatedAt)

			got, err := s.GetChefByHandle(context.Background(), test.input.Handle)
			require.NoError(t, err)
			assert.Equal(t, test.input, *got)
		})
	}
}

func TestStore_MutateRecipe(t *testing.T) {
	s := newTestStore(t)
	author := mustSaveChef(t, s, "ana")
	recipe := mustSaveRecipe(t, s, model.Recipe{
		Title:       "Soup",
		Ingredients: []string{"water"},
		Steps:       []string{"boil"},
		Status:      model.RecipeStatusDraft,
		AuthorID:    author.ID,
	})
	require.Equal(t, int64(1), recipe.Version)

	t.Run("unchanged recipe keeps its version", func(t *testing.T) {
		got, err := s.MutateRecipe(context.Background(), recipe.ID, func(r *model.Recipe) (bool, error) {
			return false, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("changed recipe bumps its version", func(t *testing.T) {
		got, err := s.MutateRecipe(context.Background(), recipe.ID, func(r *model.Recipe) (bool, error) {
			r.Title = "Tomato soup"
			return true, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)

		stored, err := s.GetRecipe(context.Background(), recipe.ID)
		require.NoError(t, err)
		assert.Equal(t, "Tomato soup", stored.Title)
		assert.Equal(t, int64(2), stored.Version)
	})

	t.Run("mutation error aborts", func(t *testing.T) {
		_, err := s.MutateRecipe(context.Background(), recipe.ID, func(r *model.Recipe) (bool, error) {
			r.Title = "lost"
			return true, model.ErrForbidden
		})
		assert.ErrorIs(t, err, model.ErrForbidden)

		stored, err := s.GetRecipe(context.Background(), recipe.ID)
		require.NoError(t, err)
		assert.Equal(t, "Tomato soup", stored.Title)
	})

	t.Run("unknown recipe", func(t *testing.T) {
		_, err := s.MutateRecipe(context.Background(), uuid.New(), func(r *model.Recipe) (bool, error) {
			return true, nil
		})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestStore_DeleteRecipe(t *testing.T) {
	s := newTestStore(t)
	author := mustSaveChef(t, s, "ana")
	recipe := mustSaveRecipe(t, s, model.Recipe{Title: "Soup", AuthorID: author.ID, Status: model.RecipeStatusDraft})

	err := s.DeleteRecipe(context.Background(), recipe.ID, func(r *model.Recipe) error { return model.ErrForbidden })
	assert.ErrorIs(t, err, model.ErrForbidden)

	require.NoError(t, s.DeleteRecipe(context.Background(), recipe.ID, nil))
	_, err = s.GetRecipe(context.Background(), recipe.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = s.DeleteRecipe(context.Background(), recipe.ID, nil)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStore_ListRecipes(t *testing.T) {
	s := newTestStore(t)
	ana := mustSaveChef(t, s, "ana")
	bob := mustSaveChef(t, s, "bob")
	cake := mustSaveRecipe(t, s, model.Recipe{
		Title: "Chocolate Cake", Ingredients: []string{"cocoa"}, Steps: []string{"bake"},
		Status: model.RecipeStatusPublished, PublishedAt: dummyTime, AuthorID: ana.ID,
		CreatedAt: dummyTime.Add(-3 * time.Hour),
	})
	soup := mustSaveRecipe(t, s, model.Recipe{
		Title: "Soup", Ingredients: []string{"water"}, Steps: []string{"boil"},
		Status: model.RecipeStatusPublished, PublishedAt: dummyTime, AuthorID: bob.ID,
		CreatedAt: dummyTime.Add(-2 * time.Hour),
	})
	draft := mustSaveRecipe(t, s, model.Recipe{
		Title: "Secret chocolate", Ingredients: []string{"cocoa"}, Steps: []string{"mix"},
		Status: model.RecipeStatusDraft, AuthorID: ana.ID,
		CreatedAt: dummyTime.Add(-1 * time.Hour),
	})

	tests := []struct {
		name          string
		query         ports.ListRecipesQuery
		expectedIDs   []uuid.UUID
		expectedTotal int64
	}{
		{
			name:          "published newest first",
			query:         ports.ListRecipesQuery{Filter: model.RecipeFilter{Status: model.RecipeStatusPublished}, Limit: 10},
			expectedIDs:   []uuid.UUID{soup.ID, cake.ID},
			expectedTotal: 2,
		},
		{
			name:          "keyword is case-insensitive and skips drafts",
			query:         ports.ListRecipesQuery{Filter: model.RecipeFilter{Status: model.RecipeStatusPublished, Keyword: "CHOC"}, Limit: 10},
			expectedIDs:   []uuid.UUID{cake.ID},
			expectedTotal: 1,
		},
		{
			name:          "drafts of one author",
			query:         ports.ListRecipesQuery{Filter: model.RecipeFilter{Status: model.RecipeStatusDraft, Authors: model.OnlyAuthors(ana.ID)}, Limit: 10},
			expectedIDs:   []uuid.UUID{draft.ID},
			expectedTotal: 1,
		},
		{
			name:          "window keeps the total",
			query:         ports.ListRecipesQuery{Filter: model.RecipeFilter{Status: model.RecipeStatusPublished}, Limit: 1, Offset: 1},
			expectedIDs:   []uuid.UUID{cake.ID},
			expectedTotal: 2,
		},
		{
			name:          "offset past the end",
			query:         ports.ListRecipesQuery{Filter: model.RecipeFilter{Status: model.RecipeStatusPublished}, Limit: 10, Offset: 10},
			expectedIDs:   []uuid.UUID{},
			expectedTotal: 2,
		},
		{
			name:          "negative offset is an empty window",
			query:         ports.ListRecipesQuery{Filter: model.RecipeFilter{Status: model.RecipeStatusPublished}, Limit: 10, Offset: -20},
			expectedIDs:   []uuid.UUID{},
			expectedTotal: 2,
		},
		{
			name: "created range is half-open",
			query: ports.ListRecipesQuery{Filter: model.RecipeFilter{
				Status:  model.RecipeStatusPublished,
				Created: &model.TimeRange{From: dummyTime.Add(-3 * time.Hour), To: dummyTime.Add(-2 * time.Hour)},
			}, Limit: 10},
			expectedIDs:   []uuid.UUID{cake.ID},
			expectedTotal: 1,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res, err := s.ListRecipes(context.Background(), test.query)
			require.NoError(t, err)
			ids := make([]uuid.UUID, 0, len(res.Recipes))
			for _, r := range res.Recipes {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, test.expectedIDs, ids)
			assert.Equal(t, test.expectedTotal, res.Total)
		})
	}
}

func TestStore_Follow(t *testing.T) {
	s := newTestStore(t)
	ana := mustSaveChef(t, s, "ana")
	bob := mustSaveChef(t, s, "bob")
	ctx := context.Background()

	require.NoError(t, s.Follow(ctx, ana.ID, bob.ID))
	assert.ErrorIs(t, s.Follow(ctx, ana.ID, bob.ID), model.ErrAlreadyFollowing)
	assert.ErrorIs(t, s.Follow(ctx, ana.ID, uuid.New()), model.ErrNotFound)

	following, err := s.ListFollowing(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Chef{bob}, following)
	followers, err := s.ListFollowers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Chef{ana}, followers)

	require.NoError(t, s.Unfollow(ctx, ana.ID, bob.ID))
	assert.ErrorIs(t, s.Unfollow(ctx, ana.ID, bob.ID), model.ErrNotFollowing)

	ids, err := s.FollowingIDs(ctx, ana.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	ids, err = s.FollowerIDs(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
