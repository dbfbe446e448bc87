package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rbroggi/cookbook/db"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
	"github.com/rbroggi/cookbook/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type PostgresDBTestSuite struct {
	suite.Suite
	db              *pg.DB
	postgresAdapter *PostgresDB
}

var (
	dummyTime = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

	alice = &model.Chef{ID: uuid.MustParse("3b3e9e2a-13d5-4a68-b5c5-8e60a5b5d5de"), Handle: "alice", Email: "alice@example.com", Name: "Alice"}
	bob   = &model.Chef{ID: uuid.MustParse("3b3e9e2a-13d5-4a68-b5c5-8e60a5b5d5df"), Handle: "bob", Email: "bob@example.com", Name: "Bob"}
	carol = &model.Chef{ID: uuid.MustParse("3b3e9e2a-13d5-4a68-b5c5-8e60a5b5d5e0"), Handle: "carol", Email: "carol@example.com", Name: "Carol"}
)

func TestPostgresDBTestSuite(t *testing.T) {
	suite.Run(t, new(PostgresDBTestSuite))
}

func (suite *PostgresDBTestSuite) SetupSuite() {
	url := testhelpers.PostgresURL(suite.T())

	sqlDB, err := sql.Open("postgres", url)
	suite.Require().NoError(err)
	suite.Require().NoError(db.Migrate(sqlDB, false))
	suite.Require().NoError(sqlDB.Close())

	pgDB, err := Connect(context.Background(), url)
	suite.Require().NoError(err)
	adapter, err := NewPostgresDB(PostgresDBArgs{DB: pgDB}, WithNowFunc(func() time.Time { return dummyTime }))
	suite.Require().NoError(err)
	suite.postgresAdapter = adapter
	suite.db = pgDB
}

func (suite *PostgresDBTestSuite) SetupTest() {
	_, err := suite.db.Exec("TRUNCATE TABLE cookbook.chef_follows, cookbook.recipes, cookbook.chefs")
	suite.Require().NoError(err)
	for _, chef := range []*model.Chef{alice, bob, carol} {
		c := *chef
		suite.Require().NoError(suite.postgresAdapter.SaveChef(context.Background(), &c))
	}
}

func (suite *PostgresDBTestSuite) TearDownSuite() {
	if suite.db != nil {
		suite.Require().NoError(suite.db.Close())
	}
}

func (suite *PostgresDBTestSuite) recipe(author *model.Chef, title string, status model.RecipeStatus, createdAt time.Time, ingredients ...string) *model.Recipe {
	if len(ingredients) == 0 {
		ingredients = []string{"water"}
	}
	r := &model.Recipe{
		Title:       title,
		Ingredients: ingredients,
		Steps:       []string{"cook it"},
		Status:      status,
		AuthorID:    author.ID,
		CreatedAt:   createdAt,
	}
	if status == model.RecipeStatusPublished {
		r.PublishedAt = createdAt
	}
	suite.Require().NoError(suite.postgresAdapter.SaveRecipe(context.Background(), r))
	return r
}

func (suite *PostgresDBTestSuite) TestSaveChef() {
	tests := []struct {
		name        string
		input       *model.Chef
		expectedErr assert.ErrorAssertionFunc
	}{
		{
			name:  "insert new chef with generated id",
			input: &model.Chef{Handle: "dave", Email: "dave@example.com", Name: "Dave"},
		},
		{
			name:  "duplicate handle",
			input: &model.Chef{Handle: "alice", Email: "other@example.com"},
			expectedErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, model.ErrConflict)
			},
		},
		{
			name:  "duplicate email",
			input: &model.Chef{Handle: "other", Email: "bob@example.com"},
			expectedErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, model.ErrConflict)
			},
		},
	}

	for _, test := range tests {
		suite.Run(test.name, func() {
			err := suite.postgresAdapter.SaveChef(context.Background(), test.input)
			if test.expectedErr != nil {
				test.expectedErr(suite.T(), err)
				return
			}
			suite.Require().NoError(err)
			suite.NotEqual(uuid.Nil, test.input.ID)
			got, err := suite.postgresAdapter.GetChefByHandle(context.Background(), test.input.Handle)
			suite.Require().NoError(err)
			suite.Equal(test.input.ID, got.ID)
			suite.Equal(test.input.Email, got.Email)
			suite.Equal(dummyTime, got.CreatedAt)
		})
	}
}

func (suite *PostgresDBTestSuite) TestGetChef_NotFound() {
	_, err := suite.postgresAdapter.GetChef(context.Background(), uuid.New())
	suite.ErrorIs(err, model.ErrNotFound)
	_, err = suite.postgresAdapter.GetChefByHandle(context.Background(), "nobody")
	suite.ErrorIs(err, model.ErrNotFound)
}

func (suite *PostgresDBTestSuite) TestSaveAndGetRecipe() {
	ctx := context.Background()
	draft := suite.recipe(alice, "Tomato Soup", model.RecipeStatusDraft, dummyTime, "tomato", "salt")

	got, err := suite.postgresAdapter.GetRecipe(ctx, draft.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), got.Version)
	suite.Equal([]string{"tomato", "salt"}, got.Ingredients)
	suite.Equal([]string{}, got.Labels)
	suite.True(got.PublishedAt.IsZero())
	suite.Equal(alice.ID, got.AuthorID)

	_, err = suite.postgresAdapter.GetRecipe(ctx, uuid.New())
	suite.ErrorIs(err, model.ErrNotFound)

	err = suite.postgresAdapter.SaveRecipe(ctx, &model.Recipe{
		Title: "orphan", Ingredients: []string{"x"}, Steps: []string{"y"},
		Status: model.RecipeStatusDraft, AuthorID: uuid.New(),
	})
	suite.ErrorIs(err, model.ErrNotFound)
}

func (suite *PostgresDBTestSuite) TestMutateRecipe() {
	ctx := context.Background()
	r := suite.recipe(alice, "Soup", model.RecipeStatusDraft, dummyTime)

	tests := []struct {
		name            string
		id              uuid.UUID
		mutation        ports.RecipeMutation
		expectedErr     assert.ErrorAssertionFunc
		expectedVersion int64
		expectedTitle   string
	}{
		{
			name: "changed recipe bumps version",
			id:   r.ID,
			mutation: func(recipe *model.Recipe) (bool, error) {
				recipe.Title = "Better Soup"
				recipe.AuthorID = bob.ID
				return true, nil
			},
			expectedVersion: 2,
			expectedTitle:   "Better Soup",
		},
		{
			name:            "unchanged recipe keeps version",
			id:              r.ID,
			mutation:        func(*model.Recipe) (bool, error) { return false, nil },
			expectedVersion: 2,
			expectedTitle:   "Better Soup",
		},
		{
			name: "mutation error aborts",
			id:   r.ID,
			mutation: func(recipe *model.Recipe) (bool, error) {
				recipe.Title = "lost"
				return true, model.ErrForbidden
			},
			expectedErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, model.ErrForbidden)
			},
			expectedVersion: 2,
			expectedTitle:   "Better Soup",
		},
		{
			name:     "unknown recipe",
			id:       uuid.New(),
			mutation: func(*model.Recipe) (bool, error) { return true, nil },
			expectedErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, model.ErrNotFound)
			},
			expectedVersion: 2,
			expectedTitle:   "Better Soup",
		},
	}

	for _, test := range tests {
		suite.Run(test.name, func() {
			_, err := suite.postgresAdapter.MutateRecipe(ctx, test.id, test.mutation)
			if test.expectedErr != nil {
				test.expectedErr(suite.T(), err)
			} else {
				suite.Require().NoError(err)
			}
			got, err := suite.postgresAdapter.GetRecipe(ctx, r.ID)
			suite.Require().NoError(err)
			suite.Equal(test.expectedVersion, got.Version)
			suite.Equal(test.expectedTitle, got.Title)
			suite.Equal(alice.ID, got.AuthorID)
		})
	}
}

func (suite *PostgresDBTestSuite) TestDeleteRecipe() {
	ctx := context.Background()
	r := suite.recipe(alice, "Soup", model.RecipeStatusDraft, dummyTime)

	err := suite.postgresAdapter.DeleteRecipe(ctx, r.ID, func(*model.Recipe) error { return model.ErrForbidden })
	suite.ErrorIs(err, model.ErrForbidden)
	_, err = suite.postgresAdapter.GetRecipe(ctx, r.ID)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.postgresAdapter.DeleteRecipe(ctx, r.ID, nil))
	_, err = suite.postgresAdapter.GetRecipe(ctx, r.ID)
	suite.ErrorIs(err, model.ErrNotFound)

	suite.ErrorIs(suite.postgresAdapter.DeleteRecipe(ctx, r.ID, nil), model.ErrNotFound)
}

func (suite *PostgresDBTestSuite) TestListRecipes() {
	soup := suite.recipe(alice, "Tomato Soup", model.RecipeStatusPublished, dummyTime.Add(-3*time.Hour), "tomato")
	pie := suite.recipe(alice, "Apple Pie", model.RecipeStatusPublished, dummyTime.Add(-2*time.Hour), "apple", "100% butter")
	salad := suite.recipe(bob, "Salad", model.RecipeStatusPublished, dummyTime.Add(-1*time.Hour), "Tomato", "lettuce")
	suite.recipe(bob, "Secret Soup", model.RecipeStatusDraft, dummyTime, "tomato")

	tests := []struct {
		name          string
		query         ports.ListRecipesQuery
		expectedIDs   []uuid.UUID
		expectedTotal int64
	}{
		{
			name:          "published newest first",
			query:         ports.ListRecipesQuery{Filter: model.RecipeFilter{Status: model.RecipeStatusPublished}, Limit: 10},
			expectedIDs:   []uuid.UUID{salad.ID, pie.ID, soup.ID},
			expectedTotal: 3,
		},
		{
			name:          "keyword matches title or ingredient case-insensitively",
			query:         ports.ListRecipesQuery{Filter: model.RecipeFilter{Status: model.RecipeStatusPublished, Keyword: " TOMATO "}, Limit: 10},
			expectedIDs:   []uuid.UUID{salad.ID, soup.ID},
			expectedTotal: 2,
		},
		{
			name:          "keyword wildcard characters are literal",
			query:         ports.ListRecipesQuery{Filter: model.RecipeFilter{Status: model.RecipeStatusPublished, Keyword: "100%"}, Limit: 10},
			expectedIDs:   []uuid.UUID{pie.ID},
			expectedTotal: 1,
		},
		{
			name:          "authors restriction",
			query:         ports.ListRecipesQuery{Filter: model.RecipeFilter{Status: model.RecipeStatusPublished, Authors: model.OnlyAuthors(alice.ID)}, Limit: 10},
			expectedIDs:   []uuid.UUID{pie.ID, soup.ID},
			expectedTotal: 2,
		},
		{
			name: "creation range is half-open",
			query: ports.ListRecipesQuery{Filter: model.RecipeFilter{
				Status:  model.RecipeStatusPublished,
				Created: &model.TimeRange{From: dummyTime.Add(-2 * time.Hour), To: dummyTime.Add(-1 * time.Hour)},
			}, Limit: 10},
			expectedIDs:   []uuid.UUID{pie.ID},
			expectedTotal: 1,
		},
		{
			name:          "window keeps total",
			query:         ports.ListRecipesQuery{Filter: model.RecipeFilter{Status: model.RecipeStatusPublished}, Limit: 1, Offset: 1},
			expectedIDs:   []uuid.UUID{pie.ID},
			expectedTotal: 3,
		},
		{
			name:          "drafts",
			query:         ports.ListRecipesQuery{Filter: model.RecipeFilter{Status: model.RecipeStatusDraft, Authors: model.OnlyAuthors(bob.ID)}, Limit: 10},
			expectedTotal: 1,
		},
	}

	for _, test := range tests {
		suite.Run(test.name, func() {
			res, err := suite.postgresAdapter.ListRecipes(context.Background(), test.query)
			suite.Require().NoError(err)
			suite.Equal(test.expectedTotal, res.Total)
			if test.expectedIDs != nil {
				ids := make([]uuid.UUID, len(res.Recipes))
				for i, r := range res.Recipes {
					ids[i] = r.ID
				}
				suite.Equal(test.expectedIDs, ids)
			}
		})
	}
}

func (suite *PostgresDBTestSuite) TestFollows() {
	ctx := context.Background()

	suite.Require().NoError(suite.postgresAdapter.Follow(ctx, alice.ID, bob.ID))
	suite.Require().NoError(suite.postgresAdapter.Follow(ctx, carol.ID, bob.ID))
	suite.Require().NoError(suite.postgresAdapter.Follow(ctx, alice.ID, carol.ID))

	suite.ErrorIs(suite.postgresAdapter.Follow(ctx, alice.ID, bob.ID), model.ErrAlreadyFollowing)
	suite.ErrorIs(suite.postgresAdapter.Follow(ctx, alice.ID, uuid.New()), model.ErrNotFound)
	suite.ErrorIs(suite.postgresAdapter.Follow(ctx, alice.ID, alice.ID), model.ErrSelfFollow)

	following, err := suite.postgresAdapter.ListFollowing(ctx, alice.ID)
	suite.Require().NoError(err)
	suite.Require().Len(following, 2)
	suite.Equal("bob", following[0].Handle)
	suite.Equal("carol", following[1].Handle)

	followers, err := suite.postgresAdapter.ListFollowers(ctx, bob.ID)
	suite.Require().NoError(err)
	suite.Require().Len(followers, 2)
	suite.Equal("alice", followers[0].Handle)

	ids, err := suite.postgresAdapter.FollowerIDs(ctx, bob.ID)
	suite.Require().NoError(err)
	suite.ElementsMatch([]uuid.UUID{alice.ID, carol.ID}, ids)

	suite.Require().NoError(suite.postgresAdapter.Unfollow(ctx, alice.ID, bob.ID))
	suite.ErrorIs(suite.postgresAdapter.Unfollow(ctx, alice.ID, bob.ID), model.ErrNotFollowing)

	ids, err = suite.postgresAdapter.FollowingIDs(ctx, alice.ID)
	suite.Require().NoError(err)
	suite.Equal([]uuid.UUID{carol.ID}, ids)

	none, err := suite.postgresAdapter.ListFollowing(ctx, bob.ID)
	suite.Require().NoError(err)
	suite.Empty(none)
}
