package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/actors/memory"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dummyTime = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

// recordingPublisher records the announced mutations.
type recordingPublisher struct {
	mu     sync.Mutex
	events []model.LifecycleEvent
}

func (p *recordingPublisher) record(kind model.EventKind, id uuid.UUID, recipe *model.Recipe) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, model.LifecycleEvent{Kind: kind, RecipeID: id, Recipe: recipe})
}

func (p *recordingPublisher) PublishCreated(ctx context.Context, recipe model.Recipe) {
	p.record(model.EventKindCreated, recipe.ID, &recipe)
}

func (p *recordingPublisher) PublishUpdated(ctx context.Context, recipe model.Recipe) {
	p.record(model.EventKindUpdated, recipe.ID, &recipe)
}

func (p *recordingPublisher) PublishPublished(ctx context.Context, recipe model.Recipe) {
	p.record(model.EventKindPublished, recipe.ID, &recipe)
}

func (p *recordingPublisher) PublishDeleted(ctx context.Context, recipeID uuid.UUID) {
	p.record(model.EventKindDeleted, recipeID, nil)
}

func (p *recordingPublisher) kinds() []model.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EventKind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

// fixture wires the use cases against the in-memory store.
type fixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	chefs     *ChefService
	social    *SocialService
	recipes   *RecipeService
	composer  *QueryComposer
	feed      *FeedAssembler
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{publisher: &recordingPublisher{}, clock: dummyTime}
	now := func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	f.store = memory.NewStore(memory.WithNowFunc(now))
	f.chefs = NewChefService(ChefServiceArgs{Chefs: f.store})
	f.social = NewSocialService(SocialServiceArgs{Chefs: f.store, Follows: f.store})
	f.recipes = NewRecipeService(RecipeServiceArgs{Recipes: f.store, Chefs: f.store, Publisher: f.publisher}, WithRecipeNowFunc(now))
	f.composer = NewQueryComposer(QueryComposerArgs{Recipes: f.store, Chefs: f.store})
	f.feed = NewFeedAssembler(FeedAssemblerArgs{Chefs: f.store, Follows: f.store, Composer: f.composer})
	return f
}

func (f *fixture) chef(t *testing.T, handle string) model.Chef {
	t.Helper()
	chef, err := f.chefs.RegisterChef(context.Background(), model.RegisterChefArgs{
		Handle: handle,
		Email:  handle + "@example.com",
		Name:   handle,
	})
	require.NoError(t, err)
	return *chef
}

func (f *fixture) draft(t *testing.T, author model.Chef, title string, ingredients ...string) model.Recipe {
	t.Helper()
	if len(ingredients) == 0 {
		ingredients = []string{"salt"}
	}
	recipe, err := f.recipes.CreateRecipe(context.Background(), model.CreateRecipeArgs{
		AuthorID:    author.ID,
		Title:       title,
		Ingredients: ingredients,
		Steps:       []string{"cook"},
	})
	require.NoError(t, err)
	return *recipe
}

func (f *fixture) published(t *testing.T, author model.Chef, title string, ingredients ...string) model.Recipe {
	t.Helper()
	draft := f.draft(t, author, title, ingredients...)
	recipe, err := f.recipes.PublishRecipe(context.Background(), model.PublishRecipeArgs{PrincipalID: author.ID, ID: draft.ID})
	require.NoError(t, err)
	return *recipe
}

func recipeIDs(recipes []model.Recipe) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.ID)
	}
	return ids
}

func errorIs(target error) assert.ErrorAssertionFunc {
	return func(t assert.TestingT, err error, msgAndArgs ...interface{}) bool {
		return assert.ErrorIs(t, err, target, msgAndArgs...)
	}
}
