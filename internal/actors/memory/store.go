// Package memory holds process-local adapters for the store, the projections and the broker.
// They back COOKBOOK_STORE=memory and COOKBOOK_BROKER=memory and the use-case tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
)

var _ ports.Store = (*Store)(nil)

// StoreOptArgs are the optional arguments for building a Store.
type StoreOptArgs = func(*Store)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) StoreOptArgs {
	return func(s *Store) {
		s.nowFunc = nowFunc
	}
}

// NewStore creates an empty Store.
func NewStore(optArgs ...StoreOptArgs) *Store {
	s := &Store{
		chefs:   make(map[uuid.UUID]model.Chef),
		recipes: make(map[uuid.UUID]model.Recipe),
		follows: make(map[edge]struct{}),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range optArgs {
		opt(s)
	}
	return s
}

type edge struct {
	follower uuid.UUID
	followee uuid.UUID
}

// Store keeps chefs, recipes and follow edges in maps guarded by a single lock.
// Every method is one unit of work.
type Store struct {
	mu      sync.RWMutex
	chefs   map[uuid.UUID]model.Chef
	recipes map[uuid.UUID]model.Recipe
	follows map[edge]struct{}
	nowFunc func() time.Time
}

// SaveChef stores a new chef.
func (s *Store) SaveChef(ctx context.Context, chef *model.Chef) error {
	if chef == nil {
		return fmt.Errorf("nil chef passed to save method")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if chef.ID == uuid.Nil {
		chef.ID = uuid.New()
	}
	if _, ok := s.chefs[chef.ID]; ok {
		return fmt.Errorf("%w: chef [%s] already exists", model.ErrConflict, chef.ID)
	}
	for _, existing := range s.chefs {
		if existing.Handle == chef.Handle {
			return fmt.Errorf("%w: handle [%s] is taken", model.ErrConflict, chef.Handle)
		}
		if existing.Email == chef.Email {
			return fmt.Errorf("%w: email [%s] is taken", model.ErrConflict, chef.Email)
		}
	}
	if chef.CreatedAt.IsZero() {
		chef.CreatedAt = s.nowFunc()
	}
	chef.UpdatedAt = s.nowFunc()
	s.chefs[chef.ID] = *chef
	return nil
}

// GetChef returns the chef or model.ErrNotFound.
func (s *Store) GetChef(ctx context.Context, id uuid.UUID) (*model.Chef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chef, ok := s.chefs[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &chef, nil
}

// GetChefByHandle returns the chef or model.ErrNotFound.
func (s *Store) GetChefByHandle(ctx context.Context, handle string) (*model.Chef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chef := range s.chefs {
		if chef.Handle == handle {
			c := chef
			return &c, nil
		}
	}
	return nil, model.ErrNotFound
}

// SaveRecipe stores a new recipe at version 1.
func (s *Store) SaveRecipe(ctx context.Context, recipe *model.Recipe) error {
	if recipe == nil {
		return fmt.Errorf("nil recipe passed to save method")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if recipe.ID == uuid.Nil {
		recipe.ID = uuid.New()
	}
	if _, ok := s.recipes[recipe.ID]; ok {
		return fmt.Errorf("%w: recipe [%s] already exists", model.ErrConflict, recipe.ID)
	}
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = s.nowFunc()
	}
	recipe.UpdatedAt = s.nowFunc()
	recipe.Version = 1
	s.recipes[recipe.ID] = cloneRecipe(*recipe)
	return nil
}

// GetRecipe returns the recipe or model.ErrNotFound.
func (s *Store) GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recipe, ok := s.recipes[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := cloneRecipe(recipe)
	return &out, nil
}

// MutateRecipe runs mutation under the store lock.
func (s *Store) MutateRecipe(ctx context.Context, id uuid.UUID, mutation ports.RecipeMutation) (*model.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.recipes[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	working := cloneRecipe(current)
	changed, err := mutation(&working)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &working, nil
	}
	working.ID = current.ID
	working.AuthorID = current.AuthorID
	working.CreatedAt = current.CreatedAt
	working.Version = current.Version + 1
	working.UpdatedAt = s.nowFunc()
	s.recipes[id] = cloneRecipe(working)
	return &working, nil
}

// DeleteRecipe removes the recipe once guard accepted it.
func (s *Store) DeleteRecipe(ctx context.Context, id uuid.UUID, guard ports.RecipeGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.recipes[id]
	if !ok {
		return model.ErrNotFound
	}
	if guard != nil {
		if err := guard(&current); err != nil {
			return err
		}
	}
	delete(s.recipes, id)
	return nil
}

// ListRecipes evaluates the filter against every recipe.
func (s *Store) ListRecipes(ctx context.Context, query ports.ListRecipesQuery) (*ports.ListRecipesResult, error) {
	s.mu.RLock()
	matching := make([]model.Recipe, 0)
	for _, recipe := range s.recipes {
		if query.Filter.Matches(recipe) {
			matching = append(matching, recipe)
		}
	}
	s.mu.RUnlock()

	model.SortRecipes(matching)
	total := int64(len(matching))

	start := query.Offset
	if start < 0 || start > len(matching) {
		start = len(matching)
	}
	end := len(matching)
	if query.Limit > 0 && start+query.Limit < end {
		end = start + query.Limit
	}
	window := make([]model.Recipe, 0, end-start)
	for _, recipe := range matching[start:end] {
		window = append(window, cloneRecipe(recipe))
	}
	return &ports.ListRecipesResult{Recipes: window, Total: total}, nil
}

// Follow inserts the follower -> followee edge.
func (s *Store) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireChefs(followerID, followeeID); err != nil {
		return err
	}
	e := edge{follower: followerID, followee: followeeID}
	if _, ok := s.follows[e]; ok {
		return model.ErrAlreadyFollowing
	}
	s.follows[e] = struct{}{}
	return nil
}

// Unfollow removes the follower -> followee edge.
func (s *Store) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireChefs(followerID, followeeID); err != nil {
		return err
	}
	e := edge{follower: followerID, followee: followeeID}
	if _, ok := s.follows[e]; !ok {
		return model.ErrNotFollowing
	}
	delete(s.follows, e)
	return nil
}

// ListFollowing returns the chefs followed by chefID, by handle.
func (s *Store) ListFollowing(ctx context.Context, chefID uuid.UUID) ([]model.Chef, error) {
	ids, err := s.FollowingIDs(ctx, chefID)
	if err != nil {
		return nil, err
	}
	return s.chefsByHandle(ids), nil
}

// ListFollowers returns the chefs following chefID, by handle.
func (s *Store) ListFollowers(ctx context.Context, chefID uuid.UUID) ([]model.Chef, error) {
	ids, err := s.FollowerIDs(ctx, chefID)
	if err != nil {
		return nil, err
	}
	return s.chefsByHandle(ids), nil
}

// FollowingIDs returns the ids of the chefs followed by chefID.
func (s *Store) FollowingIDs(ctx context.Context, chefID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0)
	for e := range s.follows {
		if e.follower == chefID {
			ids = append(ids, e.followee)
		}
	}
	return ids, nil
}

// FollowerIDs returns the ids of the chefs following chefID.
func (s *Store) FollowerIDs(ctx context.Context, chefID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0)
	for e := range s.follows {
		if e.followee == chefID {
			ids = append(ids, e.follower)
		}
	}
	return ids, nil
}

func (s *Store) requireChefs(ids ...uuid.UUID) error {
	for _, id := range ids {
		if _, ok := s.chefs[id]; !ok {
			return fmt.Errorf("chef [%s]: %w", id, model.ErrNotFound)
		}
	}
	return nil
}

func (s *Store) chefsByHandle(ids []uuid.UUID) []model.Chef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chefs := make([]model.Chef, 0, len(ids))
	for _, id := range ids {
		if chef, ok := s.chefs[id]; ok {
			chefs = append(chefs, chef)
		}
	}
	sort.Slice(chefs, func(i, j int) bool { return chefs[i].Handle < chefs[j].Handle })
	return chefs
}

func cloneRecipe(r model.Recipe) model.Recipe {
	r.Ingredients = cloneStrings(r.Ingredients)
	r.Steps = cloneStrings(r.Steps)
	r.Labels = cloneStrings(r.Labels)
	r.ImageURLs = cloneStrings(r.ImageURLs)
	return r
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
