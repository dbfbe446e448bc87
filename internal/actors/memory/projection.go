package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
)

var (
	_ ports.RecipeIndex = (*Index)(nil)
	_ ports.Notifier    = (*Notifier)(nil)
)

// IndexOptArgs are the optional arguments for building an Index.
type IndexOptArgs = func(*Index)

// WithTombstoneTTL sets how long removed recipes stay tombstoned.
func WithTombstoneTTL(ttl time.Duration) IndexOptArgs {
	return func(i *Index) {
		i.tombstoneTTL = ttl
	}
}

// WithIndexNowFunc can be used to override the clock of the tombstones. Useful for testing.
func WithIndexNowFunc(nowFunc func() time.Time) IndexOptArgs {
	return func(i *Index) {
		i.nowFunc = nowFunc
	}
}

// NewIndex creates an empty Index.
func NewIndex(optArgs ...IndexOptArgs) *Index {
	i := &Index{
		recipes:      make(map[uuid.UUID]model.Recipe),
		tombstones:   make(map[uuid.UUID]time.Time),
		tombstoneTTL: 7 * 24 * time.Hour,
		nowFunc:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range optArgs {
		opt(i)
	}
	return i
}

// Index is a process-local recipe projection keeping the highest version seen per recipe.
type Index struct {
	mu           sync.Mutex
	recipes      map[uuid.UUID]model.Recipe
	tombstones   map[uuid.UUID]time.Time
	tombstoneTTL time.Duration
	nowFunc      func() time.Time
}

// Upsert indexes the snapshot when it is newer than the indexed one.
func (i *Index) Upsert(ctx context.Context, recipe model.Recipe) (ports.UpsertOutcome, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if expiry, ok := i.tombstones[recipe.ID]; ok {
		if i.nowFunc().Before(expiry) {
			return ports.UpsertRemoved, nil
		}
		delete(i.tombstones, recipe.ID)
	}
	if current, ok := i.recipes[recipe.ID]; ok && current.Version >= recipe.Version {
		return ports.UpsertStale, nil
	}
	i.recipes[recipe.ID] = cloneRecipe(recipe)
	return ports.UpsertApplied, nil
}

// Remove drops the recipe and tombstones its id.
func (i *Index) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	_, existed := i.recipes[id]
	delete(i.recipes, id)
	i.tombstones[id] = i.nowFunc().Add(i.tombstoneTTL)
	return existed, nil
}

// Get returns the indexed snapshot.
func (i *Index) Get(id uuid.UUID) (model.Recipe, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	recipe, ok := i.recipes[id]
	return cloneRecipe(recipe), ok
}

// Len returns the amount of indexed recipes.
func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.recipes)
}

// NewNotifier creates a Notifier with empty inboxes.
func NewNotifier() *Notifier {
	return &Notifier{
		sent:    make(map[uuid.UUID]map[uuid.UUID]struct{}),
		inboxes: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Notifier appends recipe ids to in-process follower inboxes, once per recipe and follower.
type Notifier struct {
	mu      sync.Mutex
	sent    map[uuid.UUID]map[uuid.UUID]struct{}
	inboxes map[uuid.UUID][]uuid.UUID
}

// Notify delivers the recipe to followers not notified yet.
func (n *Notifier) Notify(ctx context.Context, recipe model.Recipe, followerIDs []uuid.UUID) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sent, ok := n.sent[recipe.ID]
	if !ok {
		sent = make(map[uuid.UUID]struct{})
		n.sent[recipe.ID] = sent
	}
	delivered := 0
	for _, follower := range followerIDs {
		if _, ok := sent[follower]; ok {
			continue
		}
		sent[follower] = struct{}{}
		n.inboxes[follower] = append(n.inboxes[follower], recipe.ID)
		delivered++
	}
	return delivered, nil
}

// Inbox returns the recipe ids delivered to the follower, oldest first.
func (n *Notifier) Inbox(followerID uuid.UUID) []uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]uuid.UUID, len(n.inboxes[followerID]))
	copy(out, n.inboxes[followerID])
	return out
}
