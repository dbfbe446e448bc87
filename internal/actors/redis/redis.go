// Package redis holds the Redis projections fed by the lifecycle event consumer: the recipe
// index and the follower inboxes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultNamespace    = "cookbook"
	defaultTombstoneTTL = 7 * 24 * time.Hour
	defaultDedupTTL     = 30 * 24 * time.Hour
	defaultInboxSize    = 500
)

var (
	_ ports.RecipeIndex = (*Index)(nil)
	_ ports.Notifier    = (*Notifier)(nil)
)

// KEYS: recipe hash, tombstone, published sorted set.
// ARGV: version, document, status, score, recipe id.
// Returns 0 when applied, 1 when stale, 2 when removed.
var upsertScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 2
end
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return 1
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'doc', ARGV[2])
if ARGV[3] == 'PUBLISHED' then
	redis.call('ZADD', KEYS[3], ARGV[4], ARGV[5])
else
	redis.call('ZREM', KEYS[3], ARGV[5])
end
return 0
`)

// KEYS: recipe hash, tombstone, published sorted set.
// ARGV: tombstone ttl in seconds, recipe id.
var removeScript = goredis.NewScript(`
redis.call('SET', KEYS[2], '1', 'EX', ARGV[1])
redis.call('ZREM', KEYS[3], ARGV[2])
return redis.call('DEL', KEYS[1])
`)

// KEYS: dedup marker, inbox list.
// ARGV: dedup ttl in seconds, recipe id, inbox size.
var notifyScript = goredis.NewScript(`
if not redis.call('SET', KEYS[1], '1', 'NX', 'EX', ARGV[1]) then
	return 0
end
redis.call('LPUSH', KEYS[2], ARGV[2])
redis.call('LTRIM', KEYS[2], 0, tonumber(ARGV[3]) - 1)
return 1
`)

// Option is a functional option shared by the Index and the Notifier.
type Option func(*options)

type options struct {
	namespace    string
	tombstoneTTL time.Duration
	dedupTTL     time.Duration
	inboxSize    int
}

// WithNamespace sets the key namespace prefix.
func WithNamespace(ns string) Option {
	return func(o *options) {
		if ns != "" {
			o.namespace = ns
		}
	}
}

// WithTombstoneTTL sets how long removed recipes stay tombstoned.
func WithTombstoneTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl >= time.Second {
			o.tombstoneTTL = ttl
		}
	}
}

// WithDedupTTL sets how long a delivered notification is remembered.
func WithDedupTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl >= time.Second {
			o.dedupTTL = ttl
		}
	}
}

// WithInboxSize caps the amount of notifications kept per follower.
func WithInboxSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.inboxSize = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		namespace:    defaultNamespace,
		tombstoneTTL: defaultTombstoneTTL,
		dedupTTL:     defaultDedupTTL,
		inboxSize:    defaultInboxSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewIndex creates a recipe index on client.
func NewIndex(client goredis.UniversalClient, opts ...Option) *Index {
	return &Index{client: client, opts: buildOptions(opts)}
}

// Index keeps the latest recipe snapshot per id plus a sorted set of published recipes by
// creation time. Tombstones shadow removed recipes until they expire.
type Index struct {
	client goredis.UniversalClient
	opts   options
}

// Upsert indexes the snapshot unless it is stale or the recipe was removed.
func (i *Index) Upsert(ctx context.Context, recipe model.Recipe) (ports.UpsertOutcome, error) {
	doc, err := json.Marshal(recipe)
	if err != nil {
		return ports.UpsertStale, fmt.Errorf("error marshaling recipe [%s]: %w", recipe.ID, err)
	}
	res, err := upsertScript.Run(ctx, i.client,
		[]string{i.recipeKey(recipe.ID), i.tombstoneKey(recipe.ID), i.publishedKey()},
		recipe.Version, doc, string(recipe.Status), recipe.CreatedAt.UnixMilli(), recipe.ID.String(),
	).Int()
	if err != nil {
		return ports.UpsertStale, model.Infrastructure(fmt.Errorf("redis upsert: %w", err))
	}
	switch res {
	case 0:
		return ports.UpsertApplied, nil
	case 2:
		return ports.UpsertRemoved, nil
	}
	return ports.UpsertStale, nil
}

// Remove drops the recipe and tombstones its id.
func (i *Index) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := removeScript.Run(ctx, i.client,
		[]string{i.recipeKey(id), i.tombstoneKey(id), i.publishedKey()},
		int64(i.opts.tombstoneTTL/time.Second), id.String(),
	).Int()
	if err != nil {
		return false, model.Infrastructure(fmt.Errorf("redis remove: %w", err))
	}
	return deleted > 0, nil
}

// Get returns the indexed snapshot or model.ErrNotFound.
func (i *Index) Get(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	doc, err := i.client.HGet(ctx, i.recipeKey(id), "doc").Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, model.Infrastructure(fmt.Errorf("redis get: %w", err))
	}
	recipe := new(model.Recipe)
	if err := json.Unmarshal(doc, recipe); err != nil {
		return nil, fmt.Errorf("error unmarshaling indexed recipe [%s]: %w", id, err)
	}
	return recipe, nil
}

// LatestPublished returns the ids of the most recently created published recipes.
func (i *Index) LatestPublished(ctx context.Context, limit int64) ([]uuid.UUID, error) {
	members, err := i.client.ZRevRange(ctx, i.publishedKey(), 0, limit-1).Result()
	if err != nil {
		return nil, model.Infrastructure(fmt.Errorf("redis latest published: %w", err))
	}
	return parseIDs(members)
}

func (i *Index) recipeKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:recipe:%s", i.opts.namespace, id)
}

func (i *Index) tombstoneKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:tombstone:%s", i.opts.namespace, id)
}

func (i *Index) publishedKey() string {
	return i.opts.namespace + ":recipes:published"
}

// NewNotifier creates a notifier on client.
func NewNotifier(client goredis.UniversalClient, opts ...Option) *Notifier {
	return &Notifier{client: client, opts: buildOptions(opts)}
}

// Notifier pushes recipe ids onto capped per-follower inbox lists. A marker per (recipe, follower)
// makes repeated notifications no-ops.
type Notifier struct {
	client goredis.UniversalClient
	opts   options
}

// Notify delivers the recipe to every follower not notified yet.
func (n *Notifier) Notify(ctx context.Context, recipe model.Recipe, followerIDs []uuid.UUID) (int, error) {
	delivered := 0
	for _, follower := range followerIDs {
		res, err := notifyScript.Run(ctx, n.client,
			[]string{n.dedupKey(recipe.ID, follower), n.inboxKey(follower)},
			int64(n.opts.dedupTTL/time.Second), recipe.ID.String(), n.opts.inboxSize,
		).Int()
		if err != nil {
			return delivered, model.Infrastructure(fmt.Errorf("redis notify [%s]: %w", follower, err))
		}
		delivered += res
	}
	return delivered, nil
}

// Inbox returns the recipe ids delivered to the follower, newest first.
func (n *Notifier) Inbox(ctx context.Context, followerID uuid.UUID, limit int64) ([]uuid.UUID, error) {
	members, err := n.client.LRange(ctx, n.inboxKey(followerID), 0, limit-1).Result()
	if err != nil {
		return nil, model.Infrastructure(fmt.Errorf("redis inbox: %w", err))
	}
	return parseIDs(members)
}

func (n *Notifier) dedupKey(recipeID, followerID uuid.UUID) string {
	return fmt.Sprintf("%s:notified:%s:%s", n.opts.namespace, recipeID, followerID)
}

func (n *Notifier) inboxKey(followerID uuid.UUID) string {
	return fmt.Sprintf("%s:inbox:%s", n.opts.namespace, followerID)
}

func parseIDs(members []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			return nil, fmt.Errorf("error parsing id [%s]: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
