// Package bootstrap opens the backends selected by the configuration for the cookbook binaries.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/pubsub"
	"github.com/rbroggi/cookbook/internal/actors/memory"
	mongoactor "github.com/rbroggi/cookbook/internal/actors/mongo"
	"github.com/rbroggi/cookbook/internal/actors/postgres"
	"github.com/rbroggi/cookbook/internal/actors/pubsub/topology"
	redisactor "github.com/rbroggi/cookbook/internal/actors/redis"
	"github.com/rbroggi/cookbook/internal/config"
	"github.com/rbroggi/cookbook/internal/core/ports"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConfigureLogging sets the JSON formatter on stdout and the configured level.
func ConfigureLogging(level log.Level) {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(level)
}

// Store is an opened persistence backend.
type Store struct {
	ports.Store

	// Ping reports whether the backend is reachable.
	Ping func(ctx context.Context) error

	// Close releases the backend connections.
	Close func()
}

// OpenStore connects to the store selected by cfg.Store.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		db, err := postgres.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		adapter, err := postgres.NewPostgresDB(postgres.PostgresDBArgs{DB: db})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Store{
			Store: adapter,
			Ping:  db.Ping,
			Close: func() {
				if err := db.Close(); err != nil {
					log.WithError(err).Warn("error closing postgres connection")
				}
			},
		}, nil

	case config.StoreMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URL))
		if err != nil {
			return nil, fmt.Errorf("error connecting to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("db does not appear to be reachable: %w", err)
		}
		adapter, err := mongoactor.NewMongoDB(mongoactor.MongoDBArgs{Database: client.Database(cfg.Mongo.Database)})
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &Store{
			Store: adapter,
			Ping:  func(ctx context.Context) error { return client.Ping(ctx, nil) },
			Close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					log.WithError(err).Warn("error disconnecting from mongo")
				}
			},
		}, nil

	case config.StoreMemory:
		log.Warn("using the in-memory store, data is lost on exit")
		return &Store{
			Store: memory.NewStore(),
			Ping:  func(context.Context) error { return nil },
			Close: func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown store [%s]", cfg.Store)
}

// NewPubSubClient creates the broker client. PUBSUB_EMULATOR_HOST is honoured by the client.
func NewPubSubClient(ctx context.Context, cfg *config.Config) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("unable to create client to project [%s]: %w", cfg.PubSub.ProjectID, err)
	}
	return client, nil
}

// Topology returns the configured topics and subscriptions.
func Topology(cfg *config.Config) topology.Topology {
	return topology.Topology{Topics: cfg.PubSub.Topics, Subscriptions: cfg.PubSub.Subscriptions}
}

// NewRedisClient creates the projection client from cfg.Redis.URL.
func NewRedisClient(cfg *config.Config) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis url: %w", err)
	}
	return goredis.NewClient(opts), nil
}

// RedisOptions returns the projection options of cfg.Redis.
func RedisOptions(cfg *config.Config) []redisactor.Option {
	return []redisactor.Option{
		redisactor.WithNamespace(cfg.Redis.Namespace),
		redisactor.WithTombstoneTTL(cfg.Redis.TombstoneTTL),
		redisactor.WithDedupTTL(cfg.Redis.DedupTTL),
		redisactor.WithInboxSize(cfg.Redis.InboxSize),
	}
}
