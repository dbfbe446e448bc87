package main

import (
	"context"
	"database/sql"
	"flag"
	"os"

	_ "github.com/lib/pq"
	"github.com/rbroggi/cookbook/db"
	"github.com/rbroggi/cookbook/internal/bootstrap"
	"github.com/rbroggi/cookbook/internal/config"
	log "github.com/sirupsen/logrus"
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
}

var (
	down = flag.Bool("down", false, "run migration down")
)

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

func run() error {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	bootstrap.ConfigureLogging(cfg.LogLevel)

	switch cfg.Store {
	case config.StorePostgres:
		sqlDB, err := sql.Open("postgres", cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		if err := db.Migrate(sqlDB, *down); err != nil {
			return err
		}
		log.WithField("down", *down).Info("postgres schema migrated")

	case config.StoreMongo:
		if *down {
			log.Warn("mongo indexes are never rolled back")
			return nil
		}
		store, err := bootstrap.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		idx, ok := store.Store.(indexer)
		if !ok {
			return nil
		}
		if err := idx.EnsureIndexes(ctx); err != nil {
			return err
		}
		log.WithField("database", cfg.Mongo.Database).Info("mongo indexes ensured")

	default:
		log.WithField("store", cfg.Store).Info("nothing to migrate")
	}
	return nil
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
}
