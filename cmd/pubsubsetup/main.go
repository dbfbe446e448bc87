package main

import (
	"context"
	"os"

	"github.com/rbroggi/cookbook/internal/actors/pubsub/topology"
	"github.com/rbroggi/cookbook/internal/bootstrap"
	"github.com/rbroggi/cookbook/internal/config"
	log "github.com/sirupsen/logrus"
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
}

// Creates the lifecycle topics and the worker subscriptions of the configured project.
// Existing topics and subscriptions are left untouched.
func run() error {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	bootstrap.ConfigureLogging(cfg.LogLevel)

	client, err := bootstrap.NewPubSubClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	t := bootstrap.Topology(cfg)
	if err := topology.Ensure(ctx, client, t); err != nil {
		return err
	}
	for kind, topic := range t.Topics {
		log.
			WithField("project", cfg.PubSub.ProjectID).
			WithField("topic", topic).
			WithField("subscription", t.Subscriptions[kind]).
			Info("topic and subscription available")
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.WithError(err).Fatal("pubsub setup failed")
	}
}
