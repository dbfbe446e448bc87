package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rbroggi/cookbook/internal/actors/memory"
	produceractor "github.com/rbroggi/cookbook/internal/actors/pubsub/producer"
	"github.com/rbroggi/cookbook/internal/actors/rest"
	"github.com/rbroggi/cookbook/internal/bootstrap"
	"github.com/rbroggi/cookbook/internal/config"
	"github.com/rbroggi/cookbook/internal/core/ports"
	"github.com/rbroggi/cookbook/internal/core/usecase"
	"github.com/rbroggi/cookbook/internal/metrics"
	log "github.com/sirupsen/logrus"
)

func init() {
	// Log as JSON instead of the default ASCII formatter.
	log.SetFormatter(&log.JSONFormatter{})

	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)

	// Only log the DebugLevel severity or above until the configuration is loaded.
	log.SetLevel(log.DebugLevel)
}

var (
	httpServerEndpoint = flag.String("http-server-endpoint", "localhost:8080", "HTTP server endpoint")
	shutdownTimeout    = flag.Duration("shutdown-timeout", 10*time.Second, "grace period for in-flight requests and buffered events")
)

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	bootstrap.ConfigureLogging(cfg.LogLevel)

	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("could not open store")
		return err
	}
	defer store.Close()

	sender, stopSender, err := openSender(ctx, cfg, store)
	if err != nil {
		log.WithError(err).Error("could not initialize lifecycle event sender")
		return err
	}
	defer stopSender()

	publisher := usecase.NewLifecycleEventPublisher(
		usecase.LifecycleEventPublisherArgs{Sender: sender},
		usecase.WithWorkers(cfg.Publisher.Workers),
		usecase.WithBufferSize(cfg.Publisher.BufferSize),
		usecase.WithMaxRetries(cfg.Publisher.MaxRetries),
		usecase.WithEnqueueTimeout(cfg.Publisher.EnqueueTimeout),
	)
	publisher.Start(ctx)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	composer := usecase.NewQueryComposer(usecase.QueryComposerArgs{Recipes: store, Chefs: store})
	server := rest.NewServer(rest.ServerArgs{
		Recipes: usecase.NewRecipeService(usecase.RecipeServiceArgs{Recipes: store, Chefs: store, Publisher: publisher}),
		Queries: composer,
		Feed:    usecase.NewFeedAssembler(usecase.FeedAssemblerArgs{Chefs: store, Follows: store, Composer: composer}),
		Chefs:   usecase.NewChefService(usecase.ChefServiceArgs{Chefs: store}),
		Social:  usecase.NewSocialService(usecase.SocialServiceArgs{Chefs: store, Follows: store}),
	}, rest.WithHealthCheck(store.Ping), rest.WithMetricsHandler(promhttp.Handler()))

	httpServer := &http.Server{Addr: *httpServerEndpoint, Handler: server.Handler()}
	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	log.
		WithField("http-server-addr", *httpServerEndpoint).
		WithField("store", cfg.Store).
		WithField("broker", cfg.Broker).
		Info("server up or soon to be up. listening to SIGTERM, SIGINT, SIGQUIT for stoping the server")

	// Wait for signal
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	select {
	case <-ch:
	case err := <-serveErr:
		if err != nil {
			log.WithError(err).Error("http server failed")
			publisher.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), *shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("error shutting down http server")
	}
	// Mutations are over: flush the buffered events before releasing the sender.
	publisher.Close()
	return nil
}

// openSender returns the broker selected by cfg.Broker. The memory broker feeds an in-process
// consumer whose projections live as long as the server.
func openSender(ctx context.Context, cfg *config.Config, store ports.Store) (ports.Sender, func(), error) {
	if cfg.Broker == config.BrokerMemory {
		consumer := usecase.NewLifecycleEventConsumer(usecase.LifecycleEventConsumerArgs{
			Index:    memory.NewIndex(memory.WithTombstoneTTL(cfg.Redis.TombstoneTTL)),
			Notifier: memory.NewNotifier(),
			Follows:  store,
		})
		return memory.NewLoopbackSender(consumer), func() {}, nil
	}

	client, err := bootstrap.NewPubSubClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	producer, err := produceractor.NewProducer(bootstrap.Topology(cfg).TopicHandles(client))
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return producer, func() {
		producer.Stop()
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("error closing pubsub client")
		}
	}, nil
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.WithError(err).Fatal("server terminated")
	}
}
