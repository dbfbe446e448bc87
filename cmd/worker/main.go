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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redisactor "github.com/rbroggi/cookbook/internal/actors/redis"
	subscriberactor "github.com/rbroggi/cookbook/internal/actors/pubsub/subscriber"
	"github.com/rbroggi/cookbook/internal/bootstrap"
	"github.com/rbroggi/cookbook/internal/config"
	"github.com/rbroggi/cookbook/internal/core/usecase"
	"github.com/rbroggi/cookbook/internal/metrics"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
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
	httpServerEndpoint = flag.String("http-server-endpoint", "localhost:8081", "HTTP server endpoint")
)

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	bootstrap.ConfigureLogging(cfg.LogLevel)
	if cfg.Broker != config.BrokerPubSub {
		return errors.New("the worker consumes from pubsub, set COOKBOOK_BROKER=pubsub")
	}

	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("could not open store")
		return err
	}
	defer store.Close()

	redisClient, err := bootstrap.NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Error("redis does not appear to be reachable")
		return err
	}

	client, err := bootstrap.NewPubSubClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	consumer := usecase.NewLifecycleEventConsumer(usecase.LifecycleEventConsumerArgs{
		Index:    redisactor.NewIndex(redisClient, bootstrap.RedisOptions(cfg)...),
		Notifier: redisactor.NewNotifier(redisClient, bootstrap.RedisOptions(cfg)...),
		Follows:  store,
	})
	subscriber := subscriberactor.NewSubscriber(subscriberactor.SubscriberArgs{
		Subscriptions: bootstrap.Topology(cfg).SubscriptionHandles(client),
		Handler:       consumer,
	})

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		pingCtx, pingCancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer pingCancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "Unavailable"})
			return
		}
		if err := store.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "Unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "Ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	httpServer := &http.Server{Addr: *httpServerEndpoint, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return subscriber.Consume(gctx)
	})
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
		select {
		case <-ch:
			log.Info("signal received, stopping the worker")
		case <-gctx.Done():
		}
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	log.
		WithField("http-server-addr", *httpServerEndpoint).
		WithField("project", cfg.PubSub.ProjectID).
		Info("worker up or soon to be up. listening to SIGTERM, SIGINT, SIGQUIT for stoping the worker")

	return g.Wait()
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.WithError(err).Fatal("worker terminated")
	}
}
