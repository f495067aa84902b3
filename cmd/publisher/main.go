// Command publisher runs the Publisher worker: consumes batches off the
// publisher topic, enforces per-device rate limits, and dispatches pushes
// through the FCM gateway.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/raidenx/notify-pipeline/internal/cache"
	"github.com/raidenx/notify-pipeline/internal/config"
	"github.com/raidenx/notify-pipeline/internal/infrastructure/fcm"
	"github.com/raidenx/notify-pipeline/internal/infrastructure/mongo"
	"github.com/raidenx/notify-pipeline/internal/infrastructure/redis"
	"github.com/raidenx/notify-pipeline/internal/kafka"
	"github.com/raidenx/notify-pipeline/internal/worker"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := mongo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to document store")
	}
	defer store.Disconnect(context.Background())
	log.Info().Msg("document store connected")

	redisClient, err := redis.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to kv store")
	}
	defer redisClient.Close()
	log.Info().Msg("kv store connected")

	gateway, err := fcm.New(ctx, cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create push gateway client")
	}

	preferenceStore := mongo.NewPreferenceStore(store)
	preferenceKV := redis.NewPreferenceKV(redisClient)
	preferences := cache.NewPreferenceCache(preferenceStore, preferenceKV)
	preferences.Preload(ctx)

	tokenStore := mongo.NewTokenStore(store)
	tokens := cache.NewTokenCache(tokenStore)
	tokens.Preload(ctx)

	invalidations := redis.NewTokenInvalidations(redisClient)
	go func() {
		if err := invalidations.Subscribe(ctx, tokens.Apply); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("token invalidation subscriber stopped unexpectedly")
		}
	}()

	limiter := redis.NewRateLimiter(redisClient, cfg.RateLimit.Window)

	publisherCfg := worker.PublisherConfig{
		RateWindow:        cfg.RateLimit.Window,
		SendConcurrency:   cfg.RateLimit.SendConcurrency,
		RetryInitInterval: cfg.RateLimit.RetryInitInterval,
		RetryMaxInterval:  cfg.RateLimit.RetryMaxInterval,
		RetryMaxAttempts:  cfg.RateLimit.RetryMaxAttempts,
	}
	publisher := worker.NewPublisher(preferences, tokens, limiter, gateway, publisherCfg)

	client, err := kafka.NewClient(kafka.ClientConfig{
		Brokers:      cfg.Kafka.Brokers,
		GroupID:      cfg.Kafka.ConsumerGroupID,
		Topic:        cfg.Kafka.PublisherTopic,
		SASLUsername: cfg.Kafka.SASLUsername,
		SASLPassword: cfg.Kafka.SASLPassword,
		UseTLS:       cfg.Kafka.UseTLS,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka client")
	}

	consumer := kafka.NewBatchConsumer(client, publisher.HandleBatch)
	log.Info().Str("topic", cfg.Kafka.PublisherTopic).Msg("publisher starting")
	consumer.Run(ctx)

	log.Info().Msg("publisher stopped")
}
