// Command persister runs the Persister worker: consumes batches off the
// persistence topic, groups and renders them, and writes notification
// rows to the document store.
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

	preferenceStore := mongo.NewPreferenceStore(store)
	preferenceKV := redis.NewPreferenceKV(redisClient)
	preferences := cache.NewPreferenceCache(preferenceStore, preferenceKV)
	preferences.Preload(ctx)

	notifications := mongo.NewNotificationStore(store)
	persister := worker.NewPersister(preferences, notifications)

	client, err := kafka.NewClient(kafka.ClientConfig{
		Brokers:      cfg.Kafka.Brokers,
		GroupID:      cfg.Kafka.ConsumerGroupID,
		Topic:        cfg.Kafka.PersisterTopic,
		SASLUsername: cfg.Kafka.SASLUsername,
		SASLPassword: cfg.Kafka.SASLPassword,
		UseTLS:       cfg.Kafka.UseTLS,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka client")
	}

	consumer := kafka.NewBatchConsumer(client, persister.HandleBatch)
	log.Info().Str("topic", cfg.Kafka.PersisterTopic).Msg("persister starting")
	consumer.Run(ctx)

	log.Info().Msg("persister stopped")
}
