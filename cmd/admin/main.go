// Command admin runs the thin admin HTTP surface: preference and FCM
// token writes, and the pub/sub invalidation the Token Cache subscribes
// to.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/raidenx/notify-pipeline/internal/config"
	"github.com/raidenx/notify-pipeline/internal/infrastructure/mongo"
	"github.com/raidenx/notify-pipeline/internal/infrastructure/redis"
	transporthttp "github.com/raidenx/notify-pipeline/internal/transport/http"
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
	tokenStore := mongo.NewTokenStore(store)
	invalidations := redis.NewTokenInvalidations(redisClient)

	handler := transporthttp.NewHandler(preferenceStore, preferenceKV, tokenStore, invalidations)
	router := transporthttp.NewRouter(handler, cfg.Admin.BearerSecret)

	go func() {
		log.Info().Str("port", cfg.Admin.Port).Msg("admin HTTP server listening")
		if err := router.Start(":" + cfg.Admin.Port); err != nil {
			log.Info().Msg("admin HTTP server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("admin HTTP server shutdown error")
	}

	log.Info().Msg("admin stopped")
}
