// Package kafka wraps the franz-go bus client with the generic batch
// consume/decode/commit plumbing both workers share.
package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

// ClientConfig carries the bus connection settings read from
// internal/config.
type ClientConfig struct {
	Brokers      []string
	GroupID      string
	Topic        string
	SASLUsername string
	SASLPassword string
	UseTLS       bool
}

// NewClient builds a franz-go client with auto-commit disabled — offset
// commit is an explicit call at the end of each successfully processed
// batch, never background auto-commit.
func NewClient(cfg ClientConfig) (*kgo.Client, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
		kgo.SessionTimeout(30 * time.Second),
	}

	if cfg.SASLUsername != "" {
		opts = append(opts, kgo.SASL(plain.Auth{
			User: cfg.SASLUsername,
			Pass: cfg.SASLPassword,
		}.AsMechanism()))
	}
	if cfg.UseTLS {
		opts = append(opts, kgo.DialTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("build kafka client: %w", err)
	}
	return client, nil
}

// BatchHandler processes one decoded batch of events read from a single
// kgo.Fetches poll and reports whether the batch succeeded. Returning an
// error withholds the offset commit, so the batch is redelivered on the
// next poll.
type BatchHandler func(ctx context.Context, events []domain.Event) error

// BatchConsumer drives the poll/decode/handle/commit loop both workers
// run, differing only in their BatchHandler.
type BatchConsumer struct {
	client  *kgo.Client
	handler BatchHandler
}

func NewBatchConsumer(client *kgo.Client, handler BatchHandler) *BatchConsumer {
	return &BatchConsumer{client: client, handler: handler}
}

// Run blocks, polling and processing fetches until ctx is cancelled.
func (c *BatchConsumer) Run(ctx context.Context) {
	log.Info().Msg("kafka batch consumer started")

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			break
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			log.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("kafka fetch error")
		})

		ok := true
		fetches.EachRecord(func(r *kgo.Record) {
			if !c.processRecord(ctx, r) {
				ok = false
			}
		})

		if !ok {
			// A batch failed: skip the commit so the same records are
			// redelivered on the next poll, per the handler's contract.
			continue
		}

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			log.Error().Err(err).Msg("kafka commit error")
		}
	}

	c.client.Close()
	log.Info().Msg("kafka batch consumer stopped")
}

func (c *BatchConsumer) processRecord(ctx context.Context, r *kgo.Record) bool {
	events, err := DecodeEvents(r.Value)
	if err != nil {
		log.Error().Err(err).Str("topic", r.Topic).Msg("discarding malformed event batch")
		return true
	}

	if err := c.handler(ctx, events); err != nil {
		log.Error().Err(err).Str("topic", r.Topic).Int("batch_size", len(events)).Msg("batch handler failed")
		return false
	}
	return true
}
