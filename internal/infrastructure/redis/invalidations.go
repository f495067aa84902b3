package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

const tokenInvalidationChannel = "vdax:notification:update_fcm_token"

// TokenInvalidations implements domain.TokenInvalidations over a Redis
// pub/sub channel.
type TokenInvalidations struct {
	client *Client
}

func NewTokenInvalidations(c *Client) *TokenInvalidations {
	return &TokenInvalidations{client: c}
}

// Subscribe blocks, dispatching handle for every message received on
// vdax:notification:update_fcm_token until ctx is cancelled. Malformed
// payloads are logged and skipped, never fatal.
func (t *TokenInvalidations) Subscribe(ctx context.Context, handle func(domain.TokenUpdate)) error {
	sub := t.client.rdb.Subscribe(ctx, tokenInvalidationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("token invalidation subscription closed")
			}
			var update domain.TokenUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				log.Warn().Err(err).Str("payload", msg.Payload).Msg("discarding malformed token invalidation message")
				continue
			}
			handle(update)
		}
	}
}

// Publish sends a token invalidation message, used by the admin surface
// after every fcm-token status change.
func (t *TokenInvalidations) Publish(ctx context.Context, update domain.TokenUpdate) error {
	raw, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode token invalidation: %w", err)
	}
	if err := t.client.rdb.Publish(ctx, tokenInvalidationChannel, raw).Err(); err != nil {
		return fmt.Errorf("publish token invalidation: %w", err)
	}
	return nil
}
