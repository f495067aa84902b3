package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/raidenx/notify-pipeline/internal/domain"
	"github.com/raidenx/notify-pipeline/internal/grouping"
	"github.com/raidenx/notify-pipeline/internal/render"
)

// PublisherConfig carries the Publisher's tunables.
type PublisherConfig struct {
	RateWindow        time.Duration
	SendConcurrency   int
	RetryInitInterval time.Duration
	RetryMaxInterval  time.Duration
	RetryMaxAttempts  uint64
}

// DefaultPublisherConfig returns the baseline tunables: 2s rate window,
// 8-way fan-out, 100ms/5s backoff, 3 total attempts.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		RateWindow:        2 * time.Second,
		SendConcurrency:   8,
		RetryInitInterval: 100 * time.Millisecond,
		RetryMaxInterval:  5 * time.Second,
		RetryMaxAttempts:  3,
	}
}

// Publisher delivers the most relevant current event to each active
// device, throttled per device, with a digest fallback.
type Publisher struct {
	prefs   grouping.PreferenceLookup
	tokens  TokenLookup
	limiter domain.RateLimiter
	gateway domain.PushGateway
	cfg     PublisherConfig
	now     func() time.Time
}

// TokenLookup is the narrow slice of the Token Cache the Publisher needs.
type TokenLookup interface {
	Get(ctx context.Context, userID string) []string
}

func NewPublisher(prefs grouping.PreferenceLookup, tokens TokenLookup, limiter domain.RateLimiter, gateway domain.PushGateway, cfg PublisherConfig) *Publisher {
	return &Publisher{prefs: prefs, tokens: tokens, limiter: limiter, gateway: gateway, cfg: cfg, now: time.Now}
}

// HandleBatch implements kafka.BatchHandler.
func (p *Publisher) HandleBatch(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		log.Debug().Msg("publisher: empty batch, committing")
		return nil
	}

	grouped := grouping.GroupByUser(ctx, events, p.prefs)
	if len(grouped) == 0 {
		log.Debug().Msg("publisher: batch fully filtered by preferences, committing")
		return nil
	}

	for key, rendered := range grouped {
		if len(rendered) == 0 {
			continue
		}
		last := rendered[len(rendered)-1]
		p.dispatchGroup(ctx, key, last)
	}
	return nil
}

// dispatchGroup fans the group's latest rendering out to every active
// token of key.user_id, bounded to cfg.SendConcurrency in-flight sends.
func (p *Publisher) dispatchGroup(ctx context.Context, key domain.GroupKey, last domain.RenderedNotification) {
	tokens := p.tokens.Get(ctx, key.UserID)
	if len(tokens) == 0 {
		return
	}

	title := render.Title(key.NotifType)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.SendConcurrency)
	for _, token := range tokens {
		token := token
		g.Go(func() error {
			p.dispatchToken(gCtx, key.UserID, token, title, last.Message)
			return nil
		})
	}
	_ = g.Wait()
}

// dispatchToken runs the per-device state machine: rate check, digest
// decision, send-with-retry, KV bookkeeping.
func (p *Publisher) dispatchToken(ctx context.Context, userID, token, title, body string) {
	now := p.now().UnixMilli()

	lastSent, found, err := p.limiter.LastSent(ctx, token)
	if err != nil {
		log.Warn().Err(err).Str("token", token).Msg("publisher: rate-limit read failed, sending without throttle")
	}
	if found && time.Duration(now-lastSent)*time.Millisecond < p.cfg.RateWindow {
		if _, err := p.limiter.IncrementUnsent(ctx, token); err != nil {
			log.Warn().Err(err).Str("token", token).Msg("publisher: failed to increment unsent count")
		}
		log.Debug().Str("user_id", userID).Str("token", token).Msg("publisher: throttled, skipping dispatch")
		return
	}

	sendTitle, sendBody := title, body
	if unsent, err := p.limiter.UnsentCount(ctx, token); err != nil {
		log.Warn().Err(err).Str("token", token).Msg("publisher: failed to read unsent count")
	} else if unsent > 1 {
		sendTitle = "You have many notifications"
		sendBody = fmt.Sprintf("You have %d unread notifications. Please check your app.", unsent)
	}

	if err := p.sendWithRetry(ctx, token, sendTitle, sendBody); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("token", token).Msg("publisher: push delivery failed after retries")
		return
	}

	if err := p.limiter.MarkSent(ctx, token, now); err != nil {
		log.Warn().Err(err).Str("token", token).Msg("publisher: failed to update rate-limit state after send")
	}
}

func (p *Publisher) sendWithRetry(ctx context.Context, token, title, body string) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.RetryInitInterval
	bo.MaxInterval = p.cfg.RetryMaxInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, p.cfg.RetryMaxAttempts-1), ctx)

	operation := func() error {
		return p.gateway.Send(ctx, token, title, body)
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("send push after retries: %w", err)
	}
	return nil
}
