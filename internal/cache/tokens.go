package cache

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

// TokenCache answers tokens(user_id) with the user's Active FCM tokens,
// kept eventually consistent with the document store via a pub/sub
// invalidation channel.
type TokenCache struct {
	mu     sync.RWMutex
	byUser map[string][]string

	store domain.TokenStore
}

// NewTokenCache builds an empty cache; call Preload before serving traffic.
func NewTokenCache(store domain.TokenStore) *TokenCache {
	return &TokenCache{
		byUser: make(map[string][]string),
		store:  store,
	}
}

// Preload scans the tokens collection, filtered to Active, and builds the
// map. Failure is soft, same as the Preference Cache.
func (c *TokenCache) Preload(ctx context.Context) {
	all, err := c.store.FindAllActive(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("token cache: preload failed, starting with an empty map")
		return
	}

	c.mu.Lock()
	c.byUser = all
	c.mu.Unlock()

	log.Info().Int("users", len(all)).Msg("token cache: preload complete")
}

// Get returns a cloned slice of the user's Active tokens, querying the
// document store and caching the (possibly empty) result on a miss.
func (c *TokenCache) Get(ctx context.Context, userID string) []string {
	c.mu.RLock()
	tokens, ok := c.byUser[userID]
	cloned := cloneTokens(tokens)
	c.mu.RUnlock()
	if ok {
		return cloned
	}

	found, err := c.store.FindActiveByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("token cache: document store lookup failed")
		return nil
	}

	c.mu.Lock()
	c.byUser[userID] = found
	c.mu.Unlock()

	return cloneTokens(found)
}

// Apply mutates the in-process map per a pub/sub invalidation message
//: Add inserts if absent, Remove deletes and prunes empty
// per-user entries.
func (c *TokenCache) Apply(update domain.TokenUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch update.Action {
	case domain.TokenActionAdd:
		tokens := c.byUser[update.UserID]
		for _, t := range tokens {
			if t == update.Token {
				return
			}
		}
		c.byUser[update.UserID] = append(tokens, update.Token)

	case domain.TokenActionRemove:
		tokens, ok := c.byUser[update.UserID]
		if !ok {
			return
		}
		filtered := tokens[:0]
		for _, t := range tokens {
			if t != update.Token {
				filtered = append(filtered, t)
			}
		}
		if len(filtered) == 0 {
			delete(c.byUser, update.UserID)
		} else {
			c.byUser[update.UserID] = filtered
		}

	default:
		log.Warn().Str("action", string(update.Action)).Msg("token cache: unrecognized invalidation action")
	}
}

func cloneTokens(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, len(tokens))
	copy(out, tokens)
	return out
}
