// Package cache implements the Preference Cache and Token Cache:
// process-local, read-write-locked maps backed by a document store and
// (for preferences) a shared KV tier.
package cache

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

// PreferenceCache answers preferences(user_id) in constant time on the hot
// path, falling through to KV then the document store on a miss.
type PreferenceCache struct {
	mu    sync.RWMutex
	byUID map[string]domain.Preferences

	store domain.PreferenceStore
	kv    domain.PreferenceKV // may be nil — the KV tier is optional
}

// NewPreferenceCache builds an empty cache; call Preload before serving
// traffic.
func NewPreferenceCache(store domain.PreferenceStore, kv domain.PreferenceKV) *PreferenceCache {
	return &PreferenceCache{
		byUID: make(map[string]domain.Preferences),
		store: store,
		kv:    kv,
	}
}

// Preload scans the preferences collection and populates the in-process
// map. Failure is soft: it logs a warning and leaves the map empty rather
// than propagating the error, so callers fall through to the document
// store on every subsequent Get.
func (c *PreferenceCache) Preload(ctx context.Context) {
	all, err := c.store.FindAll(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("preference cache: preload failed, starting with an empty map")
		return
	}

	c.mu.Lock()
	c.byUID = all
	c.mu.Unlock()

	log.Info().Int("count", len(all)).Msg("preference cache: preload complete")
}

// Get resolves one user's preferences: in-process map, then KV, then the
// document store, falling back to DefaultPreferences() when all three miss.
// Populated tiers are written through on a lower-tier hit.
func (c *PreferenceCache) Get(ctx context.Context, userID string) domain.Preferences {
	if p, ok := c.fromMemory(userID); ok {
		return p
	}

	if c.kv != nil {
		if p, ok, err := c.kv.GetPreferences(ctx, userID); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("preference cache: KV lookup failed, falling back to document store")
		} else if ok {
			c.storeInMemory(userID, p)
			log.Debug().Str("user_id", userID).Str("source", "redis").Msg("preference cache: resolved")
			return p
		}
	}

	found, err := c.store.FindByUserIDs(ctx, []string{userID})
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("preference cache: document store lookup failed, using defaults")
		return domain.DefaultPreferences()
	}

	p, ok := found[userID]
	if !ok {
		log.Warn().Str("user_id", userID).Msg("preference cache: no preferences found anywhere, using defaults")
		return domain.DefaultPreferences()
	}

	c.storeInMemory(userID, p)
	c.writeThroughKV(ctx, userID, p)
	log.Debug().Str("user_id", userID).Str("source", "mongo").Msg("preference cache: resolved")
	return p
}

// GetBatch is the variant used by the grouping engine:
// it dedupes userIDs, issues at most one document-store round trip for the
// users missing from the in-process map, and substitutes defaults for
// users absent everywhere.
func (c *PreferenceCache) GetBatch(ctx context.Context, userIDs []string) map[string]domain.Preferences {
	result := make(map[string]domain.Preferences, len(userIDs))
	var missing []string
	seen := make(map[string]struct{}, len(userIDs))

	for _, uid := range userIDs {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}

		if p, ok := c.fromMemory(uid); ok {
			result[uid] = p
			continue
		}
		missing = append(missing, uid)
	}

	if len(missing) > 0 {
		found, err := c.store.FindByUserIDs(ctx, missing)
		if err != nil {
			log.Warn().Err(err).Int("missing", len(missing)).Msg("preference cache: batch document-store lookup failed, using defaults")
			found = nil
		}
		for _, uid := range missing {
			p, ok := found[uid]
			if !ok {
				log.Warn().Str("user_id", uid).Msg("preference cache: no preferences found for batch member, using defaults")
				p = domain.DefaultPreferences()
			} else {
				c.storeInMemory(uid, p)
			}
			result[uid] = p
		}
	}

	return result
}

// Update is the write-through path invoked after the admin surface changes
// a user's preferences: KV SETEX, then in-process insert. The
// document-store write itself is the admin surface's job, not the core's.
func (c *PreferenceCache) Update(ctx context.Context, userID string, prefs domain.Preferences) {
	if c.kv != nil {
		if err := c.kv.SetPreferences(ctx, userID, prefs); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("preference cache: KV write-through failed")
		}
	}
	c.storeInMemory(userID, prefs)
}

func (c *PreferenceCache) fromMemory(userID string) (domain.Preferences, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byUID[userID]
	return p, ok
}

func (c *PreferenceCache) storeInMemory(userID string, p domain.Preferences) {
	c.mu.Lock()
	c.byUID[userID] = p
	c.mu.Unlock()
}

func (c *PreferenceCache) writeThroughKV(ctx context.Context, userID string, p domain.Preferences) {
	if c.kv == nil {
		return
	}
	if err := c.kv.SetPreferences(ctx, userID, p); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("preference cache: fire-and-forget KV populate failed")
	}
}
