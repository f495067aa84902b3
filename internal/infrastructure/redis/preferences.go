package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

const preferenceTTL = time.Hour

func preferenceKey(userID string) string {
	return fmt.Sprintf("raidenx:user:notification:preferences:%s", userID)
}

// PreferenceKV implements domain.PreferenceKV.
type PreferenceKV struct {
	client *Client
}

func NewPreferenceKV(c *Client) *PreferenceKV {
	return &PreferenceKV{client: c}
}

func (p *PreferenceKV) GetPreferences(ctx context.Context, userID string) (domain.Preferences, bool, error) {
	raw, err := p.client.rdb.Get(ctx, preferenceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Preferences{}, false, nil
	}
	if err != nil {
		return domain.Preferences{}, false, fmt.Errorf("get preferences from redis: %w", err)
	}

	var prefs domain.Preferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return domain.Preferences{}, false, fmt.Errorf("decode cached preferences: %w", err)
	}
	return prefs, true, nil
}

func (p *PreferenceKV) SetPreferences(ctx context.Context, userID string, prefs domain.Preferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := p.client.rdb.SetEx(ctx, preferenceKey(userID), raw, preferenceTTL).Err(); err != nil {
		return fmt.Errorf("set preferences in redis: %w", err)
	}
	return nil
}
