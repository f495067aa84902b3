package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return &Client{rdb: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
}

func TestPreferenceKV_RoundTrip(t *testing.T) {
	kv := NewPreferenceKV(newTestClient(t))
	ctx := context.Background()

	_, found, err := kv.GetPreferences(ctx, "U1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected miss before any Set")
	}

	want := domain.Preferences{Announcement: false, Account: true, Campaign: true, Transaction: false}
	if err := kv.SetPreferences(ctx, "U1", want); err != nil {
		t.Fatalf("set preferences: %v", err)
	}

	got, found, err := kv.GetPreferences(ctx, "U1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || got != want {
		t.Fatalf("want %+v found=true, got %+v found=%v", want, got, found)
	}
}
