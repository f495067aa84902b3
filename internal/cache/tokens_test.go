package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

type fakeTokenStore struct {
	all     map[string][]string
	byUser  map[string][]string
	failAll bool
	failBy  bool
}

func (f *fakeTokenStore) FindAllActive(ctx context.Context) (map[string][]string, error) {
	if f.failAll {
		return nil, errors.New("boom")
	}
	return f.all, nil
}

func (f *fakeTokenStore) FindActiveByUserID(ctx context.Context, userID string) ([]string, error) {
	if f.failBy {
		return nil, errors.New("boom")
	}
	return f.byUser[userID], nil
}

func TestTokenCache_PreloadIdempotent(t *testing.T) {
	store := &fakeTokenStore{all: map[string][]string{"U1": {"T1", "T2"}}}
	c := NewTokenCache(store)

	c.Preload(context.Background())
	first := c.Get(context.Background(), "U1")
	c.Preload(context.Background())
	second := c.Get(context.Background(), "U1")

	if len(first) != len(second) {
		t.Fatalf("preload not idempotent: %v vs %v", first, second)
	}
}

func TestTokenCache_GetFallsThroughAndCachesEmpty(t *testing.T) {
	store := &fakeTokenStore{byUser: map[string][]string{}}
	c := NewTokenCache(store)

	got := c.Get(context.Background(), "ghost")
	if got != nil {
		t.Fatalf("want nil for unknown user, got %v", got)
	}

	c.mu.RLock()
	_, cached := c.byUser["ghost"]
	c.mu.RUnlock()
	if !cached {
		t.Fatalf("want the empty lookup result cached for the unknown user")
	}
}

func TestTokenCache_Apply_AddThenRemove(t *testing.T) {
	store := &fakeTokenStore{byUser: map[string][]string{}}
	c := NewTokenCache(store)

	c.Apply(domain.TokenUpdate{UserID: "U4", Token: "T1", Action: domain.TokenActionAdd})
	c.Apply(domain.TokenUpdate{UserID: "U4", Token: "T2", Action: domain.TokenActionAdd})
	got := c.Get(context.Background(), "U4")
	if len(got) != 2 {
		t.Fatalf("want 2 tokens, got %v", got)
	}

	c.Apply(domain.TokenUpdate{UserID: "U4", Token: "T1", Action: domain.TokenActionRemove})
	got = c.Get(context.Background(), "U4")
	if len(got) != 1 || got[0] != "T2" {
		t.Fatalf("want only T2 remaining, got %v", got)
	}

	c.Apply(domain.TokenUpdate{UserID: "U4", Token: "T2", Action: domain.TokenActionRemove})
	c.mu.RLock()
	_, stillPresent := c.byUser["U4"]
	c.mu.RUnlock()
	if stillPresent {
		t.Fatalf("want empty user entry pruned after removing last token")
	}
}

// TestTokenCache_ConcurrentGetAndApplyRemove exercises Get and
// Apply(Remove) racing on the same user's token slice. Run with
// -race: Get must clone under the read lock, not after releasing it,
// or this trips the race detector on the shared backing array.
func TestTokenCache_ConcurrentGetAndApplyRemove(t *testing.T) {
	store := &fakeTokenStore{byUser: map[string][]string{}}
	c := NewTokenCache(store)
	c.Apply(domain.TokenUpdate{UserID: "U6", Token: "T1", Action: domain.TokenActionAdd})
	c.Apply(domain.TokenUpdate{UserID: "U6", Token: "T2", Action: domain.TokenActionAdd})

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = c.Get(context.Background(), "U6")
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.Apply(domain.TokenUpdate{UserID: "U6", Token: "T1", Action: domain.TokenActionRemove})
			c.Apply(domain.TokenUpdate{UserID: "U6", Token: "T1", Action: domain.TokenActionAdd})
		}
		close(stop)
	}()
	wg.Wait()
}

func TestTokenCache_Apply_AddIsIdempotent(t *testing.T) {
	store := &fakeTokenStore{byUser: map[string][]string{}}
	c := NewTokenCache(store)

	c.Apply(domain.TokenUpdate{UserID: "U5", Token: "T1", Action: domain.TokenActionAdd})
	c.Apply(domain.TokenUpdate{UserID: "U5", Token: "T1", Action: domain.TokenActionAdd})

	got := c.Get(context.Background(), "U5")
	if len(got) != 1 {
		t.Fatalf("want 1 token after duplicate Add, got %v", got)
	}
}
