package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

type fakeTokens struct {
	byUser map[string][]string
}

func (f *fakeTokens) Get(ctx context.Context, userID string) []string {
	return f.byUser[userID]
}

type fakeLimiter struct {
	mu        sync.Mutex
	lastSent  map[string]int64
	unsent    map[string]int64
	markCalls int
	incrCalls int
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{lastSent: map[string]int64{}, unsent: map[string]int64{}}
}

func (f *fakeLimiter) LastSent(ctx context.Context, token string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ts, ok := f.lastSent[token]
	return ts, ok, nil
}

func (f *fakeLimiter) UnsentCount(ctx context.Context, token string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsent[token], nil
}

func (f *fakeLimiter) IncrementUnsent(ctx context.Context, token string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrCalls++
	f.unsent[token]++
	return f.unsent[token], nil
}

func (f *fakeLimiter) MarkSent(ctx context.Context, token string, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	f.lastSent[token] = now
	f.unsent[token] = 0
	return nil
}

type sentPush struct {
	token, title, body string
}

type fakeGateway struct {
	mu       sync.Mutex
	sent     []sentPush
	failN    int
	attempts int
}

func (f *fakeGateway) Send(ctx context.Context, token, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failN > 0 {
		f.failN--
		return errors.New("transient push failure")
	}
	f.sent = append(f.sent, sentPush{token, title, body})
	return nil
}

func testConfig() PublisherConfig {
	cfg := DefaultPublisherConfig()
	cfg.RetryInitInterval = time.Millisecond
	cfg.RetryMaxInterval = 5 * time.Millisecond
	return cfg
}

func TestPublisher_S1_DispatchesToActiveTokens(t *testing.T) {
	tokens := &fakeTokens{byUser: map[string][]string{"U1": {"T1", "T2"}}}
	limiter := newFakeLimiter()
	gateway := &fakeGateway{}
	p := NewPublisher(&fakePrefs{}, tokens, limiter, gateway, testConfig())

	events := []domain.Event{
		orderEvent("U1", 1700000000100, 42, "NEW"),
		orderEvent("U1", 1700000000900, 42, "FILLED"),
	}
	if err := p.HandleBatch(context.Background(), events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gateway.sent) != 2 {
		t.Fatalf("want a push to each of 2 active tokens, got %d", len(gateway.sent))
	}
	for _, s := range gateway.sent {
		if s.body != "Order 42 matched." {
			t.Fatalf("want coalesced order message, got %q", s.body)
		}
	}
	if limiter.markCalls != 2 {
		t.Fatalf("want MarkSent called once per token, got %d", limiter.markCalls)
	}
}

func TestPublisher_ThrottledTokenIncrementsUnsentAndSkips(t *testing.T) {
	tokens := &fakeTokens{byUser: map[string][]string{"U1": {"T1"}}}
	limiter := newFakeLimiter()
	limiter.lastSent["T1"] = time.Now().UnixMilli()
	gateway := &fakeGateway{}
	p := NewPublisher(&fakePrefs{}, tokens, limiter, gateway, testConfig())

	events := []domain.Event{orderEvent("U1", time.Now().UnixMilli(), 1, "NEW")}
	if err := p.HandleBatch(context.Background(), events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gateway.sent) != 0 {
		t.Fatalf("want no dispatch while throttled, got %d", len(gateway.sent))
	}
	if limiter.incrCalls != 1 {
		t.Fatalf("want unsent count incremented once, got %d", limiter.incrCalls)
	}
}

func TestPublisher_DigestModeWhenUnsentCountExceedsOne(t *testing.T) {
	tokens := &fakeTokens{byUser: map[string][]string{"U1": {"T1"}}}
	limiter := newFakeLimiter()
	limiter.unsent["T1"] = 3
	gateway := &fakeGateway{}
	p := NewPublisher(&fakePrefs{}, tokens, limiter, gateway, testConfig())

	events := []domain.Event{orderEvent("U1", time.Now().UnixMilli(), 1, "NEW")}
	if err := p.HandleBatch(context.Background(), events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gateway.sent) != 1 {
		t.Fatalf("want one digest dispatch, got %d", len(gateway.sent))
	}
	if gateway.sent[0].title != "You have many notifications" {
		t.Fatalf("want digest title, got %q", gateway.sent[0].title)
	}
	if gateway.sent[0].body != "You have 3 unread notifications. Please check your app." {
		t.Fatalf("want digest body, got %q", gateway.sent[0].body)
	}
}

func TestPublisher_ThrottlingIsPerDeviceNotPerUser(t *testing.T) {
	tokens := &fakeTokens{byUser: map[string][]string{"U1": {"T1", "T2"}}}
	limiter := newFakeLimiter()
	limiter.lastSent["T1"] = time.Now().UnixMilli()
	gateway := &fakeGateway{}
	p := NewPublisher(&fakePrefs{}, tokens, limiter, gateway, testConfig())

	events := []domain.Event{orderEvent("U1", time.Now().UnixMilli(), 1, "NEW")}
	if err := p.HandleBatch(context.Background(), events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gateway.sent) != 1 || gateway.sent[0].token != "T2" {
		t.Fatalf("want T2 dispatched while T1 stays throttled, got %+v", gateway.sent)
	}
	if limiter.incrCalls != 1 {
		t.Fatalf("want unsent count incremented once for T1 only, got %d", limiter.incrCalls)
	}
	if limiter.markCalls != 1 {
		t.Fatalf("want MarkSent called once for T2 only, got %d", limiter.markCalls)
	}
}

func TestPublisher_RetriesThenSucceeds(t *testing.T) {
	tokens := &fakeTokens{byUser: map[string][]string{"U1": {"T1"}}}
	limiter := newFakeLimiter()
	gateway := &fakeGateway{failN: 2}
	p := NewPublisher(&fakePrefs{}, tokens, limiter, gateway, testConfig())

	events := []domain.Event{orderEvent("U1", time.Now().UnixMilli(), 1, "NEW")}
	if err := p.HandleBatch(context.Background(), events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gateway.attempts != 3 {
		t.Fatalf("want 3 total attempts (2 failures + 1 success), got %d", gateway.attempts)
	}
	if len(gateway.sent) != 1 {
		t.Fatalf("want the eventual send recorded, got %d", len(gateway.sent))
	}
}

func TestPublisher_TerminalFailureDoesNotMarkSent(t *testing.T) {
	tokens := &fakeTokens{byUser: map[string][]string{"U1": {"T1"}}}
	limiter := newFakeLimiter()
	gateway := &fakeGateway{failN: 10}
	p := NewPublisher(&fakePrefs{}, tokens, limiter, gateway, testConfig())

	events := []domain.Event{orderEvent("U1", time.Now().UnixMilli(), 1, "NEW")}
	if err := p.HandleBatch(context.Background(), events); err != nil {
		t.Fatalf("a terminal per-device failure must not fail the batch: %v", err)
	}

	if gateway.attempts != 3 {
		t.Fatalf("want exactly 3 attempts before giving up, got %d", gateway.attempts)
	}
	if limiter.markCalls != 0 {
		t.Fatalf("want MarkSent never called after a terminal failure")
	}
}

func TestPublisher_NoActiveTokensIsNoop(t *testing.T) {
	tokens := &fakeTokens{byUser: map[string][]string{}}
	limiter := newFakeLimiter()
	gateway := &fakeGateway{}
	p := NewPublisher(&fakePrefs{}, tokens, limiter, gateway, testConfig())

	events := []domain.Event{orderEvent("U1", time.Now().UnixMilli(), 1, "NEW")}
	if err := p.HandleBatch(context.Background(), events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gateway.sent) != 0 {
		t.Fatalf("want no dispatch when the user has no active tokens")
	}
}
