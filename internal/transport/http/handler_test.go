package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

type fakePreferenceWriter struct {
	lastUserID string
	lastPrefs  domain.Preferences
	fail       bool
}

func (f *fakePreferenceWriter) Upsert(ctx context.Context, userID string, prefs domain.Preferences) error {
	if f.fail {
		return errors.New("mongo down")
	}
	f.lastUserID = userID
	f.lastPrefs = prefs
	return nil
}

type fakePreferenceKVWriter struct {
	lastUserID string
	lastPrefs  domain.Preferences
	calls      int
}

func (f *fakePreferenceKVWriter) SetPreferences(ctx context.Context, userID string, prefs domain.Preferences) error {
	f.calls++
	f.lastUserID = userID
	f.lastPrefs = prefs
	return nil
}

type fakeTokenWriter struct {
	tokenForUser map[string]string
	deactivated  bool
}

func (f *fakeTokenWriter) Upsert(ctx context.Context, userID, deviceID, token, platform string, now int64) error {
	return nil
}

func (f *fakeTokenWriter) Deactivate(ctx context.Context, userID, deviceID string, now int64) error {
	f.deactivated = true
	return nil
}

func (f *fakeTokenWriter) TokenForDeactivation(ctx context.Context, userID, deviceID string) (string, error) {
	token, ok := f.tokenForUser[userID+":"+deviceID]
	if !ok {
		return "", errors.New("not found")
	}
	return token, nil
}

type fakeInvalidationPublisher struct {
	published []domain.TokenUpdate
}

func (f *fakeInvalidationPublisher) Publish(ctx context.Context, update domain.TokenUpdate) error {
	f.published = append(f.published, update)
	return nil
}

func signedToken(t *testing.T, secret, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestUpdatePreferences_WritesThroughToStore(t *testing.T) {
	prefs := &fakePreferenceWriter{}
	kv := &fakePreferenceKVWriter{}
	h := NewHandler(prefs, kv, &fakeTokenWriter{}, &fakeInvalidationPublisher{})
	e := NewRouter(h, "test-secret")

	body := `{"announcement":false,"account":true,"campaign":true,"transaction":false}`
	req := httptest.NewRequest(http.MethodPut, "/users/U1/preferences", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "test-secret", "operator-1"))
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if prefs.lastUserID != "U1" {
		t.Fatalf("want upsert for U1, got %q", prefs.lastUserID)
	}
	if prefs.lastPrefs.Announcement || !prefs.lastPrefs.Account {
		t.Fatalf("want preferences passed through, got %+v", prefs.lastPrefs)
	}
	if kv.calls != 1 || kv.lastUserID != "U1" {
		t.Fatalf("want preference write-through to kv for U1, got calls=%d userID=%q", kv.calls, kv.lastUserID)
	}
	if kv.lastPrefs.Announcement || !kv.lastPrefs.Account {
		t.Fatalf("want kv write-through to carry the same preferences, got %+v", kv.lastPrefs)
	}
}

func TestUpsertFCMToken_PublishesAddInvalidation(t *testing.T) {
	inv := &fakeInvalidationPublisher{}
	h := NewHandler(&fakePreferenceWriter{}, &fakePreferenceKVWriter{}, &fakeTokenWriter{}, inv)
	e := NewRouter(h, "test-secret")

	body := `{"deviceId":"D1","token":"T1","platform":"android"}`
	req := httptest.NewRequest(http.MethodPut, "/users/U1/fcm-tokens", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "test-secret", "operator-1"))
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(inv.published) != 1 || inv.published[0].Action != domain.TokenActionAdd {
		t.Fatalf("want one Add invalidation published, got %+v", inv.published)
	}
}

func TestDeleteFCMToken_PublishesRemoveInvalidation(t *testing.T) {
	tokens := &fakeTokenWriter{tokenForUser: map[string]string{"U1:D1": "T1"}}
	inv := &fakeInvalidationPublisher{}
	h := NewHandler(&fakePreferenceWriter{}, &fakePreferenceKVWriter{}, tokens, inv)
	e := NewRouter(h, "test-secret")

	req := httptest.NewRequest(http.MethodDelete, "/users/U1/fcm-tokens/D1", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "test-secret", "operator-1"))
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if !tokens.deactivated {
		t.Fatalf("want token deactivated")
	}
	if len(inv.published) != 1 || inv.published[0].Action != domain.TokenActionRemove {
		t.Fatalf("want one Remove invalidation published, got %+v", inv.published)
	}
}

func TestBearerAuth_RejectsMissingToken(t *testing.T) {
	h := NewHandler(&fakePreferenceWriter{}, &fakePreferenceKVWriter{}, &fakeTokenWriter{}, &fakeInvalidationPublisher{})
	e := NewRouter(h, "test-secret")

	req := httptest.NewRequest(http.MethodPut, "/users/U1/preferences", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 without a bearer token, got %d", rec.Code)
	}
}

func TestBearerAuth_RejectsWrongSecret(t *testing.T) {
	h := NewHandler(&fakePreferenceWriter{}, &fakePreferenceKVWriter{}, &fakeTokenWriter{}, &fakeInvalidationPublisher{})
	e := NewRouter(h, "test-secret")

	req := httptest.NewRequest(http.MethodPut, "/users/U1/preferences", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "wrong-secret", "operator-1"))
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 with a wrongly-signed token, got %d", rec.Code)
	}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	h := NewHandler(&fakePreferenceWriter{}, &fakePreferenceKVWriter{}, &fakeTokenWriter{}, &fakeInvalidationPublisher{})
	e := NewRouter(h, "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
}
