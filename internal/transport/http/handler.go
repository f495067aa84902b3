// Package http is the thin admin surface (PUT preferences, PUT/DELETE
// fcm-tokens) — it writes the document-store rows the core pipeline reads,
// and publishes the invalidation message the Token Cache subscribes to.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/raidenx/notify-pipeline/internal/domain"
)

// Handler holds the admin surface's dependencies.
type Handler struct {
	preferences  preferenceWriter
	preferenceKV preferenceKVWriter
	tokens       tokenWriter
	invalidation invalidationPublisher
}

type preferenceWriter interface {
	Upsert(ctx context.Context, userID string, prefs domain.Preferences) error
}

// preferenceKVWriter is the write-through half of the Preference Cache's
// KV tier: every preference change must land here too, or a worker that
// already has the user's old preferences cached in Redis keeps serving
// them until the TTL expires.
type preferenceKVWriter interface {
	SetPreferences(ctx context.Context, userID string, prefs domain.Preferences) error
}

type tokenWriter interface {
	Upsert(ctx context.Context, userID, deviceID, token, platform string, now int64) error
	Deactivate(ctx context.Context, userID, deviceID string, now int64) error
	TokenForDeactivation(ctx context.Context, userID, deviceID string) (string, error)
}

type invalidationPublisher interface {
	Publish(ctx context.Context, update domain.TokenUpdate) error
}

func NewHandler(preferences preferenceWriter, preferenceKV preferenceKVWriter, tokens tokenWriter, invalidation invalidationPublisher) *Handler {
	return &Handler{preferences: preferences, preferenceKV: preferenceKV, tokens: tokens, invalidation: invalidation}
}

// Health GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type preferencesRequest struct {
	Announcement bool `json:"announcement"`
	Account      bool `json:"account"`
	Campaign     bool `json:"campaign"`
	Transaction  bool `json:"transaction"`
}

// UpdatePreferences PUT /users/:id/preferences
func (h *Handler) UpdatePreferences(c echo.Context) error {
	userID := c.Param("id")

	var req preferencesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid preferences payload")
	}

	prefs := domain.Preferences{
		Announcement: req.Announcement,
		Account:      req.Account,
		Campaign:     req.Campaign,
		Transaction:  req.Transaction,
	}
	ctx := c.Request().Context()
	if err := h.preferences.Upsert(ctx, userID, prefs); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("admin: failed to upsert preferences")
		return echo.ErrInternalServerError
	}

	if err := h.preferenceKV.SetPreferences(ctx, userID, prefs); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("admin: failed to write through preferences to kv")
	}

	return c.NoContent(http.StatusNoContent)
}

type fcmTokenRequest struct {
	DeviceID string `json:"deviceId"`
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// UpsertFCMToken PUT /users/:id/fcm-tokens
func (h *Handler) UpsertFCMToken(c echo.Context) error {
	userID := c.Param("id")

	var req fcmTokenRequest
	if err := c.Bind(&req); err != nil || req.DeviceID == "" || req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid fcm token payload")
	}

	now := time.Now().UnixMilli()
	ctx := c.Request().Context()
	if err := h.tokens.Upsert(ctx, userID, req.DeviceID, req.Token, req.Platform, now); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("admin: failed to upsert fcm token")
		return echo.ErrInternalServerError
	}

	if err := h.invalidation.Publish(ctx, domain.TokenUpdate{UserID: userID, Token: req.Token, Action: domain.TokenActionAdd}); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("admin: failed to publish token invalidation")
	}

	return c.NoContent(http.StatusNoContent)
}

// DeleteFCMToken DELETE /users/:id/fcm-tokens/:deviceId
func (h *Handler) DeleteFCMToken(c echo.Context) error {
	userID := c.Param("id")
	deviceID := c.Param("deviceId")
	ctx := c.Request().Context()

	token, err := h.tokens.TokenForDeactivation(ctx, userID, deviceID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "fcm token not found")
	}

	now := time.Now().UnixMilli()
	if err := h.tokens.Deactivate(ctx, userID, deviceID, now); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("device_id", deviceID).Msg("admin: failed to deactivate fcm token")
		return echo.ErrInternalServerError
	}

	if err := h.invalidation.Publish(ctx, domain.TokenUpdate{UserID: userID, Token: token, Action: domain.TokenActionRemove}); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("admin: failed to publish token invalidation")
	}

	return c.NoContent(http.StatusNoContent)
}
