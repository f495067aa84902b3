package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/raidenx/notify-pipeline/internal/transport/mw"
)

// NewRouter sets up the admin surface's routes and middleware.
func NewRouter(h *Handler, bearerSecret string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())

	e.GET("/health", h.Health)

	admin := e.Group("")
	admin.Use(mw.BearerAuth(bearerSecret))

	admin.PUT("/users/:id/preferences", h.UpdatePreferences)
	admin.PUT("/users/:id/fcm-tokens", h.UpsertFCMToken)
	admin.DELETE("/users/:id/fcm-tokens/:deviceId", h.DeleteFCMToken)

	return e
}
