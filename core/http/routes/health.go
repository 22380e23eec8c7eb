package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/schema"
)

// ReadinessCheck reports whether the service can take requests.
type ReadinessCheck func() error

func HealthRoutes(e *echo.Echo, ready ReadinessCheck) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/readyz", func(c echo.Context) error {
		if ready != nil {
			if err := ready(); err != nil {
				return c.JSON(http.StatusServiceUnavailable, schema.ErrorResponse{Message: err.Error()})
			}
		}
		return c.NoContent(http.StatusOK)
	})
}
