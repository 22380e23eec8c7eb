package http

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mudler/xlog"

	"github.com/qaidjoharj53/Voice-Clone-TTS/core/application"
	httpMiddleware "github.com/qaidjoharj53/Voice-Clone-TTS/core/http/middleware"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/http/routes"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/schema"
	"github.com/qaidjoharj53/Voice-Clone-TTS/core/services"
)

// multipart framing and the text field ride on top of the audio limit
const bodyLimitSlackMB = 1

func API(app *application.Application) (*echo.Echo, error) {
	appConfig := app.ApplicationConfig()
	e := echo.New()

	// Set body limit
	if appConfig.UploadLimitMB > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", appConfig.UploadLimitMB+bodyLimitSlackMB)))
	}

	// Set error handler
	if !appConfig.OpaqueErrors {
		e.HTTPErrorHandler = func(err error, c echo.Context) {
			if c.Response().Committed {
				return
			}
			code, message := http.StatusInternalServerError, services.GenericFailureMessage
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
				if m, ok := he.Message.(string); ok {
					message = m
				}
			}
			if code == http.StatusRequestEntityTooLarge {
				code, message = http.StatusBadRequest, fmt.Sprintf("Voice file must be %dMB or less.", appConfig.UploadLimitMB)
			}
			if code >= http.StatusInternalServerError {
				xlog.Error("request failed", "path", c.Request().URL.Path, "error", err)
				message = services.GenericFailureMessage
			}
			c.JSON(code, schema.ErrorResponse{Message: message})
		}
	} else {
		e.HTTPErrorHandler = func(err error, c echo.Context) {
			code := http.StatusInternalServerError
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
			}
			c.NoContent(code)
		}
	}

	// Hide banner
	e.HideBanner = true

	e.Pre(httpMiddleware.StripPathPrefix())
	e.Use(httpMiddleware.RequestID())

	// Request logging
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			xlog.Info("HTTP request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", httpMiddleware.GetRequestID(c),
			)
			return err
		}
	})

	// Recover middleware
	if !appConfig.Debug {
		e.Use(middleware.Recover())
	}

	// Metrics middleware
	if ms := app.MetricsService(); ms != nil {
		e.Use(httpMiddleware.Metrics(ms))
		routes.RegisterMetricsRoute(e, ms.Handler())
	}

	routes.HealthRoutes(e, app.Ready)

	// CORS middleware
	if appConfig.CORS {
		corsConfig := middleware.CORSConfig{}
		if appConfig.CORSAllowOrigins != "" {
			corsConfig.AllowOrigins = strings.Split(appConfig.CORSAllowOrigins, ",")
		}
		e.Use(middleware.CORSWithConfig(corsConfig))
	}

	if appConfig.GeneratedContentDir != "" {
		audioPath := application.GeneratedAudioDir(appConfig)
		if err := os.MkdirAll(audioPath, 0750); err != nil {
			return nil, fmt.Errorf("failed to create generated audio dir: %w", err)
		}
		e.Static("/"+application.GeneratedAudioRoute, audioPath)
	}

	routes.RegisterVoiceRoutes(e, app.VoiceCloneService(), app.UploadStore(), appConfig)

	// Built client, with unknown paths falling back to index.html
	if appConfig.ServeStatic && appConfig.StaticDir != "" {
		xlog.Info("Serving static client", "dir", appConfig.StaticDir)
		e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Root:  appConfig.StaticDir,
			HTML5: true,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/")
			},
		}))
	}

	e.Server.RegisterOnShutdown(func() {
		xlog.Info("voice-clone-tts API server shutting down")
	})

	return e, nil
}
