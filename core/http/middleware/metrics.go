package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// APICallObserver records one HTTP call.
type APICallObserver interface {
	ObserveAPICall(method string, path string, status int, duration float64)
}

// Metrics times every API call except probes, static assets and /metrics itself.
func Metrics(observer APICallObserver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipMetrics(c.Request().URL.Path) {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			// route template keeps label cardinality bounded
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			observer.ObserveAPICall(c.Request().Method, path, status, time.Since(start).Seconds())
			return err
		}
	}
}

func skipMetrics(path string) bool {
	return !strings.HasPrefix(path, "/api/")
}
