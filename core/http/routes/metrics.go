package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func RegisterMetricsRoute(e *echo.Echo, handler http.Handler) {
	e.GET("/metrics", echo.WrapHandler(handler))
}
