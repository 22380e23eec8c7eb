package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const originalPathKey = "_original_path"

// StripPathPrefix removes the X-Forwarded-Prefix a reverse proxy mounted the
// service under, so routes match. Register it with e.Pre.
func StripPathPrefix() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			original := req.URL.Path
			for _, prefix := range req.Header.Values("X-Forwarded-Prefix") {
				if prefix == "" {
					continue
				}
				normalized := strings.TrimSuffix(prefix, "/") + "/"
				if original == strings.TrimSuffix(prefix, "/") {
					return c.Redirect(302, normalized)
				}
				rest, ok := strings.CutPrefix(original, normalized)
				if !ok {
					continue
				}
				rest = "/" + rest
				req.URL.Path = rest
				req.URL.RawPath = ""
				req.RequestURI = rest
				if req.URL.RawQuery != "" {
					req.RequestURI += "?" + req.URL.RawQuery
				}
				c.Set(originalPathKey, original)
				break
			}
			return next(c)
		}
	}
}
