package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// BaseURL returns the externally visible base URL of the request, ending in "/".
// It honours X-Forwarded-Proto, X-Forwarded-Host and a prefix removed by StripPathPrefix.
func BaseURL(c echo.Context) string {
	req := c.Request()

	scheme := "http"
	if req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}

	host := req.Host
	if fh := req.Header.Get("X-Forwarded-Host"); fh != "" {
		host = fh
	}

	prefix := "/"
	if original, ok := c.Get(originalPathKey).(string); ok && original != "" {
		if p, found := strings.CutSuffix(original, req.URL.Path); found && p != "" {
			prefix = strings.TrimSuffix(p, "/") + "/"
		}
	}

	return scheme + "://" + host + prefix
}

// AbsoluteURL resolves a service-relative path such as "generated-audio/x.mp3"
// against BaseURL. Absolute URLs are returned unchanged.
func AbsoluteURL(c echo.Context, u string) string {
	if u == "" || strings.Contains(u, "://") {
		return u
	}
	return BaseURL(c) + strings.TrimPrefix(u, "/")
}
