// Package auth implements the API-key authentication gate, the first stage of
// the request admission pipeline.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
)

// HeaderAPIKey carries the client credential, and doubles as the rate-limit
// identity when present.
const HeaderAPIKey = "X-API-Key"

const (
	missingKeyMessage = "API key is missing. Please provide X-API-Key header."
	invalidKeyMessage = "Invalid API key"
)

// defaultExemptPrefixes are health/docs paths served without a key.
var defaultExemptPrefixes = []string{"/healthz", "/swagger-ui", "/api-docs"}

// Authenticator validates the static API key on every non-exempt request.
type Authenticator struct {
	apiKey         string
	exemptPrefixes []string
}

func New(apiKey string, exemptPrefixes ...string) *Authenticator {
	if len(exemptPrefixes) == 0 {
		exemptPrefixes = defaultExemptPrefixes
	}
	return &Authenticator{apiKey: apiKey, exemptPrefixes: exemptPrefixes}
}

// Middleware rejects requests without the exact configured key. It never
// forwards a failed request downstream.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			path := c.Request().URL.Path
			if a.exempt(path) {
				return next(c)
			}

			key := c.Request().Header.Get(HeaderAPIKey)
			if key == "" {
				slog.Warn("missing API key", "path", path)
				return reject(c, missingKeyMessage)
			}
			if key != a.apiKey {
				slog.Warn("invalid API key", "path", path)
				return reject(c, invalidKeyMessage)
			}
			return next(c)
		}
	}
}

func (a *Authenticator) exempt(path string) bool {
	for _, prefix := range a.exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func reject(c *echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, map[string]any{
		"success": false,
		"message": message,
	})
}
