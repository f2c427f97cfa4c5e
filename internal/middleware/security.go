package middleware

import (
	"github.com/labstack/echo/v4"

	"console-http-go/internal/model"
)

// SecurityHeaders returns an Echo middleware that strips hop-by-hop headers
// from requests and adds hardening headers to responses. Framing is limited
// to the same origin so the console can still embed its own pages.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, h := range model.HopByHopHeaders {
				c.Request().Header.Del(h)
			}

			// Set before next: a streamed body commits headers early.
			c.Response().Header().Set("X-Content-Type-Options", "nosniff")
			c.Response().Header().Set("X-Frame-Options", "SAMEORIGIN")
			return next(c)
		}
	}
}
