package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimiter returns a per-IP limiter allowing rps requests per second with
// a burst of one second's worth of requests.
func RateLimiter(rps float64) echo.MiddlewareFunc {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:  rate.Limit(rps),
		Burst: burst,
	})
	return echomw.RateLimiter(store)
}
