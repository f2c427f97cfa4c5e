package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"console-http-go/internal/metrics"
)

// MetricsMiddleware returns an Echo middleware that records Prometheus metrics
// for each inbound request, labelled by proxied prefix.
func MetricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			err := next(c)

			// An *echo.HTTPError is written later by the central error
			// handler, so the response status is not final yet.
			statusCode := c.Response().Status
			var he *echo.HTTPError
			if err != nil && errors.As(err, &he) {
				statusCode = he.Code
			}

			method := metrics.NormalizeMethod(c.Request().Method)
			status := strconv.Itoa(statusCode)
			path := m.NormalizePath(c.Request().URL.Path)

			m.RequestsTotal.WithLabelValues(method, status, path).Inc()
			m.RequestDuration.WithLabelValues(method, status, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
