package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// MetricsMiddleware records request counts, latency and response size per route.
func (c *Controller) MetricsMiddleware() echo.MiddlewareFunc {
	httpMetrics := c.metrics.HTTP
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			httpMetrics.RequestStarted()
			defer httpMetrics.RequestFinished()

			start := time.Now()
			err := next(ctx)
			if err != nil {
				// let echo write the response so the status is known
				ctx.Error(err)
			}

			method := ctx.Request().Method
			path := routePath(ctx)
			httpMetrics.RecordHTTPRequest(method, path, ctx.Response().Status, time.Since(start).Seconds())
			httpMetrics.RecordHTTPResponseSize(method, path, ctx.Response().Size)
			return nil
		}
	}
}

// routePath returns the matched route template so label cardinality stays bounded.
func routePath(ctx echo.Context) string {
	if p := ctx.Path(); p != "" {
		return p
	}
	return "unmatched"
}

// errorType is the error_type label for an error status.
func errorType(code int) string {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return "auth"
	case code == http.StatusNotFound:
		return "not_found"
	case code == http.StatusTooManyRequests:
		return "throttled"
	case code == http.StatusServiceUnavailable:
		return "unavailable"
	case code >= http.StatusInternalServerError:
		return "server"
	default:
		return "validation"
	}
}
