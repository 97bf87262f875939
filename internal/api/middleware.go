package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/safetywatch/internal/metrics"
)

// RequestLogging logs each request and records it in m, which may be nil.
func RequestLogging(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		latency := time.Since(start)
		status := c.Writer.Status()

		m.ObserveHTTP(c.Request.Method, route, status, latency)

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			slog.Error("request", attrs...)
		case route == "/health" || route == "/metrics":
			slog.Debug("request", attrs...)
		default:
			slog.Info("request", attrs...)
		}
	}
}
