package middleware

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/monitoring"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id, logs it and records the HTTP metrics.
func RequestLogger() echo.MiddlewareFunc {
	logger := logging.Named("http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := req.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(requestIDHeader, requestID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := c.Response().Status
			elapsed := time.Since(start)

			monitoring.HttpRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			monitoring.ResponseTimeHistogram.WithLabelValues(req.Method, path).Observe(elapsed.Seconds())

			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", req.Method),
				zap.String("path", path),
				zap.Int("status", status),
				zap.Duration("latency", elapsed),
				zap.String("ip", c.RealIP()),
			}
			if status >= 500 {
				logger.Error("request failed", append(fields, zap.Error(err))...)
			} else {
				logger.Info("request", fields...)
			}
			return nil
		}
	}
}
