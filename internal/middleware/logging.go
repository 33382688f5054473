package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/taskboard/backend/pkg/logger"
)

const requestIDKey = "requestID"

// RequestLogger assigns a request id and emits one structured log line per
// completed request.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		c.Locals(requestIDKey, requestID)
		c.Set("X-Request-ID", requestID)

		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		details := map[string]interface{}{
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      c.Response().StatusCode(),
			"duration_ms": elapsed.Milliseconds(),
			"ip":          c.IP(),
			"request_id":  requestID,
		}

		if user := GetCurrentUser(c); user != nil {
			logger.InfoWithUser(user.ID.String(), "http_request", details)
		} else {
			logger.Info("http_request", details)
		}

		return err
	}
}

// GetRequestID returns the id assigned by RequestLogger, or "" outside of it.
func GetRequestID(c *fiber.Ctx) string {
	if value, ok := c.Locals(requestIDKey).(string); ok {
		return value
	}
	return ""
}
