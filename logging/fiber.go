package logging

import (
	"errors"
	"time"

	"github.com/coachpro/go-auth"
	"github.com/gofiber/fiber/v2"
)

// RequestIDKey is where fiber's requestid middleware stores the id
const RequestIDKey = "requestid"

// RequestLogger logs one line per request
func RequestLogger(logger auth.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var ferr *fiber.Error
			if errors.As(err, &ferr) {
				status = ferr.Code
			}
		}

		args := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start),
		}
		if id, ok := c.Locals(RequestIDKey).(string); ok && id != "" {
			args = append(args, "request_id", id)
		}
		if err != nil {
			args = append(args, "error", err)
		}

		switch {
		case status >= 500:
			logger.Error("request", args...)
		case status >= 400:
			logger.Warn("request", args...)
		default:
			logger.Info("request", args...)
		}
		return err
	}
}
