package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// ErrorBoundary is the last-resort handler for errors and recovered panics.
// API callers get a JSON envelope; browsers get a full-page diagnostic
// panel with a reload action instead of the broken view.
func ErrorBoundary(log zerolog.Logger, showDetail bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		}

		if wantsJSON(c) {
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": message,
			})
		}

		detail := ""
		if showDetail && fe == nil {
			detail = err.Error()
		}
		c.Status(code)
		if rerr := c.Render("error", fiber.Map{
			"Status":  code,
			"Message": message,
			"Detail":  detail,
			"Path":    reloadPath(c),
		}, ""); rerr != nil {
			log.Error().Err(rerr).Msg("failed to render error page")
			return c.Status(code).SendString(message)
		}
		return nil
	}
}

// recoverMiddleware turns panics into errors handled by ErrorBoundary.
func recoverMiddleware(log zerolog.Logger) fiber.Handler {
	return recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			log.Error().Str("panic", fmt.Sprint(e)).Str("path", c.Path()).Msg("recovered from panic")
		},
	})
}

func wantsJSON(c *fiber.Ctx) bool {
	path := c.Path()
	if strings.HasPrefix(path, "/api/") || path == "/health" || path == "/metrics" {
		return true
	}
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

func reloadPath(c *fiber.Ctx) string {
	if c.Method() == fiber.MethodGet {
		return c.Path()
	}
	// a failed POST reloads the page that hosts the form
	return strings.TrimSuffix(c.Path(), "/reset")
}
