package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SessionCookie carries the random id of the browser's assessment session.
const SessionCookie = "cardio_session"

// existingSession returns the session id from the cookie, if valid.
func existingSession(c *fiber.Ctx) (string, bool) {
	raw := c.Cookies(SessionCookie)
	if raw == "" {
		return "", false
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", false
	}
	return raw, true
}

// ensureSession returns the session id, issuing a new cookie when absent.
func ensureSession(c *fiber.Ctx, ttl time.Duration) string {
	if id, ok := existingSession(c); ok {
		return id
	}
	id := uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return id
}
