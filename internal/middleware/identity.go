package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const userIDKey = "user_uuid"

// CurrentUserID returns the user authenticated by JWTAuth.  ok is false on
// routes without authentication.
func CurrentUserID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(userIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// userKey identifies the caller for rate limiting and cache keys: the
// authenticated user id, or "anon".
func userKey(c echo.Context) string {
	if id, ok := CurrentUserID(c); ok {
		return id.String()
	}
	return "anon"
}
