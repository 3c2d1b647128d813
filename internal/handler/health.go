package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health returns a liveness handler used by load balancers.  When db is
// non-nil the handler also pings it and reports 503 if it is unreachable.
func Health(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return apiError(http.StatusServiceUnavailable, "store_unavailable", "database unreachable").SetInternal(err)
			}
		}
		return c.String(http.StatusOK, "ok")
	}
}
