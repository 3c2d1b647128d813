package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-table-reservation/internal/handler"
	"github.com/iliyamo/club-table-reservation/internal/middleware"
)

// Handlers groups everything the router mounts.  Limiter guards the
// write endpoints; Cache fronts the table catalogue.  Both may be no-ops.
type Handlers struct {
	Health       echo.HandlerFunc
	Auth         *handler.AuthHandler
	Tables       *handler.TableHandler
	Reservations *handler.ReservationHandler
	Payments     *handler.PaymentHandler
	Limiter      echo.MiddlewareFunc
	Cache        *middleware.CatalogCache
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Health)

	g := e.Group("/v1/auth", h.Limiter)
	g.POST("/register", h.Auth.Register)
	g.POST("/login", h.Auth.Login)
}

// RegisterAPI registers every authenticated endpoint under /v1.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string) {
	v1 := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	v1.GET("/me", h.Auth.Me)

	// ---- Tables ----
	read, purge := h.Cache.Read(), h.Cache.Purge()
	v1.GET("/tables", h.Tables.List, read)
	v1.GET("/tables/:id", h.Tables.Get, read)
	v1.GET("/events/:id/tables", h.Tables.ListByEvent, read)
	v1.POST("/tables", h.Tables.Create, h.Limiter, purge)
	v1.PATCH("/tables/:id", h.Tables.Update, h.Limiter, purge)
	v1.DELETE("/tables/:id", h.Tables.Delete, h.Limiter, purge)
	v1.GET("/tables/:id/reservations", h.Reservations.ListByTable)

	// ---- Reservation workflow ----
	r := h.Reservations
	v1.POST("/reservations/payment-intent", r.CreatePaymentIntent, h.Limiter)
	v1.POST("/reservations/with-payment", r.CreateWithPayment, h.Limiter)

	// ---- Reservations ----
	v1.GET("/reservations", r.List)
	v1.GET("/reservations/code/:code", r.GetByCode)
	v1.GET("/reservations/:id", r.Get)
	v1.PATCH("/reservations/:id", r.Update, h.Limiter)
	v1.DELETE("/reservations/:id", r.Delete, h.Limiter)
	v1.GET("/users/:id/reservations", r.ListByUser)
	v1.POST("/users/:id/reservations", r.CreateForUser, h.Limiter)

	// ---- Links ----
	v1.POST("/reservations/:id/payments", r.AddPayment, h.Limiter)
	v1.GET("/reservations/:id/payments", r.Payments)
	v1.POST("/reservations/:id/tickets", r.LinkTicket, h.Limiter)
	v1.GET("/reservations/:id/tickets", r.Tickets)
	v1.DELETE("/reservations/:id/tickets/:ticketId", r.UnlinkTicket, h.Limiter)

	// ---- Tickets and payments ----
	v1.GET("/tickets/:code", r.TicketByCode)
	v1.PATCH("/tickets/:id", r.UpdateTicket, h.Limiter)
	v1.GET("/users/:id/tickets", r.UserTickets)
	v1.GET("/payments", h.Payments.Mine)
	v1.GET("/payments/:id", h.Payments.Get)
}
