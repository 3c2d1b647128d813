package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/club-table-reservation/internal/middleware"
	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/pricing"
	"github.com/iliyamo/club-table-reservation/internal/service"
)

// ReservationAPI is the part of service.ReservationService the HTTP layer
// uses.
type ReservationAPI interface {
	CreatePaymentIntent(ctx context.Context, req service.PaymentIntentRequest) (*service.PaymentIntentResult, error)
	CreateReservationWithPayment(ctx context.Context, req service.CreateWithPaymentRequest) (*model.TableReservation, error)
	CreateReservation(ctx context.Context, in service.CreateReservationInput) (*model.TableReservation, error)
	GetReservation(ctx context.Context, id uuid.UUID) (*model.TableReservation, error)
	GetReservationByCode(ctx context.Context, code string) (*model.TableReservation, error)
	ListReservations(ctx context.Context) ([]model.TableReservation, error)
	ListReservationsByTable(ctx context.Context, tableID uuid.UUID) ([]model.TableReservation, error)
	ListReservationsByUser(ctx context.Context, userID uuid.UUID) ([]model.TableReservation, error)
	UpdateReservation(ctx context.Context, id uuid.UUID, patch model.ReservationPatch) (*model.TableReservation, error)
	DeleteReservation(ctx context.Context, id uuid.UUID) error
	AddPayment(ctx context.Context, reservationID, paymentID uuid.UUID) (*model.TableReservation, error)
	ReservationPayments(ctx context.Context, reservationID uuid.UUID) ([]model.ReservationPayment, error)
	LinkTicket(ctx context.Context, reservationID, ticketID uuid.UUID) error
	UnlinkTicket(ctx context.Context, reservationID, ticketID uuid.UUID) error
	ReservationTickets(ctx context.Context, reservationID uuid.UUID) ([]model.Ticket, error)
	GetTicketByCode(ctx context.Context, code string) (*model.Ticket, error)
	ListUserTickets(ctx context.Context, userID uuid.UUID) ([]model.Ticket, error)
	UpdateTicket(ctx context.Context, id uuid.UUID, patch model.TicketPatch) (*model.Ticket, error)
}

// ReservationHandler serves reservation, ticket link and payment link
// endpoints.  Every route sits behind JWTAuth.
type ReservationHandler struct {
	svc ReservationAPI
}

func NewReservationHandler(svc ReservationAPI) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

// ----- DTOs -----

type paymentIntentReq struct {
	TableID           string           `json:"tableId"`
	EventID           string           `json:"eventId"`
	OwnerUserID       string           `json:"ownerUserId"`
	GuestPhoneNumbers []string         `json:"guestPhoneNumbers"`
	PaymentAmount     *decimal.Decimal `json:"paymentAmount"`
}

type paymentIntentResp struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
}

type withPaymentReq struct {
	TableID               string           `json:"tableId"`
	EventID               string           `json:"eventId"`
	OwnerUserID           string           `json:"ownerUserId"`
	GuestPhoneNumbers     []string         `json:"guestPhoneNumbers"`
	PaymentAmount         *decimal.Decimal `json:"paymentAmount"`
	StripePaymentIntentID string           `json:"stripePaymentIntentId"`
	ContactName           string           `json:"contactName"`
	ContactEmail          string           `json:"contactEmail"`
	ContactPhone          string           `json:"contactPhone"`
	SpecialRequests       *string          `json:"specialRequests"`
}

type createReservationReq struct {
	TableID         string  `json:"tableId"`
	EventID         string  `json:"eventId"`
	NumPeople       int     `json:"numPeople"`
	ContactName     string  `json:"contactName"`
	ContactEmail    string  `json:"contactEmail"`
	ContactPhone    string  `json:"contactPhone"`
	SpecialRequests *string `json:"specialRequests"`
}

type updateReservationReq struct {
	Status          *string `json:"status"`
	NumPeople       *int    `json:"numPeople"`
	ContactName     *string `json:"contactName"`
	ContactEmail    *string `json:"contactEmail"`
	ContactPhone    *string `json:"contactPhone"`
	SpecialRequests *string `json:"specialRequests"`
}

type linkPaymentReq struct {
	PaymentID string `json:"paymentId"`
}

type linkTicketReq struct {
	TicketID string `json:"ticketId"`
}

type updateTicketReq struct {
	Type   *string          `json:"type"`
	Price  *decimal.Decimal `json:"price"`
	Status *string          `json:"status"`
	QRCode *string          `json:"qrCode"`
}

// ownerFor resolves the reservation owner: the authenticated user, who may
// not act on behalf of someone else.
func ownerFor(c echo.Context, requested string) (string, error) {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return "", apiError(http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	if requested == "" {
		return uid.String(), nil
	}
	if id, err := uuid.Parse(requested); err == nil && id != uid {
		return "", apiError(http.StatusForbidden, "forbidden", "ownerUserId must be the authenticated user")
	}
	return requested, nil
}

// CreatePaymentIntent handles POST /v1/reservations/payment-intent.
func (h *ReservationHandler) CreatePaymentIntent(c echo.Context) error {
	var req paymentIntentReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	owner, err := ownerFor(c, req.OwnerUserID)
	if err != nil {
		return err
	}
	out, err := h.svc.CreatePaymentIntent(c.Request().Context(), service.PaymentIntentRequest{
		TableID:           req.TableID,
		EventID:           req.EventID,
		OwnerUserID:       owner,
		GuestPhoneNumbers: req.GuestPhoneNumbers,
		DeclaredAmount:    req.PaymentAmount,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, paymentIntentResp{
		PaymentIntentID: out.IntentID,
		ClientSecret:    out.ClientSecret,
		Amount:          out.Amount.StringFixed(2),
		Currency:        out.Currency,
	})
}

// CreateWithPayment handles POST /v1/reservations/with-payment.
func (h *ReservationHandler) CreateWithPayment(c echo.Context) error {
	var req withPaymentReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if req.PaymentAmount == nil {
		return badRequest("paymentAmount is required")
	}
	owner, err := ownerFor(c, req.OwnerUserID)
	if err != nil {
		return err
	}
	res, err := h.svc.CreateReservationWithPayment(c.Request().Context(), service.CreateWithPaymentRequest{
		TableID:           req.TableID,
		EventID:           req.EventID,
		OwnerUserID:       owner,
		GuestPhoneNumbers: req.GuestPhoneNumbers,
		PaymentAmount:     *req.PaymentAmount,
		PaymentIntentID:   req.StripePaymentIntentID,
		ContactName:       req.ContactName,
		ContactEmail:      req.ContactEmail,
		ContactPhone:      req.ContactPhone,
		SpecialRequests:   req.SpecialRequests,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toReservationResponse(res))
}

// CreateForUser handles POST /v1/users/:id/reservations: a booking without
// payment, priced from the table.
func (h *ReservationHandler) CreateForUser(c echo.Context) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		return badRequest("invalid tableId")
	}
	var eventID uuid.UUID
	if req.EventID != "" {
		if eventID, err = uuid.Parse(req.EventID); err != nil {
			return badRequest("invalid eventId")
		}
	}
	res, err := h.svc.CreateReservation(c.Request().Context(), service.CreateReservationInput{
		TableID:         tableID,
		UserID:          userID,
		EventID:         eventID,
		NumPeople:       req.NumPeople,
		ContactName:     req.ContactName,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toReservationResponse(res))
}

// List handles GET /v1/reservations.
func (h *ReservationHandler) List(c echo.Context) error {
	out, err := h.svc.ListReservations(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationList(out))
}

// ListByUser handles GET /v1/users/:id/reservations.
func (h *ReservationHandler) ListByUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.svc.ListReservationsByUser(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationList(out))
}

// ListByTable handles GET /v1/tables/:id/reservations.
func (h *ReservationHandler) ListByTable(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.svc.ListReservationsByTable(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationList(out))
}

func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	res, err := h.svc.GetReservation(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *ReservationHandler) GetByCode(c echo.Context) error {
	res, err := h.svc.GetReservationByCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(res))
}

// Update handles PATCH /v1/reservations/:id.
func (h *ReservationHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	res, err := h.svc.UpdateReservation(c.Request().Context(), id, model.ReservationPatch{
		Status:          req.Status,
		NumPeople:       req.NumPeople,
		ContactName:     req.ContactName,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *ReservationHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteReservation(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddPayment handles POST /v1/reservations/:id/payments.
func (h *ReservationHandler) AddPayment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req linkPaymentReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		return badRequest("invalid paymentId")
	}
	res, err := h.svc.AddPayment(c.Request().Context(), id, paymentID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toReservationResponse(res))
}

// Payments handles GET /v1/reservations/:id/payments.
func (h *ReservationHandler) Payments(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	links, err := h.svc.ReservationPayments(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	out := make([]reservationPaymentResponse, len(links))
	for i, l := range links {
		out[i] = reservationPaymentResponse{PaymentID: l.PaymentID.String(), Amount: pricing.Format(l.Amount), LinkedAt: l.CreatedAt}
	}
	return c.JSON(http.StatusOK, out)
}

// LinkTicket handles POST /v1/reservations/:id/tickets.
func (h *ReservationHandler) LinkTicket(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req linkTicketReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	ticketID, err := uuid.Parse(req.TicketID)
	if err != nil {
		return badRequest("invalid ticketId")
	}
	if err := h.svc.LinkTicket(c.Request().Context(), id, ticketID); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UnlinkTicket handles DELETE /v1/reservations/:id/tickets/:ticketId.
func (h *ReservationHandler) UnlinkTicket(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ticketID, err := pathID(c, "ticketId")
	if err != nil {
		return err
	}
	if err := h.svc.UnlinkTicket(c.Request().Context(), id, ticketID); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Tickets handles GET /v1/reservations/:id/tickets.
func (h *ReservationHandler) Tickets(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.svc.ReservationTickets(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toTicketList(out))
}

// TicketByCode handles GET /v1/tickets/:code.
func (h *ReservationHandler) TicketByCode(c echo.Context) error {
	t, err := h.svc.GetTicketByCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toTicketResponse(t))
}

// UserTickets handles GET /v1/users/:id/tickets.
func (h *ReservationHandler) UserTickets(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.svc.ListUserTickets(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toTicketList(out))
}

// UpdateTicket handles PATCH /v1/tickets/:id.
func (h *ReservationHandler) UpdateTicket(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateTicketReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	t, err := h.svc.UpdateTicket(c.Request().Context(), id, model.TicketPatch{
		Type: req.Type, Price: req.Price, Status: req.Status, QRCode: req.QRCode,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toTicketResponse(t))
}
