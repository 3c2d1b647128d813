package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-table-reservation/internal/middleware"
	"github.com/iliyamo/club-table-reservation/internal/model"
)

type PaymentAPI interface {
	GetPayment(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, error)
}

type PaymentHandler struct {
	svc PaymentAPI
}

func NewPaymentHandler(svc PaymentAPI) *PaymentHandler { return &PaymentHandler{svc: svc} }

func (h *PaymentHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPayment(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toPaymentResponse(p))
}

// Mine handles GET /v1/payments: payments sent by the caller, optionally
// filtered by ?status=.
func (h *PaymentHandler) Mine(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return apiError(http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	filter := model.PaymentFilter{SenderID: &uid}
	if raw := c.QueryParam("status"); raw != "" {
		st := model.PaymentStatus(raw)
		filter.Status = &st
	}
	out, err := h.svc.ListPayments(c.Request().Context(), filter)
	if err != nil {
		return toHTTPError(err)
	}
	list := make([]paymentResponse, len(out))
	for i := range out {
		list[i] = toPaymentResponse(&out[i])
	}
	return c.JSON(http.StatusOK, list)
}
