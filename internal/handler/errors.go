package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-table-reservation/internal/middleware"
	"github.com/iliyamo/club-table-reservation/internal/service"
)

func apiError(status int, kind, msg string) *echo.HTTPError {
	return echo.NewHTTPError(status, middleware.ErrorBody{Error: kind, Message: msg})
}

func badRequest(msg string) *echo.HTTPError {
	return apiError(http.StatusBadRequest, "invalid_argument", msg)
}

// toHTTPError maps service errors to a status and error kind.  Store and
// unexpected failures hide their cause from the client; ErrorHandler logs
// it.
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	switch {
	case errors.Is(err, service.ErrGuestNotFound):
		return apiError(http.StatusBadRequest, "guest_not_found", err.Error())
	case errors.Is(err, service.ErrAmountMismatch):
		return apiError(http.StatusBadRequest, "amount_mismatch", err.Error())
	case errors.Is(err, service.ErrInvalidArgument):
		return apiError(http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, service.ErrTableNotFound),
		errors.Is(err, service.ErrReservationNotFound),
		errors.Is(err, service.ErrTicketNotFound),
		errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return apiError(http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrTableUnavailable),
		errors.Is(err, service.ErrAlreadyLinked),
		errors.Is(err, service.ErrInvalidTransition):
		return apiError(http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrGateway):
		return apiError(http.StatusBadGateway, "gateway_error", err.Error())
	case errors.Is(err, service.ErrCodeAllocationExhausted):
		return apiError(http.StatusInternalServerError, "code_allocation_exhausted", "could not allocate a unique code").SetInternal(err)
	case errors.Is(err, service.ErrStoreUnavailable):
		return apiError(http.StatusInternalServerError, "store_unavailable", "record store unavailable").SetInternal(err)
	}
	return apiError(http.StatusInternalServerError, "internal", "internal server error").SetInternal(err)
}
