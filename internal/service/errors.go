package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/club-table-reservation/internal/pricing"
	"github.com/iliyamo/club-table-reservation/internal/utils"
)

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrTableNotFound       = errors.New("table not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrGuestNotFound       = errors.New("guest not found")
	ErrAmountMismatch      = errors.New("amount mismatch")
	ErrGateway             = errors.New("payment gateway error")
	ErrStoreUnavailable    = errors.New("record store unavailable")
	ErrTableUnavailable    = errors.New("table is already reserved")
	ErrAlreadyLinked       = errors.New("already linked")
	ErrInvalidTransition   = errors.New("invalid payment status transition")

	ErrCodeAllocationExhausted = utils.ErrCodeAllocationExhausted
)

// GuestNotFoundError names the phone number that did not resolve to a
// user.  It matches ErrGuestNotFound with errors.Is.
type GuestNotFoundError struct {
	Phone string
}

func (e *GuestNotFoundError) Error() string {
	return fmt.Sprintf("guest not found: no user with phone %q", e.Phone)
}

func (e *GuestNotFoundError) Is(target error) bool { return target == ErrGuestNotFound }

// AmountMismatchError carries both sides of a failed amount check.  It
// matches ErrAmountMismatch with errors.Is.
type AmountMismatchError struct {
	Expected decimal.Decimal
	Declared decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch: expected %s, declared %s",
		pricing.Format(e.Expected), pricing.Format(e.Declared))
}

func (e *AmountMismatchError) Is(target error) bool { return target == ErrAmountMismatch }

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// storeErr wraps a record store failure.  The original error stays in the
// chain for logging.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

func gatewayErr(err error) error {
	return fmt.Errorf("%w: %w", ErrGateway, err)
}
