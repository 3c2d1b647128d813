package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/repository"
)

// PaymentService reads payments and applies status reports coming back
// from the payment gateway.
type PaymentService struct {
	payments PaymentStore
	timeout  time.Duration
}

func NewPaymentService(payments PaymentStore, storeTimeout time.Duration) *PaymentService {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &PaymentService{payments: payments, timeout: storeTimeout}
}

// ParseGatewayStatus maps a status reported by the gateway, or one of the
// local status names, to a PaymentStatus.
func ParseGatewayStatus(raw string) (model.PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "succeeded", "completed":
		return model.PaymentCompleted, nil
	case "payment_failed", "failed", "canceled", "cancelled":
		return model.PaymentFailed, nil
	case "pending", "processing", "requires_action", "requires_payment_method", "requires_confirmation":
		return model.PaymentPending, nil
	}
	return "", invalid("unknown payment status %q", raw)
}

// ReconcileStatus applies a gateway status report to the payment carrying
// externalID.  Reporting the status the payment already has is a no-op, so
// redelivered reports are harmless.
func (s *PaymentService) ReconcileStatus(ctx context.Context, externalID, rawStatus string) error {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return invalid("empty payment intent id")
	}
	status, err := ParseGatewayStatus(rawStatus)
	if err != nil {
		return err
	}
	p, err := fetch(ctx, s.timeout, func(ctx context.Context) (*model.Payment, error) {
		return s.payments.GetByExternalID(ctx, externalID)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: intent %s", ErrPaymentNotFound, externalID)
	}
	if err != nil {
		return storeErr("find payment by intent", err)
	}
	if p.Status == status {
		return nil
	}
	if !p.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, status)
	}
	err = call(ctx, s.timeout, func(ctx context.Context) error { return s.payments.UpdateStatus(ctx, p.ID, status) })
	switch {
	case err == nil:
		log.Printf("payment: %s (%s) %s -> %s", p.ID, externalID, p.Status, status)
		return nil
	case errors.Is(err, repository.ErrConflict):
		// Raced with another writer; the payment left pending meanwhile.
		return fmt.Errorf("%w: payment %s is no longer pending", ErrInvalidTransition, p.ID)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrPaymentNotFound, p.ID)
	default:
		return storeErr("update payment status", err)
	}
}

func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	p, err := fetch(ctx, s.timeout, func(ctx context.Context) (*model.Payment, error) { return s.payments.GetByID(ctx, id) })
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
	}
	if err != nil {
		return nil, storeErr("load payment", err)
	}
	return p, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, invalid("unknown payment status %q", *filter.Status)
	}
	out, err := fetch(ctx, s.timeout, func(ctx context.Context) ([]model.Payment, error) {
		return s.payments.List(ctx, filter)
	})
	if err != nil {
		return nil, storeErr("list payments", err)
	}
	return out, nil
}
