package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/queue"
)

// The store interfaces below are the record store operations the services
// depend on.  The MySQL repositories satisfy them; tests use in-memory
// fakes.

type TableStore interface {
	Create(ctx context.Context, t *model.Table) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Table, error)
	List(ctx context.Context) ([]model.Table, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, availableOnly bool) ([]model.Table, error)
	Update(ctx context.Context, id uuid.UUID, patch model.TablePatch) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ReservationStore interface {
	Create(ctx context.Context, r *model.TableReservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.TableReservation, error)
	GetByCode(ctx context.Context, code string) (*model.TableReservation, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	List(ctx context.Context) ([]model.TableReservation, error)
	ListByTable(ctx context.Context, tableID uuid.UUID) ([]model.TableReservation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.TableReservation, error)
	HasActiveForTable(ctx context.Context, tableID, eventID uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, patch model.ReservationPatch) error
	Delete(ctx context.Context, id uuid.UUID) error
	LinkPayment(ctx context.Context, reservationID, paymentID uuid.UUID, amount decimal.Decimal) error
	Payments(ctx context.Context, reservationID uuid.UUID) ([]model.ReservationPayment, error)
	AddGuest(ctx context.Context, reservationID, userID uuid.UUID) error
	LinkTicket(ctx context.Context, reservationID, ticketID uuid.UUID) error
	UnlinkTicket(ctx context.Context, reservationID, ticketID uuid.UUID) error
}

type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Payment, error)
	List(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error
}

type TicketStore interface {
	Create(ctx context.Context, t *model.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	GetByCode(ctx context.Context, code string) (*model.Ticket, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]model.Ticket, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Ticket, error)
	Update(ctx context.Context, id uuid.UUID, patch model.TicketPatch) error
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
}

// EventPublisher emits domain events after a reservation is created.
type EventPublisher interface {
	PublishReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent) error
}

// TableLocker serializes reservation creation per table.
type TableLocker interface {
	Lock(ctx context.Context, tableID uuid.UUID) (unlock func(), err error)
}

// call runs fn under its own deadline derived from ctx.
func call(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(cctx)
}

// fetch is call for operations that return a value.
func fetch[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(cctx)
}
