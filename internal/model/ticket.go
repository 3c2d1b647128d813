package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TicketTypeTable    = "table"
	TicketStatusActive = "active"
)

// Ticket is proof of admission for one user to one event.
//
// Fields:
//  ID          – primary key (UUID).
//  EventID     – event admitted to.
//  UserID      – holder.
//  Code        – unique human readable code (TKT-XXXXXXXX).
//  Type        – free text, "table" for tickets minted by reservations.
//  Price       – price paid for the ticket.
//  Status      – free text, defaults to "active".
//  PurchasedAt – purchase timestamp.
//  QRCode      – optional QR payload.
type Ticket struct {
	ID          uuid.UUID
	EventID     uuid.UUID
	UserID      uuid.UUID
	Code        string
	Type        string
	Price       decimal.Decimal
	Status      string
	PurchasedAt time.Time
	QRCode      *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TicketPatch holds the fields of a ticket that may be edited directly.
type TicketPatch struct {
	Type   *string
	Price  *decimal.Decimal
	Status *string
	QRCode *string
}

// Empty reports whether the patch changes nothing.
func (p TicketPatch) Empty() bool {
	return p.Type == nil && p.Price == nil && p.Status == nil && p.QRCode == nil
}
