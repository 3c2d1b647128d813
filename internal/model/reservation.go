package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reservation statuses.  Status is stored as free text; these are the
// values the service itself writes or checks.
const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
)

// TableReservation represents a booking of one table by one owning user
// for one event.  The amount still owed is never stored; it is derived as
// TotalAmount − AmountPaid when the reservation is rendered.
//
// Fields:
//  ID              – primary key (UUID).
//  TableID         – reserved table.
//  UserID          – owning user.
//  EventID         – event the table belongs to.
//  Status          – free text, see the Reservation* constants.
//  NumPeople       – party size (owner plus guests).
//  TotalAmount     – MinSpend × NumPeople.
//  AmountPaid      – sum of the payments linked to the reservation.
//  ContactName     – contact person.
//  ContactEmail    – contact email.
//  ContactPhone    – contact phone.
//  SpecialRequests – optional note from the customer.
//  Code            – unique human readable reservation code (RES-XXXXXXXX).
//  GuestIDs        – users attached as guests (loaded on demand).
//  TicketIDs       – tickets linked to the reservation (loaded on demand).
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type TableReservation struct {
	ID              uuid.UUID       // table_reservations.id
	TableID         uuid.UUID       // table_reservations.table_id
	UserID          uuid.UUID       // table_reservations.user_id
	EventID         uuid.UUID       // table_reservations.event_id
	Status          string          // table_reservations.status
	NumPeople       int             // table_reservations.num_people
	TotalAmount     decimal.Decimal // table_reservations.total_amount
	AmountPaid      decimal.Decimal // table_reservations.amount_paid
	ContactName     string          // table_reservations.contact_name
	ContactEmail    string          // table_reservations.contact_email
	ContactPhone    string          // table_reservations.contact_phone
	SpecialRequests *string         // table_reservations.special_requests (nullable)
	Code            string          // table_reservations.reservation_code
	GuestIDs        []uuid.UUID     // table_reservation_guests.user_id
	TicketIDs       []uuid.UUID     // table_reservation_tickets.ticket_id
	CreatedAt       time.Time       // table_reservations.created_at
	UpdatedAt       time.Time       // table_reservations.updated_at
}

// ReservationPatch carries the optional fields of a partial reservation
// update.  TotalAmount is not part of the patch: it is recomputed by the
// service whenever NumPeople changes and passed alongside.
type ReservationPatch struct {
	Status          *string
	NumPeople       *int
	TotalAmount     *decimal.Decimal
	ContactName     *string
	ContactEmail    *string
	ContactPhone    *string
	SpecialRequests *string
}

// Empty reports whether the patch changes nothing.
func (p ReservationPatch) Empty() bool {
	return p.Status == nil && p.NumPeople == nil && p.TotalAmount == nil && p.ContactName == nil &&
		p.ContactEmail == nil && p.ContactPhone == nil && p.SpecialRequests == nil
}

// ReservationPayment is one row of the reservation↔payment junction.
type ReservationPayment struct {
	ReservationID uuid.UUID
	PaymentID     uuid.UUID
	Amount        decimal.Decimal
	CreatedAt     time.Time
}
