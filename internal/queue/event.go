// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names.
const (
	ReservationCreatedQueue = "reservation.created"
	PaymentStatusQueue      = "payment.status"
)

// ReservationCreatedEvent is published after a reservation with payment
// was created.  It carries enough information for downstream consumers to
// notify participants without querying the primary database.  Amounts are
// decimal strings.
type ReservationCreatedEvent struct {
	ReservationID   string   `json:"reservation_id"`
	ReservationCode string   `json:"reservation_code"`
	TableID         string   `json:"table_id"`
	EventID         string   `json:"event_id"`
	OwnerUserID     string   `json:"owner_user_id"`
	GuestUserIDs    []string `json:"guest_user_ids"`
	TicketIDs       []string `json:"ticket_ids"`
	PaymentID       string   `json:"payment_id"`
	NumPeople       int      `json:"num_people"`
	TotalAmount     string   `json:"total_amount"`
	AmountPaid      string   `json:"amount_paid"`
	CreatedAt       string   `json:"created_at"`
}

// PaymentStatusEvent reports the final state of a payment intent at the
// gateway.  Status uses the gateway's vocabulary ("succeeded",
// "payment_failed") or the local one ("completed", "failed").
type PaymentStatusEvent struct {
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
}
