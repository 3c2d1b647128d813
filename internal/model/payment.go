package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a payment.  The only defined
// transitions are Pending → Completed and Pending → Failed.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a payment in status s may move to next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentPending && (next == PaymentCompleted || next == PaymentFailed)
}

// Payment models a row of the `payments` table.  Amount is immutable once
// the row exists.
//
// Fields:
//  ID             – primary key (UUID).
//  SenderID       – paying user.
//  ReceiverID     – receiving user (equal to SenderID for self-pay).
//  Amount         – amount charged.
//  Status         – pending, completed or failed.
//  ExternalID     – payment intent id at the gateway (nullable).
//  ParticipantIDs – owner plus guests covered by this payment.
//  CreatedAt      – insert timestamp.
//  UpdatedAt      – last status change.
type Payment struct {
	ID             uuid.UUID
	SenderID       uuid.UUID
	ReceiverID     uuid.UUID
	Amount         decimal.Decimal
	Status         PaymentStatus
	ExternalID     *string
	ParticipantIDs []uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PaymentFilter narrows payment listings.  Nil fields do not filter.
type PaymentFilter struct {
	SenderID   *uuid.UUID
	ReceiverID *uuid.UUID
	Status     *PaymentStatus
}
