// Package service holds the reservation workflow and the table, ticket and
// payment operations around it.  Services talk to the record store through
// the small interfaces in stores.go and never share state between
// requests.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/payment"
	"github.com/iliyamo/club-table-reservation/internal/pricing"
	"github.com/iliyamo/club-table-reservation/internal/queue"
	"github.com/iliyamo/club-table-reservation/internal/repository"
	"github.com/iliyamo/club-table-reservation/internal/utils"
)

// Options tunes the reservation service.
type Options struct {
	StoreTimeout   time.Duration // deadline per record store call
	GatewayTimeout time.Duration // deadline per payment gateway call
	Currency       string        // settlement currency for payment intents
	// Guard enables the double-booking check (and the table lock when a
	// locker is configured) on CreateReservationWithPayment.
	Guard bool
}

func (o Options) withDefaults() Options {
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 5 * time.Second
	}
	if o.GatewayTimeout <= 0 {
		o.GatewayTimeout = 10 * time.Second
	}
	if o.Currency == "" {
		o.Currency = "eur"
	}
	return o
}

// Deps bundles the collaborators of ReservationService.  Events and Lock
// are optional.
type Deps struct {
	Tables       TableStore
	Reservations ReservationStore
	Payments     PaymentStore
	Tickets      TicketStore
	Users        UserStore
	Gateway      payment.Gateway
	Events       EventPublisher
	Lock         TableLocker
}

// ReservationService runs the reservation-with-payment workflow and the
// direct reservation edits.
type ReservationService struct {
	tables       TableStore
	reservations ReservationStore
	payments     PaymentStore
	tickets      TicketStore
	users        UserStore
	gateway      payment.Gateway
	events       EventPublisher
	lock         TableLocker
	opts         Options
}

func NewReservationService(d Deps, opts Options) *ReservationService {
	return &ReservationService{
		tables:       d.Tables,
		reservations: d.Reservations,
		payments:     d.Payments,
		tickets:      d.Tickets,
		users:        d.Users,
		gateway:      d.Gateway,
		events:       d.Events,
		lock:         d.Lock,
		opts:         opts.withDefaults(),
	}
}

// CreateWithPaymentRequest is the input of CreateReservationWithPayment.
// Identifiers are raw strings and are validated by the service.
type CreateWithPaymentRequest struct {
	TableID           string
	EventID           string
	OwnerUserID       string
	GuestPhoneNumbers []string
	PaymentAmount     decimal.Decimal
	PaymentIntentID   string
	ContactName       string
	ContactEmail      string
	ContactPhone      string
	SpecialRequests   *string
}

// PaymentIntentRequest is the input of CreatePaymentIntent.  A nil
// DeclaredAmount skips the amount check.
type PaymentIntentRequest struct {
	TableID           string
	EventID           string
	OwnerUserID       string
	GuestPhoneNumbers []string
	DeclaredAmount    *decimal.Decimal
}

// PaymentIntentResult is returned to the client, which completes the
// payment with the gateway out of band.
type PaymentIntentResult struct {
	IntentID     string
	ClientSecret string
	Amount       decimal.Decimal
	Currency     string
}

// quote is the validated, priced view of a request shared by the payment
// intent and the workflow.
type quote struct {
	tableID  uuid.UUID
	eventID  uuid.UUID
	ownerID  uuid.UUID
	guestIDs []uuid.UUID
	table    *model.Table
	expected decimal.Decimal
}

// prepare runs the read-only part of the workflow: parse identifiers,
// resolve guests, load the table and compute the expected amount.
func (s *ReservationService) prepare(ctx context.Context, tableID, eventID, ownerID string, phones []string) (*quote, error) {
	q := &quote{}
	var err error
	if q.tableID, err = parseID("table id", tableID); err != nil {
		return nil, err
	}
	if q.eventID, err = parseID("event id", eventID); err != nil {
		return nil, err
	}
	if q.ownerID, err = parseID("owner user id", ownerID); err != nil {
		return nil, err
	}

	seen := map[uuid.UUID]bool{q.ownerID: true}
	q.guestIDs = make([]uuid.UUID, 0, len(phones))
	for _, phone := range phones {
		if strings.TrimSpace(phone) == "" {
			return nil, invalid("empty guest phone number")
		}
		u, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) (*model.User, error) {
			return s.users.GetByPhone(ctx, phone)
		})
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &GuestNotFoundError{Phone: phone}
		}
		if err != nil {
			return nil, storeErr("find guest by phone", err)
		}
		if seen[u.ID] {
			return nil, invalid("participant %s listed more than once", phone)
		}
		seen[u.ID] = true
		q.guestIDs = append(q.guestIDs, u.ID)
	}

	q.table, err = fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) (*model.Table, error) {
		return s.tables.GetByID(ctx, q.tableID)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, q.tableID)
	}
	if err != nil {
		return nil, storeErr("load table", err)
	}
	if q.table.EventID != q.eventID {
		return nil, invalid("table %s does not belong to event %s", q.tableID, q.eventID)
	}

	// The owner counts as one participant.
	q.expected, err = pricing.ReservationTotalAmount(q.table.MinSpend, 1+len(q.guestIDs))
	if err != nil {
		return nil, invalid("%v", err)
	}
	return q, nil
}

func checkAmount(expected, declared decimal.Decimal) error {
	if declared.IsNegative() {
		return invalid("payment amount must not be negative")
	}
	if !declared.Equal(expected) {
		return &AmountMismatchError{Expected: expected, Declared: declared}
	}
	return nil
}

// CreatePaymentIntent asks the gateway for a payment intent covering the
// expected amount of a reservation.  Nothing is written to the record
// store.
func (s *ReservationService) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntentResult, error) {
	q, err := s.prepare(ctx, req.TableID, req.EventID, req.OwnerUserID, req.GuestPhoneNumbers)
	if err != nil {
		return nil, err
	}
	if req.DeclaredAmount != nil {
		if err := checkAmount(q.expected, *req.DeclaredAmount); err != nil {
			return nil, err
		}
	}
	minor, err := pricing.ToMinorUnits(q.expected)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if minor == 0 {
		return nil, invalid("nothing to charge: table %s has no minimum spend", q.tableID)
	}
	metadata := map[string]string{
		"table_id":      q.tableID.String(),
		"event_id":      q.eventID.String(),
		"owner_user_id": q.ownerID.String(),
		"guest_count":   fmt.Sprint(len(q.guestIDs)),
	}
	intent, err := fetch(ctx, s.opts.GatewayTimeout, func(ctx context.Context) (*payment.Intent, error) {
		return s.gateway.CreatePaymentIntent(ctx, minor, s.opts.Currency, metadata)
	})
	if err != nil {
		return nil, gatewayErr(err)
	}
	return &PaymentIntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       q.expected,
		Currency:     s.opts.Currency,
	}, nil
}

// CreateReservationWithPayment runs the reservation workflow.  Steps run
// strictly in order and the first failure aborts the rest.  Writes already
// made are not undone: a failure after the payment row exists leaves it
// orphaned, and a failure while adding guests, minting tickets or linking
// tickets leaves the earlier rows in place.  Only the final status update
// of the payment is allowed to fail silently.
func (s *ReservationService) CreateReservationWithPayment(ctx context.Context, req CreateWithPaymentRequest) (*model.TableReservation, error) {
	q, err := s.prepare(ctx, req.TableID, req.EventID, req.OwnerUserID, req.GuestPhoneNumbers)
	if err != nil {
		return nil, err
	}
	if err := checkAmount(q.expected, req.PaymentAmount); err != nil {
		return nil, err
	}

	if s.opts.Guard {
		unlock, err := s.guardTable(ctx, q)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	participants := append([]uuid.UUID{q.ownerID}, q.guestIDs...)

	pay := &model.Payment{
		ID:             uuid.New(),
		SenderID:       q.ownerID,
		ReceiverID:     q.ownerID,
		Amount:         req.PaymentAmount,
		Status:         model.PaymentPending,
		ParticipantIDs: participants,
	}
	if id := strings.TrimSpace(req.PaymentIntentID); id != "" {
		pay.ExternalID = &id
	}
	if err := call(ctx, s.opts.StoreTimeout, func(ctx context.Context) error { return s.payments.Create(ctx, pay) }); err != nil {
		return nil, storeErr("create payment", err)
	}

	code, err := s.allocateCode(ctx, utils.ReservationCodePrefix, s.reservations.CodeExists)
	if err != nil {
		return nil, err
	}
	res := &model.TableReservation{
		ID:              uuid.New(),
		TableID:         q.tableID,
		UserID:          q.ownerID,
		EventID:         q.eventID,
		Status:          model.ReservationPending,
		NumPeople:       len(participants),
		TotalAmount:     q.expected,
		ContactName:     req.ContactName,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		SpecialRequests: req.SpecialRequests,
		Code:            code,
	}
	if err := call(ctx, s.opts.StoreTimeout, func(ctx context.Context) error { return s.reservations.Create(ctx, res) }); err != nil {
		return nil, storeErr("create reservation", err)
	}

	if err := call(ctx, s.opts.StoreTimeout, func(ctx context.Context) error {
		return s.reservations.LinkPayment(ctx, res.ID, pay.ID, req.PaymentAmount)
	}); err != nil {
		return nil, storeErr("link payment", err)
	}

	for _, guestID := range q.guestIDs {
		if err := call(ctx, s.opts.StoreTimeout, func(ctx context.Context) error {
			return s.reservations.AddGuest(ctx, res.ID, guestID)
		}); err != nil {
			return nil, storeErr("add guest", err)
		}
	}

	ticketIDs := make([]uuid.UUID, 0, len(participants))
	for _, userID := range participants {
		t, err := s.mintTicket(ctx, q.eventID, userID, q.table.MinSpend)
		if err != nil {
			return nil, err
		}
		ticketIDs = append(ticketIDs, t.ID)
	}

	for _, ticketID := range ticketIDs {
		if err := call(ctx, s.opts.StoreTimeout, func(ctx context.Context) error {
			return s.reservations.LinkTicket(ctx, res.ID, ticketID)
		}); err != nil {
			return nil, storeErr("link ticket", err)
		}
	}

	// Reconciliation from the payment.status queue corrects the status if
	// this write is lost.
	if err := call(ctx, s.opts.StoreTimeout, func(ctx context.Context) error {
		return s.payments.UpdateStatus(ctx, pay.ID, model.PaymentCompleted)
	}); err != nil {
		log.Printf("reservation: mark payment %s completed failed: %v", pay.ID, err)
	}

	final, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) (*model.TableReservation, error) {
		return s.reservations.GetByID(ctx, res.ID)
	})
	if err != nil {
		return nil, storeErr("reload reservation", err)
	}

	s.publishCreated(ctx, final, pay.ID)
	return final, nil
}

// guardTable takes the per-table lock, when configured, and refuses a
// table that already carries an active reservation for the event.
func (s *ReservationService) guardTable(ctx context.Context, q *quote) (func(), error) {
	unlock := func() {}
	if s.lock != nil {
		u, err := s.lock.Lock(ctx, q.tableID)
		if err != nil {
			return nil, err
		}
		unlock = u
	}
	busy, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) (bool, error) {
		return s.reservations.HasActiveForTable(ctx, q.tableID, q.eventID)
	})
	if err != nil {
		unlock()
		return nil, storeErr("check table reservations", err)
	}
	if busy {
		unlock()
		return nil, fmt.Errorf("%w: %s", ErrTableUnavailable, q.tableID)
	}
	return unlock, nil
}

func (s *ReservationService) allocateCode(ctx context.Context, prefix string, exists func(context.Context, string) (bool, error)) (string, error) {
	code, err := utils.AllocateUniqueCode(ctx, prefix, func(ctx context.Context, code string) (bool, error) {
		return fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) (bool, error) { return exists(ctx, code) })
	})
	if err != nil && !errors.Is(err, utils.ErrCodeAllocationExhausted) {
		return "", storeErr("allocate "+prefix+" code", err)
	}
	return code, err
}

func (s *ReservationService) mintTicket(ctx context.Context, eventID, userID uuid.UUID, price decimal.Decimal) (*model.Ticket, error) {
	code, err := s.allocateCode(ctx, utils.TicketCodePrefix, s.tickets.CodeExists)
	if err != nil {
		return nil, err
	}
	t := &model.Ticket{
		ID:      uuid.New(),
		EventID: eventID,
		UserID:  userID,
		Code:    code,
		Type:    model.TicketTypeTable,
		Price:   price,
		Status:  model.TicketStatusActive,
	}
	if err := call(ctx, s.opts.StoreTimeout, func(ctx context.Context) error { return s.tickets.Create(ctx, t) }); err != nil {
		return nil, storeErr("create ticket", err)
	}
	return t, nil
}

func (s *ReservationService) publishCreated(ctx context.Context, r *model.TableReservation, paymentID uuid.UUID) {
	if s.events == nil {
		return
	}
	ev := queue.ReservationCreatedEvent{
		ReservationID:   r.ID.String(),
		ReservationCode: r.Code,
		TableID:         r.TableID.String(),
		EventID:         r.EventID.String(),
		OwnerUserID:     r.UserID.String(),
		GuestUserIDs:    idStrings(r.GuestIDs),
		TicketIDs:       idStrings(r.TicketIDs),
		PaymentID:       paymentID.String(),
		NumPeople:       r.NumPeople,
		TotalAmount:     r.TotalAmount.StringFixed(2),
		AmountPaid:      r.AmountPaid.StringFixed(2),
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339),
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.events.PublishReservationCreated(pctx, ev); err != nil {
		log.Printf("reservation: publish %s for %s failed: %v", queue.ReservationCreatedQueue, r.Code, err)
	}
}

// CreateReservationInput is the input of CreateReservation.
type CreateReservationInput struct {
	TableID         uuid.UUID
	UserID          uuid.UUID
	EventID         uuid.UUID
	NumPeople       int
	ContactName     string
	ContactEmail    string
	ContactPhone    string
	SpecialRequests *string
}

// CreateReservation books a table without a payment.  The total amount is
// derived from the table's minimum spend and the party size.
func (s *ReservationService) CreateReservation(ctx context.Context, in CreateReservationInput) (*model.TableReservation, error) {
	if in.NumPeople < 1 {
		return nil, invalid("num_people must be at least 1")
	}
	table, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) (*model.Table, error) {
		return s.tables.GetByID(ctx, in.TableID)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, in.TableID)
	}
	if err != nil {
		return nil, storeErr("load table", err)
	}
	if in.EventID == uuid.Nil {
		in.EventID = table.EventID
	}
	total, err := pricing.ReservationTotalAmount(table.MinSpend, in.NumPeople)
	if err != nil {
		return nil, invalid("%v", err)
	}
	code, err := s.allocateCode(ctx, utils.ReservationCodePrefix, s.reservations.CodeExists)
	if err != nil {
		return nil, err
	}
	res := &model.TableReservation{
		ID:              uuid.New(),
		TableID:         in.TableID,
		UserID:          in.UserID,
		EventID:         in.EventID,
		Status:          model.ReservationPending,
		NumPeople:       in.NumPeople,
		TotalAmount:     total,
		ContactName:     in.ContactName,
		ContactEmail:    in.ContactEmail,
		ContactPhone:    in.ContactPhone,
		SpecialRequests: in.SpecialRequests,
		Code:            code,
	}
	if err := call(ctx, s.opts.StoreTimeout, func(ctx context.Context) error { return s.reservations.Create(ctx, res) }); err != nil {
		return nil, storeErr("create reservation", err)
	}
	return s.GetReservation(ctx, res.ID)
}

// GetReservation returns a reservation with its guest and ticket lists.
func (s *ReservationService) GetReservation(ctx context.Context, id uuid.UUID) (*model.TableReservation, error) {
	res, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) (*model.TableReservation, error) {
		return s.reservations.GetByID(ctx, id)
	})
	return res, s.reservationErr(err, "load reservation")
}

// GetReservationByCode looks a reservation up by its code.
func (s *ReservationService) GetReservationByCode(ctx context.Context, code string) (*model.TableReservation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, invalid("empty reservation code")
	}
	res, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) (*model.TableReservation, error) {
		return s.reservations.GetByCode(ctx, code)
	})
	return res, s.reservationErr(err, "load reservation by code")
}

func (s *ReservationService) ListReservations(ctx context.Context) ([]model.TableReservation, error) {
	out, err := fetch(ctx, s.opts.StoreTimeout, s.reservations.List)
	if err != nil {
		return nil, storeErr("list reservations", err)
	}
	return out, nil
}

func (s *ReservationService) ListReservationsByTable(ctx context.Context, tableID uuid.UUID) ([]model.TableReservation, error) {
	out, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) ([]model.TableReservation, error) {
		return s.reservations.ListByTable(ctx, tableID)
	})
	if err != nil {
		return nil, storeErr("list reservations by table", err)
	}
	return out, nil
}

func (s *ReservationService) ListReservationsByUser(ctx context.Context, userID uuid.UUID) ([]model.TableReservation, error) {
	out, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) ([]model.TableReservation, error) {
		return s.reservations.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, storeErr("list reservations by user", err)
	}
	return out, nil
}

// UpdateReservation applies a partial update.  When the party size changes
// the total amount is recomputed from the table's current minimum spend.
func (s *ReservationService) UpdateReservation(ctx context.Context, id uuid.UUID, patch model.ReservationPatch) (*model.TableReservation, error) {
	patch.TotalAmount = nil
	if patch.Status != nil && strings.TrimSpace(*patch.Status) == "" {
		return nil, invalid("status must not be empty")
	}
	if patch.NumPeople != nil {
		if *patch.NumPeople < 1 {
			return nil, invalid("num_people must be at least 1")
		}
		current, err := s.GetReservation(ctx, id)
		if err != nil {
			return nil, err
		}
		table, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) (*model.Table, error) {
			return s.tables.GetByID(ctx, current.TableID)
		})
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, current.TableID)
		}
		if err != nil {
			return nil, storeErr("load table", err)
		}
		total, err := pricing.ReservationTotalAmount(table.MinSpend, *patch.NumPeople)
		if err != nil {
			return nil, invalid("%v", err)
		}
		patch.TotalAmount = &total
	}
	err := call(ctx, s.opts.StoreTimeout, func(ctx context.Context) error { return s.reservations.Update(ctx, id, patch) })
	if err := s.reservationErr(err, "update reservation"); err != nil {
		return nil, err
	}
	return s.GetReservation(ctx, id)
}

func (s *ReservationService) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	err := call(ctx, s.opts.StoreTimeout, func(ctx context.Context) error { return s.reservations.Delete(ctx, id) })
	return s.reservationErr(err, "delete reservation")
}

// AddPayment links an existing payment to a reservation and adds its
// amount to amount_paid.
func (s *ReservationService) AddPayment(ctx context.Context, reservationID, paymentID uuid.UUID) (*model.TableReservation, error) {
	p, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) (*model.Payment, error) {
		return s.payments.GetByID(ctx, paymentID)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}
	if err != nil {
		return nil, storeErr("load payment", err)
	}
	err = call(ctx, s.opts.StoreTimeout, func(ctx context.Context) error {
		return s.reservations.LinkPayment(ctx, reservationID, paymentID, p.Amount)
	})
	if err := s.linkErr(err, "link payment"); err != nil {
		return nil, err
	}
	return s.GetReservation(ctx, reservationID)
}

// ReservationPayments lists the payment links of a reservation.
func (s *ReservationService) ReservationPayments(ctx context.Context, reservationID uuid.UUID) ([]model.ReservationPayment, error) {
	if _, err := s.GetReservation(ctx, reservationID); err != nil {
		return nil, err
	}
	out, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) ([]model.ReservationPayment, error) {
		return s.reservations.Payments(ctx, reservationID)
	})
	if err != nil {
		return nil, storeErr("list reservation payments", err)
	}
	return out, nil
}

// LinkTicket attaches an existing ticket to a reservation.
func (s *ReservationService) LinkTicket(ctx context.Context, reservationID, ticketID uuid.UUID) error {
	if _, err := s.GetTicket(ctx, ticketID); err != nil {
		return err
	}
	err := call(ctx, s.opts.StoreTimeout, func(ctx context.Context) error {
		return s.reservations.LinkTicket(ctx, reservationID, ticketID)
	})
	return s.linkErr(err, "link ticket")
}

// UnlinkTicket detaches a ticket from a reservation.  The ticket survives.
func (s *ReservationService) UnlinkTicket(ctx context.Context, reservationID, ticketID uuid.UUID) error {
	err := call(ctx, s.opts.StoreTimeout, func(ctx context.Context) error {
		return s.reservations.UnlinkTicket(ctx, reservationID, ticketID)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: ticket %s is not linked to reservation %s", ErrTicketNotFound, ticketID, reservationID)
	}
	if err != nil {
		return storeErr("unlink ticket", err)
	}
	return nil
}

// ReservationTickets returns the tickets linked to a reservation.
func (s *ReservationService) ReservationTickets(ctx context.Context, reservationID uuid.UUID) ([]model.Ticket, error) {
	if _, err := s.GetReservation(ctx, reservationID); err != nil {
		return nil, err
	}
	out, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) ([]model.Ticket, error) {
		return s.tickets.ListByReservation(ctx, reservationID)
	})
	if err != nil {
		return nil, storeErr("list reservation tickets", err)
	}
	return out, nil
}

func (s *ReservationService) GetTicket(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	t, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) (*model.Ticket, error) {
		return s.tickets.GetByID(ctx, id)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, id)
	}
	if err != nil {
		return nil, storeErr("load ticket", err)
	}
	return t, nil
}

func (s *ReservationService) GetTicketByCode(ctx context.Context, code string) (*model.Ticket, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	t, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) (*model.Ticket, error) {
		return s.tickets.GetByCode(ctx, code)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, code)
	}
	if err != nil {
		return nil, storeErr("load ticket by code", err)
	}
	return t, nil
}

// ListUserTickets returns every ticket held by a user.
func (s *ReservationService) ListUserTickets(ctx context.Context, userID uuid.UUID) ([]model.Ticket, error) {
	out, err := fetch(ctx, s.opts.StoreTimeout, func(ctx context.Context) ([]model.Ticket, error) {
		return s.tickets.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, storeErr("list user tickets", err)
	}
	return out, nil
}

// UpdateTicket edits the mutable fields of a ticket: type, price, status
// and QR payload.
func (s *ReservationService) UpdateTicket(ctx context.Context, id uuid.UUID, patch model.TicketPatch) (*model.Ticket, error) {
	if patch.Price != nil {
		if err := pricing.ValidateAmount(*patch.Price); err != nil {
			return nil, invalid("ticket price: %v", err)
		}
	}
	if patch.Status != nil && strings.TrimSpace(*patch.Status) == "" {
		return nil, invalid("ticket status must not be empty")
	}
	err := call(ctx, s.opts.StoreTimeout, func(ctx context.Context) error { return s.tickets.Update(ctx, id, patch) })
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, id)
	}
	if err != nil {
		return nil, storeErr("update ticket", err)
	}
	return s.GetTicket(ctx, id)
}

func (s *ReservationService) reservationErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrReservationNotFound
	default:
		return storeErr(op, err)
	}
}

// linkErr maps junction insert failures: a missing parent row means the
// reservation does not exist (the other side was checked first).
func (s *ReservationService) linkErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrReservationNotFound
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %s", ErrAlreadyLinked, op)
	default:
		return storeErr(op, err)
	}
}

func parseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, invalid("malformed %s %q", name, raw)
	}
	return id, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
