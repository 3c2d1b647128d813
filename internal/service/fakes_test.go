package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/payment"
	"github.com/iliyamo/club-table-reservation/internal/queue"
	"github.com/iliyamo/club-table-reservation/internal/repository"
)

// memWorld is an in-memory record store shared by the fake stores below.
// fail maps an operation name to the error every call returns; failOn
// fails only the nth call of an operation (1-based).  codesTaken makes
// CodeExists report every candidate as used for the named store.  writes
// counts every successful mutation.
type memWorld struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*model.User
	tables       map[uuid.UUID]*model.Table
	reservations map[uuid.UUID]*model.TableReservation
	payments     map[uuid.UUID]*model.Payment
	tickets      map[uuid.UUID]*model.Ticket
	resPayments  []model.ReservationPayment
	guests       map[uuid.UUID][]uuid.UUID
	resTickets   map[uuid.UUID][]uuid.UUID
	fail         map[string]error
	failOn       map[string]nthFailure
	calls        map[string]int
	codesTaken   map[string]bool
	writes       int
}

type nthFailure struct {
	n   int
	err error
}

var errBoom = errors.New("connection reset by peer")

func newWorld() *memWorld {
	return &memWorld{
		users:        map[uuid.UUID]*model.User{},
		tables:       map[uuid.UUID]*model.Table{},
		reservations: map[uuid.UUID]*model.TableReservation{},
		payments:     map[uuid.UUID]*model.Payment{},
		tickets:      map[uuid.UUID]*model.Ticket{},
		guests:       map[uuid.UUID][]uuid.UUID{},
		resTickets:   map[uuid.UUID][]uuid.UUID{},
		fail:         map[string]error{},
		failOn:       map[string]nthFailure{},
		calls:        map[string]int{},
		codesTaken:   map[string]bool{},
	}
}

func (w *memWorld) check(op string) error {
	w.calls[op]++
	if err, ok := w.fail[op]; ok {
		return err
	}
	if f, ok := w.failOn[op]; ok && f.n == w.calls[op] {
		return f.err
	}
	return nil
}

func (w *memWorld) addUser(phone string) *model.User {
	w.mu.Lock()
	defer w.mu.Unlock()
	u := &model.User{ID: uuid.New(), Email: phone + "@example.com", PhoneNumber: &phone, IsActive: true}
	w.users[u.ID] = u
	return u
}

func (w *memWorld) addTable(eventID uuid.UUID, capacity int, minSpend string) *model.Table {
	w.mu.Lock()
	defer w.mu.Unlock()
	ms := decimal.RequireFromString(minSpend)
	t := &model.Table{
		ID:        uuid.New(),
		EventID:   eventID,
		Name:      "T1",
		Capacity:  capacity,
		MinSpend:  ms,
		TotalCost: ms.Mul(decimal.NewFromInt(int64(capacity))),
		Available: true,
	}
	w.tables[t.ID] = t
	return t
}

func (w *memWorld) stores() Deps {
	return Deps{
		Tables:       memTables{w},
		Reservations: memReservations{w},
		Payments:     memPayments{w},
		Tickets:      memTickets{w},
		Users:        memUsers{w},
	}
}

type memUsers struct{ w *memWorld }

func (s memUsers) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if u, ok := s.w.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (s memUsers) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if err := s.w.check("users.GetByPhone"); err != nil {
		return nil, err
	}
	for _, u := range s.w.users {
		if u.PhoneNumber != nil && *u.PhoneNumber == phone {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type memTables struct{ w *memWorld }

func (s memTables) Create(ctx context.Context, t *model.Table) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if err := s.w.check("tables.Create"); err != nil {
		return err
	}
	cp := *t
	s.w.tables[t.ID] = &cp
	s.w.writes++
	return nil
}

func (s memTables) GetByID(ctx context.Context, id uuid.UUID) (*model.Table, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if err := s.w.check("tables.GetByID"); err != nil {
		return nil, err
	}
	if t, ok := s.w.tables[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s memTables) List(ctx context.Context) ([]model.Table, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var out []model.Table
	for _, t := range s.w.tables {
		out = append(out, *t)
	}
	return out, nil
}

func (s memTables) ListByEvent(ctx context.Context, eventID uuid.UUID, availableOnly bool) ([]model.Table, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var out []model.Table
	for _, t := range s.w.tables {
		if t.EventID == eventID && (!availableOnly || t.Available) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s memTables) Update(ctx context.Context, id uuid.UUID, p model.TablePatch) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	t, ok := s.w.tables[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Capacity != nil {
		t.Capacity = *p.Capacity
	}
	if p.MinSpend != nil {
		t.MinSpend = *p.MinSpend
	}
	if p.TotalCost != nil {
		t.TotalCost = *p.TotalCost
	}
	if p.Available != nil {
		t.Available = *p.Available
	}
	s.w.writes++
	return nil
}

func (s memTables) Delete(ctx context.Context, id uuid.UUID) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if _, ok := s.w.tables[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.w.tables, id)
	s.w.writes++
	return nil
}

type memReservations struct{ w *memWorld }

func (s memReservations) Create(ctx context.Context, r *model.TableReservation) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if err := s.w.check("reservations.Create"); err != nil {
		return err
	}
	cp := *r
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	s.w.reservations[r.ID] = &cp
	s.w.writes++
	return nil
}

func (s memReservations) get(id uuid.UUID) (*model.TableReservation, error) {
	r, ok := s.w.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	cp.GuestIDs = append([]uuid.UUID(nil), s.w.guests[id]...)
	cp.TicketIDs = append([]uuid.UUID(nil), s.w.resTickets[id]...)
	return &cp, nil
}

func (s memReservations) GetByID(ctx context.Context, id uuid.UUID) (*model.TableReservation, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	return s.get(id)
}

func (s memReservations) GetByCode(ctx context.Context, code string) (*model.TableReservation, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	for id, r := range s.w.reservations {
		if r.Code == code {
			return s.get(id)
		}
	}
	return nil, repository.ErrNotFound
}

func (s memReservations) CodeExists(ctx context.Context, code string) (bool, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if s.w.codesTaken["reservations"] {
		return true, nil
	}
	for _, r := range s.w.reservations {
		if r.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (s memReservations) filter(keep func(*model.TableReservation) bool) []model.TableReservation {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var out []model.TableReservation
	for id, r := range s.w.reservations {
		if keep(r) {
			cp, _ := s.get(id)
			out = append(out, *cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (s memReservations) List(ctx context.Context) ([]model.TableReservation, error) {
	return s.filter(func(*model.TableReservation) bool { return true }), nil
}

func (s memReservations) ListByTable(ctx context.Context, tableID uuid.UUID) ([]model.TableReservation, error) {
	return s.filter(func(r *model.TableReservation) bool { return r.TableID == tableID }), nil
}

func (s memReservations) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.TableReservation, error) {
	return s.filter(func(r *model.TableReservation) bool { return r.UserID == userID }), nil
}

func (s memReservations) HasActiveForTable(ctx context.Context, tableID, eventID uuid.UUID) (bool, error) {
	active := s.filter(func(r *model.TableReservation) bool {
		return r.TableID == tableID && r.EventID == eventID && r.Status != model.ReservationCancelled
	})
	return len(active) > 0, nil
}

func (s memReservations) Update(ctx context.Context, id uuid.UUID, p model.ReservationPatch) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	r, ok := s.w.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.NumPeople != nil {
		r.NumPeople = *p.NumPeople
	}
	if p.TotalAmount != nil {
		r.TotalAmount = *p.TotalAmount
	}
	if p.ContactName != nil {
		r.ContactName = *p.ContactName
	}
	s.w.writes++
	return nil
}

func (s memReservations) Delete(ctx context.Context, id uuid.UUID) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if _, ok := s.w.reservations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.w.reservations, id)
	s.w.writes++
	return nil
}

func (s memReservations) LinkPayment(ctx context.Context, reservationID, paymentID uuid.UUID, amount decimal.Decimal) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if err := s.w.check("reservations.LinkPayment"); err != nil {
		return err
	}
	r, ok := s.w.reservations[reservationID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, l := range s.w.resPayments {
		if l.ReservationID == reservationID && l.PaymentID == paymentID {
			return repository.ErrConflict
		}
	}
	s.w.resPayments = append(s.w.resPayments, model.ReservationPayment{ReservationID: reservationID, PaymentID: paymentID, Amount: amount})
	r.AmountPaid = r.AmountPaid.Add(amount)
	s.w.writes++
	return nil
}

func (s memReservations) Payments(ctx context.Context, reservationID uuid.UUID) ([]model.ReservationPayment, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var out []model.ReservationPayment
	for _, l := range s.w.resPayments {
		if l.ReservationID == reservationID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s memReservations) AddGuest(ctx context.Context, reservationID, userID uuid.UUID) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if err := s.w.check("reservations.AddGuest"); err != nil {
		return err
	}
	s.w.guests[reservationID] = append(s.w.guests[reservationID], userID)
	s.w.writes++
	return nil
}

func (s memReservations) LinkTicket(ctx context.Context, reservationID, ticketID uuid.UUID) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if err := s.w.check("reservations.LinkTicket"); err != nil {
		return err
	}
	if _, ok := s.w.reservations[reservationID]; !ok {
		return repository.ErrNotFound
	}
	for _, id := range s.w.resTickets[reservationID] {
		if id == ticketID {
			return repository.ErrConflict
		}
	}
	s.w.resTickets[reservationID] = append(s.w.resTickets[reservationID], ticketID)
	s.w.writes++
	return nil
}

func (s memReservations) UnlinkTicket(ctx context.Context, reservationID, ticketID uuid.UUID) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	ids := s.w.resTickets[reservationID]
	for i, id := range ids {
		if id == ticketID {
			s.w.resTickets[reservationID] = append(ids[:i:i], ids[i+1:]...)
			s.w.writes++
			return nil
		}
	}
	return repository.ErrNotFound
}

type memPayments struct{ w *memWorld }

func (s memPayments) Create(ctx context.Context, p *model.Payment) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if err := s.w.check("payments.Create"); err != nil {
		return err
	}
	cp := *p
	s.w.payments[p.ID] = &cp
	s.w.writes++
	return nil
}

func (s memPayments) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if p, ok := s.w.payments[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s memPayments) GetByExternalID(ctx context.Context, externalID string) (*model.Payment, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	for _, p := range s.w.payments {
		if p.ExternalID != nil && *p.ExternalID == externalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memPayments) List(ctx context.Context, f model.PaymentFilter) ([]model.Payment, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var out []model.Payment
	for _, p := range s.w.payments {
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		if f.SenderID != nil && p.SenderID != *f.SenderID {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s memPayments) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if err := s.w.check("payments.UpdateStatus"); err != nil {
		return err
	}
	p, ok := s.w.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Status != model.PaymentPending {
		return repository.ErrConflict
	}
	p.Status = status
	s.w.writes++
	return nil
}

type memTickets struct{ w *memWorld }

func (s memTickets) Create(ctx context.Context, t *model.Ticket) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if err := s.w.check("tickets.Create"); err != nil {
		return err
	}
	cp := *t
	s.w.tickets[t.ID] = &cp
	s.w.writes++
	return nil
}

func (s memTickets) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	if t, ok := s.w.tickets[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s memTickets) GetByCode(ctx context.Context, code string) (*model.Ticket, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	for _, t := range s.w.tickets {
		if t.Code == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s memTickets) CodeExists(ctx context.Context, code string) (bool, error) {
	s.w.mu.Lock()
	taken := s.w.codesTaken["tickets"]
	s.w.mu.Unlock()
	if taken {
		return true, nil
	}
	_, err := s.GetByCode(ctx, code)
	return err == nil, nil
}

func (s memTickets) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]model.Ticket, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var out []model.Ticket
	for _, id := range s.w.resTickets[reservationID] {
		out = append(out, *s.w.tickets[id])
	}
	return out, nil
}

func (s memTickets) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Ticket, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var out []model.Ticket
	for _, t := range s.w.tickets {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s memTickets) Update(ctx context.Context, id uuid.UUID, p model.TicketPatch) error {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	t, ok := s.w.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Price != nil {
		t.Price = *p.Price
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.QRCode != nil {
		t.QRCode = p.QRCode
	}
	s.w.writes++
	return nil
}

// mockGateway records the last intent request.
type mockGateway struct {
	createFn func(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*payment.Intent, error)
	calls    int
}

func (m *mockGateway) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	m.calls++
	return m.createFn(ctx, amountMinor, currency, metadata)
}

type mockPublisher struct {
	events []queue.ReservationCreatedEvent
	err    error
}

func (m *mockPublisher) PublishReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent) error {
	m.events = append(m.events, ev)
	return m.err
}
