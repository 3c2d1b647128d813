package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for table reservations and the
// three junctions hanging off them: payments, guests and tickets.  All
// timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, table_id, user_id, event_id, status, num_people, total_amount, amount_paid,
    contact_name, contact_email, contact_phone, special_requests, reservation_code, created_at, updated_at`

func scanReservation(s rowScanner) (*model.TableReservation, error) {
	var (
		r        model.TableReservation
		requests sql.NullString
	)
	if err := s.Scan(&r.ID, &r.TableID, &r.UserID, &r.EventID, &r.Status, &r.NumPeople, &r.TotalAmount,
		&r.AmountPaid, &r.ContactName, &r.ContactEmail, &r.ContactPhone, &requests, &r.Code,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.SpecialRequests = nullString(requests)
	return &r, nil
}

func (r *ReservationRepo) queryReservations(ctx context.Context, q string, args ...interface{}) ([]model.TableReservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TableReservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// Create inserts a reservation with amount_paid starting at zero.  A zero
// ID is replaced with a fresh UUID and an empty status defaults to
// "pending".  Timestamps are read back into res.
func (r *ReservationRepo) Create(ctx context.Context, res *model.TableReservation) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	if res.Status == "" {
		res.Status = model.ReservationPending
	}
	const q = `INSERT INTO table_reservations (id, table_id, user_id, event_id, status, num_people, total_amount,
        amount_paid, contact_name, contact_email, contact_phone, special_requests, reservation_code)
        VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, res.ID, res.TableID, res.UserID, res.EventID, res.Status, res.NumPeople,
		res.TotalAmount, res.ContactName, res.ContactEmail, res.ContactPhone, res.SpecialRequests, res.Code)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		if isMissingParent(err) {
			return ErrNotFound
		}
		return err
	}
	err = r.db.QueryRowContext(ctx, `SELECT amount_paid, created_at, updated_at FROM table_reservations WHERE id = ?`, res.ID).
		Scan(&res.AmountPaid, &res.CreatedAt, &res.UpdatedAt)
	return notFound(err)
}

// GetByID returns the reservation with its guest and ticket references.
func (r *ReservationRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.TableReservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM table_reservations WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.loadLinks(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetByCode looks a reservation up by its human readable code.
func (r *ReservationRepo) GetByCode(ctx context.Context, code string) (*model.TableReservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM table_reservations WHERE reservation_code = ?`, code))
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.loadLinks(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *ReservationRepo) loadLinks(ctx context.Context, res *model.TableReservation) error {
	guests, err := r.GuestIDs(ctx, res.ID)
	if err != nil {
		return err
	}
	tickets, err := r.TicketIDs(ctx, res.ID)
	if err != nil {
		return err
	}
	res.GuestIDs = guests
	res.TicketIDs = tickets
	return nil
}

// CodeExists reports whether a reservation code is already taken.
func (r *ReservationRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM table_reservations WHERE reservation_code = ?`, code).Scan(&n)
	return n > 0, err
}

// List returns every reservation, newest first.
func (r *ReservationRepo) List(ctx context.Context) ([]model.TableReservation, error) {
	return r.queryReservations(ctx, `SELECT `+reservationColumns+` FROM table_reservations ORDER BY created_at DESC, id`)
}

// ListByTable returns the reservations of one table, newest first.
func (r *ReservationRepo) ListByTable(ctx context.Context, tableID uuid.UUID) ([]model.TableReservation, error) {
	return r.queryReservations(ctx, `SELECT `+reservationColumns+` FROM table_reservations WHERE table_id = ? ORDER BY created_at DESC, id`, tableID)
}

// ListByUser returns the reservations owned by one user, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.TableReservation, error) {
	return r.queryReservations(ctx, `SELECT `+reservationColumns+` FROM table_reservations WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
}

// HasActiveForTable reports whether the table already carries a
// reservation for the event that is not cancelled.
func (r *ReservationRepo) HasActiveForTable(ctx context.Context, tableID, eventID uuid.UUID) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM table_reservations WHERE table_id = ? AND event_id = ? AND status <> ?`,
		tableID, eventID, model.ReservationCancelled).Scan(&n)
	return n > 0, err
}

// Update applies the non-nil fields of patch.
func (r *ReservationRepo) Update(ctx context.Context, id uuid.UUID, patch model.ReservationPatch) error {
	b := newUpdate("table_reservations")
	setOpt(b, "status", patch.Status)
	setOpt(b, "num_people", patch.NumPeople)
	setOpt(b, "total_amount", patch.TotalAmount)
	setOpt(b, "contact_name", patch.ContactName)
	setOpt(b, "contact_email", patch.ContactEmail)
	setOpt(b, "contact_phone", patch.ContactPhone)
	setOpt(b, "special_requests", patch.SpecialRequests)
	if b.empty() {
		var n int
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM table_reservations WHERE id = ?`, id).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}
	q, args := b.build("id", id)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// Delete removes a reservation; junction rows cascade.
func (r *ReservationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM table_reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// LinkPayment records the reservation↔payment link and increments
// amount_paid by amount.  Both writes commit together or not at all.
func (r *ReservationRepo) LinkPayment(ctx context.Context, reservationID, paymentID uuid.UUID, amount decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO table_reservation_payments (reservation_id, payment_id, amount) VALUES (?, ?, ?)`,
		reservationID, paymentID, amount); err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		if isMissingParent(err) {
			return ErrNotFound
		}
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE table_reservations SET amount_paid = amount_paid + ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		amount, reservationID)
	if err != nil {
		return err
	}
	if err := expectOne(res); err != nil {
		return err
	}
	return tx.Commit()
}

// Payments lists the payment links of a reservation in link order.
func (r *ReservationRepo) Payments(ctx context.Context, reservationID uuid.UUID) ([]model.ReservationPayment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT reservation_id, payment_id, amount, created_at FROM table_reservation_payments
         WHERE reservation_id = ? ORDER BY created_at, payment_id`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ReservationPayment{}
	for rows.Next() {
		var p model.ReservationPayment
		if err := rows.Scan(&p.ReservationID, &p.PaymentID, &p.Amount, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddGuest appends a user to the reservation's guest list.  Guests keep
// the order in which they were added.
func (r *ReservationRepo) AddGuest(ctx context.Context, reservationID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO table_reservation_guests (reservation_id, user_id, position)
         SELECT ?, ?, COALESCE(MAX(position) + 1, 0) FROM table_reservation_guests WHERE reservation_id = ?`,
		reservationID, userID, reservationID)
	switch {
	case err == nil:
		return nil
	case isDuplicate(err):
		return ErrConflict
	case isMissingParent(err):
		return ErrNotFound
	default:
		return err
	}
}

// GuestIDs returns the guest users of a reservation in insertion order.
func (r *ReservationRepo) GuestIDs(ctx context.Context, reservationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM table_reservation_guests WHERE reservation_id = ? ORDER BY position`, reservationID)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// LinkTicket attaches a ticket to a reservation after the tickets already
// linked.
func (r *ReservationRepo) LinkTicket(ctx context.Context, reservationID, ticketID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO table_reservation_tickets (reservation_id, ticket_id, position)
         SELECT ?, ?, COALESCE(MAX(position) + 1, 0) FROM table_reservation_tickets WHERE reservation_id = ?`,
		reservationID, ticketID, reservationID)
	switch {
	case err == nil:
		return nil
	case isDuplicate(err):
		return ErrConflict
	case isMissingParent(err):
		return ErrNotFound
	default:
		return err
	}
}

// UnlinkTicket removes a ticket link.  The ticket itself is kept.
func (r *ReservationRepo) UnlinkTicket(ctx context.Context, reservationID, ticketID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM table_reservation_tickets WHERE reservation_id = ? AND ticket_id = ?`, reservationID, ticketID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// TicketIDs returns the tickets linked to a reservation in link order.
func (r *ReservationRepo) TicketIDs(ctx context.Context, reservationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ticket_id FROM table_reservation_tickets WHERE reservation_id = ? ORDER BY position`, reservationID)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}
