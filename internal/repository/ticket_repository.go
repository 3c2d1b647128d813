package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

// TicketRepo persists admission tickets.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `t.id, t.event_id, t.user_id, t.ticket_code, t.ticket_type, t.price, t.status,
    t.purchased_at, t.qr_code, t.created_at, t.updated_at`

func scanTicket(s rowScanner) (*model.Ticket, error) {
	var (
		t  model.Ticket
		qr sql.NullString
	)
	if err := s.Scan(&t.ID, &t.EventID, &t.UserID, &t.Code, &t.Type, &t.Price, &t.Status,
		&t.PurchasedAt, &qr, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.QRCode = nullString(qr)
	return &t, nil
}

func (r *TicketRepo) queryTickets(ctx context.Context, q string, args ...interface{}) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Create inserts a ticket.  A zero ID is replaced with a fresh UUID and
// an empty status defaults to "active".  A duplicate code yields
// ErrConflict.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = model.TicketStatusActive
	}
	const q = `INSERT INTO tickets (id, event_id, user_id, ticket_code, ticket_type, price, status, qr_code)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, t.ID, t.EventID, t.UserID, t.Code, t.Type, t.Price, t.Status, t.QRCode); err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	err := r.db.QueryRowContext(ctx, `SELECT purchased_at, created_at, updated_at FROM tickets WHERE id = ?`, t.ID).
		Scan(&t.PurchasedAt, &t.CreatedAt, &t.UpdatedAt)
	return notFound(err)
}

// GetByID returns the ticket or ErrNotFound.
func (r *TicketRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// GetByCode returns the ticket with the given code or ErrNotFound.
func (r *TicketRepo) GetByCode(ctx context.Context, code string) (*model.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.ticket_code = ?`, code))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// CodeExists reports whether a ticket code is already taken.
func (r *TicketRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE ticket_code = ?`, code).Scan(&n)
	return n > 0, err
}

// ListByUser returns the tickets held by a user, newest first.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Ticket, error) {
	return r.queryTickets(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.user_id = ? ORDER BY t.purchased_at DESC, t.id`, userID)
}

// ListByReservation returns the tickets linked to a reservation in link
// order.
func (r *TicketRepo) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]model.Ticket, error) {
	return r.queryTickets(ctx, `SELECT `+ticketColumns+` FROM tickets t
        JOIN table_reservation_tickets rt ON rt.ticket_id = t.id
        WHERE rt.reservation_id = ? ORDER BY rt.position`, reservationID)
}

// Update applies the non-nil fields of patch.
func (r *TicketRepo) Update(ctx context.Context, id uuid.UUID, patch model.TicketPatch) error {
	b := newUpdate("tickets")
	setOpt(b, "ticket_type", patch.Type)
	setOpt(b, "price", patch.Price)
	setOpt(b, "status", patch.Status)
	setOpt(b, "qr_code", patch.QRCode)
	if b.empty() {
		_, err := r.GetByID(ctx, id)
		return err
	}
	q, args := b.build("id", id)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// Delete removes a ticket and its reservation link.
func (r *TicketRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}
