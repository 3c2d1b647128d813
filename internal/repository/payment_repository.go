package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

// PaymentRepo persists payment records.  The amount of a payment is never
// updated; only its status moves, and only away from pending.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, sender_id, receiver_id, amount, status, external_id, participant_ids, created_at, updated_at`

func scanPayment(s rowScanner) (*model.Payment, error) {
	var (
		p            model.Payment
		externalID   sql.NullString
		participants sql.NullString
	)
	if err := s.Scan(&p.ID, &p.SenderID, &p.ReceiverID, &p.Amount, &p.Status, &externalID, &participants,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ExternalID = nullString(externalID)
	ids, err := decodeJSON[uuid.UUID](participants)
	if err != nil {
		return nil, err
	}
	p.ParticipantIDs = ids
	return &p, nil
}

// Create inserts a payment.  A zero ID is replaced with a fresh UUID and
// an empty status defaults to pending.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = model.PaymentPending
	}
	participants, err := jsonColumn(p.ParticipantIDs)
	if err != nil {
		return err
	}
	const q = `INSERT INTO payments (id, sender_id, receiver_id, amount, status, external_id, participant_ids)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, p.ID, p.SenderID, p.ReceiverID, p.Amount, string(p.Status),
		p.ExternalID, participants); err != nil {
		return err
	}
	err = r.db.QueryRowContext(ctx, `SELECT created_at, updated_at FROM payments WHERE id = ?`, p.ID).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	return notFound(err)
}

// GetByID returns the payment or ErrNotFound.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// GetByExternalID returns the payment created for a gateway payment
// intent.  When several rows carry the same intent the oldest wins.
func (r *PaymentRepo) GetByExternalID(ctx context.Context, externalID string) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE external_id = ? ORDER BY created_at LIMIT 1`, externalID))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// List returns payments matching filter, newest first.
func (r *PaymentRepo) List(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.SenderID != nil {
		where = append(where, "sender_id = ?")
		args = append(args, *filter.SenderID)
	}
	if filter.ReceiverID != nil {
		where = append(where, "receiver_id = ?")
		args = append(args, *filter.ReceiverID)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	q := `SELECT ` + paymentColumns + ` FROM payments`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	rows, err := r.db.QueryContext(ctx, q+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdateStatus moves a pending payment to status.  A payment that is no
// longer pending yields ErrConflict; a missing one ErrNotFound.
func (r *PaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		string(status), id, string(model.PaymentPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE id = ?`, id).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

// Delete removes a payment and its reservation links.
func (r *PaymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}
