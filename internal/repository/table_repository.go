package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

// TableRepo provides CRUD operations for reservable tables.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

const tableColumns = `id, event_id, name, zone, capacity, min_spend, total_cost, available,
    location_description, features, created_at, updated_at`

func scanTable(s rowScanner) (*model.Table, error) {
	var (
		t        model.Table
		zone     sql.NullString
		location sql.NullString
		features sql.NullString
	)
	if err := s.Scan(&t.ID, &t.EventID, &t.Name, &zone, &t.Capacity, &t.MinSpend, &t.TotalCost,
		&t.Available, &location, &features, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Zone = nullString(zone)
	t.Location = nullString(location)
	tags, err := decodeJSON[string](features)
	if err != nil {
		return nil, err
	}
	t.Features = tags
	return &t, nil
}

func (r *TableRepo) queryTables(ctx context.Context, q string, args ...interface{}) ([]model.Table, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Create inserts a table.  A zero ID is replaced with a fresh UUID; the
// caller is responsible for TotalCost.
func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	features, err := jsonColumn(t.Features)
	if err != nil {
		return err
	}
	const q = `INSERT INTO tables (id, event_id, name, zone, capacity, min_spend, total_cost, available, location_description, features)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, t.ID, t.EventID, t.Name, t.Zone, t.Capacity, t.MinSpend,
		t.TotalCost, t.Available, t.Location, features); err != nil {
		return err
	}
	// Read back defaults and timestamps.
	fresh, err := r.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *fresh
	return nil
}

// GetByID returns the table or ErrNotFound.
func (r *TableRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Table, error) {
	t, err := scanTable(r.db.QueryRowContext(ctx, `SELECT `+tableColumns+` FROM tables WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// List returns every table ordered by event and name.
func (r *TableRepo) List(ctx context.Context) ([]model.Table, error) {
	return r.queryTables(ctx, `SELECT `+tableColumns+` FROM tables ORDER BY event_id, name`)
}

// ListByEvent returns the tables of one event, optionally only those still
// flagged available.
func (r *TableRepo) ListByEvent(ctx context.Context, eventID uuid.UUID, availableOnly bool) ([]model.Table, error) {
	q := `SELECT ` + tableColumns + ` FROM tables WHERE event_id = ?`
	if availableOnly {
		q += ` AND available = 1`
	}
	return r.queryTables(ctx, q+` ORDER BY name`, eventID)
}

// Update applies the non-nil fields of patch.  An empty patch only checks
// that the row exists.
func (r *TableRepo) Update(ctx context.Context, id uuid.UUID, patch model.TablePatch) error {
	b := newUpdate("tables")
	setOpt(b, "name", patch.Name)
	setOpt(b, "zone", patch.Zone)
	setOpt(b, "capacity", patch.Capacity)
	setOpt(b, "min_spend", patch.MinSpend)
	setOpt(b, "total_cost", patch.TotalCost)
	setOpt(b, "available", patch.Available)
	setOpt(b, "location_description", patch.Location)
	if patch.Features != nil {
		features, err := jsonColumn(*patch.Features)
		if err != nil {
			return err
		}
		b.set("features", features)
	}
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

// Delete removes a table; its reservations cascade.
func (r *TableRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tables WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}
