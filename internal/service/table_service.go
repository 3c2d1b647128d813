package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/pricing"
	"github.com/iliyamo/club-table-reservation/internal/repository"
)

// TableService manages the table catalog.  TotalCost is owned here: it is
// computed on create and recomputed whenever capacity or min spend change.
type TableService struct {
	tables  TableStore
	timeout time.Duration
}

func NewTableService(tables TableStore, storeTimeout time.Duration) *TableService {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &TableService{tables: tables, timeout: storeTimeout}
}

// NewTableInput is the input of CreateTable.
type NewTableInput struct {
	EventID   uuid.UUID
	Name      string
	Zone      *string
	Capacity  int
	MinSpend  decimal.Decimal
	Available *bool
	Location  *string
	Features  []string
}

func validateTable(name string, capacity int, minSpend decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return invalid("table name is required")
	}
	if capacity <= 0 {
		return invalid("capacity must be positive")
	}
	if err := pricing.ValidateAmount(minSpend); err != nil {
		return invalid("min_spend: %v", err)
	}
	return nil
}

func (s *TableService) CreateTable(ctx context.Context, in NewTableInput) (*model.Table, error) {
	if in.EventID == uuid.Nil {
		return nil, invalid("event id is required")
	}
	if err := validateTable(in.Name, in.Capacity, in.MinSpend); err != nil {
		return nil, err
	}
	total, err := pricing.TableTotalCost(in.MinSpend, in.Capacity)
	if err != nil {
		return nil, invalid("%v", err)
	}
	t := &model.Table{
		ID:        uuid.New(),
		EventID:   in.EventID,
		Name:      strings.TrimSpace(in.Name),
		Zone:      in.Zone,
		Capacity:  in.Capacity,
		MinSpend:  in.MinSpend,
		TotalCost: total,
		Available: in.Available == nil || *in.Available,
		Location:  in.Location,
		Features:  in.Features,
	}
	if err := call(ctx, s.timeout, func(ctx context.Context) error { return s.tables.Create(ctx, t) }); err != nil {
		return nil, storeErr("create table", err)
	}
	return t, nil
}

func (s *TableService) GetTable(ctx context.Context, id uuid.UUID) (*model.Table, error) {
	t, err := fetch(ctx, s.timeout, func(ctx context.Context) (*model.Table, error) { return s.tables.GetByID(ctx, id) })
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	if err != nil {
		return nil, storeErr("load table", err)
	}
	return t, nil
}

func (s *TableService) ListTables(ctx context.Context) ([]model.Table, error) {
	out, err := fetch(ctx, s.timeout, s.tables.List)
	if err != nil {
		return nil, storeErr("list tables", err)
	}
	return out, nil
}

// ListEventTables lists the tables of an event, optionally only those still
// marked available.
func (s *TableService) ListEventTables(ctx context.Context, eventID uuid.UUID, availableOnly bool) ([]model.Table, error) {
	out, err := fetch(ctx, s.timeout, func(ctx context.Context) ([]model.Table, error) {
		return s.tables.ListByEvent(ctx, eventID, availableOnly)
	})
	if err != nil {
		return nil, storeErr("list event tables", err)
	}
	return out, nil
}

// UpdateTable applies a partial update.  When capacity or min spend is in
// the patch, total cost is recomputed from the merged values.
func (s *TableService) UpdateTable(ctx context.Context, id uuid.UUID, patch model.TablePatch) (*model.Table, error) {
	patch.TotalCost = nil
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, invalid("table name must not be empty")
	}
	if patch.Capacity != nil || patch.MinSpend != nil {
		current, err := s.GetTable(ctx, id)
		if err != nil {
			return nil, err
		}
		capacity, minSpend := current.Capacity, current.MinSpend
		if patch.Capacity != nil {
			capacity = *patch.Capacity
		}
		if patch.MinSpend != nil {
			minSpend = *patch.MinSpend
		}
		if err := validateTable(current.Name, capacity, minSpend); err != nil {
			return nil, err
		}
		total, err := pricing.TableTotalCost(minSpend, capacity)
		if err != nil {
			return nil, invalid("%v", err)
		}
		patch.TotalCost = &total
	}
	err := call(ctx, s.timeout, func(ctx context.Context) error { return s.tables.Update(ctx, id, patch) })
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	if err != nil {
		return nil, storeErr("update table", err)
	}
	return s.GetTable(ctx, id)
}

// DeleteTable removes a table together with its reservations.
func (s *TableService) DeleteTable(ctx context.Context, id uuid.UUID) error {
	err := call(ctx, s.timeout, func(ctx context.Context) error { return s.tables.Delete(ctx, id) })
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	if err != nil {
		return storeErr("delete table", err)
	}
	return nil
}
