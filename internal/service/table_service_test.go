package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

func TestTableService_CreateComputesTotalCost(t *testing.T) {
	w := newWorld()
	svc := NewTableService(memTables{w}, 0)

	tbl, err := svc.CreateTable(context.Background(), NewTableInput{
		EventID:  uuid.New(),
		Name:     " VIP 1 ",
		Capacity: 8,
		MinSpend: decimal.RequireFromString("62.50"),
		Features: []string{"bottle-service"},
	})
	require.NoError(t, err)
	assert.Equal(t, "VIP 1", tbl.Name)
	assert.True(t, tbl.Available)
	assert.Equal(t, "500.00", tbl.TotalCost.StringFixed(2))
	assert.Contains(t, w.tables, tbl.ID)
}

func TestTableService_CreateValidation(t *testing.T) {
	svc := NewTableService(memTables{newWorld()}, 0)
	ctx := context.Background()
	ev := uuid.New()

	cases := map[string]NewTableInput{
		"no event":       {Name: "A", Capacity: 2, MinSpend: decimal.NewFromInt(10)},
		"no name":        {EventID: ev, Capacity: 2, MinSpend: decimal.NewFromInt(10)},
		"zero capacity":  {EventID: ev, Name: "A", MinSpend: decimal.NewFromInt(10)},
		"negative spend": {EventID: ev, Name: "A", Capacity: 2, MinSpend: decimal.NewFromInt(-1)},
	}
	for name, in := range cases {
		_, err := svc.CreateTable(ctx, in)
		assert.True(t, errors.Is(err, ErrInvalidArgument), name)
	}
}

func TestTableService_RejectsUnstorableMinSpend(t *testing.T) {
	w := newWorld()
	svc := NewTableService(memTables{w}, 0)
	ctx := context.Background()
	ev := uuid.New()

	_, err := svc.CreateTable(ctx, NewTableInput{EventID: ev, Name: "A", Capacity: 3, MinSpend: decimal.RequireFromString("10.005")})
	assert.True(t, errors.Is(err, ErrInvalidArgument), "sub-cent min spend: %v", err)

	_, err = svc.CreateTable(ctx, NewTableInput{EventID: ev, Name: "A", Capacity: 3, MinSpend: decimal.RequireFromString("5000000000")})
	assert.True(t, errors.Is(err, ErrInvalidArgument), "total out of range: %v", err)
	assert.Empty(t, w.tables)
	assert.Zero(t, w.writes)

	tbl := w.addTable(ev, 4, "25")
	spend := decimal.RequireFromString("10.005")
	_, err = svc.UpdateTable(ctx, tbl.ID, model.TablePatch{MinSpend: &spend})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	capacity := 1_000_000_000
	_, err = svc.UpdateTable(ctx, tbl.ID, model.TablePatch{Capacity: &capacity})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Equal(t, "100.00", w.tables[tbl.ID].TotalCost.StringFixed(2))
	assert.True(t, w.tables[tbl.ID].TotalCost.Equal(w.tables[tbl.ID].MinSpend.Mul(decimal.NewFromInt(4))))
}

func TestTableService_UpdateRecomputesTotalCost(t *testing.T) {
	w := newWorld()
	tbl := w.addTable(uuid.New(), 4, "25")
	svc := NewTableService(memTables{w}, 0)
	ctx := context.Background()

	capacity := 6
	got, err := svc.UpdateTable(ctx, tbl.ID, model.TablePatch{Capacity: &capacity})
	require.NoError(t, err)
	assert.Equal(t, "150.00", got.TotalCost.StringFixed(2))

	spend := decimal.NewFromInt(40)
	got, err = svc.UpdateTable(ctx, tbl.ID, model.TablePatch{MinSpend: &spend})
	require.NoError(t, err)
	assert.Equal(t, "240.00", got.TotalCost.StringFixed(2))

	// A caller-supplied total cost is ignored.
	bogus := decimal.NewFromInt(1)
	unavailable := false
	got, err = svc.UpdateTable(ctx, tbl.ID, model.TablePatch{TotalCost: &bogus, Available: &unavailable})
	require.NoError(t, err)
	assert.Equal(t, "240.00", got.TotalCost.StringFixed(2))
	assert.False(t, got.Available)

	zero := 0
	_, err = svc.UpdateTable(ctx, tbl.ID, model.TablePatch{Capacity: &zero})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = svc.UpdateTable(ctx, uuid.New(), model.TablePatch{Capacity: &capacity})
	assert.True(t, errors.Is(err, ErrTableNotFound))
}

func TestTableService_ListAndDelete(t *testing.T) {
	w := newWorld()
	ev := uuid.New()
	a := w.addTable(ev, 4, "25")
	b := w.addTable(ev, 2, "10")
	b.Available = false
	w.addTable(uuid.New(), 2, "10")
	svc := NewTableService(memTables{w}, 0)
	ctx := context.Background()

	all, err := svc.ListTables(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	evTables, err := svc.ListEventTables(ctx, ev, false)
	require.NoError(t, err)
	assert.Len(t, evTables, 2)

	free, err := svc.ListEventTables(ctx, ev, true)
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, a.ID, free[0].ID)

	require.NoError(t, svc.DeleteTable(ctx, a.ID))
	assert.True(t, errors.Is(svc.DeleteTable(ctx, a.ID), ErrTableNotFound))
	_, err = svc.GetTable(ctx, a.ID)
	assert.True(t, errors.Is(err, ErrTableNotFound))
}
