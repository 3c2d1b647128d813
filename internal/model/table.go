package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Table represents a reservable physical table at an event as stored in
// the `tables` table.  TotalCost is always MinSpend × Capacity and is
// recomputed whenever either factor changes.
//
// Fields:
//  ID        – primary key (UUID).
//  EventID   – event the table belongs to.
//  Name      – display name shown to customers.
//  Zone      – optional area of the venue (e.g. "VIP").
//  Capacity  – maximum number of people.
//  MinSpend  – minimum spend per seat.
//  TotalCost – derived MinSpend × Capacity.
//  Available – whether the table can still be booked.
//  Location  – optional free-text location description.
//  Features  – optional feature tags (e.g. "bottle-service").
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Table struct {
	ID        uuid.UUID       // tables.id
	EventID   uuid.UUID       // tables.event_id
	Name      string          // tables.name
	Zone      *string         // tables.zone (nullable)
	Capacity  int             // tables.capacity
	MinSpend  decimal.Decimal // tables.min_spend
	TotalCost decimal.Decimal // tables.total_cost
	Available bool            // tables.available
	Location  *string         // tables.location_description (nullable)
	Features  []string        // tables.features (JSON, nullable)
	CreatedAt time.Time       // tables.created_at
	UpdatedAt time.Time       // tables.updated_at
}

// TablePatch carries the optional fields of a partial table update.  A nil
// pointer leaves the stored column unchanged.  TotalCost is filled in by
// the service when Capacity or MinSpend changes.
type TablePatch struct {
	TotalCost *decimal.Decimal

	Name      *string
	Zone      *string
	Capacity  *int
	MinSpend  *decimal.Decimal
	Available *bool
	Location  *string
	Features  *[]string
}

// Empty reports whether the patch changes nothing.
func (p TablePatch) Empty() bool {
	return p.TotalCost == nil && p.Name == nil && p.Zone == nil && p.Capacity == nil && p.MinSpend == nil &&
		p.Available == nil && p.Location == nil && p.Features == nil
}
