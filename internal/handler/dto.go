package handler

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/pricing"
)

// Money values leave the API as strings like "12.50 €".

type reservationResponse struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	Status          string    `json:"status"`
	TableID         string    `json:"tableId"`
	EventID         string    `json:"eventId"`
	UserID          string    `json:"userId"`
	NumPeople       int       `json:"numPeople"`
	TotalAmount     string    `json:"totalAmount"`
	AmountPaid      string    `json:"amountPaid"`
	AmountRemaining string    `json:"amountRemaining"`
	ContactName     string    `json:"contactName"`
	ContactEmail    string    `json:"contactEmail"`
	ContactPhone    string    `json:"contactPhone"`
	SpecialRequests *string   `json:"specialRequests,omitempty"`
	GuestIDs        []string  `json:"guestIds"`
	TicketIDs       []string  `json:"ticketIds"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toReservationResponse(r *model.TableReservation) reservationResponse {
	return reservationResponse{
		ID:              r.ID.String(),
		Code:            r.Code,
		Status:          r.Status,
		TableID:         r.TableID.String(),
		EventID:         r.EventID.String(),
		UserID:          r.UserID.String(),
		NumPeople:       r.NumPeople,
		TotalAmount:     pricing.Format(r.TotalAmount),
		AmountPaid:      pricing.Format(r.AmountPaid),
		AmountRemaining: pricing.Format(pricing.AmountRemaining(r.TotalAmount, r.AmountPaid)),
		ContactName:     r.ContactName,
		ContactEmail:    r.ContactEmail,
		ContactPhone:    r.ContactPhone,
		SpecialRequests: r.SpecialRequests,
		GuestIDs:        idStrings(r.GuestIDs),
		TicketIDs:       idStrings(r.TicketIDs),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func toReservationList(rs []model.TableReservation) []reservationResponse {
	out := make([]reservationResponse, len(rs))
	for i := range rs {
		out[i] = toReservationResponse(&rs[i])
	}
	return out
}

type tableResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	Name      string    `json:"name"`
	Zone      *string   `json:"zone,omitempty"`
	Capacity  int       `json:"capacity"`
	MinSpend  string    `json:"minSpend"`
	TotalCost string    `json:"totalCost"`
	Available bool      `json:"available"`
	Location  *string   `json:"locationDescription,omitempty"`
	Features  []string  `json:"features"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toTableResponse(t *model.Table) tableResponse {
	features := t.Features
	if features == nil {
		features = []string{}
	}
	return tableResponse{
		ID:        t.ID.String(),
		EventID:   t.EventID.String(),
		Name:      t.Name,
		Zone:      t.Zone,
		Capacity:  t.Capacity,
		MinSpend:  pricing.Format(t.MinSpend),
		TotalCost: pricing.Format(t.TotalCost),
		Available: t.Available,
		Location:  t.Location,
		Features:  features,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toTableList(ts []model.Table) []tableResponse {
	out := make([]tableResponse, len(ts))
	for i := range ts {
		out[i] = toTableResponse(&ts[i])
	}
	return out
}

type ticketResponse struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	EventID     string    `json:"eventId"`
	UserID      string    `json:"userId"`
	Type        string    `json:"type"`
	Price       string    `json:"price"`
	Status      string    `json:"status"`
	PurchasedAt time.Time `json:"purchasedAt"`
	QRCode      *string   `json:"qrCode,omitempty"`
}

func toTicketResponse(t *model.Ticket) ticketResponse {
	return ticketResponse{
		ID:          t.ID.String(),
		Code:        t.Code,
		EventID:     t.EventID.String(),
		UserID:      t.UserID.String(),
		Type:        t.Type,
		Price:       pricing.Format(t.Price),
		Status:      t.Status,
		PurchasedAt: t.PurchasedAt,
		QRCode:      t.QRCode,
	}
}

func toTicketList(ts []model.Ticket) []ticketResponse {
	out := make([]ticketResponse, len(ts))
	for i := range ts {
		out[i] = toTicketResponse(&ts[i])
	}
	return out
}

type paymentResponse struct {
	ID              string    `json:"id"`
	SenderID        string    `json:"senderId"`
	ReceiverID      string    `json:"receiverId"`
	Amount          string    `json:"amount"`
	Status          string    `json:"status"`
	PaymentIntentID *string   `json:"stripePaymentIntentId,omitempty"`
	ParticipantIDs  []string  `json:"participantIds"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:              p.ID.String(),
		SenderID:        p.SenderID.String(),
		ReceiverID:      p.ReceiverID.String(),
		Amount:          pricing.Format(p.Amount),
		Status:          string(p.Status),
		PaymentIntentID: p.ExternalID,
		ParticipantIDs:  idStrings(p.ParticipantIDs),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

type reservationPaymentResponse struct {
	PaymentID string    `json:"paymentId"`
	Amount    string    `json:"amount"`
	LinkedAt  time.Time `json:"linkedAt"`
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// pathID parses a UUID path parameter.
func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		return uuid.Nil, badRequest("invalid " + name)
	}
	return id, nil
}
