package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/service"
)

// TableAPI is the table catalogue as seen by the HTTP layer.
type TableAPI interface {
	CreateTable(ctx context.Context, in service.NewTableInput) (*model.Table, error)
	GetTable(ctx context.Context, id uuid.UUID) (*model.Table, error)
	ListTables(ctx context.Context) ([]model.Table, error)
	ListEventTables(ctx context.Context, eventID uuid.UUID, availableOnly bool) ([]model.Table, error)
	UpdateTable(ctx context.Context, id uuid.UUID, patch model.TablePatch) (*model.Table, error)
	DeleteTable(ctx context.Context, id uuid.UUID) error
}

type TableHandler struct {
	svc TableAPI
}

func NewTableHandler(svc TableAPI) *TableHandler { return &TableHandler{svc: svc} }

type createTableReq struct {
	EventID   string          `json:"eventId"`
	Name      string          `json:"name"`
	Zone      *string         `json:"zone"`
	Capacity  int             `json:"capacity"`
	MinSpend  decimal.Decimal `json:"minSpend"`
	Available *bool           `json:"available"`
	Location  *string         `json:"locationDescription"`
	Features  []string        `json:"features"`
}

type updateTableReq struct {
	Name      *string          `json:"name"`
	Zone      *string          `json:"zone"`
	Capacity  *int             `json:"capacity"`
	MinSpend  *decimal.Decimal `json:"minSpend"`
	Available *bool            `json:"available"`
	Location  *string          `json:"locationDescription"`
	Features  *[]string        `json:"features"`
}

// Create handles POST /v1/tables.
func (h *TableHandler) Create(c echo.Context) error {
	var req createTableReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return badRequest("invalid eventId")
	}
	t, err := h.svc.CreateTable(c.Request().Context(), service.NewTableInput{
		EventID:   eventID,
		Name:      req.Name,
		Zone:      req.Zone,
		Capacity:  req.Capacity,
		MinSpend:  req.MinSpend,
		Available: req.Available,
		Location:  req.Location,
		Features:  req.Features,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toTableResponse(t))
}

func (h *TableHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	t, err := h.svc.GetTable(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toTableResponse(t))
}

func (h *TableHandler) List(c echo.Context) error {
	out, err := h.svc.ListTables(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toTableList(out))
}

// ListByEvent handles GET /v1/events/:id/tables?available=true.
func (h *TableHandler) ListByEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	availableOnly := false
	if raw := c.QueryParam("available"); raw != "" {
		if availableOnly, err = strconv.ParseBool(raw); err != nil {
			return badRequest("available must be a boolean")
		}
	}
	out, err := h.svc.ListEventTables(c.Request().Context(), id, availableOnly)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toTableList(out))
}

// Update handles PATCH /v1/tables/:id.
func (h *TableHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateTableReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	t, err := h.svc.UpdateTable(c.Request().Context(), id, model.TablePatch{
		Name:      req.Name,
		Zone:      req.Zone,
		Capacity:  req.Capacity,
		MinSpend:  req.MinSpend,
		Available: req.Available,
		Location:  req.Location,
		Features:  req.Features,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, toTableResponse(t))
}

func (h *TableHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteTable(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
