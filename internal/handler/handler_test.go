package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/club-table-reservation/internal/config"
	"github.com/iliyamo/club-table-reservation/internal/middleware"
	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/repository"
	"github.com/iliyamo/club-table-reservation/internal/service"
	"github.com/iliyamo/club-table-reservation/internal/utils"
)

const testSecret = "test-secret"

// mockReservations implements ReservationAPI.  Methods without a func
// field panic through the nil embedded interface.
type mockReservations struct {
	ReservationAPI
	intentFn      func(ctx context.Context, req service.PaymentIntentRequest) (*service.PaymentIntentResult, error)
	withPaymentFn func(ctx context.Context, req service.CreateWithPaymentRequest) (*model.TableReservation, error)
	getFn         func(ctx context.Context, id uuid.UUID) (*model.TableReservation, error)
	updateFn      func(ctx context.Context, id uuid.UUID, patch model.ReservationPatch) (*model.TableReservation, error)
	unlinkFn      func(ctx context.Context, reservationID, ticketID uuid.UUID) error
}

func (m *mockReservations) CreatePaymentIntent(ctx context.Context, req service.PaymentIntentRequest) (*service.PaymentIntentResult, error) {
	return m.intentFn(ctx, req)
}

func (m *mockReservations) CreateReservationWithPayment(ctx context.Context, req service.CreateWithPaymentRequest) (*model.TableReservation, error) {
	return m.withPaymentFn(ctx, req)
}

func (m *mockReservations) GetReservation(ctx context.Context, id uuid.UUID) (*model.TableReservation, error) {
	return m.getFn(ctx, id)
}

func (m *mockReservations) UpdateReservation(ctx context.Context, id uuid.UUID, patch model.ReservationPatch) (*model.TableReservation, error) {
	return m.updateFn(ctx, id, patch)
}

func (m *mockReservations) UnlinkTicket(ctx context.Context, reservationID, ticketID uuid.UUID) error {
	return m.unlinkFn(ctx, reservationID, ticketID)
}

type mockTables struct {
	TableAPI
	listByEventFn func(ctx context.Context, eventID uuid.UUID, availableOnly bool) ([]model.Table, error)
	createFn      func(ctx context.Context, in service.NewTableInput) (*model.Table, error)
}

func (m *mockTables) ListEventTables(ctx context.Context, eventID uuid.UUID, availableOnly bool) ([]model.Table, error) {
	return m.listByEventFn(ctx, eventID, availableOnly)
}

func (m *mockTables) CreateTable(ctx context.Context, in service.NewTableInput) (*model.Table, error) {
	return m.createFn(ctx, in)
}

type mockPayments struct {
	listFn func(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, error)
}

func (m *mockPayments) GetPayment(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	return nil, fmt.Errorf("%w: %s", service.ErrPaymentNotFound, id)
}

func (m *mockPayments) ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, error) {
	return m.listFn(ctx, filter)
}

type mockUsers struct {
	byID    map[uuid.UUID]*model.User
	byEmail map[string]*model.User
	created []repository.NewUser
	err     error
}

func newMockUsers() *mockUsers {
	return &mockUsers{byID: map[uuid.UUID]*model.User{}, byEmail: map[string]*model.User{}}
}

func (m *mockUsers) Create(ctx context.Context, in repository.NewUser, cost int) (uuid.UUID, error) {
	if m.err != nil {
		return uuid.Nil, m.err
	}
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return uuid.Nil, err
	}
	u := &model.User{ID: uuid.New(), Email: in.Email, PasswordHash: hash, FirstName: in.FirstName,
		LastName: in.LastName, PhoneNumber: in.PhoneNumber, IsActive: true}
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	m.created = append(m.created, in)
	return u.ID, nil
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockUsers) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string, user uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != uuid.Nil {
		tok, err := utils.NewAccessToken(testSecret, user, 5)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorBody {
	t.Helper()
	var body middleware.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func sampleReservation(owner uuid.UUID) *model.TableReservation {
	return &model.TableReservation{
		ID:          uuid.New(),
		TableID:     uuid.New(),
		UserID:      owner,
		EventID:     uuid.New(),
		Status:      "completed",
		NumPeople:   2,
		TotalAmount: decimal.RequireFromString("100"),
		AmountPaid:  decimal.RequireFromString("100"),
		Code:        "RES-ABCD2345",
		GuestIDs:    []uuid.UUID{uuid.New()},
		TicketIDs:   []uuid.UUID{uuid.New(), uuid.New()},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func reservationEcho(m *mockReservations) *echo.Echo {
	e := newTestEcho()
	h := NewReservationHandler(m)
	g := e.Group("/v1", middleware.JWTAuth(testSecret))
	g.POST("/reservations/payment-intent", h.CreatePaymentIntent)
	g.POST("/reservations/with-payment", h.CreateWithPayment)
	g.GET("/reservations/:id", h.Get)
	g.PATCH("/reservations/:id", h.Update)
	g.DELETE("/reservations/:id/tickets/:ticketId", h.UnlinkTicket)
	return e
}

func TestCreateWithPayment(t *testing.T) {
	owner := uuid.New()
	var got service.CreateWithPaymentRequest
	m := &mockReservations{withPaymentFn: func(ctx context.Context, req service.CreateWithPaymentRequest) (*model.TableReservation, error) {
		got = req
		return sampleReservation(owner), nil
	}}
	e := reservationEcho(m)

	body := `{"tableId":"t1","eventId":"e1","guestPhoneNumbers":["+491700000002"],"paymentAmount":"100.00","stripePaymentIntentId":"pi_1"}`
	rec := doJSON(t, e, http.MethodPost, "/v1/reservations/with-payment", body, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, owner.String(), got.OwnerUserID)
	assert.Equal(t, "pi_1", got.PaymentIntentID)
	assert.True(t, got.PaymentAmount.Equal(decimal.RequireFromString("100")))
	assert.Equal(t, []string{"+491700000002"}, got.GuestPhoneNumbers)

	var resp reservationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "RES-ABCD2345", resp.Code)
	assert.Equal(t, "100.00 €", resp.TotalAmount)
	assert.Equal(t, "0.00 €", resp.AmountRemaining)
	assert.Len(t, resp.TicketIDs, 2)
}

func TestCreateWithPaymentErrors(t *testing.T) {
	owner := uuid.New()
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"guest", &service.GuestNotFoundError{Phone: "+49"}, http.StatusBadRequest, "guest_not_found"},
		{"amount", &service.AmountMismatchError{Expected: decimal.NewFromInt(100), Declared: decimal.NewFromInt(90)}, http.StatusBadRequest, "amount_mismatch"},
		{"table", fmt.Errorf("%w: x", service.ErrTableNotFound), http.StatusNotFound, "not_found"},
		{"busy", service.ErrTableUnavailable, http.StatusConflict, "conflict"},
		{"store", fmt.Errorf("%w: create payment: %w", service.ErrStoreUnavailable, errors.New("dial tcp")), http.StatusInternalServerError, "store_unavailable"},
		{"codes", service.ErrCodeAllocationExhausted, http.StatusInternalServerError, "code_allocation_exhausted"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &mockReservations{withPaymentFn: func(ctx context.Context, req service.CreateWithPaymentRequest) (*model.TableReservation, error) {
				return nil, tc.err
			}}
			rec := doJSON(t, reservationEcho(m), http.MethodPost, "/v1/reservations/with-payment", `{"paymentAmount":1}`, owner)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.kind, decodeError(t, rec).Error)
		})
	}
}

func TestCreateWithPaymentStoreErrorHidesCause(t *testing.T) {
	m := &mockReservations{withPaymentFn: func(ctx context.Context, req service.CreateWithPaymentRequest) (*model.TableReservation, error) {
		return nil, fmt.Errorf("%w: x: %w", service.ErrStoreUnavailable, errors.New("password=hunter2"))
	}}
	rec := doJSON(t, reservationEcho(m), http.MethodPost, "/v1/reservations/with-payment", `{"paymentAmount":1}`, uuid.New())
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestCreateWithPaymentRequiresAmount(t *testing.T) {
	m := &mockReservations{}
	rec := doJSON(t, reservationEcho(m), http.MethodPost, "/v1/reservations/with-payment", `{"tableId":"x"}`, uuid.New())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_argument", decodeError(t, rec).Error)
}

func TestCreateWithPaymentOwnerMustBeCaller(t *testing.T) {
	m := &mockReservations{}
	body := fmt.Sprintf(`{"ownerUserId":%q,"paymentAmount":1}`, uuid.NewString())
	rec := doJSON(t, reservationEcho(m), http.MethodPost, "/v1/reservations/with-payment", body, uuid.New())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateWithPaymentRequiresToken(t *testing.T) {
	rec := doJSON(t, reservationEcho(&mockReservations{}), http.MethodPost, "/v1/reservations/with-payment", `{}`, uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreatePaymentIntent(t *testing.T) {
	owner := uuid.New()
	m := &mockReservations{intentFn: func(ctx context.Context, req service.PaymentIntentRequest) (*service.PaymentIntentResult, error) {
		require.NotNil(t, req.DeclaredAmount)
		return &service.PaymentIntentResult{IntentID: "pi_9", ClientSecret: "sec", Amount: *req.DeclaredAmount, Currency: "eur"}, nil
	}}
	rec := doJSON(t, reservationEcho(m), http.MethodPost, "/v1/reservations/payment-intent", `{"tableId":"t","eventId":"e","paymentAmount":"150"}`, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp paymentIntentResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pi_9", resp.PaymentIntentID)
	assert.Equal(t, "sec", resp.ClientSecret)
	assert.Equal(t, "150.00", resp.Amount)

	m.intentFn = func(ctx context.Context, req service.PaymentIntentRequest) (*service.PaymentIntentResult, error) {
		return nil, fmt.Errorf("%w: %w", service.ErrGateway, errors.New("card_declined"))
	}
	rec = doJSON(t, reservationEcho(m), http.MethodPost, "/v1/reservations/payment-intent", `{}`, owner)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "gateway_error", decodeError(t, rec).Error)
}

func TestGetReservation(t *testing.T) {
	owner := uuid.New()
	res := sampleReservation(owner)
	m := &mockReservations{getFn: func(ctx context.Context, id uuid.UUID) (*model.TableReservation, error) {
		if id == res.ID {
			return res, nil
		}
		return nil, service.ErrReservationNotFound
	}}
	e := reservationEcho(m)

	rec := doJSON(t, e, http.MethodGet, "/v1/reservations/"+res.ID.String(), "", owner)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/v1/reservations/"+uuid.NewString(), "", owner)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/v1/reservations/not-a-uuid", "", owner)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateReservationPassesPatch(t *testing.T) {
	owner := uuid.New()
	var got model.ReservationPatch
	m := &mockReservations{updateFn: func(ctx context.Context, id uuid.UUID, patch model.ReservationPatch) (*model.TableReservation, error) {
		got = patch
		return sampleReservation(owner), nil
	}}
	rec := doJSON(t, reservationEcho(m), http.MethodPatch, "/v1/reservations/"+uuid.NewString(), `{"numPeople":4,"status":"confirmed"}`, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.NumPeople)
	assert.Equal(t, 4, *got.NumPeople)
	assert.Equal(t, "confirmed", *got.Status)
	assert.Nil(t, got.TotalAmount)
}

func TestUnlinkTicket(t *testing.T) {
	m := &mockReservations{unlinkFn: func(ctx context.Context, reservationID, ticketID uuid.UUID) error {
		return service.ErrTicketNotFound
	}}
	path := "/v1/reservations/" + uuid.NewString() + "/tickets/" + uuid.NewString()
	rec := doJSON(t, reservationEcho(m), http.MethodDelete, path, "", uuid.New())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	m.unlinkFn = func(ctx context.Context, reservationID, ticketID uuid.UUID) error { return nil }
	rec = doJSON(t, reservationEcho(m), http.MethodDelete, path, "", uuid.New())
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListEventTables(t *testing.T) {
	eventID := uuid.New()
	var gotAvailable bool
	m := &mockTables{listByEventFn: func(ctx context.Context, id uuid.UUID, availableOnly bool) ([]model.Table, error) {
		gotAvailable = availableOnly
		return []model.Table{{ID: uuid.New(), EventID: id, Name: "A1", Capacity: 6,
			MinSpend: decimal.RequireFromString("50"), TotalCost: decimal.RequireFromString("300"), Available: true}}, nil
	}}
	e := newTestEcho()
	h := NewTableHandler(m)
	e.GET("/v1/events/:id/tables", h.ListByEvent)

	rec := doJSON(t, e, http.MethodGet, "/v1/events/"+eventID.String()+"/tables?available=true", "", uuid.Nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotAvailable)
	var out []tableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "300.00 €", out[0].TotalCost)
	assert.Equal(t, []string{}, out[0].Features)

	rec = doJSON(t, e, http.MethodGet, "/v1/events/"+eventID.String()+"/tables?available=maybe", "", uuid.Nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTable(t *testing.T) {
	m := &mockTables{createFn: func(ctx context.Context, in service.NewTableInput) (*model.Table, error) {
		if in.Capacity <= 0 {
			return nil, fmt.Errorf("%w: capacity must be positive", service.ErrInvalidArgument)
		}
		return &model.Table{ID: uuid.New(), EventID: in.EventID, Name: in.Name, Capacity: in.Capacity,
			MinSpend: in.MinSpend, TotalCost: in.MinSpend.Mul(decimal.NewFromInt(int64(in.Capacity)))}, nil
	}}
	e := newTestEcho()
	e.POST("/v1/tables", NewTableHandler(m).Create)

	body := fmt.Sprintf(`{"eventId":%q,"name":"VIP 1","capacity":8,"minSpend":"75.50"}`, uuid.NewString())
	rec := doJSON(t, e, http.MethodPost, "/v1/tables", body, uuid.Nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalCost":"604.00 €"`)

	body = fmt.Sprintf(`{"eventId":%q,"name":"VIP 1","capacity":0,"minSpend":"75.50"}`, uuid.NewString())
	rec = doJSON(t, e, http.MethodPost, "/v1/tables", body, uuid.Nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/v1/tables", `{"eventId":"nope"}`, uuid.Nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMyPaymentsFilter(t *testing.T) {
	user := uuid.New()
	var got model.PaymentFilter
	m := &mockPayments{listFn: func(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, error) {
		got = filter
		return []model.Payment{{ID: uuid.New(), SenderID: user, ReceiverID: user, Amount: decimal.NewFromInt(10), Status: model.PaymentPending}}, nil
	}}
	e := newTestEcho()
	h := NewPaymentHandler(m)
	g := e.Group("/v1", middleware.JWTAuth(testSecret))
	g.GET("/payments", h.Mine)
	g.GET("/payments/:id", h.Get)

	rec := doJSON(t, e, http.MethodGet, "/v1/payments?status=pending", "", user)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.SenderID)
	assert.Equal(t, user, *got.SenderID)
	assert.Equal(t, model.PaymentPending, *got.Status)

	rec = doJSON(t, e, http.MethodGet, "/v1/payments/"+uuid.NewString(), "", user)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterLoginMe(t *testing.T) {
	users := newMockUsers()
	h := NewAuthHandler(config.Config{JWTSecret: testSecret, AccessTTLMin: 5, BcryptCost: 4}, users)
	e := newTestEcho()
	e.POST("/v1/auth/register", h.Register)
	e.POST("/v1/auth/login", h.Login)
	e.GET("/v1/me", h.Me, middleware.JWTAuth(testSecret))

	rec := doJSON(t, e, http.MethodPost, "/v1/auth/register",
		`{"email":" Ana@Example.com ","password":"short","firstName":"Ana"}`, uuid.Nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/v1/auth/register",
		`{"email":" Ana@Example.com ","password":"correct horse","firstName":"Ana","phoneNumber":"+491700000009"}`, uuid.Nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.Equal(t, "ana@example.com", reg.User.Email)
	assert.NotEmpty(t, reg.Access.Token)

	rec = doJSON(t, e, http.MethodPost, "/v1/auth/login", `{"email":"ana@example.com","password":"wrong password"}`, uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/v1/auth/login", `{"email":"ana@example.com","password":"correct horse"}`, uuid.Nil)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+reg.Access.Token)
	me := httptest.NewRecorder()
	e.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), reg.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := newMockUsers()
	users.err = repository.ErrEmailExists
	h := NewAuthHandler(config.Config{JWTSecret: testSecret, AccessTTLMin: 5, BcryptCost: 4}, users)
	e := newTestEcho()
	e.POST("/v1/auth/register", h.Register)

	rec := doJSON(t, e, http.MethodPost, "/v1/auth/register", `{"email":"a@b.c","password":"longenough"}`, uuid.Nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(ctx context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	e := newTestEcho()
	e.GET("/ok", Health(stubPinger{}))
	e.GET("/down", Health(stubPinger{err: errors.New("refused")}))
	e.GET("/nodb", Health(nil))

	assert.Equal(t, http.StatusOK, doJSON(t, e, http.MethodGet, "/ok", "", uuid.Nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, e, http.MethodGet, "/down", "", uuid.Nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(t, e, http.MethodGet, "/nodb", "", uuid.Nil).Code)
}
