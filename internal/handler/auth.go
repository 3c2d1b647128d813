package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-table-reservation/internal/config"
	"github.com/iliyamo/club-table-reservation/internal/middleware"
	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/repository"
	"github.com/iliyamo/club-table-reservation/internal/utils"
)

// AuthUsers is the user store behind the auth endpoints.  *repository.UserRepo
// satisfies it.
type AuthUsers interface {
	Create(ctx context.Context, in repository.NewUser, cost int) (uuid.UUID, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users AuthUsers
}

func NewAuthHandler(cfg config.Config, u AuthUsers) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u}
}

// ----- DTOs -----

type registerReq struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	PhoneNumber *string `json:"phoneNumber"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
}
type authResp struct {
	User   userPart  `json:"user"`
	Access tokenPart `json:"access"`
}

func toUserPart(u *model.User) userPart {
	return userPart{ID: u.ID.String(), Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, PhoneNumber: u.PhoneNumber}
}

// Register creates a user and returns an access token immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return badRequest("email and password are required")
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return badRequest(err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		PhoneNumber: req.PhoneNumber,
	}, h.Cfg.BcryptCost)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return apiError(http.StatusConflict, "conflict", "email already exists")
		case errors.Is(err, repository.ErrPhoneExists):
			return apiError(http.StatusConflict, "conflict", "phone number already exists")
		}
		return apiError(http.StatusInternalServerError, "internal", "create user failed").SetInternal(err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return apiError(http.StatusInternalServerError, "internal", "load user failed").SetInternal(err)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, h.Cfg.AccessTTLMin)
	if err != nil {
		return apiError(http.StatusInternalServerError, "internal", "issue access failed").SetInternal(err)
	}
	return c.JSON(http.StatusCreated, authResp{
		User:   toUserPart(u),
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Login verifies credentials and returns a fresh access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return badRequest("email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apiError(http.StatusUnauthorized, "unauthorized", "invalid credentials")
		}
		return apiError(http.StatusInternalServerError, "internal", "query failed").SetInternal(err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return apiError(http.StatusUnauthorized, "unauthorized", "invalid credentials")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return apiError(http.StatusInternalServerError, "internal", "issue access failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, authResp{
		User:   toUserPart(u),
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return apiError(http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apiError(http.StatusNotFound, "not_found", "user not found")
		}
		return apiError(http.StatusInternalServerError, "internal", "load user failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}
