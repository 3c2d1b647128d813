package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/utils"
)

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// NewUser is the input of UserRepo.Create.
type NewUser struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber *string
}

const userColumns = `id, email, password_hash, first_name, last_name, phone_number, is_active, created_at, updated_at`

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u     model.User
		phone sql.NullString
	)
	if err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &phone, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.PhoneNumber = nullString(phone)
	return &u, nil
}

// NormalizePhone strips spaces, dashes and parentheses so lookups match
// however the number was typed.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, in NewUser, cost int) (uuid.UUID, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return uuid.Nil, err
	}
	var phone *string
	if in.PhoneNumber != nil {
		if p := NormalizePhone(*in.PhoneNumber); p != "" {
			phone = &p
		}
	}
	id := uuid.New()
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, first_name, last_name, phone_number) VALUES (?,?,?,?,?,?)",
		id, email, hash, in.FirstName, in.LastName, phone)
	if err != nil {
		if isDuplicate(err) {
			if strings.Contains(err.Error(), "phone") {
				return uuid.Nil, ErrPhoneExists
			}
			return uuid.Nil, ErrEmailExists
		}
		return uuid.Nil, err
	}
	return id, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// GetByPhone fetches a user by normalized phone number.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE phone_number=? LIMIT 1", NormalizePhone(phone)))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}
