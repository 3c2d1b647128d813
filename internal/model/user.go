package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents an application user record as stored in the `users`
// table.  Guests are resolved by phone number, so PhoneNumber is unique
// when present.
//
// Fields:
//  ID           – primary key (UUID).
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  FirstName    – given name.
//  LastName     – family name.
//  PhoneNumber  – unique phone number (nullable).
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uuid.UUID // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	PhoneNumber  *string   // users.phone_number (nullable)
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
