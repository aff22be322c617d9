package domain

import (
	"context"
	"strings"
	"time"
)

// User is a record owned by the backend user directory.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Identity is what the directory reports after verifying a session token.
// Either field may be empty when the directory does not expose it.
type Identity struct {
	Subject string `json:"id,omitempty"`
	Email   string `json:"email,omitempty"`
}

// UserRepository is the persistence contract of the reference directory.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// NormalizeEmail lower-cases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
