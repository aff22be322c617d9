package domain

import (
	"fmt"
	"strings"
)

// AuthAction is the operation a client requests from the relay.
type AuthAction string

const (
	AuthActionLogin  AuthAction = "login"
	AuthActionSignup AuthAction = "signup"
)

// ParseAuthAction accepts "login" or "signup" (case-insensitive).
func ParseAuthAction(s string) (AuthAction, error) {
	switch a := AuthAction(strings.ToLower(strings.TrimSpace(s))); a {
	case AuthActionLogin, AuthActionSignup:
		return a, nil
	case "":
		return "", fmt.Errorf("missing auth action: %w", ErrInvalidInput)
	default:
		return "", fmt.Errorf("unknown auth action %q: %w", s, ErrInvalidInput)
	}
}

// SessionClaim is an identity provider session token plus the profile
// attributes the client presented alongside it.
type SessionClaim struct {
	Token     string
	Subject   string
	Email     string
	FirstName string
	LastName  string
	ImageURL  string
}

// Username derives the directory username for a new account: the first name
// when present, otherwise the local part of the email.
func (c SessionClaim) Username() string {
	if name := strings.TrimSpace(c.FirstName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(strings.TrimSpace(c.Email), "@")
	return local
}

// AuthOutcome is the per-request result of reconciling a claim.
type AuthOutcome struct {
	Success   bool
	IsNewUser bool
	User      *User
	ErrorKind string // empty on success
}
