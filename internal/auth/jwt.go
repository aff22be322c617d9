package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of an identity provider session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// SessionVerifier parses HS256 session tokens locally. It answers "who is
// calling" for the relay's status endpoint and the board routes; account
// reconciliation still goes through the directory.
type SessionVerifier struct {
	secret string
	issuer string
}

// NewSessionVerifier creates a verifier. An empty issuer disables the
// issuer check.
func NewSessionVerifier(secret, issuer string) *SessionVerifier {
	return &SessionVerifier{secret: secret, issuer: issuer}
}

// Verify parses and validates a session token. Returns the embedded claims.
func (v *SessionVerifier) Verify(tokenString string) (*SessionClaims, error) {
	return ValidateSessionToken(v.secret, v.issuer, tokenString)
}

// IssueSessionToken creates a signed session token. Used by the reference
// directory and by boardctl for local development without a hosted
// identity provider.
func IssueSessionToken(secret, issuer, subject, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.IssueSessionToken: %w", err)
	}

	return signed, nil
}

// ValidateSessionToken parses and validates a session token string.
func ValidateSessionToken(secret, issuer, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateSessionToken: %w", ErrTokenInvalid)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("auth.ValidateSessionToken: %w", ErrTokenInvalid)
	}

	return claims, nil
}
