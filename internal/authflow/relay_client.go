package authflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/gosuda/teamboard/internal/domain"
)

// RelayFailure is a non-2xx answer from the relay.
type RelayFailure struct {
	Status       int
	Message      string
	Details      string
	UserNotFound bool
	UserExists   bool
}

func (e *RelayFailure) Error() string {
	msg := fmt.Sprintf("relay: status %d", e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// RelayClient calls POST/GET /api/auth/verify on a teamboard relay.
type RelayClient struct {
	baseURL string
	http    *http.Client
}

// NewRelayClient creates a client. httpClient may be nil.
func NewRelayClient(baseURL string, httpClient *http.Client) *RelayClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RelayClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type verifyRequest struct {
	Action   domain.AuthAction `json:"action"`
	UserData verifyUserData    `json:"userData"`
}

type verifyUserData struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

type verifyResponse struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message"`
	Error        string       `json:"error"`
	Details      string       `json:"details"`
	User         *domain.User `json:"user"`
	IsNewUser    bool         `json:"isNewUser"`
	UserNotFound bool         `json:"userNotFound"`
	UserExists   bool         `json:"userExists"`
}

// Verify posts the claim to the relay. Non-2xx answers return *RelayFailure;
// transport failures are returned wrapped.
func (c *RelayClient) Verify(ctx context.Context, claim domain.SessionClaim, action domain.AuthAction) (*Result, error) {
	payload, err := json.Marshal(verifyRequest{
		Action: action,
		UserData: verifyUserData{
			ID:        claim.Subject,
			Email:     claim.Email,
			FirstName: claim.FirstName,
			LastName:  claim.LastName,
			ImageURL:  claim.ImageURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("authflow.Verify: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/verify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("authflow.Verify: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client(ctx, claim.Token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("authflow.Verify: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("authflow.Verify: read body: %w", err)
	}

	var body verifyResponse
	decodeErr := json.Unmarshal(raw, &body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f := &RelayFailure{Status: resp.StatusCode}
		if decodeErr == nil {
			f.Message = body.Error
			f.Details = body.Details
			f.UserNotFound = body.UserNotFound
			f.UserExists = body.UserExists
		}
		return nil, f
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("authflow.Verify: decode body: %w", decodeErr)
	}

	return &Result{Message: body.Message, User: body.User, IsNewUser: body.IsNewUser}, nil
}

// Status is the relay's view of a session token.
type Status struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId"`
	HasToken      bool   `json:"hasToken"`
}

// Status asks the relay whether token is a valid session. An empty token is
// sent without an Authorization header.
func (c *RelayClient) Status(ctx context.Context, token string) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/verify", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("authflow.Status: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.http
	if token != "" {
		client = c.client(ctx, token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authflow.Status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RelayFailure{Status: resp.StatusCode}
	}

	var st Status
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&st); err != nil {
		return nil, fmt.Errorf("authflow.Status: decode body: %w", err)
	}
	return &st, nil
}

// client returns an HTTP client that sends token as a bearer credential.
func (c *RelayClient) client(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
}
