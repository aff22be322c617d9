// Package directory talks to the backend user directory that owns user
// records. The relay never stores users itself.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/gosuda/teamboard/internal/auth"
	"github.com/gosuda/teamboard/internal/domain"
)

const (
	maxBodyBytes  = 1 << 20
	maxErrorBytes = 4 << 10
)

// Client calls the directory endpoints:
//
//	GET  /auth/login          verify the bearer session
//	GET  /auth/user/{email}   look up a user
//	POST /auth/sign-up        create a user
//
// Every request carries the caller's session as a bearer token.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a directory client. httpClient may be nil.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    httpClient,
	}
}

// VerifySession presents the token to the directory and returns the identity
// it reports.
func (c *Client) VerifySession(ctx context.Context, token string) (*domain.Identity, error) {
	resp, err := c.do(ctx, token, http.MethodGet, "/auth/login", nil)
	if err != nil {
		return nil, &auth.BackendError{Op: "verify", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("directory.VerifySession: %w", auth.ErrTokenInvalid)
	case !isSuccess(resp.StatusCode):
		return nil, statusError("verify", resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &auth.BackendError{Op: "verify", Err: err}
	}

	id, err := decodeIdentity(body)
	if err != nil {
		return nil, &auth.BackendError{Op: "verify", Err: err}
	}
	return id, nil
}

// GetUserByEmail returns domain.ErrNotFound when the directory answers 404.
func (c *Client) GetUserByEmail(ctx context.Context, token, email string) (*domain.User, error) {
	resp, err := c.do(ctx, token, http.MethodGet, "/auth/user/"+url.PathEscape(email), nil)
	if err != nil {
		return nil, &auth.BackendError{Op: "lookup", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("directory.GetUserByEmail: %w", domain.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("directory.GetUserByEmail: %w", auth.ErrTokenInvalid)
	case !isSuccess(resp.StatusCode):
		return nil, statusError("lookup", resp)
	}

	return readUser("lookup", resp)
}

// CreateUser returns auth.ErrUserAlreadyExists when the directory answers 409.
func (c *Client) CreateUser(ctx context.Context, token, username, email string) (*domain.User, error) {
	payload, err := json.Marshal(map[string]string{"username": username, "email": email})
	if err != nil {
		return nil, fmt.Errorf("directory.CreateUser: %w", err)
	}

	resp, err := c.do(ctx, token, http.MethodPost, "/auth/sign-up", payload)
	if err != nil {
		return nil, &auth.BackendError{Op: "create", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		return nil, fmt.Errorf("directory.CreateUser: %w", auth.ErrUserAlreadyExists)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("directory.CreateUser: %w", auth.ErrTokenInvalid)
	case !isSuccess(resp.StatusCode):
		return nil, statusError("create", resp)
	}

	return readUser("create", resp)
}

func (c *Client) do(ctx context.Context, token, method, path string, body []byte) (*http.Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		// cancel runs when the caller closes the body.
		resp, err := c.send(ctx, token, method, path, body)
		if err != nil {
			cancel()
			return nil, err
		}
		resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
	return c.send(ctx, token, method, path, body)
}

func (c *Client) send(ctx context.Context, token, method, path string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// oauth2.Transport attaches "Authorization: Bearer <token>".
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))

	return client.Do(req)
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func isSuccess(code int) bool { return code >= 200 && code < 300 }

func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
	return &auth.BackendError{
		Op:     op,
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(raw)),
	}
}

var errMalformed = errors.New("malformed response body")

func readUser(op string, resp *http.Response) (*domain.User, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &auth.BackendError{Op: op, Err: err}
	}
	u, err := decodeUser(body)
	if err != nil {
		return nil, &auth.BackendError{Op: op, Err: err}
	}
	return u, nil
}

// decodeUser accepts either a bare record or {"user": record}.
func decodeUser(body []byte) (*domain.User, error) {
	var envelope struct {
		User *domain.User `json:"user"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	if envelope.User != nil && (envelope.User.ID != "" || envelope.User.Email != "") {
		return envelope.User, nil
	}

	var u domain.User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	if u.ID == "" && u.Email == "" {
		return nil, fmt.Errorf("%w: no user record", errMalformed)
	}
	return &u, nil
}

// decodeIdentity tolerates an empty body: the directory only has to say yes.
func decodeIdentity(body []byte) (*domain.Identity, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return &domain.Identity{}, nil
	}

	var payload struct {
		domain.Identity
		UserID string           `json:"userId"`
		User   *domain.Identity `json:"user"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}

	id := payload.Identity
	if payload.User != nil {
		if id.Subject == "" {
			id.Subject = payload.User.Subject
		}
		if id.Email == "" {
			id.Email = payload.User.Email
		}
	}
	if id.Subject == "" {
		id.Subject = payload.UserID
	}
	return &id, nil
}
