package directory_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/teamboard/internal/auth"
	"github.com/gosuda/teamboard/internal/directory"
	"github.com/gosuda/teamboard/internal/domain"
	"github.com/gosuda/teamboard/internal/store/memory"
)

const testSecret = "directory-test-secret-at-least-32-chars"

func sessionHeader(t *testing.T, subject, email string) string {
	t.Helper()
	tok, err := auth.IssueSessionToken(testSecret, "", subject, email, time.Hour)
	require.NoError(t, err)
	return "Authorization: Bearer " + tok
}

func newDirectoryAPI(t *testing.T) (humatest.TestAPI, *memory.UserRepo) {
	t.Helper()
	_, api := humatest.New(t)
	users := memory.NewUserRepo()
	directory.RegisterRoutes(api, users, auth.NewSessionVerifier(testSecret, ""))
	return api, users
}

func TestDirectoryServer_Login(t *testing.T) {
	t.Parallel()

	api, _ := newDirectoryAPI(t)

	resp := api.Get("/auth/login", sessionHeader(t, "user_ann", "a@x.com"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var id domain.Identity
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &id))
	assert.Equal(t, domain.Identity{Subject: "user_ann", Email: "a@x.com"}, id)

	resp = api.Get("/auth/login")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.Get("/auth/login", "Authorization: Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestDirectoryServer_SignUpAndLookup(t *testing.T) {
	t.Parallel()

	api, _ := newDirectoryAPI(t)
	hdr := sessionHeader(t, "user_ann", "a@x.com")

	resp := api.Get("/auth/user/a@x.com", hdr)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.Post("/auth/sign-up", hdr, map[string]any{"username": "Ann", "email": "a@x.com"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var created domain.User
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Ann", created.Username)
	assert.False(t, created.CreatedAt.IsZero())

	resp = api.Get("/auth/user/A@X.com", hdr)
	require.Equal(t, http.StatusOK, resp.Code)
	var found domain.User
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &found))
	assert.Equal(t, created.ID, found.ID)

	resp = api.Post("/auth/sign-up", hdr, map[string]any{"username": "Ann", "email": "a@x.com"})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestDirectoryServer_SignUpValidation(t *testing.T) {
	t.Parallel()

	api, _ := newDirectoryAPI(t)
	hdr := sessionHeader(t, "user_ann", "a@x.com")

	resp := api.Post("/auth/sign-up", hdr, map[string]any{"username": "", "email": "a@x.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = api.Post("/auth/sign-up", hdr, map[string]any{"username": "Ann", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = api.Post("/auth/sign-up", map[string]any{"username": "Ann", "email": "a@x.com"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

// The HTTP client and the reference server agree on the wire contract.
func TestClientAgainstServer(t *testing.T) {
	t.Parallel()

	router := chi.NewRouter()
	api := humachi.New(router, huma.DefaultConfig("Directory", "test"))
	directory.RegisterRoutes(api, memory.NewUserRepo(), auth.NewSessionVerifier(testSecret, ""))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	tok, err := auth.IssueSessionToken(testSecret, "", "user_ann", "a@x.com", time.Hour)
	require.NoError(t, err)

	c := directory.NewClient(srv.URL, 2*time.Second, srv.Client())
	ctx := context.Background()

	id, err := c.VerifySession(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "user_ann", id.Subject)

	_, err = c.VerifySession(ctx, "garbage")
	require.ErrorIs(t, err, auth.ErrTokenInvalid)

	_, err = c.GetUserByEmail(ctx, tok, "a@x.com")
	require.ErrorIs(t, err, domain.ErrNotFound)

	u, err := c.CreateUser(ctx, tok, "Ann", "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Username)

	got, err := c.GetUserByEmail(ctx, tok, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = c.CreateUser(ctx, tok, "Ann", "a@x.com")
	require.ErrorIs(t, err, auth.ErrUserAlreadyExists)
}
