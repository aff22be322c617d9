package authflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/teamboard/internal/authflow"
	"github.com/gosuda/teamboard/internal/domain"
)

func TestRelayClient_VerifySuccess(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/verify", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"User created successfully","isNewUser":true,
			"user":{"id":"u1","username":"Ann","email":"a@x.com","createdAt":"2024-01-02T03:04:05Z"}}`))
	}))
	t.Cleanup(srv.Close)

	c := authflow.NewRelayClient(srv.URL+"/", srv.Client())
	res, err := c.Verify(context.Background(), ann, domain.AuthActionSignup)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "signup", gotBody["action"])
	userData, ok := gotBody["userData"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user_ann", userData["id"])
	assert.Equal(t, "a@x.com", userData["email"])
	assert.Equal(t, "Ann", userData["firstName"])
	assert.NotContains(t, userData, "lastName")

	assert.True(t, res.IsNewUser)
	assert.Equal(t, "User created successfully", res.Message)
	require.NotNil(t, res.User)
	assert.Equal(t, "Ann", res.User.Username)
}

func TestRelayClient_VerifyFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   authflow.RelayFailure
	}{
		{
			name:   "user not found",
			status: http.StatusNotFound,
			body:   `{"success":false,"error":"User not found. Please sign up first.","userNotFound":true}`,
			want:   authflow.RelayFailure{Status: 404, Message: "User not found. Please sign up first.", UserNotFound: true},
		},
		{
			name:   "user exists",
			status: http.StatusConflict,
			body:   `{"success":false,"error":"User already exists. Please log in.","userExists":true}`,
			want:   authflow.RelayFailure{Status: 409, Message: "User already exists. Please log in.", UserExists: true},
		},
		{
			name:   "backend details",
			status: http.StatusBadGateway,
			body:   `{"success":false,"error":"Authentication failed","details":"upstream down"}`,
			want:   authflow.RelayFailure{Status: 502, Message: "Authentication failed", Details: "upstream down"},
		},
		{
			name:   "non json",
			status: http.StatusInternalServerError,
			body:   `oops`,
			want:   authflow.RelayFailure{Status: 500},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			_, err := authflow.NewRelayClient(srv.URL, srv.Client()).Verify(context.Background(), ann, domain.AuthActionLogin)
			var rf *authflow.RelayFailure
			require.ErrorAs(t, err, &rf)
			assert.Equal(t, tt.want, *rf)
		})
	}
}

func TestRelayClient_VerifyTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := authflow.NewRelayClient(url, nil).Verify(context.Background(), ann, domain.AuthActionLogin)
	require.Error(t, err)
	var rf *authflow.RelayFailure
	assert.False(t, errors.As(err, &rf))
	assert.Contains(t, authflow.ErrorMessage(err), "Unable to reach the server")
}

func TestRelayClient_Status(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if r.Header.Get("Authorization") == "" {
			_, _ = w.Write([]byte(`{"authenticated":false,"hasToken":false}`))
			return
		}
		_, _ = w.Write([]byte(`{"authenticated":true,"userId":"user_ann","hasToken":true}`))
	}))
	t.Cleanup(srv.Close)

	c := authflow.NewRelayClient(srv.URL, srv.Client())

	st, err := c.Status(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, authflow.Status{Authenticated: true, UserID: "user_ann", HasToken: true}, *st)

	st, err = c.Status(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, st.Authenticated)
	assert.False(t, st.HasToken)
}

// End to end: controller over the HTTP relay client.
func TestController_WithRelayClient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":"User not found. Please sign up first.","userNotFound":true}`))
	}))
	t.Cleanup(srv.Close)

	c := authflow.NewController(authflow.NewRelayClient(srv.URL, srv.Client()), domain.AuthActionLogin)
	require.NoError(t, c.TriggerSignedIn(context.Background(), domain.SessionClaim{Token: "t", Email: "b@x.com"}))

	snap := c.Snapshot()
	assert.Equal(t, authflow.StateError, snap.State)
	assert.Equal(t, "No account found for this email. Please sign up first.", snap.Message)
}
