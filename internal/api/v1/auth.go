package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/teamboard/internal/auth"
	"github.com/gosuda/teamboard/internal/domain"
)

// RelayError is the flat JSON error body of the auth relay. It implements
// huma.StatusError so huma writes it as-is with its own status.
type RelayError struct {
	status       int
	Success      bool   `json:"success"`
	Message      string `json:"error"`
	Details      string `json:"details,omitempty"`
	UserNotFound bool   `json:"userNotFound,omitempty"`
	UserExists   bool   `json:"userExists,omitempty"`
}

func (e *RelayError) Error() string  { return e.Message }
func (e *RelayError) GetStatus() int { return e.status }

type UserData struct {
	_         struct{} `additionalProperties:"true"`
	ID        string   `json:"id,omitempty" doc:"Identity provider subject id"`
	Email     string   `json:"email,omitempty" doc:"Primary email address"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	ImageURL  string   `json:"imageUrl,omitempty"`
}

type VerifyAuthBody struct {
	_        struct{} `additionalProperties:"true"`
	Action   string   `json:"action,omitempty" doc:"login or signup"`
	UserData UserData `json:"userData,omitempty"`

	badAction bool
}

// UnmarshalJSON never fails on well-formed JSON. A body that is not an object,
// or an action that is not a string, is flagged for the handler; a malformed
// userData is dropped.
func (b *VerifyAuthBody) UnmarshalJSON(data []byte) error {
	var raw struct {
		Action   json.RawMessage `json:"action"`
		UserData json.RawMessage `json:"userData"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		b.badAction = true
		return nil
	}
	*b = VerifyAuthBody{}
	if len(raw.Action) > 0 && string(raw.Action) != "null" {
		if err := json.Unmarshal(raw.Action, &b.Action); err != nil {
			b.badAction = true
		}
	}
	if len(raw.UserData) > 0 {
		_ = json.Unmarshal(raw.UserData, &b.UserData)
	}
	return nil
}

type VerifyAuthInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	Body          *VerifyAuthBody
}

type VerifyAuthResponse struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	User      *domain.User `json:"user"`
	IsNewUser bool         `json:"isNewUser"`
}

type VerifyAuthOutput struct {
	Body VerifyAuthResponse
}

type AuthStatusInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
}

type AuthStatusOutput struct {
	Body struct {
		Authenticated bool   `json:"authenticated"`
		UserID        string `json:"userId,omitempty"`
		HasToken      bool   `json:"hasToken"`
	}
}

func RegisterAuthRoutes(api huma.API, reconciler Reconciler, verifier SessionVerifier) {
	huma.Register(api, huma.Operation{
		OperationID:      "verify-auth",
		Method:           http.MethodPost,
		Path:             "/api/auth/verify",
		Summary:          "Reconcile a signed-in session with the user directory",
		Tags:             []string{"Auth"},
		SkipValidateBody: true,
		Middlewares:      huma.Middlewares{requireBearer(api)},
	}, func(ctx context.Context, input *VerifyAuthInput) (*VerifyAuthOutput, error) {
		token := bearerToken(input.Authorization)
		if token == "" {
			return nil, relayError(http.StatusUnauthorized, "User not authenticated")
		}

		body := input.Body
		if body == nil {
			body = &VerifyAuthBody{}
		}
		if body.badAction {
			return nil, relayError(http.StatusBadRequest, "Invalid action. Use 'login' or 'signup'")
		}
		if strings.TrimSpace(body.Action) == "" {
			return nil, relayError(http.StatusBadRequest, "Missing required field: action")
		}
		action, err := domain.ParseAuthAction(body.Action)
		if err != nil {
			return nil, relayError(http.StatusBadRequest, "Invalid action. Use 'login' or 'signup'")
		}

		claim := domain.SessionClaim{
			Token:     token,
			Subject:   body.UserData.ID,
			Email:     body.UserData.Email,
			FirstName: body.UserData.FirstName,
			LastName:  body.UserData.LastName,
			ImageURL:  body.UserData.ImageURL,
		}

		outcome, err := reconciler.Reconcile(ctx, claim, action)
		if err != nil {
			return nil, reconcileError(err)
		}

		out := &VerifyAuthOutput{}
		out.Body.Success = true
		out.Body.User = outcome.User
		out.Body.IsNewUser = outcome.IsNewUser
		out.Body.Message = "User authenticated successfully"
		if outcome.IsNewUser {
			out.Body.Message = "User created successfully"
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "auth-status",
		Method:      http.MethodGet,
		Path:        "/api/auth/verify",
		Summary:     "Report whether the caller carries a valid session",
		Tags:        []string{"Auth"},
	}, func(_ context.Context, input *AuthStatusInput) (*AuthStatusOutput, error) {
		out := &AuthStatusOutput{}
		token := bearerToken(input.Authorization)
		out.Body.HasToken = token != ""
		if token == "" {
			return out, nil
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			return out, nil
		}
		out.Body.Authenticated = true
		out.Body.UserID = claims.Subject
		return out, nil
	})
}

// requireBearer rejects a request without a bearer token before huma reads
// its body, so a missing token is always 401 whatever the payload holds.
func requireBearer(api huma.API) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if bearerToken(ctx.Header("Authorization")) != "" {
			next(ctx)
			return
		}
		ctx.SetHeader("Content-Type", "application/json")
		ctx.SetStatus(http.StatusUnauthorized)
		_ = api.Marshal(ctx.BodyWriter(), "application/json", relayError(http.StatusUnauthorized, "User not authenticated"))
	}
}

func relayError(status int, msg string) *RelayError {
	return &RelayError{status: status, Message: msg}
}

// reconcileError maps a reconciliation failure onto the relay's response.
func reconcileError(err error) *RelayError {
	switch auth.KindOf(err) {
	case auth.KindTokenInvalid:
		return relayError(http.StatusUnauthorized, "User not authenticated")
	case auth.KindBadRequest:
		e := relayError(http.StatusBadRequest, "Invalid request")
		e.Details = err.Error()
		return e
	case auth.KindUserNotFound:
		e := relayError(http.StatusNotFound, "User not found. Please sign up first.")
		e.UserNotFound = true
		return e
	case auth.KindUserAlreadyExists:
		e := relayError(http.StatusConflict, "User already exists. Please log in.")
		e.UserExists = true
		return e
	case auth.KindBackendUnavailable:
		e := relayError(http.StatusInternalServerError, "Authentication failed")
		var be *auth.BackendError
		if errors.As(err, &be) {
			if be.Status >= 400 && be.Status <= 599 {
				e.status = be.Status
			}
			e.Details = be.Body
		}
		if e.Details == "" {
			e.Details = err.Error()
		}
		return e
	default:
		return relayError(http.StatusInternalServerError, "Internal server error")
	}
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
