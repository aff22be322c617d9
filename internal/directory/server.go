package directory

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/teamboard/internal/auth"
	"github.com/gosuda/teamboard/internal/domain"
)

// TokenVerifier validates the bearer session presented to the directory.
type TokenVerifier interface {
	Verify(token string) (*auth.SessionClaims, error)
}

type LoginInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
}

type LoginOutput struct {
	Body domain.Identity
}

type GetUserInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	Email         string `path:"email" doc:"Email address"`
}

type UserOutput struct {
	Body domain.User
}

type SignUpInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	Body          struct {
		Username string `json:"username" minLength:"1" maxLength:"100"`
		Email    string `json:"email" minLength:"3" maxLength:"320"`
	}
}

// RegisterRoutes mounts the reference directory on api:
//
//	GET  /auth/login          identity behind the bearer session
//	GET  /auth/user/{email}   user record, 404 when absent
//	POST /auth/sign-up        create a user, 409 on a taken email
//
// Every route requires a valid session.
func RegisterRoutes(api huma.API, users domain.UserRepository, verifier TokenVerifier) {
	huma.Register(api, huma.Operation{
		OperationID: "directory-login",
		Method:      http.MethodGet,
		Path:        "/auth/login",
		Summary:     "Verify a session token",
		Tags:        []string{"Directory"},
	}, func(_ context.Context, input *LoginInput) (*LoginOutput, error) {
		claims, err := verifyBearer(verifier, input.Authorization)
		if err != nil {
			return nil, err
		}
		return &LoginOutput{Body: domain.Identity{Subject: claims.Subject, Email: claims.Email}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "directory-get-user",
		Method:      http.MethodGet,
		Path:        "/auth/user/{email}",
		Summary:     "Look up a user by email",
		Tags:        []string{"Directory"},
	}, func(ctx context.Context, input *GetUserInput) (*UserOutput, error) {
		if _, err := verifyBearer(verifier, input.Authorization); err != nil {
			return nil, err
		}

		u, err := users.GetByEmail(ctx, input.Email)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("user not found")
		}
		if err != nil {
			log.Error().Err(err).Msg("directory: lookup failed")
			return nil, huma.Error500InternalServerError("lookup failed")
		}
		return &UserOutput{Body: *u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "directory-sign-up",
		Method:      http.MethodPost,
		Path:        "/auth/sign-up",
		Summary:     "Create a user",
		Tags:        []string{"Directory"},
	}, func(ctx context.Context, input *SignUpInput) (*UserOutput, error) {
		if _, err := verifyBearer(verifier, input.Authorization); err != nil {
			return nil, err
		}

		email := strings.TrimSpace(input.Body.Email)
		if !strings.Contains(email, "@") {
			return nil, huma.Error400BadRequest("invalid email")
		}

		u := &domain.User{
			ID:        uuid.NewString(),
			Username:  strings.TrimSpace(input.Body.Username),
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
		err := users.Create(ctx, u)
		switch {
		case errors.Is(err, domain.ErrConflict):
			return nil, huma.Error409Conflict("user already exists")
		case errors.Is(err, domain.ErrInvalidInput):
			return nil, huma.Error400BadRequest("invalid user")
		case err != nil:
			log.Error().Err(err).Msg("directory: create failed")
			return nil, huma.Error500InternalServerError("create failed")
		}

		log.Info().Str("user_id", u.ID).Msg("directory: user created")
		return &UserOutput{Body: *u}, nil
	})
}

func verifyBearer(verifier TokenVerifier, header string) (*auth.SessionClaims, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, huma.Error401Unauthorized("missing bearer token")
	}
	claims, err := verifier.Verify(strings.TrimSpace(token))
	if err != nil {
		return nil, huma.Error401Unauthorized("invalid session token")
	}
	return claims, nil
}
