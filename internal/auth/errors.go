package auth

import (
	"errors"
	"fmt"

	"github.com/gosuda/teamboard/internal/domain"
)

// Sentinel errors for the auth package.
var (
	ErrTokenInvalid       = errors.New("auth: invalid or missing session token")
	ErrBadRequest         = errors.New("auth: bad request")
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrUserAlreadyExists  = errors.New("auth: user already exists")
	ErrBackendUnavailable = errors.New("auth: backend unavailable")
)

// Error kinds reported in AuthOutcome.ErrorKind and metrics labels.
const (
	KindTokenInvalid       = "token_invalid"
	KindBadRequest         = "bad_request"
	KindUserNotFound       = "user_not_found"
	KindUserAlreadyExists  = "user_already_exists"
	KindBackendUnavailable = "backend_unavailable"
	KindInternal           = "internal"
)

// BackendError is a failed exchange with the user directory. Status is the
// directory's HTTP status, or 0 when no response was received or the body
// could not be decoded.
type BackendError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *BackendError) Error() string {
	msg := "directory " + e.Op
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBackendUnavailable}
	}
	return []error{ErrBackendUnavailable, e.Err}
}

// KindOf classifies err into one of the Kind* constants.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTokenInvalid):
		return KindTokenInvalid
	case errors.Is(err, ErrBadRequest), errors.Is(err, domain.ErrInvalidInput):
		return KindBadRequest
	case errors.Is(err, ErrUserNotFound):
		return KindUserNotFound
	case errors.Is(err, ErrUserAlreadyExists):
		return KindUserAlreadyExists
	case errors.Is(err, ErrBackendUnavailable):
		return KindBackendUnavailable
	default:
		return KindInternal
	}
}
