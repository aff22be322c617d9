package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/teamboard/internal/domain"
)

// Directory is the backend user directory as seen by the reconciler.
// *directory.Client satisfies this interface.
//
// Implementations return ErrTokenInvalid when the directory rejects the
// token, domain.ErrNotFound when a lookup finds nothing, ErrUserAlreadyExists
// when a create conflicts, and *BackendError for everything else.
type Directory interface {
	VerifySession(ctx context.Context, token string) (*domain.Identity, error)
	GetUserByEmail(ctx context.Context, token, email string) (*domain.User, error)
	CreateUser(ctx context.Context, token, username, email string) (*domain.User, error)
}

// Recorder receives one observation per reconciliation.
type Recorder interface {
	RecordReconcile(action domain.AuthAction, kind string, isNewUser bool)
}

// Reconciler maps a verified session claim and a requested action onto a
// directory user: reuse, create, or a typed rejection.
type Reconciler struct {
	dir      Directory
	recorder Recorder
}

// NewReconciler creates a reconciler. recorder may be nil.
func NewReconciler(dir Directory, recorder Recorder) *Reconciler {
	return &Reconciler{dir: dir, recorder: recorder}
}

// Reconcile runs a single login or signup decision. The returned outcome is
// never nil; on failure it carries the error kind alongside the error.
func (r *Reconciler) Reconcile(ctx context.Context, claim domain.SessionClaim, action domain.AuthAction) (*domain.AuthOutcome, error) {
	outcome, err := r.reconcile(ctx, claim, action)
	if err != nil {
		outcome = &domain.AuthOutcome{ErrorKind: KindOf(err)}
	}

	if r.recorder != nil {
		r.recorder.RecordReconcile(action, outcome.ErrorKind, outcome.IsNewUser)
	}

	ev := log.Info()
	if outcome.ErrorKind == KindInternal || outcome.ErrorKind == KindBackendUnavailable {
		ev = log.Warn().Err(err)
	}
	ev.Str("action", string(action)).
		Str("kind", outcome.ErrorKind).
		Bool("new_user", outcome.IsNewUser).
		Msg("auth: reconcile")

	return outcome, err
}

func (r *Reconciler) reconcile(ctx context.Context, claim domain.SessionClaim, action domain.AuthAction) (*domain.AuthOutcome, error) {
	if action != domain.AuthActionLogin && action != domain.AuthActionSignup {
		return nil, fmt.Errorf("auth.Reconcile: unknown action %q: %w", action, ErrBadRequest)
	}
	if claim.Token == "" {
		return nil, fmt.Errorf("auth.Reconcile: %w", ErrTokenInvalid)
	}

	// Verification precedes any lookup so an unauthenticated caller cannot
	// probe which emails exist.
	identity, err := r.dir.VerifySession(ctx, claim.Token)
	if err != nil {
		return nil, fmt.Errorf("auth.Reconcile: verify: %w", err)
	}

	claim, err = bindIdentity(claim, identity)
	if err != nil {
		return nil, fmt.Errorf("auth.Reconcile: %w", err)
	}

	existing, err := r.lookup(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("auth.Reconcile: lookup: %w", err)
	}

	switch action {
	case domain.AuthActionLogin:
		if existing == nil {
			return nil, fmt.Errorf("auth.Reconcile: %w", ErrUserNotFound)
		}
		return &domain.AuthOutcome{Success: true, User: existing}, nil

	default:
		if existing != nil {
			return nil, fmt.Errorf("auth.Reconcile: %w", ErrUserAlreadyExists)
		}

		created, err := r.dir.CreateUser(ctx, claim.Token, claim.Username(), claim.Email)
		if err != nil {
			return nil, fmt.Errorf("auth.Reconcile: create: %w", err)
		}
		return &domain.AuthOutcome{Success: true, IsNewUser: true, User: created}, nil
	}
}

// lookup returns nil, nil when the directory has no user for the email.
func (r *Reconciler) lookup(ctx context.Context, claim domain.SessionClaim) (*domain.User, error) {
	u, err := r.dir.GetUserByEmail(ctx, claim.Token, claim.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// bindIdentity reconciles the client-presented profile with what the
// directory verified. A mismatch means the token belongs to someone else.
func bindIdentity(claim domain.SessionClaim, id *domain.Identity) (domain.SessionClaim, error) {
	claim.Email = domain.NormalizeEmail(claim.Email)
	if id == nil {
		id = &domain.Identity{}
	}
	verifiedEmail := domain.NormalizeEmail(id.Email)

	if verifiedEmail != "" && claim.Email != "" && verifiedEmail != claim.Email {
		return claim, fmt.Errorf("email does not match session: %w", ErrTokenInvalid)
	}
	if id.Subject != "" && claim.Subject != "" && id.Subject != claim.Subject {
		return claim, fmt.Errorf("subject does not match session: %w", ErrTokenInvalid)
	}

	if claim.Email == "" {
		claim.Email = verifiedEmail
	}
	if claim.Email == "" {
		return claim, fmt.Errorf("no email for session: %w", ErrBadRequest)
	}
	if claim.Subject == "" {
		claim.Subject = id.Subject
	}
	return claim, nil
}
