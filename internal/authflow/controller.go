// Package authflow drives a client through the sign-in handshake with the
// auth relay: one automatic attempt per signed-in identity, with an explicit
// retry after a failure.
package authflow

import (
	"context"
	"errors"
	"sync"

	"github.com/gosuda/teamboard/internal/domain"
)

var (
	ErrBusy             = errors.New("authflow: a request is already in flight")
	ErrAlreadyAttempted = errors.New("authflow: identity already attempted")
	ErrNotRetryable     = errors.New("authflow: retry is only possible after an error"))

type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is a successful relay response.
type Result struct {
	Message   string
	User      *domain.User
	IsNewUser bool
}

// Relay performs one verification round trip. *RelayClient satisfies it.
type Relay interface {
	Verify(ctx context.Context, claim domain.SessionClaim, action domain.AuthAction) (*Result, error)
}

// Snapshot is the observable controller state.
type Snapshot struct {
	State     State
	Step      string
	User      *domain.User
	IsNewUser bool
	Message   string
}

// Transition is delivered to listeners on every state change.
type Transition struct {
	From, To State
	Snapshot Snapshot
}

// Controller is safe for concurrent use. At most one relay request is in
// flight at a time.
type Controller struct {
	relay  Relay
	action domain.AuthAction

	mu        sync.Mutex
	snap      Snapshot
	attempted map[string]struct{}
	last      domain.SessionClaim
	listeners []func(Transition)
}

// NewController returns an idle controller that will run action for every
// newly signed-in identity.
func NewController(relay Relay, action domain.AuthAction) *Controller {
	return &Controller{
		relay:     relay,
		action:    action,
		attempted: make(map[string]struct{}),
	}
}

// OnTransition registers fn to be called after each state change. Listeners
// run with the controller locked and must not call back into it.
func (c *Controller) OnTransition(fn func(Transition)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// TriggerSignedIn starts verification for a freshly signed-in identity. It
// fires at most once per identity; it returns ErrAlreadyAttempted for a
// repeat and ErrBusy unless the controller is idle. The request runs on the
// caller's goroutine and honors ctx.
func (c *Controller) TriggerSignedIn(ctx context.Context, claim domain.SessionClaim) error {
	c.mu.Lock()
	if c.snap.State != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	if _, done := c.attempted[identityKey(claim)]; done {
		c.mu.Unlock()
		return ErrAlreadyAttempted
	}
	c.startLocked(claim)
	c.mu.Unlock()

	c.run(ctx, claim)
	return nil
}

// TriggerRetry is only valid in the error state: it returns to idle, forgets
// the failed identity, and immediately re-runs verification for it.
func (c *Controller) TriggerRetry(ctx context.Context) error {
	c.mu.Lock()
	if c.snap.State != StateError {
		c.mu.Unlock()
		return ErrNotRetryable
	}
	claim := c.last
	delete(c.attempted, identityKey(claim))
	c.setLocked(Snapshot{State: StateIdle})
	c.startLocked(claim)
	c.mu.Unlock()

	c.run(ctx, claim)
	return nil
}

// startLocked marks claim as attempted and enters the loading state. c.mu
// must be held.
func (c *Controller) startLocked(claim domain.SessionClaim) {
	c.attempted[identityKey(claim)] = struct{}{}
	c.last = claim
	c.setLocked(Snapshot{State: StateLoading, Step: "Verifying token with backend..."})
}

// run performs the relay round trip and settles the state. A relay that
// returns no result, or panics, leaves the controller in the error state.
func (c *Controller) run(ctx context.Context, claim domain.SessionClaim) {
	var (
		res *Result
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			c.settle(nil, nil)
			panic(r)
		}
		c.settle(res, err)
	}()
	res, err = c.relay.Verify(ctx, claim, c.action)
}

func (c *Controller) settle(res *Result, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case err != nil:
		c.setLocked(Snapshot{State: StateError, Message: ErrorMessage(err)})
	case res == nil:
		c.setLocked(Snapshot{State: StateError, Message: ErrorMessage(nil)})
	default:
		c.setLocked(Snapshot{State: StateSuccess, User: res.User, IsNewUser: res.IsNewUser, Message: res.Message})
	}
}

// SignOut returns the controller to idle from any settled state. The
// one-shot guard survives, so an identity that already ran is not re-verified
// when it signs in again. It returns ErrBusy while a request is in flight.
func (c *Controller) SignOut() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap.State == StateLoading {
		return ErrBusy
	}
	if c.snap.State != StateIdle {
		c.setLocked(Snapshot{State: StateIdle})
	}
	return nil
}

// setLocked must be called with c.mu held.
func (c *Controller) setLocked(next Snapshot) {
	from := c.snap.State
	c.snap = next
	for _, fn := range c.listeners {
		fn(Transition{From: from, To: next.State, Snapshot: next})
	}
}

func identityKey(claim domain.SessionClaim) string {
	if claim.Subject != "" {
		return "sub:" + claim.Subject
	}
	return "email:" + domain.NormalizeEmail(claim.Email)
}

// ErrorMessage turns a relay failure into the text shown to the user.
func ErrorMessage(err error) string {
	var rf *RelayFailure
	if errors.As(err, &rf) {
		switch {
		case rf.UserNotFound:
			return "No account found for this email. Please sign up first."
		case rf.UserExists:
			return "An account with this email already exists. Please log in instead."
		case rf.Message != "":
			return rf.Message
		default:
			return "Failed to authenticate with backend"
		}
	}
	if err != nil {
		return "Unable to reach the server: " + err.Error()
	}
	return "An error occurred"
}
