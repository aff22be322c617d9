package v1_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	v1 "github.com/gosuda/teamboard/internal/api/v1"
	"github.com/gosuda/teamboard/internal/auth"
	"github.com/gosuda/teamboard/internal/board"
	"github.com/gosuda/teamboard/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock Reconciler
// ---------------------------------------------------------------------------

type mockReconciler struct {
	reconcileFunc func(ctx context.Context, claim domain.SessionClaim, action domain.AuthAction) (*domain.AuthOutcome, error)
}

func (m *mockReconciler) Reconcile(ctx context.Context, claim domain.SessionClaim, action domain.AuthAction) (*domain.AuthOutcome, error) {
	return m.reconcileFunc(ctx, claim, action)
}

// ---------------------------------------------------------------------------
// Mock SessionVerifier
// ---------------------------------------------------------------------------

type mockVerifier struct {
	verifyFunc func(token string) (*auth.SessionClaims, error)
}

func (m *mockVerifier) Verify(token string) (*auth.SessionClaims, error) {
	return m.verifyFunc(token)
}

// ---------------------------------------------------------------------------
// In-memory directory for end-to-end relay scenarios
// ---------------------------------------------------------------------------

// memDirectory accepts a fixed set of tokens and stores users by email.
type memDirectory struct {
	mu      sync.Mutex
	tokens  map[string]domain.Identity
	users   map[string]*domain.User
	creates int
	calls   int
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		tokens: map[string]domain.Identity{"valid-token": {}},
		users:  make(map[string]*domain.User),
	}
}

func (d *memDirectory) VerifySession(_ context.Context, token string) (*domain.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++

	id, ok := d.tokens[token]
	if !ok {
		return nil, auth.ErrTokenInvalid
	}
	return &id, nil
}

func (d *memDirectory) GetUserByEmail(_ context.Context, _ string, email string) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++

	u, ok := d.users[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *memDirectory) CreateUser(_ context.Context, _ string, username, email string) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++

	if _, ok := d.users[email]; ok {
		return nil, auth.ErrUserAlreadyExists
	}
	d.creates++
	u := &domain.User{
		ID:        "user-" + strings.ReplaceAll(email, "@", "-at-"),
		Username:  username,
		Email:     email,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	d.users[email] = u
	cp := *u
	return &cp, nil
}

func (d *memDirectory) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// ---------------------------------------------------------------------------
// Board store helpers
// ---------------------------------------------------------------------------

func newBoardStore() *board.Store {
	n := 0
	s, err := board.New(board.Config{
		BoardID: "team",
		Seed:    board.DefaultSeed(),
		NewID: func() string {
			n++
			return fmt.Sprintf("task-new-%d", n)
		},
	})
	if err != nil {
		panic(err)
	}
	return s
}

// failingBoardStore fails AddTask and DeleteTask with err.
type failingBoardStore struct {
	v1.BoardStore
	err error
}

func (f *failingBoardStore) AddTask(context.Context, string, board.TaskInput) (domain.Task, error) {
	return domain.Task{}, f.err
}

func (f *failingBoardStore) DeleteTask(context.Context, string) error { return f.err }
