package v1

import (
	"context"

	"github.com/gosuda/teamboard/internal/auth"
	"github.com/gosuda/teamboard/internal/board"
	"github.com/gosuda/teamboard/internal/domain"
)

// Reconciler abstracts the login/signup decision for handler testing.
// *auth.Reconciler satisfies this interface.
type Reconciler interface {
	Reconcile(ctx context.Context, claim domain.SessionClaim, action domain.AuthAction) (*domain.AuthOutcome, error)
}

// SessionVerifier parses bearer session tokens locally.
// *auth.SessionVerifier satisfies this interface.
type SessionVerifier interface {
	Verify(token string) (*auth.SessionClaims, error)
}

// BoardStore abstracts board state for handler testing.
// *board.Store satisfies this interface.
type BoardStore interface {
	Board() domain.Board
	AddTask(ctx context.Context, columnID string, in board.TaskInput) (domain.Task, error)
	EditTask(ctx context.Context, taskID string, in board.TaskInput) (domain.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	DuplicateTask(ctx context.Context, taskID string) (domain.Task, error)
	MoveTask(ctx context.Context, taskID, toColumnID string, index int) (domain.Task, error)
	AddColumn(ctx context.Context, title string) (domain.Column, error)
	DeleteColumn(ctx context.Context, columnID string) error
	ReorderColumns(ctx context.Context, order []string) error
}
