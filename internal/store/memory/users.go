// Package memory is an in-process user store for the reference directory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/gosuda/teamboard/internal/domain"
)

// UserRepo keeps users keyed by normalized email.
type UserRepo struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{byEmail: make(map[string]domain.User)}
}

// Create fails with domain.ErrConflict when the email is taken.
func (r *UserRepo) Create(_ context.Context, u *domain.User) error {
	key := domain.NormalizeEmail(u.Email)
	if key == "" {
		return fmt.Errorf("memory.Create: email: %w", domain.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[key]; ok {
		return fmt.Errorf("memory.Create: %w", domain.ErrConflict)
	}
	r.byEmail[key] = *u
	return nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("memory.GetByEmail: %w", domain.ErrNotFound)
	}
	return &u, nil
}
