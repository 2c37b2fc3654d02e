// Package memory provides in-process repositories for development and tests.
// Data does not survive a restart.
package memory

import (
	"context"
	"sync"

	"Inkwell/internal/core/users"
)

// UserRepository is an in-memory users.UserRepository
type UserRepository struct {
	byID    map[string]*users.User
	byEmail map[string]string
	mu      sync.RWMutex
}

// NewUserRepository creates an empty in-memory user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*users.User),
		byEmail: make(map[string]string),
	}
}

// Create stores the user. Emails are unique.
func (r *UserRepository) Create(ctx context.Context, user *users.User) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return nil, users.ErrEmailTaken
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[user.Email] = user.ID

	out := stored
	return &out, nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	out := *user
	return &out, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}
