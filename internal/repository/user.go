package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain"
)

// ErrNotFound is returned by lookups when no record matches.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a uniqueness constraint rejects a write.
var ErrDuplicate = errors.New("duplicate record")

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	// FindByUsername matches the username exactly, case-sensitive.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// ListAll returns every user ordered by ascending id.
	ListAll(ctx context.Context) ([]domain.User, error)
	// Insert stores a transient user and returns it with its assigned id.
	Insert(ctx context.Context, user *domain.User) (*domain.User, error)
	// Update rewrites username, password hash, email and role. It reports
	// false when no row has the user's id.
	Update(ctx context.Context, user *domain.User) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
