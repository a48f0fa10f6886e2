// Package auth provides authentication and authorization domain logic.
package auth

import (
	"context"

	"craftpos/internal/core/id"
)

// UserRepository defines user storage operations.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves user by ID.
	GetByID(ctx context.Context, userID id.ID) (*User, error)

	// GetByEmail retrieves user by email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update updates user data.
	Update(ctx context.Context, user *User) error

	// List retrieves users with filtering.
	List(ctx context.Context, filter UserFilter) ([]User, error)

	// ListActiveWithPermission returns the ids of active users holding a
	// permission (admins included). Used for notification fan-out.
	ListActiveWithPermission(ctx context.Context, permission string) ([]id.ID, error)

	// Exists checks if email exists.
	Exists(ctx context.Context, email string) (bool, error)
}

// UserFilter for listing users.
type UserFilter struct {
	Search   string
	IsActive *bool
	Role     string
	Limit    int
	Offset   int
}
