package user

import "context"

// Store is the durable user repository. Implementations return
// sentinel.ErrNotFound for absent records and sentinel.ErrConflict when a
// Create collides with an existing email.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}
