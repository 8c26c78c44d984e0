package ports

import (
	"context"

	"github.com/aretw0/davinci/pkg/domain"
)

// TokenStore persists the authenticated user handle under a key, usually the
// client or tenant the workflow authenticates for. It lets a process pick the
// session up again after a restart.
type TokenStore interface {
	// Save persists the user for a given key, replacing any previous one.
	Save(ctx context.Context, key string, user *domain.User) error

	// Load retrieves the user for a given key.
	// Returns domain.ErrSessionNotFound if nothing is stored.
	Load(ctx context.Context, key string) (*domain.User, error)

	// Delete removes the user for a given key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys that currently hold a user.
	List(ctx context.Context) ([]string, error)
}
