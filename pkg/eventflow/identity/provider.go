package identity

import (
	"context"
	"errors"
)

var (
	// ErrUnauthenticated indicates there is no authenticated user
	ErrUnauthenticated = errors.New("no authenticated user")
)

// Provider exposes the identity of the currently authenticated user
type Provider interface {
	// GetActiveUserId returns the opaque identifier of the authenticated user.
	// ErrUnauthenticated is returned when no user is signed in.
	GetActiveUserId(ctx context.Context) (string, error)
}
