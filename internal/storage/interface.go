package storage

import "context"

// TokenStorage persists the bearer credential across process restarts.
// It is the only durable state this client owns: one opaque token under
// a single well-known key. An absent token is not an error, it just
// means unauthenticated.
type TokenStorage interface {
	// Load returns the stored token, or "" if none is stored
	Load(ctx context.Context) (string, error)

	// Save stores the token, replacing any previous one
	Save(ctx context.Context, token string) error

	// Clear removes the stored token. Clearing an absent token is a no-op.
	Clear(ctx context.Context) error
}
