package ports

import "context"

// SessionStore keeps the anonymous subject id of each client session.
type SessionStore interface {
	// Get returns "" when the session has no anonymous id yet.
	Get(ctx context.Context, sessionID string) (string, error)

	// SetIfAbsent stores anonID for the session unless one is already
	// stored, and returns the id that is stored.
	SetIfAbsent(ctx context.Context, sessionID, anonID string) (string, error)
}
