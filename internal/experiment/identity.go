package experiment

import (
	"context"

	"github.com/google/uuid"

	"github.com/emiliopalmerini/splitr/internal/domain"
	"github.com/emiliopalmerini/splitr/internal/logging"
	"github.com/emiliopalmerini/splitr/internal/ports"
)

// Resolver maps a request to the subject it is allocated as.
type Resolver struct {
	sessions ports.SessionStore
	newID    func() string
}

func NewResolver(sessions ports.SessionStore) *Resolver {
	return &Resolver{sessions: sessions, newID: uuid.NewString}
}

// Resolve prefers the authenticated user id. Otherwise the anonymous id
// bound to sessionID is returned, creating it on first use. When the
// session store cannot be used the subject is a fresh id marked as not
// persisted, which the allocator never enrolls.
func (r *Resolver) Resolve(ctx context.Context, userID, sessionID string) domain.Subject {
	if userID != "" {
		return domain.UserSubject(userID)
	}

	transient := domain.Subject{Kind: domain.SubjectSession, Key: r.newID()}
	if sessionID == "" {
		return transient
	}

	anonID, err := r.sessions.Get(ctx, sessionID)
	if err == nil && anonID == "" {
		anonID, err = r.sessions.SetIfAbsent(ctx, sessionID, transient.Key)
	}
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "session store unavailable, subject not persisted", "error", err)
		return transient
	}
	return domain.SessionSubject(anonID)
}
