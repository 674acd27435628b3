package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultSessionCapacity = 100_000
	DefaultSessionTTL      = 24 * time.Hour
)

// SessionStore keeps anonymous ids in process memory. Entries expire after
// the session TTL and the least recently used ones are evicted beyond
// capacity.
type SessionStore struct {
	mu  sync.Mutex
	ids *expirable.LRU[string, string]
}

func NewSessionStore(capacity int, ttl time.Duration) *SessionStore {
	if capacity <= 0 {
		capacity = DefaultSessionCapacity
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{ids: expirable.NewLRU[string, string](capacity, nil, ttl)}
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (string, error) {
	id, _ := s.ids.Get(sessionID)
	return id, nil
}

func (s *SessionStore) SetIfAbsent(_ context.Context, sessionID, anonID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.ids.Get(sessionID); ok {
		return existing, nil
	}
	s.ids.Add(sessionID, anonID)
	return anonID, nil
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	return s.ids.Len()
}
