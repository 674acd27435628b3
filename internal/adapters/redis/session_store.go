// Package redis stores the anonymous subject id of each client session in Redis.
package redis

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

const (
	keyPrefix  = "splitr:session:"
	DefaultTTL = 24 * time.Hour
)

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type SessionStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewClient opens a client and checks connectivity.
func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "could not check redis connectivity")
	}
	return client, nil
}

func NewSessionStore(client *goredis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (string, error) {
	id, err := s.client.Get(ctx, keyPrefix+sessionID).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", domain.StoreUnavailable(errors.Wrap(err, "failed to read session"))
	}
	return id, nil
}

// SetIfAbsent uses SET NX so concurrent first requests of one session agree
// on a single anonymous id.
func (s *SessionStore) SetIfAbsent(ctx context.Context, sessionID, anonID string) (string, error) {
	key := keyPrefix + sessionID
	ok, err := s.client.SetNX(ctx, key, anonID, s.ttl).Result()
	if err != nil {
		return "", domain.StoreUnavailable(errors.Wrap(err, "failed to store session"))
	}
	if ok {
		return anonID, nil
	}

	existing, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		// Expired between SETNX and GET.
		return s.SetIfAbsent(ctx, sessionID, anonID)
	}
	if err != nil {
		return "", domain.StoreUnavailable(errors.Wrap(err, "failed to read session"))
	}
	return existing, nil
}

func (s *SessionStore) Close() error {
	return s.client.Close()
}
