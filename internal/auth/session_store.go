package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// ErrSessionNotFound is returned when a session was never issued, expired or was revoked.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps the set of live bearer sessions.
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

type redisSessionStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisSessionStore stores sessions as JSON under session:<id>, expiring with the token.
func NewRedisSessionStore(client *redis.Client) SessionStore {
	return &redisSessionStore{client: client, now: time.Now}
}

func sessionKey(id string) string {
	return "session:" + id
}

func (s *redisSessionStore) Save(ctx context.Context, session *domain.Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(session.ID), data, ttl).Err()
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}
