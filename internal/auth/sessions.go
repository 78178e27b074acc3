package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyRefreshSession = "petite-maison:refresh:"

// SessionStore tracks live refresh sessions so they can be rotated and revoked.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error
	// Consume deletes the session and reports whether it existed for userID.
	Consume(ctx context.Context, sessionID string, userID uuid.UUID) (bool, error)
	Revoke(ctx context.Context, sessionID string) error
}

type redisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore connects to redisURL and returns a SessionStore.
func NewRedisSessionStore(ctx context.Context, redisURL string) (SessionStore, *redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Msg("Connected to Redis (refresh sessions)")
	return NewRedisSessionStoreFromClient(client), client, nil
}

func NewRedisSessionStoreFromClient(client *redis.Client) SessionStore {
	return &redisSessionStore{client: client}
}

func (s *redisSessionStore) Save(ctx context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyRefreshSession+sessionID, userID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to save refresh session: %w", err)
	}
	return nil
}

func (s *redisSessionStore) Consume(ctx context.Context, sessionID string, userID uuid.UUID) (bool, error) {
	owner, err := s.client.GetDel(ctx, keyRefreshSession+sessionID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume refresh session: %w", err)
	}
	return owner == userID.String(), nil
}

func (s *redisSessionStore) Revoke(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, keyRefreshSession+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to revoke refresh session: %w", err)
	}
	return nil
}

type memorySession struct {
	userID    uuid.UUID
	expiresAt time.Time
}

type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

// NewMemorySessionStore keeps sessions in process memory. Used when Redis is
// not configured; sessions do not survive a restart.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{sessions: make(map[string]memorySession), now: time.Now}
}

func (s *memorySessionStore) Save(_ context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = memorySession{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *memorySessionStore) Consume(_ context.Context, sessionID string, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return false, nil
	}
	delete(s.sessions, sessionID)
	if s.now().After(sess.expiresAt) {
		return false, nil
	}
	return sess.userID == userID, nil
}

func (s *memorySessionStore) Revoke(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
