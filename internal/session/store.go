package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a session record does not exist or has expired
var ErrNotFound = errors.New("session not found")

// Record is the server-held session state referenced by the cookie token.
// Deleting the record revokes the session regardless of the token's expiry.
type Record struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	LoginAt   time.Time `json:"login_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists session records in Redis with a TTL matching the cookie lifetime
type Store struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewStore creates a session store backed by the given Redis client
func NewStore(client *redis.Client, logger zerolog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

func (s *Store) key(userID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", userID, sessionID)
}

// Create stores a new session record and returns its generated ID
func (s *Store) Create(ctx context.Context, userID, username, role string, ttl time.Duration) (*Record, error) {
	rec := &Record{
		SessionID: ulid.Make().String(),
		UserID:    userID,
		Username:  username,
		Role:      role,
		LoginAt:   time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(userID, rec.SessionID), data, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session in redis: %w", err)
	}

	return rec, nil
}

// Get retrieves a live session record; expired or revoked sessions return ErrNotFound
func (s *Store) Get(ctx context.Context, userID, sessionID string) (*Record, error) {
	data, err := s.client.Get(ctx, s.key(userID, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session from redis: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &rec, nil
}

// Invalidate revokes a single session. A missing record is not an error:
// logout must succeed from the caller's perspective.
func (s *Store) Invalidate(ctx context.Context, userID, sessionID string) error {
	if err := s.client.Del(ctx, s.key(userID, sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// InvalidateAllForUser revokes every session belonging to a user
// (used when an admin deletes the account)
func (s *Store) InvalidateAllForUser(ctx context.Context, userID string) error {
	pattern := fmt.Sprintf("session:%s:*", userID)

	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", iter.Val()).Msg("Failed to delete session key")
		}
	}
	return iter.Err()
}
