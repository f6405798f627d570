// internal/pkg/session/cache.go
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketlens-service/internal/domain/auth"
	xerrors "marketlens-service/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through Redis cache for session lookups by access token.
// Postgres stays the source of truth: entries are dropped on logout and
// rotation, and a Redis outage only degrades lookups to the database.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Put stores the session under its access token until the session expires.
func (c *Cache) Put(ctx context.Context, s *auth.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := c.client.Set(ctx, sessionKey(s.AccessToken), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}
	return nil
}

// GetByAccessToken returns the cached session or xerrors.ErrNotFound on a miss.
func (c *Cache) GetByAccessToken(ctx context.Context, accessToken string) (*auth.Session, error) {
	data, err := c.client.Get(ctx, sessionKey(accessToken)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session from redis: %w", err)
	}

	var s auth.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// Drop removes the cache entry for an access token.
func (c *Cache) Drop(ctx context.Context, accessToken string) error {
	if err := c.client.Del(ctx, sessionKey(accessToken)).Err(); err != nil {
		return fmt.Errorf("failed to drop session from redis: %w", err)
	}
	return nil
}

// sessionKey hashes the token so keys stay fixed-length and the raw credential
// never appears in Redis.
func sessionKey(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return "session:access:" + hex.EncodeToString(sum[:])
}
