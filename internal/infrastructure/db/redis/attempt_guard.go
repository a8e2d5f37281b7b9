package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptTTL = 24 * time.Hour

// AttemptGuard records which identity id a provisioning attempt key has
// already produced, backed by Redis. A retried attempt reuses the recorded
// identity instead of issuing a second credential.
// Key format: attempt:<attempt_key>
type AttemptGuard struct {
	client *redis.Client
}

// NewAttemptGuard creates an AttemptGuard wrapping the given Redis client.
func NewAttemptGuard(client *redis.Client) *AttemptGuard {
	return &AttemptGuard{client: client}
}

// IssuedIdentity returns the identity id recorded for this attempt key,
// if any.
func (g *AttemptGuard) IssuedIdentity(ctx context.Context, attemptKey string) (string, bool, error) {
	id, err := g.client.Get(ctx, g.key(attemptKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("attempt guard check: %w", err)
	}
	return id, id != "", nil
}

// MarkIssued records the identity issued for this attempt key (expires
// after attemptTTL).
func (g *AttemptGuard) MarkIssued(ctx context.Context, attemptKey, identityID string) error {
	return g.client.Set(ctx, g.key(attemptKey), identityID, attemptTTL).Err()
}

func (g *AttemptGuard) key(attemptKey string) string {
	return fmt.Sprintf("attempt:%s", attemptKey)
}
