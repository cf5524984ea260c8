package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records revoked token ids in Redis until the token would have
// expired anyway.
// Key format: denylist:<jti>
type Denylist struct {
	client redis.Cmdable
}

// NewDenylist creates a Denylist wrapping the given Redis client.
func NewDenylist(client redis.Cmdable) *Denylist {
	return &Denylist{client: client}
}

// Revoked satisfies ports.Denylist.
func (d *Denylist) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("denylist check: %w", err)
	}
	return n > 0, nil
}

// Revoke denies tokenID for ttl, which should be the remaining token lifetime.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, d.key(tokenID), "1", ttl).Err()
}

func (d *Denylist) key(tokenID string) string {
	return "denylist:" + tokenID
}
