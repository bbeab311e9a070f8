package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "lock:"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a non-blocking scope lock shared by every API instance.
// Locks expire after ttl so a crashed holder cannot wedge a scope.
type Locker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewLocker(client redis.UniversalClient, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl}
}

func (l *Locker) TryLock(ctx context.Context, scope string) (func(), bool, error) {
	key := lockKeyPrefix + scope
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", scope, err)
	}
	if !acquired {
		return nil, false, nil
	}

	return func() {
		// the caller's context may already be done
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			logger.Warn("Failed to release scope lock", map[string]interface{}{
				"scope": scope,
				"error": err.Error(),
			})
		}
	}, true, nil
}
