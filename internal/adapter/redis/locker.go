package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix       = "reactboard:lock:"
	defaultPollInterval = 50 * time.Millisecond
	releaseTimeout      = 2 * time.Second
)

// releaseScript deletes the lock only while it still carries our token,
// so an expired-and-retaken lock is never released by its previous owner.
var releaseScript = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// ReferenceLocker is a domain.ReferenceLocker shared across instances through Redis.
// Locks expire after ttl so a crashed holder cannot block a message forever.
type ReferenceLocker struct {
	rdb          *goredis.Client
	ttl          time.Duration
	pollInterval time.Duration
	clock        clockwork.Clock
}

func NewReferenceLocker(rdb *goredis.Client, ttl time.Duration, clock clockwork.Clock) *ReferenceLocker {
	return &ReferenceLocker{
		rdb:          rdb,
		ttl:          ttl,
		pollInterval: defaultPollInterval,
		clock:        clock,
	}
}

// Lock polls SET NX PX until it wins or ctx is done.
func (l *ReferenceLocker) Lock(ctx context.Context, referenceID string) (func(), error) {
	key := lockKey(referenceID)
	token := uuid.NewString()

	for {
		ok, err := l.tryAcquire(ctx, key, token)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire lock for %s: %w", referenceID, ctx.Err())
		case <-l.clock.After(l.pollInterval):
		}
	}
}

func (l *ReferenceLocker) tryAcquire(ctx context.Context, key, token string) (bool, error) {
	args := goredis.SetArgs{TTL: l.ttl, Mode: "NX"}
	_, err := l.rdb.SetArgs(ctx, key, token, args).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to set lock: %w", err)
	}
	return true, nil
}

func (l *ReferenceLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	deleted, err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Int()
	if err != nil {
		slog.Error("Failed to release lock", "key", key, "error", err)
		return
	}
	if deleted == 0 {
		slog.Warn("Lock expired before release", "key", key, "ttl", l.ttl)
	}
}

func lockKey(referenceID string) string {
	return lockKeyPrefix + referenceID
}
