package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// releaseIfOwner deletes the key only while it still holds the caller's token.
const releaseIfOwner = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	// ErrNotAcquired means another holder owns the key.
	ErrNotAcquired      = errors.New("lock_not_acquired")
	errNoLockClient     = errors.New("lock client not configured")
	errInvalidLeaseArgs = errors.New("lock key and ttl are required")
)

// Locker hands out expiring single-key leases backed by Redis SETNX.
type Locker struct {
	client  *redis.Client
	release *redis.Script
}

// Lease is a held lock. It expires on its own after the ttl it was taken with.
type Lease struct {
	locker *Locker
	key    string
	token  string
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:  client,
		release: redis.NewScript(releaseIfOwner),
	}
}

// Acquire takes key for ttl or returns ErrNotAcquired.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if l == nil || l.client == nil {
		return nil, errNoLockClient
	}
	key = strings.TrimSpace(key)
	if key == "" || ttl <= 0 {
		return nil, errInvalidLeaseArgs
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &Lease{locker: l, key: key, token: token}, nil
}

// Release gives the key back. Releasing after expiry, or after another
// holder took the key, leaves the key alone.
func (le *Lease) Release(ctx context.Context) error {
	if le == nil || le.locker == nil {
		return nil
	}
	return le.locker.release.Run(ctx, le.locker.client, []string{le.key}, le.token).Err()
}

func (le *Lease) Key() string {
	if le == nil {
		return ""
	}
	return le.key
}
