package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aquivis/aquivis/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyInviteCompany = "team:invite:company:%s"
	keyInviteLock    = "team:invite:lock:%s:%s"

	inviteLockTTL = 10 * time.Second
)

// ErrLockHeld is returned when another request is creating an invitation
// for the same company and email.
var ErrLockHeld = errors.New("invite_in_progress")

// InviteLimiter guards invitation creation. A nil or disabled limiter allows
// everything.
type InviteLimiter struct {
	bucket *TokenBucket
	locker *Locker
	policy *config.TeamPolicyHolder
}

func NewInviteLimiter(client *redis.Client, policy *config.TeamPolicyHolder) *InviteLimiter {
	if client == nil {
		return nil
	}
	return &InviteLimiter{
		bucket: NewTokenBucket(client),
		locker: NewLocker(client),
		policy: policy,
	}
}

func (l *InviteLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowCompany spends one unit of the company's hourly invitation budget.
func (l *InviteLimiter) AllowCompany(ctx context.Context, companyID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	limit := l.policy.Get().InviteRateLimit
	rate := float64(limit.PerHour) / time.Hour.Seconds()
	return l.bucket.Allow(ctx, companyBucketKey(companyID), rate, limit.Burst)
}

// RefundCompany returns the unit spent by AllowCompany when no invitation
// was sent.
func (l *InviteLimiter) RefundCompany(ctx context.Context, companyID string) error {
	if !l.Enabled() {
		return nil
	}
	return l.bucket.Refund(ctx, companyBucketKey(companyID), l.policy.Get().InviteRateLimit.Burst)
}

func companyBucketKey(companyID string) string {
	return fmt.Sprintf(keyInviteCompany, strings.TrimSpace(companyID))
}

// Lock serializes invitation creation for one (company, email) pair across
// instances. The returned release func is safe to call when the limiter is
// disabled.
func (l *InviteLimiter) Lock(ctx context.Context, companyID, email string) (func(), error) {
	if !l.Enabled() {
		return func() {}, nil
	}

	key := fmt.Sprintf(keyInviteLock, strings.TrimSpace(companyID), emailKey(email))
	lease, err := l.locker.Acquire(ctx, key, inviteLockTTL)
	if errors.Is(err, ErrNotAcquired) {
		return nil, ErrLockHeld
	}
	if err != nil {
		return nil, err
	}
	return func() {
		_ = lease.Release(context.WithoutCancel(ctx))
	}, nil
}

// emailKey keeps raw addresses out of Redis keys.
func emailKey(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:8])
}
