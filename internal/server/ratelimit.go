package server

import (
	"strconv"
	"sync"
	"time"

	"github.com/aquivis/aquivis/internal/observability/logger"
	obsmetrics "github.com/aquivis/aquivis/internal/observability/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	rateLimitReasonClientRate = "client-rate"
	limiterIdleTTL            = 10 * time.Minute
)

// rateLimiter keeps one token bucket per client key in process memory. It
// guards the unauthenticated endpoints, where the Redis budget keyed by
// company does not apply.
type rateLimiter struct {
	mu          sync.Mutex
	limit       rate.Limit
	burst       int
	now         func() time.Time
	buckets     map[string]*clientBucket
	lastCleanup time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(requests int, window time.Duration) *rateLimiter {
	if requests <= 0 || window <= 0 {
		return nil
	}
	return &rateLimiter{
		limit:   rate.Limit(float64(requests) / window.Seconds()),
		burst:   requests,
		now:     time.Now,
		buckets: make(map[string]*clientBucket),
	}
}

// Allow reports whether key may proceed and, when it may not, how long until
// the next token.
func (l *rateLimiter) Allow(key string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanup(now)

	bucket, ok := l.buckets[key]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = bucket
	}
	bucket.lastSeen = now

	reservation := bucket.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Second
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *rateLimiter) cleanup(now time.Time) {
	if now.Sub(l.lastCleanup) < time.Minute {
		return
	}
	l.lastCleanup = now
	for key, bucket := range l.buckets {
		if now.Sub(bucket.lastSeen) > limiterIdleTTL {
			delete(l.buckets, key)
		}
	}
}

// ClientRateLimit throttles a route per client IP.
func (s *Server) ClientRateLimit(limiter *rateLimiter, endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := limiter.Allow(endpoint + ":" + c.ClientIP())
		if allowed {
			c.Next()
			return
		}
		denyClientRateLimit(c, endpoint, retryAfter, s.obsMetrics)
	}
}

func denyClientRateLimit(c *gin.Context, endpoint string, retryAfter time.Duration, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	seconds := int(retryAfter.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))

	logger.FromContext(ctx).Warn("client rate limit exceeded",
		zap.String("endpoint", endpoint),
		zap.String("reason", rateLimitReasonClientRate),
	)
	metrics.RecordRateLimitDenied(ctx, endpoint, rateLimitReasonClientRate)
	AbortWithError(c, ErrTooManyRequests)
}
