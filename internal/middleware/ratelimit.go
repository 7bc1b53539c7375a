package middleware

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wyrexdev/velox/internal/dispatch"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/util"
)

// Rate limiter defaults.
const (
	// DefaultKeyTTL is how long an idle per-key bucket is retained.
	DefaultKeyTTL = 10 * time.Minute

	// MinCleanupInterval is the minimum interval between bucket sweeps.
	MinCleanupInterval = 10 * time.Second

	// MaxCleanupInterval is the maximum interval between bucket sweeps.
	MaxCleanupInterval = time.Minute
)

// KeyFunc derives the rate-limit bucket key for a request.
type KeyFunc func(*dispatch.Context) string

// ClientAddrKey keys buckets by the peer host, ignoring the port. It
// does not trust forwarding headers; callers behind a proxy should
// supply their own KeyFunc.
func ClientAddrKey(c *dispatch.Context) string {
	addr := c.Request().RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// keyEntry holds a per-key limiter and its last access time for
// TTL-based cleanup.
type keyEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter applies token-bucket rate limiting, either with one shared
// bucket or with one bucket per key.
type Limiter struct {
	limiter *rate.Limiter
	keyFn   KeyFunc
	keys    map[string]*keyEntry
	mu      sync.Mutex
	rps     int
	burst   int
	keyTTL  time.Duration
	logger  observability.Logger
	stopCh  chan struct{}
	stopped bool
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithLimiterLogger sets the limiter's logger.
func WithLimiterLogger(logger observability.Logger) LimiterOption {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// WithPerKey switches the limiter to one bucket per key and starts the
// idle-bucket sweeper.
func WithPerKey(fn KeyFunc) LimiterOption {
	return func(l *Limiter) {
		l.keyFn = fn
	}
}

// WithKeyTTL sets how long idle per-key buckets survive.
func WithKeyTTL(ttl time.Duration) LimiterOption {
	return func(l *Limiter) {
		if ttl > 0 {
			l.keyTTL = ttl
		}
	}
}

// NewLimiter creates a limiter admitting rps requests per second with
// the given burst.
func NewLimiter(rps, burst int, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		keys:    make(map[string]*keyEntry),
		rps:     rps,
		burst:   burst,
		keyTTL:  DefaultKeyTTL,
		logger:  observability.NopLogger(),
		stopCh:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.keyFn != nil {
		l.startCleanup()
	}

	return l
}

// Allow reports whether one more request under key fits the budget.
func (l *Limiter) Allow(key string) bool {
	if l.keyFn == nil {
		return l.limiter.Allow()
	}
	return l.allowPerKey(key)
}

// allowPerKey resolves the key's bucket and consumes a token. Lookup
// and lastAccess update share one critical section so the sweeper
// never removes a bucket between them.
func (l *Limiter) allowPerKey(key string) bool {
	now := time.Now()

	l.mu.Lock()
	entry, ok := l.keys[key]
	if !ok {
		entry = &keyEntry{
			limiter:    rate.NewLimiter(rate.Limit(l.rps), l.burst),
			lastAccess: now,
		}
		l.keys[key] = entry
	} else {
		entry.lastAccess = now
	}
	limiter := entry.limiter
	l.mu.Unlock()

	return limiter.Allow()
}

// RemoveIdle drops buckets not touched within maxAge.
func (l *Limiter) RemoveIdle(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range l.keys {
		if now.Sub(entry.lastAccess) > maxAge {
			delete(l.keys, key)
			removed++
		}
	}

	if removed > 0 {
		l.logger.Debug("removed idle rate limit buckets",
			observability.Int("removed", removed),
			observability.Int("remaining", len(l.keys)),
		)
	}

	return removed
}

// startCleanup sweeps idle buckets at half the TTL, clamped to
// [MinCleanupInterval, MaxCleanupInterval].
func (l *Limiter) startCleanup() {
	interval := l.keyTTL / 2
	if interval > MaxCleanupInterval {
		interval = MaxCleanupInterval
	}
	if interval < MinCleanupInterval {
		interval = MinCleanupInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.RemoveIdle(l.keyTTL)
			case <-l.stopCh:
				return
			}
		}
	}()
}

// Stop ends the cleanup goroutine. Allow keeps working after Stop.
func (l *Limiter) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.stopped {
		l.stopped = true
		close(l.stopCh)
	}
}

// RateLimit returns a middleware that rejects requests over the
// limiter's budget with a RateLimitError; the dispatcher maps it to a
// 429 envelope with a Retry-After header.
func RateLimit(l *Limiter) dispatch.Middleware {
	return func(c *dispatch.Context, next dispatch.Next) error {
		key := ""
		if l.keyFn != nil {
			key = l.keyFn(c)
		}

		if !l.Allow(key) {
			getMiddlewareMetrics().rateLimitRejected.WithLabelValues(c.Pattern()).Inc()
			l.logger.Warn("rate limit exceeded",
				observability.String("key", key),
				observability.String("path", c.Path()),
				observability.String("request_id", c.RequestID()),
			)
			return util.NewRateLimitError(l.rps, time.Second)
		}

		getMiddlewareMetrics().rateLimitAllowed.WithLabelValues(c.Pattern()).Inc()

		return next()
	}
}
