package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Defaults applied when a Config field is unset.
const (
	// DefaultMaxRetries is the default number of retry attempts after
	// the initial call.
	DefaultMaxRetries = 3

	// DefaultInitialBackoff is the default wait before the first retry.
	DefaultInitialBackoff = 100 * time.Millisecond

	// DefaultMaxBackoff caps the exponential growth of the wait.
	DefaultMaxBackoff = 30 * time.Second

	// DefaultJitterFactor is the default random spread added to each
	// wait (25%).
	DefaultJitterFactor = 0.25

	// MaxJitterFactor is the largest accepted jitter factor.
	MaxJitterFactor = 1.0
)

// Config bounds the retry budget. Zero or negative fields fall back to
// the package defaults, so a nil Config is usable.
type Config struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// InitialBackoff is the wait before the first retry; each further
	// retry doubles it.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration

	// JitterFactor randomizes each wait by up to the given fraction
	// (0.0 to 1.0).
	JitterFactor float64
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		JitterFactor:   DefaultJitterFactor,
	}
}

func (c *Config) maxRetries() int {
	if c == nil || c.MaxRetries <= 0 {
		return DefaultMaxRetries
	}
	return c.MaxRetries
}

func (c *Config) initialBackoff() time.Duration {
	if c == nil || c.InitialBackoff <= 0 {
		return DefaultInitialBackoff
	}
	return c.InitialBackoff
}

func (c *Config) maxBackoff() time.Duration {
	if c == nil || c.MaxBackoff <= 0 {
		return DefaultMaxBackoff
	}
	return c.MaxBackoff
}

func (c *Config) jitterFactor() float64 {
	if c == nil || c.JitterFactor <= 0 {
		return DefaultJitterFactor
	}
	if c.JitterFactor > MaxJitterFactor {
		return MaxJitterFactor
	}
	return c.JitterFactor
}

// Options tunes retry behavior beyond the backoff budget.
type Options struct {
	// ShouldRetry reports whether the error warrants another attempt.
	// When nil every error is retried.
	ShouldRetry func(err error) bool

	// OnRetry runs before each retry with the attempt number (1-based),
	// the error that triggered it, and the wait about to be taken.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

// Do runs fn, retrying failures with exponential backoff until it
// succeeds, the budget is spent, or ctx is done. The last error from fn
// is returned when the budget runs out; a context error is returned as
// is.
func Do(ctx context.Context, cfg *Config, fn func() error, opts *Options) error {
	retries := cfg.maxRetries()
	initial := cfg.initialBackoff()
	ceiling := cfg.maxBackoff()
	jitter := cfg.jitterFactor()

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if opts != nil && opts.ShouldRetry != nil && !opts.ShouldRetry(lastErr) {
			return lastErr
		}

		// No wait after the final attempt.
		if attempt == retries {
			break
		}

		wait := Backoff(attempt, initial, ceiling, jitter)
		if opts != nil && opts.OnRetry != nil {
			opts.OnRetry(attempt+1, lastErr, wait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return lastErr
}

// Backoff computes the wait before retry number attempt (0-based):
// initial doubled per attempt, plus up to jitterFactor of random
// spread, capped at ceiling.
func Backoff(attempt int, initial, ceiling time.Duration, jitterFactor float64) time.Duration {
	wait := float64(initial) * math.Pow(2, float64(attempt))

	// Spread retries out so synchronized callers do not reconnect in
	// lockstep. Timing does not need cryptographic randomness.
	//nolint:gosec // G404
	wait += wait * jitterFactor * rand.Float64()

	if wait > float64(ceiling) {
		wait = float64(ceiling)
	}
	return time.Duration(wait)
}
