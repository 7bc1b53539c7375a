package health

import (
	"context"
	"fmt"
	"time"

	"github.com/wyrexdev/velox/internal/cache"
	"github.com/wyrexdev/velox/internal/pool"
)

// PoolCheck probes the worker pool. Readiness follows the probe
// verdict: a roster where every worker answers within the probe
// timeout is healthy, a partially responding roster is degraded, and
// an empty or fully unresponsive roster is unhealthy.
func PoolCheck(p *pool.Pool) CheckFunc {
	return func(ctx context.Context) Check {
		h := p.HealthCheck(ctx)

		responding := 0
		for _, s := range h.Statuses {
			if s.Healthy {
				responding++
			}
		}

		message := fmt.Sprintf("%d/%d workers responding", responding, h.Expected)
		switch {
		case h.Healthy:
			return Check{Status: StatusHealthy, Message: message}
		case responding > 0:
			return Check{Status: StatusDegraded, Message: message}
		default:
			return Check{Status: StatusUnhealthy, Message: message}
		}
	}
}

// CacheCheck verifies the digest cache answers a probe key lookup.
// The probe key never exists; only transport or backend errors mark
// the cache unreachable.
func CacheCheck(store cache.Cache) CheckFunc {
	const probeKey = "velox:health:probe"

	return func(ctx context.Context) Check {
		start := time.Now()
		if _, err := store.Exists(ctx, probeKey); err != nil {
			return Check{
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("cache unreachable: %v", err),
			}
		}
		return Check{
			Status:  StatusHealthy,
			Message: fmt.Sprintf("responded in %s", time.Since(start).Round(time.Millisecond)),
		}
	}
}
