// Package retry provides exponential backoff retry for transient
// failures.
//
// It is used by the cache package to ride out short redis outages
// without surfacing every blip to callers.
//
// # Usage
//
// Execute an operation with the default budget:
//
//	err := retry.Do(ctx, nil, func() error {
//	    return client.Ping(ctx).Err()
//	}, nil)
//
// Restrict retries to transient errors:
//
//	err := retry.Do(ctx, cfg, op, &retry.Options{
//	    ShouldRetry: isTransient,
//	})
package retry
