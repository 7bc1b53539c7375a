// Package cache provides the content digest cache.
//
// Task executors key entries by the blake2b digest of uploaded
// content: validation verdicts and extracted metadata for recently
// seen files are stored here so identical uploads skip repeated policy
// evaluation and analysis.
//
// Two backends implement the Cache interface:
//
//   - memory: an in-process LRU with TTL expiry, bounded by entry
//     count.
//   - redis: a shared redis store, so a fleet of dispatchers sees the
//     same digests.
//
// The backend is selected by configuration:
//
//	c, err := cache.New(&cfg.Cache, logger)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	err = c.Set(ctx, cache.MetadataKey(digest), payload, 0)
package cache
