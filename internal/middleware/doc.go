// Package middleware provides built-in dispatch middlewares.
//
// Each constructor returns a dispatch.Middleware value intended to be
// attached per route at registration time:
//
//	r.POST("/upload", uploadHandler,
//		middleware.AccessLog(logger),
//		middleware.RateLimit(limiter),
//		middleware.Breaker(cb),
//	)
//
// RateLimit and Breaker reject by returning the matching taxonomy
// error (util.RateLimitError, util.CircuitOpenError); the dispatcher
// turns those into 429 and 503 envelopes.
package middleware
