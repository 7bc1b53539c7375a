// Package router provides route registration and resolution for the
// dispatcher.
//
// Routes are registered once at startup and resolved on every request.
// Static patterns resolve by exact table lookup, dynamic patterns
// (":name" single-segment parameters and trailing "*" remainders) are
// compiled to anchored regular expressions and scanned in registration
// order. Successful resolutions are memoized in a bounded cache.
//
// # Features
//
//   - Static route table with exact method and path lookup
//   - Single-segment ":name" parameters with percent-decoding
//   - Trailing "*" wildcard capturing the remaining path
//   - Static-over-dynamic precedence, first registered dynamic wins
//   - Bounded match cache with LRU or insert-until-full policies
//   - Thread-safe registration and resolution
//
// # Usage
//
// Create a router, register routes, resolve requests:
//
//	r := router.New(router.WithCache(router.CachePolicyLRU, 10000))
//	err := r.GET("/users/:id", showUser)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	match, err := r.Resolve("GET", "/users/42")
//	if err == nil {
//	    // match.Handler, match.Params["id"]
//	}
package router
