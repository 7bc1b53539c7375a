// Package health aggregates liveness and readiness reporting.
//
// A Checker holds named readiness checks and runs them on demand,
// each bounded by a per-check timeout. Critical checks gate
// readiness; optional checks only degrade it. Built-in check
// constructors cover the worker pool and the digest cache:
//
//	checker := health.NewChecker(version, health.WithLogger(logger))
//	checker.RegisterCheck("pool", health.PoolCheck(p))
//	checker.RegisterCheck("cache", health.CacheCheck(store), health.Optional())
//
// The admin server exposes the checker on /healthz, /readyz, and
// /livez.
package health
