// Package admin serves the operational plane on its own listener:
// Kubernetes-style probes (/healthz, /readyz, /livez), the Prometheus
// registry (/metrics), and read-only introspection of routes, pool
// occupancy, and the redacted configuration under /api.
package admin
