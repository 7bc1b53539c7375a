package middleware

import (
	"time"

	"github.com/wyrexdev/velox/internal/dispatch"
	"github.com/wyrexdev/velox/internal/observability"
)

// AccessLog returns a middleware that logs one line per chain
// execution: route identity, status, response size and latency. Chain
// errors are logged on the same line and passed through unchanged.
func AccessLog(logger observability.Logger) dispatch.Middleware {
	return func(c *dispatch.Context, next dispatch.Next) error {
		start := time.Now()

		err := next()

		fields := []observability.Field{
			observability.String("method", c.Method()),
			observability.String("path", c.Path()),
			observability.String("route", c.Pattern()),
			observability.Int("status", c.Response().StatusCode),
			observability.Int("size", len(c.Response().Body)),
			observability.Duration("latency", time.Since(start)),
			observability.String("remote_addr", c.Request().RemoteAddr),
			observability.String("request_id", c.RequestID()),
		}
		if err != nil {
			fields = append(fields, observability.Error(err))
		}

		logger.Info("access", fields...)

		return err
	}
}
