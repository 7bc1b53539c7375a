package task

import (
	"github.com/wyrexdev/velox/internal/cache"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/pool"
)

// Executors returns one executor per supported task kind, ready to
// register on a pool. The engine and store are shared by the
// executors that use them; both may be nil.
func Executors(engine PolicyEvaluator, store cache.Cache, logger observability.Logger) []pool.Executor {
	return []pool.Executor{
		NewValidator(engine, store, logger),
		NewProcessor(store, logger),
		NewResizer(),
		NewAggregator(),
	}
}
