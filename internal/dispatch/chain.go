package dispatch

import "errors"

// ErrNextCalledTwice is returned to a middleware that invokes its
// advance token more than once. The chain advances at most once per
// stage.
var ErrNextCalledTwice = errors.New("middleware advanced the chain twice")

// ErrChainConsumed is returned when Execute is called on a chain that
// already ran. A Chain is single-use.
var ErrChainConsumed = errors.New("chain already executed")

// ChainState describes where a chain is in its lifecycle.
type ChainState int

const (
	// ChainIdle means Execute has not been called.
	ChainIdle ChainState = iota
	// ChainRunning means a stage is currently executing.
	ChainRunning
	// ChainCompleted means the chain finished without error, either by
	// reaching the handler or by a middleware halting early.
	ChainCompleted
	// ChainFailed means a stage returned an error.
	ChainFailed
)

// String returns the state name.
func (s ChainState) String() string {
	switch s {
	case ChainIdle:
		return "idle"
	case ChainRunning:
		return "running"
	case ChainCompleted:
		return "completed"
	case ChainFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Chain executes an ordered middleware list ending in a handler.
//
// Each middleware receives a single-use Next token; invoking it runs
// the remainder of the chain synchronously and returns its outcome. A
// middleware that returns without invoking Next halts the chain: no
// later stage runs and no error is reported, which is how early-exit
// responses are produced. An error from any stage stops execution and
// propagates to the Execute caller; no middleware implicitly catches
// downstream errors.
type Chain struct {
	ctx         *Context
	middlewares []Middleware
	handler     Handler
	state       ChainState
	handlerRan  bool
}

// NewChain builds a chain for one request.
func NewChain(ctx *Context, middlewares []Middleware, handler Handler) *Chain {
	return &Chain{
		ctx:         ctx,
		middlewares: middlewares,
		handler:     handler,
		state:       ChainIdle,
	}
}

// Execute runs the chain once.
func (ch *Chain) Execute() error {
	if ch.state != ChainIdle {
		return ErrChainConsumed
	}
	ch.state = ChainRunning

	if err := ch.advance(0); err != nil {
		ch.state = ChainFailed
		return err
	}

	ch.state = ChainCompleted
	return nil
}

// advance runs stage i: a middleware, or the handler past the last one.
func (ch *Chain) advance(i int) error {
	if i >= len(ch.middlewares) {
		ch.handlerRan = true
		return ch.handler(ch.ctx)
	}

	called := false
	next := func() error {
		if called {
			return ErrNextCalledTwice
		}
		called = true
		return ch.advance(i + 1)
	}

	return ch.middlewares[i](ch.ctx, next)
}

// Halted reports whether the chain completed without reaching the
// handler, meaning a middleware returned without advancing.
func (ch *Chain) Halted() bool {
	return ch.state == ChainCompleted && !ch.handlerRan
}

// State returns the chain's lifecycle state.
func (ch *Chain) State() ChainState {
	return ch.state
}
