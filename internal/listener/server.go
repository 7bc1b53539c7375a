package listener

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/wyrexdev/velox/internal/config"
	"github.com/wyrexdev/velox/internal/dispatch"
	"github.com/wyrexdev/velox/internal/observability"
)

// State represents the server lifecycle state.
type State int32

const (
	// StateStopped indicates the server is stopped.
	StateStopped State = iota
	// StateStarting indicates the server is starting.
	StateStarting
	// StateRunning indicates the server is accepting requests.
	StateRunning
	// StateStopping indicates the server is draining.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// engine is a transport adapter serving one bound listener. serve
// blocks until the listener closes; shutdown drains in-flight
// requests within the context deadline.
type engine interface {
	name() string
	serve(ln net.Listener) error
	shutdown(ctx context.Context) error
}

// Server accepts HTTP traffic on one address and feeds it to the
// dispatcher through the configured transport engine.
type Server struct {
	cfg        config.ServerConfig
	dispatcher *dispatch.Dispatcher
	logger     observability.Logger

	engine    engine
	ln        net.Listener
	serveDone chan struct{}
	state     atomic.Int32
	startTime time.Time
}

// Option is a functional option for configuring the server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server for the given dispatcher. The transport engine
// is chosen by cfg.Engine; an empty value selects net/http.
func New(cfg config.ServerConfig, dispatcher *dispatch.Dispatcher, opts ...Option) (*Server, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	s := &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	switch cfg.Engine {
	case config.EngineNetHTTP, "":
		s.engine = newNetHTTPEngine(cfg, dispatcher, s.logger)
	case config.EngineFastHTTP:
		s.engine = newFastHTTPEngine(cfg, dispatcher, s.logger)
	default:
		return nil, fmt.Errorf("unknown server engine %q", cfg.Engine)
	}

	s.state.Store(int32(StateStopped))

	return s, nil
}

// Start binds the listen address and begins serving. It returns once
// the listener is bound; serving continues in the background.
func (s *Server) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return fmt.Errorf("server is not in stopped state")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Listen)
	if err != nil {
		s.state.Store(int32(StateStopped))
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}

	s.ln = ln
	s.serveDone = make(chan struct{})
	s.startTime = time.Now()
	s.state.Store(int32(StateRunning))

	s.logger.Info("server started",
		observability.String("address", ln.Addr().String()),
		observability.String("engine", s.engine.name()),
	)

	go s.serve(ln)

	return nil
}

// serve runs the engine until its listener closes.
func (s *Server) serve(ln net.Listener) {
	defer close(s.serveDone)

	if err := s.engine.serve(ln); err != nil {
		s.logger.Error("server error",
			observability.String("engine", s.engine.name()),
			observability.Error(err),
		)
	}

	s.state.Store(int32(StateStopped))
}

// Stop drains in-flight requests and stops the server. Stopping an
// already stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return nil
	}

	s.logger.Info("stopping server",
		observability.String("engine", s.engine.name()),
	)

	if timeout := s.cfg.ShutdownTimeout.Duration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := s.engine.shutdown(ctx)

	select {
	case <-s.serveDone:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}

	s.state.Store(int32(StateStopped))

	if err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// IsRunning returns true while the server accepts requests.
func (s *Server) IsRunning() bool {
	return s.State() == StateRunning
}

// Addr returns the bound listen address, empty before Start. With a
// ":0" listen config this is the resolved port.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Uptime returns the time since the server started.
func (s *Server) Uptime() time.Duration {
	if s.State() == StateStopped {
		return 0
	}
	return time.Since(s.startTime)
}
