package admin

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyrexdev/velox/internal/config"
	"github.com/wyrexdev/velox/internal/health"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/pool"
	"github.com/wyrexdev/velox/internal/router"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race
// conditions.
var ginModeOnce sync.Once

// Server is the operational plane: probes, metrics, and read-only
// introspection of the running process. It binds its own address so
// the data plane and operations never share a listener.
type Server struct {
	cfg     config.AdminConfig
	logger  observability.Logger
	engine  *gin.Engine
	httpSrv *http.Server
	ln      net.Listener
	running atomic.Bool

	checker      *health.Checker
	metrics      *observability.Metrics
	routes       *router.Router
	workers      *pool.Pool
	configSource func() *config.Config
}

// Option is a functional option for configuring the admin server.
type Option func(*Server)

// WithLogger sets the admin server's logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithChecker wires the health checker behind /healthz, /readyz, and
// /livez.
func WithChecker(checker *health.Checker) Option {
	return func(s *Server) {
		s.checker = checker
	}
}

// WithMetrics exposes the metrics registry on /metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithRouter exposes the route table on /api/routes.
func WithRouter(routes *router.Router) Option {
	return func(s *Server) {
		s.routes = routes
	}
}

// WithPool exposes pool occupancy and health on /api/pool.
func WithPool(workers *pool.Pool) Option {
	return func(s *Server) {
		s.workers = workers
	}
}

// WithConfigSource exposes the redacted effective configuration on
// /api/config. The source is called per request so hot reloads are
// visible.
func WithConfigSource(source func() *config.Config) Option {
	return func(s *Server) {
		s.configSource = source
	}
}

// New creates an admin server. Endpoints are only registered for the
// collaborators that were provided.
func New(cfg config.AdminConfig, opts ...Option) *Server {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		cfg:    cfg,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.setupRoutes()

	return s
}

// setupRoutes registers the admin endpoints.
func (s *Server) setupRoutes() {
	if s.checker != nil {
		s.engine.GET("/healthz", s.handleHealth)
		s.engine.GET("/livez", s.handleLive)
		s.engine.GET("/readyz", s.handleReady)
	}

	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.engine.Group("/api")
	if s.routes != nil {
		api.GET("/routes", s.handleRoutes)
	}
	if s.workers != nil {
		api.GET("/pool", s.handlePool)
	}
	if s.configSource != nil {
		api.GET("/config", s.handleConfig)
	}
}

// Engine returns the underlying gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start binds the admin address and begins serving. A disabled config
// makes Start a no-op.
func (s *Server) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	if s.running.Load() {
		return fmt.Errorf("admin server is already running")
	}

	s.httpSrv = &http.Server{
		Handler:           s.engine,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Listen, err)
	}

	s.ln = ln
	s.running.Store(true)

	s.logger.Info("admin server started",
		observability.String("address", ln.Addr().String()),
	)

	go s.serve(ln)

	return nil
}

func (s *Server) serve(ln net.Listener) {
	if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
		s.logger.Error("admin server error", observability.Error(err))
	}
	s.running.Store(false)
}

// Stop shuts the admin server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		if closeErr := s.httpSrv.Close(); closeErr != nil {
			return fmt.Errorf("failed to close admin server: %w", closeErr)
		}
		return fmt.Errorf("failed to shutdown admin server gracefully: %w", err)
	}

	s.running.Store(false)
	s.logger.Info("admin server stopped")

	return nil
}

// IsRunning returns true while the admin server accepts requests.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// Addr returns the bound listen address, empty before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}
