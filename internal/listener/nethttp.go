package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/wyrexdev/velox/internal/config"
	"github.com/wyrexdev/velox/internal/dispatch"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/util"
)

// Default net/http server timeouts applied when the config leaves
// them zero.
const (
	defaultReadTimeout       = 30 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultMaxHeaderBytes    = 1 << 20
)

// netHTTPEngine serves requests through the standard library HTTP
// server.
type netHTTPEngine struct {
	server      *http.Server
	dispatcher  *dispatch.Dispatcher
	logger      observability.Logger
	maxBodySize int64
}

func newNetHTTPEngine(cfg config.ServerConfig, dispatcher *dispatch.Dispatcher, logger observability.Logger) *netHTTPEngine {
	e := &netHTTPEngine{
		dispatcher:  dispatcher,
		logger:      logger,
		maxBodySize: cfg.MaxBodySize,
	}

	e.server = &http.Server{
		Handler:           http.HandlerFunc(e.handle),
		ReadTimeout:       durationOr(cfg.ReadTimeout, defaultReadTimeout),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      durationOr(cfg.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:       durationOr(cfg.IdleTimeout, defaultIdleTimeout),
		MaxHeaderBytes:    defaultMaxHeaderBytes,
	}

	return e
}

func (e *netHTTPEngine) name() string {
	return config.EngineNetHTTP
}

func (e *netHTTPEngine) serve(ln net.Listener) error {
	if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (e *netHTTPEngine) shutdown(ctx context.Context) error {
	if err := e.server.Shutdown(ctx); err != nil {
		if closeErr := e.server.Close(); closeErr != nil {
			return fmt.Errorf("failed to close server: %w", closeErr)
		}
		return err
	}
	return nil
}

// handle bridges one net/http request into the dispatcher.
func (e *netHTTPEngine) handle(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if e.maxBodySize > 0 {
		body = http.MaxBytesReader(w, r.Body, e.maxBodySize)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeEnvelope(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		e.logger.Warn("failed to read request body",
			observability.String("path", r.URL.Path),
			observability.Error(err),
		)
		writeEnvelope(w, http.StatusBadRequest, "INVALID_INPUT", "request body could not be read")
		return
	}

	req := &dispatch.Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Query:      util.ParseQueryString(r.URL.RawQuery),
		Header:     r.Header,
		RemoteAddr: r.RemoteAddr,
		RawBody:    raw,
	}

	resp := e.dispatcher.Dispatch(r.Context(), req)

	header := w.Header()
	for key, values := range resp.Header {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		if _, err := w.Write(resp.Body); err != nil {
			e.logger.Debug("failed to write response body",
				observability.String("path", r.URL.Path),
				observability.Error(err),
			)
		}
	}
}

// writeEnvelope emits a transport-level error in the dispatcher's
// envelope shape for failures that happen before dispatch.
func writeEnvelope(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q,"message":%q,"timestamp":%q}`,
		code, message, time.Now().UTC().Format(time.RFC3339))
}

func durationOr(d config.Duration, fallback time.Duration) time.Duration {
	if v := d.Duration(); v > 0 {
		return v
	}
	return fallback
}
