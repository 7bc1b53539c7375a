package listener

import (
	"context"
	"net"
	"net/http"

	gstrconv "github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"

	"github.com/wyrexdev/velox/internal/config"
	"github.com/wyrexdev/velox/internal/dispatch"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/util"
)

// fastHTTPEngine serves requests through fasthttp.
type fastHTTPEngine struct {
	server     *fasthttp.Server
	dispatcher *dispatch.Dispatcher
	logger     observability.Logger
}

func newFastHTTPEngine(cfg config.ServerConfig, dispatcher *dispatch.Dispatcher, logger observability.Logger) *fastHTTPEngine {
	e := &fastHTTPEngine{
		dispatcher: dispatcher,
		logger:     logger,
	}

	e.server = &fasthttp.Server{
		Handler:               e.handle,
		Name:                  "velox",
		ReadTimeout:           durationOr(cfg.ReadTimeout, defaultReadTimeout),
		WriteTimeout:          durationOr(cfg.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:           durationOr(cfg.IdleTimeout, defaultIdleTimeout),
		MaxRequestBodySize:    int(cfg.MaxBodySize),
		NoDefaultContentType:  true,
		CloseOnShutdown:       true,
		SecureErrorLogMessage: true,
	}

	return e
}

func (e *fastHTTPEngine) name() string {
	return config.EngineFastHTTP
}

func (e *fastHTTPEngine) serve(ln net.Listener) error {
	return e.server.Serve(ln)
}

func (e *fastHTTPEngine) shutdown(ctx context.Context) error {
	return e.server.ShutdownWithContext(ctx)
}

// handle bridges one fasthttp request into the dispatcher. fasthttp
// reuses its buffers after the handler returns, so everything the
// match cache could retain (method, path) is copied out; the query
// map and body are views that never outlive the dispatch call.
func (e *fastHTTPEngine) handle(fctx *fasthttp.RequestCtx) {
	header := make(http.Header, fctx.Request.Header.Len())
	fctx.Request.Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})

	req := &dispatch.Request{
		Method:     string(fctx.Method()),
		Path:       string(fctx.Path()),
		Query:      util.ParseQueryString(gstrconv.B2S(fctx.URI().QueryString())),
		Header:     header,
		RemoteAddr: remoteAddr(fctx),
		RawBody:    fctx.PostBody(),
	}

	resp := e.dispatcher.Dispatch(fctx, req)

	fctx.SetStatusCode(resp.StatusCode)
	for key, values := range resp.Header {
		for _, value := range values {
			fctx.Response.Header.Add(key, value)
		}
	}
	if len(resp.Body) > 0 {
		// The dispatcher allocates the body per request, so handing
		// it over without a copy is safe.
		fctx.Response.SetBodyRaw(resp.Body)
	}
}

// remoteAddr renders the peer address as "host:port" to match the
// net/http engine.
func remoteAddr(fctx *fasthttp.RequestCtx) string {
	addr := fctx.RemoteAddr()
	if addr == nil {
		return ""
	}
	return addr.String()
}
