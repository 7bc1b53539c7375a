package dispatch

import (
	"net/http"

	"github.com/wyrexdev/velox/internal/multipart"
)

// Request is the transport-neutral request handed to Dispatch. Listener
// adapters build one per inbound HTTP request.
type Request struct {
	// Method is the HTTP method as received; the resolver normalizes
	// the case.
	Method string

	// Path is the raw request path without the query string.
	Path string

	// Query holds the parsed query parameters. Duplicate keys keep the
	// last value.
	Query map[string]string

	// Header is the request header view.
	Header http.Header

	// RemoteAddr is the peer address ("host:port") as reported by the
	// listener. Empty for in-process callers.
	RemoteAddr string

	// Body is the parsed multipart container, populated by Dispatch
	// when the request declares multipart/form-data. Nil otherwise.
	Body *multipart.Form

	// RawBody is the unparsed request body.
	RawBody []byte
}

// ContentType returns the request's Content-Type header value.
func (r *Request) ContentType() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}

// Response is the transport-neutral response produced by the chain.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewResponse returns an empty 200 response.
func NewResponse() *Response {
	return &Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
	}
}

// Handler terminates a middleware chain for one route.
type Handler func(*Context) error

// Next advances the middleware chain to the next middleware, or to the
// handler when none remain. It may be called at most once; a second
// call returns ErrNextCalledTwice. Completing without calling it halts
// the chain silently.
type Next func() error

// Middleware wraps chain execution around the remaining chain.
type Middleware func(*Context, Next) error

// Match is a resolved route. Params maps wildcard segment names to
// their URL-decoded values; the remainder wildcard is stored under
// WildcardParam. Matches may be served from a shared cache, so callers
// must not modify Params.
type Match struct {
	Method      string
	Pattern     string
	Params      map[string]string
	Handler     Handler
	Middlewares []Middleware
}

// WildcardParam is the synthetic params key for the "*" remainder
// wildcard.
const WildcardParam = "*"

// Resolver resolves a method and path to a route match.
type Resolver interface {
	Resolve(method, path string) (*Match, error)
}
