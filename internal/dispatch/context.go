package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wyrexdev/velox/internal/multipart"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/util"
)

// Context carries one request through the middleware chain to its
// handler. It is created by Dispatch and must not be retained after
// the chain returns.
type Context struct {
	ctx      context.Context
	request  *Request
	response *Response
	match    *Match
	logger   observability.Logger
	locals   map[string]any
}

func newContext(ctx context.Context, req *Request, match *Match, logger observability.Logger) *Context {
	return &Context{
		ctx:      ctx,
		request:  req,
		response: NewResponse(),
		match:    match,
		logger:   logger,
	}
}

// Context returns the request-scoped context carrying the request id,
// trace information, and any dispatch deadline.
func (c *Context) Context() context.Context {
	return c.ctx
}

// Request returns the inbound request.
func (c *Context) Request() *Request {
	return c.request
}

// Response returns the response under construction.
func (c *Context) Response() *Response {
	return c.response
}

// Method returns the upper-cased request method.
func (c *Context) Method() string {
	return c.request.Method
}

// Path returns the raw request path.
func (c *Context) Path() string {
	return c.request.Path
}

// Pattern returns the matched route pattern.
func (c *Context) Pattern() string {
	return c.match.Pattern
}

// Param returns the URL-decoded value of a wildcard path segment, or
// "" when the route has no such parameter.
func (c *Context) Param(name string) string {
	return c.match.Params[name]
}

// Params returns the full path parameter map. The map may be shared
// with the match cache; callers must not modify it.
func (c *Context) Params() map[string]string {
	return c.match.Params
}

// Wildcard returns the path remainder captured by a trailing "*"
// segment.
func (c *Context) Wildcard() string {
	return c.match.Params[WildcardParam]
}

// Query returns a query parameter value, or "" when absent.
func (c *Context) Query(key string) string {
	return c.request.Query[key]
}

// Field returns a parsed multipart field value. It returns "" when the
// field is absent or the body was not multipart.
func (c *Context) Field(name string) string {
	if c.request.Body == nil {
		return ""
	}
	return c.request.Body.Fields[name]
}

// File returns the file part uploaded under the given field name.
func (c *Context) File(name string) (multipart.FilePart, bool) {
	if c.request.Body == nil {
		return multipart.FilePart{}, false
	}
	part, ok := c.request.Body.Files[name]
	return part, ok
}

// Files returns all uploaded file parts keyed by field name. The map
// may be nil for non-multipart requests; callers must not modify it.
func (c *Context) Files() map[string]multipart.FilePart {
	if c.request.Body == nil {
		return nil
	}
	return c.request.Body.Files
}

// RequestID returns the correlation id assigned by Dispatch.
func (c *Context) RequestID() string {
	return util.RequestIDFromContext(c.ctx)
}

// Logger returns the request-scoped logger.
func (c *Context) Logger() observability.Logger {
	return c.logger
}

// Set stores a request-scoped value for later chain stages.
func (c *Context) Set(key string, value any) {
	if c.locals == nil {
		c.locals = make(map[string]any)
	}
	c.locals[key] = value
}

// Get returns a value stored with Set.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.locals[key]
	return v, ok
}

// Status sets the response status code without touching the body.
func (c *Context) Status(code int) {
	c.response.StatusCode = code
}

// SetHeader sets a response header.
func (c *Context) SetHeader(key, value string) {
	c.response.Header.Set(key, value)
}

// Bytes writes a raw response body with the given content type.
func (c *Context) Bytes(status int, contentType string, body []byte) {
	c.response.StatusCode = status
	c.response.Header.Set("Content-Type", contentType)
	c.response.Body = body
}

// String writes a text/plain response.
func (c *Context) String(status int, format string, args ...any) {
	body := format
	if len(args) > 0 {
		body = fmt.Sprintf(format, args...)
	}
	c.Bytes(status, "text/plain; charset=utf-8", []byte(body))
}

// JSON writes an application/json response.
func (c *Context) JSON(status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	c.Bytes(status, "application/json; charset=utf-8", data)
	return nil
}
