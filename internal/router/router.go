package router

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	gstrconv "github.com/savsgio/gotils/strconv"
	"github.com/valyala/bytebufferpool"

	"github.com/wyrexdev/velox/internal/dispatch"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/util"
)

// Cache eviction policies.
const (
	// CachePolicyLRU evicts the least recently used entry when the
	// cache is full.
	CachePolicyLRU = "lru"

	// CachePolicyNone stops admitting new entries when the cache is
	// full. Existing entries are kept until the cache is reset.
	CachePolicyNone = "none"
)

// DefaultCacheCapacity is the match cache capacity used when no
// capacity is configured.
const DefaultCacheCapacity = 10000

// allowedMethods are the HTTP methods accepted at registration time.
var allowedMethods = map[string]struct{}{
	"GET":     {},
	"POST":    {},
	"PUT":     {},
	"DELETE":  {},
	"PATCH":   {},
	"HEAD":    {},
	"OPTIONS": {},
}

// route is a single registered route with its compiled matcher.
// Static routes carry a nil regex and resolve by exact lookup.
type route struct {
	method      string
	pattern     string
	handler     dispatch.Handler
	middlewares []dispatch.Middleware
	regex       *regexp.Regexp
	paramNames  []string
}

// Router resolves method and path pairs to registered routes.
//
// Static routes (patterns without wildcard segments) resolve by exact
// table lookup and always win over dynamic routes. Dynamic routes are
// scanned in registration order within their method, first match wins.
// Successful resolutions are memoized in a bounded cache keyed
// "METHOD:PATH"; misses are never cached.
type Router struct {
	mu      sync.RWMutex
	static  map[string]*route
	dynamic map[string][]*route
	cache   matchCache
	logger  observability.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithCache configures the match cache policy and capacity.
// A capacity of zero or less disables caching entirely.
func WithCache(policy string, capacity int) Option {
	return func(r *Router) {
		r.cache = newMatchCache(policy, capacity)
	}
}

// WithLogger sets the logger used for registration diagnostics.
func WithLogger(logger observability.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Router with an LRU match cache of DefaultCacheCapacity.
func New(opts ...Option) *Router {
	r := &Router{
		static:  make(map[string]*route),
		dynamic: make(map[string][]*route),
		cache:   newMatchCache(CachePolicyLRU, DefaultCacheCapacity),
		logger:  observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Handle registers a handler for the given method and pattern.
//
// Patterns are literal paths optionally containing wildcard segments:
// ":name" matches exactly one path segment and exposes it as a named
// parameter, a trailing "*" matches the remainder of the path.
// Registering the same static route twice replaces the earlier handler.
// Registering the same dynamic pattern twice keeps the first handler,
// the duplicate is unreachable.
func (r *Router) Handle(method, pattern string, handler dispatch.Handler, middlewares ...dispatch.Middleware) error {
	method = strings.ToUpper(method)
	if _, ok := allowedMethods[method]; !ok {
		return fmt.Errorf("unsupported HTTP method: %s", method)
	}

	if err := util.ValidateRoutePattern(pattern); err != nil {
		return fmt.Errorf("invalid route pattern %s: %w", pattern, err)
	}

	if handler == nil {
		return fmt.Errorf("handler is required for route %s %s", method, pattern)
	}

	rt := &route{
		method:      method,
		pattern:     pattern,
		handler:     handler,
		middlewares: middlewares,
	}

	if !isDynamic(pattern) {
		r.registerStatic(rt)
		return nil
	}

	regex, names, err := compilePattern(pattern)
	if err != nil {
		return err
	}
	rt.regex = regex
	rt.paramNames = names

	r.registerDynamic(rt)
	return nil
}

// GET registers a handler for GET requests.
func (r *Router) GET(pattern string, handler dispatch.Handler, middlewares ...dispatch.Middleware) error {
	return r.Handle("GET", pattern, handler, middlewares...)
}

// POST registers a handler for POST requests.
func (r *Router) POST(pattern string, handler dispatch.Handler, middlewares ...dispatch.Middleware) error {
	return r.Handle("POST", pattern, handler, middlewares...)
}

// PUT registers a handler for PUT requests.
func (r *Router) PUT(pattern string, handler dispatch.Handler, middlewares ...dispatch.Middleware) error {
	return r.Handle("PUT", pattern, handler, middlewares...)
}

// DELETE registers a handler for DELETE requests.
func (r *Router) DELETE(pattern string, handler dispatch.Handler, middlewares ...dispatch.Middleware) error {
	return r.Handle("DELETE", pattern, handler, middlewares...)
}

// PATCH registers a handler for PATCH requests.
func (r *Router) PATCH(pattern string, handler dispatch.Handler, middlewares ...dispatch.Middleware) error {
	return r.Handle("PATCH", pattern, handler, middlewares...)
}

// HEAD registers a handler for HEAD requests.
func (r *Router) HEAD(pattern string, handler dispatch.Handler, middlewares ...dispatch.Middleware) error {
	return r.Handle("HEAD", pattern, handler, middlewares...)
}

// OPTIONS registers a handler for OPTIONS requests.
func (r *Router) OPTIONS(pattern string, handler dispatch.Handler, middlewares ...dispatch.Middleware) error {
	return r.Handle("OPTIONS", pattern, handler, middlewares...)
}

// registerStatic installs a static route, replacing any earlier
// registration for the same method and path.
func (r *Router) registerStatic(rt *route) {
	key := staticKey(rt.method, rt.pattern)

	r.mu.Lock()
	_, replaced := r.static[key]
	r.static[key] = rt
	r.mu.Unlock()

	if replaced {
		// The replaced handler may still be cached for this path.
		r.cache.purge()
		r.logger.Debug("static route replaced",
			observability.String("method", rt.method),
			observability.String("pattern", rt.pattern),
		)
		return
	}

	r.logger.Debug("static route registered",
		observability.String("method", rt.method),
		observability.String("pattern", rt.pattern),
	)
}

// registerDynamic appends a dynamic route to its method list.
func (r *Router) registerDynamic(rt *route) {
	r.mu.Lock()
	duplicate := false
	for _, existing := range r.dynamic[rt.method] {
		if existing.pattern == rt.pattern {
			duplicate = true
			break
		}
	}
	r.dynamic[rt.method] = append(r.dynamic[rt.method], rt)
	r.mu.Unlock()

	if duplicate {
		r.logger.Warn("duplicate dynamic route registered, earlier registration wins",
			observability.String("method", rt.method),
			observability.String("pattern", rt.pattern),
		)
		return
	}

	r.logger.Debug("dynamic route registered",
		observability.String("method", rt.method),
		observability.String("pattern", rt.pattern),
	)
}

// Resolve finds the route registered for the given method and path.
//
// Resolution order: match cache, static table, dynamic routes in
// registration order. A successful resolution is cached; a failed one
// returns RouteNotFoundError and is not cached, so a route registered
// later can still claim the path.
//
// The returned Match may be shared with concurrent callers through the
// cache. Callers must not modify it.
func (r *Router) Resolve(method, path string) (*dispatch.Match, error) {
	method = strings.ToUpper(method)

	// The cache key is assembled in a pooled buffer and looked up
	// through a zero-copy view, so the hit path does not allocate.
	// An owned copy is made only when the key has to be stored.
	keyBuf := bytebufferpool.Get()
	keyBuf.SetString(method)
	keyBuf.WriteByte(':')
	keyBuf.WriteString(path)

	if match, ok := r.cache.get(gstrconv.B2S(keyBuf.Bytes())); ok {
		bytebufferpool.Put(keyBuf)
		return match, nil
	}

	cacheKey := keyBuf.String()
	bytebufferpool.Put(keyBuf)

	r.mu.RLock()
	rt, ok := r.static[staticKey(method, path)]
	r.mu.RUnlock()

	if ok {
		match := newMatch(rt, nil)
		r.cache.add(cacheKey, match)
		return match, nil
	}

	r.mu.RLock()
	candidates := r.dynamic[method]
	r.mu.RUnlock()

	for _, rt := range candidates {
		params, ok := rt.matchPath(path)
		if !ok {
			continue
		}
		match := newMatch(rt, params)
		r.cache.add(cacheKey, match)
		return match, nil
	}

	return nil, util.NewRouteNotFoundError(method, path)
}

// ResetCache discards all cached resolutions.
func (r *Router) ResetCache() {
	r.cache.purge()
}

// CacheStats reports the current state of the match cache.
func (r *Router) CacheStats() CacheStats {
	return r.cache.stats()
}

// RouteInfo describes a registered route for introspection.
type RouteInfo struct {
	Method      string `json:"method"`
	Pattern     string `json:"pattern"`
	Static      bool   `json:"static"`
	Middlewares int    `json:"middlewares"`
}

// Routes returns all registered routes. Static routes are listed
// first in lexical order, dynamic routes follow in registration order.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]RouteInfo, 0, len(r.static))
	for _, rt := range r.static {
		infos = append(infos, RouteInfo{
			Method:      rt.method,
			Pattern:     rt.pattern,
			Static:      true,
			Middlewares: len(rt.middlewares),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Pattern != infos[j].Pattern {
			return infos[i].Pattern < infos[j].Pattern
		}
		return infos[i].Method < infos[j].Method
	})

	methods := make([]string, 0, len(r.dynamic))
	for method := range r.dynamic {
		methods = append(methods, method)
	}
	sort.Strings(methods)

	for _, method := range methods {
		for _, rt := range r.dynamic[method] {
			infos = append(infos, RouteInfo{
				Method:      rt.method,
				Pattern:     rt.pattern,
				Middlewares: len(rt.middlewares),
			})
		}
	}

	return infos
}

// newMatch builds the shared Match for a resolved route.
func newMatch(rt *route, params map[string]string) *dispatch.Match {
	if params == nil {
		params = map[string]string{}
	}
	return &dispatch.Match{
		Method:      rt.method,
		Pattern:     rt.pattern,
		Params:      params,
		Handler:     rt.handler,
		Middlewares: rt.middlewares,
	}
}

// matchPath tests a dynamic route against a concrete path and extracts
// its named parameters. Parameter values are percent-decoded; values
// that fail to decode are kept raw.
func (rt *route) matchPath(path string) (map[string]string, bool) {
	submatches := rt.regex.FindStringSubmatch(path)
	if submatches == nil {
		return nil, false
	}

	params := make(map[string]string, len(rt.paramNames))
	for i, name := range rt.paramNames {
		params[name] = decodeParam(submatches[i+1])
	}
	return params, true
}

// decodeParam percent-decodes a captured path value.
func decodeParam(value string) string {
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return value
	}
	return decoded
}

// staticKey builds the static table key for a method and path.
func staticKey(method, path string) string {
	return method + " " + path
}

// isDynamic reports whether a pattern contains wildcard segments.
func isDynamic(pattern string) bool {
	return strings.Contains(pattern, ":") || strings.Contains(pattern, "*")
}

// compilePattern turns a registration pattern into an anchored regular
// expression plus the ordered list of parameter names. A ":name"
// segment compiles to a single-segment capture, a "*" segment captures
// the remainder of the path under dispatch.WildcardParam. Literal
// segments are quoted so regex metacharacters in paths stay literal.
func compilePattern(pattern string) (*regexp.Regexp, []string, error) {
	segments := strings.Split(strings.TrimPrefix(pattern, "/"), "/")

	var expr strings.Builder
	expr.WriteString("^")

	var names []string
	for _, segment := range segments {
		switch {
		case segment == "*":
			expr.WriteString("/(.*)")
			names = append(names, dispatch.WildcardParam)
		case strings.HasPrefix(segment, ":"):
			expr.WriteString("/([^/]+)")
			names = append(names, segment[1:])
		default:
			expr.WriteString("/")
			expr.WriteString(regexp.QuoteMeta(segment))
		}
	}

	expr.WriteString("$")

	regex, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile route pattern %s: %w", pattern, err)
	}

	return regex, names, nil
}
