// Package policy evaluates CEL upload rules against incoming files.
//
// Rules come from the uploads section of the configuration. Each rule
// is a CEL expression over the file and request attributes; the first
// rule that evaluates true decides via its effect, and a file matching
// no rule is admitted.
package policy

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/wyrexdev/velox/internal/config"
	"github.com/wyrexdev/velox/internal/multipart"
	"github.com/wyrexdev/velox/internal/observability"
)

// Decision is the outcome of evaluating the rule set for one file.
type Decision struct {
	// Allowed reports whether the file is admitted.
	Allowed bool

	// Rule names the rule that decided, empty when no rule matched.
	Rule string

	// Reason is a human-readable explanation.
	Reason string
}

// Attributes carries the request-side facts a rule can reference.
type Attributes struct {
	Method string
	Path   string

	// RemoteAddr is the peer address; the port is stripped before
	// evaluation so ip_in_range sees a bare host.
	RemoteAddr string
}

// compiledRule pairs a rule with its compiled program.
type compiledRule struct {
	rule    config.PolicyRule
	program cel.Program
}

// Engine compiles and evaluates upload rules.
type Engine struct {
	logger  observability.Logger
	metrics *policyMetrics

	mu    sync.RWMutex
	rules []compiledRule
	env   *cel.Env
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger observability.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine compiles the given rules into an engine. A rule that fails
// to compile makes construction fail; rule shape (name, effect) is
// checked by the config validator before this point.
func NewEngine(rules []config.PolicyRule, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:  observability.NopLogger(),
		metrics: getPolicyMetrics(),
	}

	for _, opt := range opts {
		opt(e)
	}

	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	e.env = env

	compiled, err := e.compile(rules)
	if err != nil {
		return nil, err
	}
	e.rules = compiled
	e.metrics.rules.Set(float64(len(compiled)))

	return e, nil
}

// newEnv declares the variables and functions available to rules.
func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		// Uploaded file attributes: field, filename, content_type, size.
		cel.Variable("file", cel.MapType(cel.StringType, cel.DynType)),

		// Request attributes: method, path, remote_addr.
		cel.Variable("request", cel.MapType(cel.StringType, cel.DynType)),

		cel.Variable("now", cel.TimestampType),

		cel.Function("file_extension",
			cel.Overload("file_extension_string",
				[]*cel.Type{cel.StringType},
				cel.StringType,
				cel.UnaryBinding(fileExtensionBinding),
			),
		),
		cel.Function("ip_in_range",
			cel.Overload("ip_in_range_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(ipInRangeBinding),
			),
		),
	)
}

// fileExtensionBinding returns the lower-cased filename extension
// without the dot, or "" when there is none (CEL binding).
func fileExtensionBinding(val ref.Val) ref.Val {
	name, ok := val.Value().(string)
	if !ok {
		return types.String("")
	}

	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return types.String("")
	}
	return types.String(strings.ToLower(name[idx+1:]))
}

// ipInRangeBinding checks if an IP is in a CIDR range (CEL binding).
func ipInRangeBinding(ip, cidr ref.Val) ref.Val {
	ipStr, ok := ip.Value().(string)
	if !ok {
		return types.False
	}
	cidrStr, ok := cidr.Value().(string)
	if !ok {
		return types.False
	}

	parsedIP := net.ParseIP(ipStr)
	if parsedIP == nil {
		return types.False
	}

	_, network, err := net.ParseCIDR(cidrStr)
	if err != nil {
		return types.False
	}

	if network.Contains(parsedIP) {
		return types.True
	}
	return types.False
}

// compile compiles every rule and orders the result by priority,
// lower values first. Registration order breaks ties.
func (e *Engine) compile(rules []config.PolicyRule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))

	for _, rule := range rules {
		ast, issues := e.env.Compile(rule.Expression)
		if issues != nil && issues.Err() != nil {
			e.metrics.compileErrors.Inc()
			return nil, fmt.Errorf("policy %q: failed to compile expression: %w", rule.Name, issues.Err())
		}

		program, err := e.env.Program(ast)
		if err != nil {
			e.metrics.compileErrors.Inc()
			return nil, fmt.Errorf("policy %q: failed to create program: %w", rule.Name, err)
		}

		compiled = append(compiled, compiledRule{rule: rule, program: program})
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].rule.Priority < compiled[j].rule.Priority
	})

	return compiled, nil
}

// Replace swaps in a new rule set. The old set stays active when any
// new rule fails to compile.
func (e *Engine) Replace(rules []config.PolicyRule) error {
	compiled, err := e.compile(rules)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.rules = compiled
	e.mu.Unlock()

	e.metrics.rules.Set(float64(len(compiled)))
	e.logger.Info("upload policies replaced",
		observability.Int("rules", len(compiled)),
	)

	return nil
}

// Rules returns the active rules in evaluation order.
func (e *Engine) Rules() []config.PolicyRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]config.PolicyRule, len(e.rules))
	for i, c := range e.rules {
		out[i] = c.rule
	}
	return out
}

// Evaluate runs the rule set against one uploaded file. The first rule
// whose expression evaluates true decides; evaluation errors skip the
// rule with a warning. No match admits the file.
func (e *Engine) Evaluate(ctx context.Context, file multipart.FilePart, attrs Attributes) Decision {
	start := time.Now()
	logger := e.logger.WithContext(ctx)

	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	input := map[string]any{
		"file": map[string]any{
			"field":        file.FieldName,
			"filename":     file.Filename,
			"content_type": file.ContentType,
			"size":         file.Size,
		},
		"request": map[string]any{
			"method":      attrs.Method,
			"path":        attrs.Path,
			"remote_addr": hostOnly(attrs.RemoteAddr),
		},
		"now": time.Now(),
	}

	for _, c := range rules {
		result, _, err := c.program.Eval(input)
		if err != nil {
			logger.Warn("policy evaluation error",
				observability.String("rule", c.rule.Name),
				observability.String("filename", file.Filename),
				observability.Error(err),
			)
			continue
		}

		matched, ok := result.Value().(bool)
		if !ok || !matched {
			continue
		}

		allowed := c.rule.Effect == config.PolicyEffectAllow
		decision := Decision{
			Allowed: allowed,
			Rule:    c.rule.Name,
			Reason:  "matched rule: " + c.rule.Name,
		}

		status := "denied"
		if allowed {
			status = "allowed"
		}
		e.metrics.evaluations.WithLabelValues(c.rule.Name, status).Inc()
		e.metrics.evaluationDuration.Observe(time.Since(start).Seconds())

		logger.Debug("upload policy decision",
			observability.String("rule", c.rule.Name),
			observability.Bool("allowed", allowed),
			observability.String("filename", file.Filename),
			observability.Int64("size", file.Size),
		)

		return decision
	}

	e.metrics.evaluations.WithLabelValues("default", "allowed").Inc()
	e.metrics.evaluationDuration.Observe(time.Since(start).Seconds())

	return Decision{Allowed: true, Reason: "no matching rule"}
}

// hostOnly strips the port from a "host:port" address.
func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
