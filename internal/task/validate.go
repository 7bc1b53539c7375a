package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wyrexdev/velox/internal/cache"
	"github.com/wyrexdev/velox/internal/multipart"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/policy"
	"github.com/wyrexdev/velox/internal/pool"
	"github.com/wyrexdev/velox/internal/util"
)

// PolicyEvaluator decides whether an upload is admitted. Satisfied by
// *policy.Engine.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, file multipart.FilePart, attrs policy.Attributes) policy.Decision
}

// ValidationInput is the payload for a file-validation task.
type ValidationInput struct {
	// File is the uploaded part under validation.
	File multipart.FilePart

	// Attrs carries the request attributes the policies may inspect.
	Attrs policy.Attributes
}

// ValidationResult is the outcome of validating one uploaded file.
type ValidationResult struct {
	// Digest is the blake2b-256 digest of the content, hex encoded.
	Digest string `json:"digest"`

	// Size is the content length in bytes.
	Size int64 `json:"size"`

	// DeclaredType is the content type the client sent with the part.
	DeclaredType string `json:"declared_type"`

	// SniffedType is the content type detected from the bytes.
	SniffedType string `json:"sniffed_type"`

	// Allowed reports the policy verdict.
	Allowed bool `json:"allowed"`

	// Rule names the policy rule that decided, empty when no rule
	// matched.
	Rule string `json:"rule,omitempty"`

	// Reason explains the verdict.
	Reason string `json:"reason,omitempty"`

	// Cached is true when the verdict was served from the digest cache
	// instead of a fresh policy evaluation.
	Cached bool `json:"cached"`
}

// validator evaluates upload policies against file content.
type validator struct {
	engine PolicyEvaluator
	store  cache.Cache
	logger observability.Logger
}

// NewValidator returns the file-validation executor. The store may be
// nil, in which case every upload is evaluated fresh.
func NewValidator(engine PolicyEvaluator, store cache.Cache, logger observability.Logger) pool.Executor {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &validator{engine: engine, store: store, logger: logger}
}

func (v *validator) Kind() pool.TaskKind {
	return pool.TaskFileValidation
}

func (v *validator) Execute(ctx context.Context, payload any) (any, error) {
	input, ok := payload.(ValidationInput)
	if !ok {
		return nil, fmt.Errorf("file-validation payload must be task.ValidationInput, got %T: %w",
			payload, util.ErrInvalidInput)
	}

	file := input.File
	digest := Digest(file.Content)
	key := cache.ValidationKey(digest, file.FieldName, file.Filename, file.ContentType)

	if cached, ok := v.lookup(ctx, key); ok {
		return cached, nil
	}

	decision := v.engine.Evaluate(ctx, file, input.Attrs)

	result := ValidationResult{
		Digest:       digest,
		Size:         file.Size,
		DeclaredType: file.ContentType,
		SniffedType:  sniffContentType(file.Content),
		Allowed:      decision.Allowed,
		Rule:         decision.Rule,
		Reason:       decision.Reason,
	}

	v.persist(ctx, key, result)

	return result, nil
}

// lookup fetches a previously stored verdict. Cache failures are
// logged and treated as misses.
func (v *validator) lookup(ctx context.Context, key string) (ValidationResult, bool) {
	if v.store == nil {
		return ValidationResult{}, false
	}

	raw, err := v.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			v.logger.Warn("verdict cache lookup failed",
				observability.String("key", key),
				observability.Error(err))
		}
		return ValidationResult{}, false
	}

	var result ValidationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		v.logger.Warn("discarding undecodable cached verdict",
			observability.String("key", key),
			observability.Error(err))
		return ValidationResult{}, false
	}

	result.Cached = true
	return result, true
}

// persist stores a verdict with the cache's default TTL. Failures are
// logged; the task still succeeds.
func (v *validator) persist(ctx context.Context, key string, result ValidationResult) {
	if v.store == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := v.store.Set(ctx, key, raw, 0); err != nil {
		v.logger.Warn("verdict cache store failed",
			observability.String("key", key),
			observability.Error(err))
	}
}
