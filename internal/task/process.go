package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wyrexdev/velox/internal/cache"
	"github.com/wyrexdev/velox/internal/multipart"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/pool"
	"github.com/wyrexdev/velox/internal/util"
)

// ProcessInput is the payload for a file-processing task.
type ProcessInput struct {
	File multipart.FilePart
}

// TextStats summarizes textual content.
type TextStats struct {
	Lines int `json:"lines"`
	Words int `json:"words"`
}

// Metadata is the normalized description of one file's content.
type Metadata struct {
	// Digest is the blake2b-256 digest of the content, hex encoded.
	Digest string `json:"digest"`

	// Size is the content length in bytes.
	Size int64 `json:"size"`

	// DeclaredType is the content type the client sent with the part.
	DeclaredType string `json:"declared_type"`

	// SniffedType is the content type detected from the bytes.
	SniffedType string `json:"sniffed_type"`

	// Text holds line and word counts for textual content, nil
	// otherwise.
	Text *TextStats `json:"text,omitempty"`

	// Cached is true when the metadata came from the digest cache.
	Cached bool `json:"cached"`
}

// processor derives content metadata, cached by digest. Metadata
// depends on the bytes alone, so cache entries are shared across
// filenames.
type processor struct {
	store  cache.Cache
	logger observability.Logger
}

// NewProcessor returns the file-processing executor. The store may be
// nil to disable caching.
func NewProcessor(store cache.Cache, logger observability.Logger) pool.Executor {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &processor{store: store, logger: logger}
}

func (p *processor) Kind() pool.TaskKind {
	return pool.TaskFileProcessing
}

func (p *processor) Execute(ctx context.Context, payload any) (any, error) {
	input, ok := payload.(ProcessInput)
	if !ok {
		return nil, fmt.Errorf("file-processing payload must be task.ProcessInput, got %T: %w",
			payload, util.ErrInvalidInput)
	}

	file := input.File
	digest := Digest(file.Content)
	key := cache.MetadataKey(digest)

	if p.store != nil {
		if raw, err := p.store.Get(ctx, key); err == nil {
			var meta Metadata
			if err := json.Unmarshal(raw, &meta); err == nil {
				meta.Cached = true
				// The declared type travels with the request, not the
				// content.
				meta.DeclaredType = file.ContentType
				return meta, nil
			}
			p.logger.Warn("discarding undecodable cached metadata",
				observability.String("key", key),
				observability.Error(err))
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			p.logger.Warn("metadata cache lookup failed",
				observability.String("key", key),
				observability.Error(err))
		}
	}

	meta := Metadata{
		Digest:       digest,
		Size:         file.Size,
		DeclaredType: file.ContentType,
		SniffedType:  sniffContentType(file.Content),
	}
	if isTextual(meta.SniffedType) {
		stats := textStats(file.Content)
		meta.Text = &stats
	}

	if p.store != nil {
		if raw, err := json.Marshal(meta); err == nil {
			if err := p.store.Set(ctx, key, raw, 0); err != nil {
				p.logger.Warn("metadata cache store failed",
					observability.String("key", key),
					observability.Error(err))
			}
		}
	}

	return meta, nil
}
