package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key namespaces. Every entry is keyed by a content digest under a
// prefix naming what the value holds.
const (
	validationPrefix = "validation:"
	metadataPrefix   = "metadata:"
)

// ValidationKey builds the key for a cached policy verdict. A verdict
// depends on the upload attributes (field name, filename, declared
// content type) as well as the content, so the attribute set is folded
// into the key: the same bytes uploaded under a different filename get
// a separate entry.
func ValidationKey(digest string, attrs ...string) string {
	if len(attrs) == 0 {
		return validationPrefix + digest
	}
	return validationPrefix + digest + ":" + shortHash(attrs)
}

// MetadataKey builds the key for cached content metadata. Metadata is
// derived from the bytes alone, so the digest is the whole identity.
func MetadataKey(digest string) string {
	return metadataPrefix + digest
}

// shortHash folds a list of attributes into a fixed-width hex string.
// Attributes are joined with NUL so ("a", "bc") and ("ab", "c") hash
// differently.
func shortHash(attrs []string) string {
	sum := sha256.Sum256([]byte(strings.Join(attrs, "\x00")))
	return hex.EncodeToString(sum[:8])
}
