package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationKey(t *testing.T) {
	digest := "0a1b2c3d"

	t.Run("without attributes", func(t *testing.T) {
		assert.Equal(t, "validation:0a1b2c3d", ValidationKey(digest))
	})

	t.Run("stable for identical attributes", func(t *testing.T) {
		a := ValidationKey(digest, "avatar", "photo.png", "image/png")
		b := ValidationKey(digest, "avatar", "photo.png", "image/png")
		assert.Equal(t, a, b)
	})

	t.Run("attribute change produces a new key", func(t *testing.T) {
		a := ValidationKey(digest, "avatar", "photo.png", "image/png")
		b := ValidationKey(digest, "avatar", "photo.gif", "image/gif")
		assert.NotEqual(t, a, b)
	})

	t.Run("digest change produces a new key", func(t *testing.T) {
		a := ValidationKey("aaaa", "avatar")
		b := ValidationKey("bbbb", "avatar")
		assert.NotEqual(t, a, b)
	})

	t.Run("attribute boundaries are preserved", func(t *testing.T) {
		a := ValidationKey(digest, "a", "bc")
		b := ValidationKey(digest, "ab", "c")
		assert.NotEqual(t, a, b)
	})

	t.Run("namespace prefix", func(t *testing.T) {
		key := ValidationKey(digest, "avatar")
		assert.True(t, strings.HasPrefix(key, "validation:"+digest+":"))
	})
}

func TestMetadataKey(t *testing.T) {
	assert.Equal(t, "metadata:0a1b2c3d", MetadataKey("0a1b2c3d"))
	assert.NotEqual(t, MetadataKey("aaaa"), MetadataKey("bbbb"))
}

func TestShortHash_FixedWidth(t *testing.T) {
	for _, attrs := range [][]string{
		{""},
		{"a"},
		{"a", "b", "c"},
		{strings.Repeat("x", 4096)},
	} {
		assert.Len(t, shortHash(attrs), 16)
	}
}
