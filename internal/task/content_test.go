package task

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigest(t *testing.T) {
	t.Parallel()

	d1 := Digest([]byte("hello"))
	d2 := Digest([]byte("hello"))
	d3 := Digest([]byte("hello!"))

	assert.Len(t, d1, 64)
	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
	assert.NotEqual(t, d1, Digest(nil))
}

func TestSniffContentType(t *testing.T) {
	t.Parallel()

	pngHeader := []byte("\x89PNG\r\n\x1a\n")

	assert.Equal(t, "image/png", sniffContentType(pngHeader))
	assert.True(t, strings.HasPrefix(sniffContentType([]byte("plain words")), "text/plain"))
}

func TestIsTextual(t *testing.T) {
	t.Parallel()

	assert.True(t, isTextual("text/plain; charset=utf-8"))
	assert.True(t, isTextual("text/html"))
	assert.False(t, isTextual("image/png"))
	assert.False(t, isTextual("application/octet-stream"))
}

func TestTextStats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		lines   int
		words   int
	}{
		{name: "empty", content: "", lines: 0, words: 0},
		{name: "single line no newline", content: "one two three", lines: 1, words: 3},
		{name: "trailing newline", content: "one two\n", lines: 1, words: 2},
		{name: "multiline", content: "a b\nc\nd e f\n", lines: 3, words: 6},
		{name: "unterminated last line", content: "a\nb", lines: 2, words: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stats := textStats([]byte(tt.content))
			assert.Equal(t, tt.lines, stats.Lines, "lines")
			assert.Equal(t, tt.words, stats.Words, "words")
		})
	}
}
