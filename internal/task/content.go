package task

import (
	"bytes"
	"encoding/hex"
	"net/http"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Digest returns the blake2b-256 digest of content, hex encoded.
// It is the identity under which validation verdicts and metadata are
// cached.
func Digest(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// sniffContentType detects the content type from the leading bytes,
// independent of what the client declared.
func sniffContentType(content []byte) string {
	return http.DetectContentType(content)
}

// isTextual reports whether a sniffed content type describes text.
func isTextual(sniffed string) bool {
	return strings.HasPrefix(sniffed, "text/")
}

// textStats counts lines and whitespace-separated words.
func textStats(content []byte) TextStats {
	lines := bytes.Count(content, []byte("\n"))
	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		lines++
	}
	return TextStats{
		Lines: lines,
		Words: len(strings.Fields(string(content))),
	}
}
