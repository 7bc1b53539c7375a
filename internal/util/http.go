package util

import (
	"net/http"
	"net/url"
	"strings"
)

// ParseQueryString parses a raw query string into a flat map.
// Repeated keys keep the last value. Malformed percent escapes keep the
// raw token instead of failing the whole request.
func ParseQueryString(raw string) map[string]string {
	query := make(map[string]string)
	if raw == "" {
		return query
	}

	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")
		if key == "" {
			continue
		}

		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}

		query[key] = value
	}

	return query
}

// CanonicalHeader converts a raw header map into an http.Header with
// canonical MIME key casing.
func CanonicalHeader(raw map[string][]string) http.Header {
	header := make(http.Header, len(raw))
	for key, values := range raw {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	return header
}

// CloneHeader returns a deep copy of the header map.
func CloneHeader(header http.Header) http.Header {
	if header == nil {
		return http.Header{}
	}
	return header.Clone()
}
