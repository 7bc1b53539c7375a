package util

import (
	"fmt"
	"strings"
	"time"
)

// ValidatePort validates a port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", port)
	}
	return nil
}

// ValidateNonNegativePort validates a port number (0 is allowed for auto-assign).
func ValidateNonNegativePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got: %d", port)
	}
	return nil
}

// ParseDuration parses a duration string with support for common formats.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	// Try standard Go duration format first
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	// Try parsing as seconds if it's just a number
	s = strings.TrimSpace(s)
	if isNumeric(s) {
		return time.ParseDuration(s + "s")
	}

	return 0, fmt.Errorf("invalid duration format: %s", s)
}

// isNumeric checks if a string contains only digits.
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

// ValidateDuration validates a duration is positive.
func ValidateDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("duration cannot be negative: %v", d)
	}
	return nil
}

// ValidatePositiveDuration validates a duration is strictly positive.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive: %v", d)
	}
	return nil
}

// ValidateHTTPMethod validates an HTTP method.
func ValidateHTTPMethod(method string) error {
	validMethods := map[string]bool{
		"GET":     true,
		"POST":    true,
		"PUT":     true,
		"DELETE":  true,
		"PATCH":   true,
		"HEAD":    true,
		"OPTIONS": true,
		"TRACE":   true,
		"CONNECT": true,
	}

	method = strings.ToUpper(method)
	if !validMethods[method] {
		return fmt.Errorf("invalid HTTP method: %s", method)
	}

	return nil
}

// ValidateRoutePattern validates a route pattern: it must start with a
// slash, parameter segments need a name, and a "*" wildcard may only
// appear as the final segment.
func ValidateRoutePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("route pattern cannot be empty")
	}
	if !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("route pattern must start with /, got: %s", pattern)
	}

	segments := strings.Split(strings.TrimPrefix(pattern, "/"), "/")
	for i, seg := range segments {
		if seg == ":" {
			return fmt.Errorf("route pattern %s has a parameter segment without a name", pattern)
		}
		if seg == "*" && i != len(segments)-1 {
			return fmt.Errorf("route pattern %s has a wildcard before the final segment", pattern)
		}
	}

	return nil
}

// ValidateRatio validates a ratio value (0.0-1.0).
func ValidateRatio(value float64) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("ratio must be between 0.0 and 1.0, got: %f", value)
	}
	return nil
}

// ValidateNonEmpty validates that a string is not empty.
func ValidateNonEmpty(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

// ValidateListenAddress validates a host:port listen address.
func ValidateListenAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}

	idx := strings.LastIndex(addr, ":")
	if idx < 0 {
		return fmt.Errorf("listen address must be host:port, got: %s", addr)
	}

	port := addr[idx+1:]
	if !isNumeric(port) {
		return fmt.Errorf("listen address has invalid port: %s", addr)
	}

	return nil
}
