// Package storage provides validation for persisted entities.
package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// Allowed HTTP methods for a monitor probe.
var allowedMethods = map[string]bool{
	"GET":  true,
	"POST": true,
	"HEAD": true,
}

// ValidateURL checks that raw parses as an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}
	return nil
}

// ValidateMethod checks that method is one of GET, POST, HEAD.
func ValidateMethod(method string) error {
	if !allowedMethods[method] {
		return fmt.Errorf("invalid method %q: must be GET, POST or HEAD", method)
	}
	return nil
}

// ValidateMonitor checks the invariants every persisted monitor must hold:
// non-empty name, valid URL, allowed method, and an interval inside the
// configured bounds.
func ValidateMonitor(m *Monitor, minInterval, maxInterval int) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("monitor name must not be empty")
	}
	if err := ValidateURL(m.URL); err != nil {
		return err
	}
	if err := ValidateMethod(m.Method); err != nil {
		return err
	}
	if m.IntervalMinutes < minInterval || m.IntervalMinutes > maxInterval {
		return fmt.Errorf("interval %d out of range [%d, %d]", m.IntervalMinutes, minInterval, maxInterval)
	}
	return nil
}
