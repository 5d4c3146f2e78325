package common

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeDomain lowercases a host and strips a leading "www." so domain
// comparisons in the Deduplication Service and ATS collision guard are
// stable regardless of how a source spelled the URL.
func NormalizeDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

// RegistrableDomain returns the last two labels of a hostname
// ("boards.greenhouse.io" -> "greenhouse.io"), used to compare a redirect
// target against the domain a careers URL was discovered on.
func RegistrableDomain(host string) string {
	host = NormalizeDomain(host)
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// ValidateHTTPURL parses rawURL and rejects anything that isn't a
// well-formed http(s) URL with a non-empty host.
func ValidateHTTPURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme %q (expected http or https)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("URL host is empty")
	}
	return parsed, nil
}

// IsLocalOrTestHost reports whether host looks like a local development
// address, so discovery sources don't accidentally admit test fixtures.
func IsLocalOrTestHost(host string) bool {
	host = strings.ToLower(host)
	switch {
	case strings.HasPrefix(host, "localhost"):
		return true
	case strings.HasPrefix(host, "127.0.0.1"):
		return true
	case strings.HasPrefix(host, "0.0.0.0"):
		return true
	case strings.HasPrefix(host, "[::1]"):
		return true
	default:
		return false
	}
}

// JoinURLPath safely joins a base URL with a path segment, avoiding
// duplicated slashes.
func JoinURLPath(base, seg string) string {
	base = strings.TrimRight(base, "/")
	seg = strings.TrimLeft(seg, "/")
	if seg == "" {
		return base
	}
	return base + "/" + seg
}
