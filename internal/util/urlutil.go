package util

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL validates a user-supplied media URL. A missing scheme is
// treated as https, so "youtu.be/abc" works the way it does when pasted.
// Only http and https are accepted; the extractor decides which sites it
// can actually handle.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}
	u, err := url.Parse(raw)
	if err == nil && (u.Scheme == "" || u.Host == "") && !strings.Contains(raw, "://") {
		if u2, e2 := url.Parse("https://" + raw); e2 == nil {
			u = u2
		}
	}
	if err != nil || u == nil || u.Host == "" {
		return "", fmt.Errorf("invalid URL %q", raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported URL scheme %q in %q (use http or https)", u.Scheme, raw)
	}
	if !strings.Contains(u.Host, ".") && !strings.HasPrefix(strings.ToLower(u.Host), "localhost") {
		return "", fmt.Errorf("invalid URL %q: host %q has no domain", raw, u.Host)
	}
	return u.String(), nil
}

// Host returns the lower-cased host of a URL without a leading "www.",
// or "" when it cannot be parsed.
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
