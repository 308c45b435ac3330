package util

import (
	"net/url"
	"strings"
)

// IsRedirectSafe reports whether a post-login return path may be followed.
// Accepted forms are an empty value (caller falls back to the portal home),
// a same-site relative path, or an absolute http(s) URL on the baseURL host.
// Everything else is an open-redirect attempt and gets dropped.
func IsRedirectSafe(redirectURL, baseURL string) bool {
	switch {
	case redirectURL == "":
		return true
	case strings.ContainsAny(redirectURL, "\r\n"):
		// CRLF would let the value break out of the Location header.
		return false
	case strings.HasPrefix(redirectURL, "/"):
		return isSafeRelativePath(redirectURL)
	default:
		return isSameHost(redirectURL, baseURL)
	}
}

// isSafeRelativePath rejects the path look-alikes browsers treat as
// absolute: protocol-relative "//host" and backslash variants "/\host".
func isSafeRelativePath(p string) bool {
	if strings.HasPrefix(p, "//") {
		return false
	}
	return !strings.Contains(p, "\\")
}

func isSameHost(redirectURL, baseURL string) bool {
	target, err := url.Parse(redirectURL)
	if err != nil {
		return false
	}
	if target.Scheme != "" && target.Scheme != "http" && target.Scheme != "https" {
		return false
	}
	if target.Host == "" {
		return true
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	return target.Host == base.Host
}
