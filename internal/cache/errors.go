package cache

import "errors"

var (
	// ErrCacheMiss means the key is absent or expired. Callers fall through
	// to the upstream lookup; this error never reaches a handler.
	ErrCacheMiss = errors.New("cache: miss")

	// ErrCacheUnavailable wraps backend connectivity failures.
	ErrCacheUnavailable = errors.New("cache: backend unavailable")

	// ErrInvalidValue wraps decode failures on a stored entry.
	ErrInvalidValue = errors.New("cache: undecodable value")
)
