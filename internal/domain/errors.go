package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchTimeout marks a provider request that exceeded its deadline.
	ErrFetchTimeout = errors.New("fetch timed out")

	// ErrCacheMiss is returned by cache stores when any of the cache keys is absent.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheCorrupt is returned when a stored cache entry cannot be decoded.
	// Callers treat it as a miss.
	ErrCacheCorrupt = errors.New("cache entry corrupt")

	// ErrEventNotFound is returned by lookups for an unknown event ID.
	ErrEventNotFound = errors.New("event not found")
)

// FetchError reports a failed request to one upstream provider.
type FetchError struct {
	Provider string
	Op       string // "request", "status", "decode"
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by the request deadline.
func (e *FetchError) Timeout() bool {
	return errors.Is(e.Err, ErrFetchTimeout)
}
