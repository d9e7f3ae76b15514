package cache

import (
	"context"
	"time"
)

// Store is an interface for a cache storage backend.
// It stores scalar entries ([]byte values, which represent GraphQL result
// payloads) as well as hash entries (field-name to string-value records
// accumulating several facts about one request under one key).
// Both kinds of entries carry an expiry set at write time.
//
// Implementations must be thread-safe!
type Store interface {
	// Get returns the stored value for the given key, if it exists.
	// It also returns a boolean indicating whether retrieval was successful.
	// A missing or expired entry is not an error: the boolean is false
	// and the error is nil.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores the given value under the given key.
	// A ttl of zero means the entry gets no explicit expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// HGet returns the full field map stored under the given hash key.
	// A missing or expired record is not an error: the boolean is false
	// and the error is nil.
	HGet(ctx context.Context, key string) (map[string]string, bool, error)
	// HSet stores a single field of the hash record under the given key,
	// refreshing the expiry of the whole record to ttl.
	// A ttl of zero means the record keeps no explicit expiry.
	HSet(ctx context.Context, key, field, value string, ttl time.Duration) error
	// Delete removes the scalar entry and hash record for the given key.
	// It returns whether anything was removed.
	// It is a utility method that is not used by the caching stages.
	Delete(ctx context.Context, key string) (bool, error)
}

// expiresAt converts a ttl to an absolute expiry time.
// The zero time means no expiry.
func expiresAt(ttl time.Duration) time.Time {
	if ttl == 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

// expired reports whether an absolute expiry time has passed.
// The zero time never expires.
func expired(expires time.Time) bool {
	return !expires.IsZero() && time.Now().After(expires)
}
