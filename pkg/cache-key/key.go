package cachekey

import (
	"crypto/sha256"
	"fmt"
	"net/http"
)

// Modifier is an optional hook for rewriting a directive-declared cache id
// into the final cache key, e.g. for namespacing keys per tenant or per
// session. It must be a pure function of its inputs.
type Modifier func(id string, r *http.Request) string

// Directive derives the cache key for the directive strategy.
// The declared id is used verbatim unless a modifier is supplied.
// The same derivation must be used for the lookup and the eventual write
// of one request, so callers should derive once and carry the result.
func Directive(id string, modifier Modifier, r *http.Request) string {
	if modifier != nil {
		return modifier(id, r)
	}
	return id
}

// BodyHash derives the cache key for the hash strategy:
// the hex-encoded SHA-256 digest of the serialized request body.
// Two byte-identical bodies always hash identically; any difference in
// the serialized form changes the key.
func BodyHash(body []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(body))
}
