package gqlcache

import "net/http"

const (
	// HeaderCacheHit marks responses served from cache.
	HeaderCacheHit = "X-Cache-Hit"
	// HeaderCacheHash carries the content hash of the request body on
	// every response the hash stage processed.
	HeaderCacheHash = "X-Cache-Hash"
)

func markCacheHit(h http.Header) {
	h.Set(HeaderCacheHit, "true")
}
