package gqlcache

import (
	"context"
	"time"
)

// cacheState is the per-request bookkeeping created by the request-time
// stages and consumed by the response interceptor. It travels as an
// explicit context value so the stages stay decoupled from each other.
// Exactly one goroutine handles a request, so no locking is needed.
type cacheState struct {
	// parsed request body, never mutated after parsing
	req *Request
	// canonical serialization of req, input to the hash strategy
	body []byte
	// hash-strategy cache key, set whenever the hash stage processed the request
	hash string
	// directive-strategy cache key and expiry, set on a directive miss
	pendingKey string
	pendingTTL time.Duration
}

func (s *cacheState) directivePending() bool {
	return s.pendingKey != ""
}

type stateKey struct{}

func withState(ctx context.Context, state *cacheState) context.Context {
	return context.WithValue(ctx, stateKey{}, state)
}

// stateFromContext returns the state attached to the context, or nil if no
// caching stage has run for this request.
func stateFromContext(ctx context.Context) *cacheState {
	state, _ := ctx.Value(stateKey{}).(*cacheState)
	return state
}
