package gqlcache

import (
	"net/http"
	"strconv"
	"time"

	cachekey "github.com/gqlcache/gqlcache/pkg/cache-key"
)

// HashMiddleware is the second caching stage. It keys the request by the
// content hash of its canonical serialization, touches the lastRequested
// marker of the record on every processed request and serves the stored
// response when the record has one.
//
// The configured bypass header disables this stage for a single request.
func (g *GqlCache) HashMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := g.getLogger(r)
		if g.bypassHeader != "" && r.Header.Get(g.bypassHeader) != "" {
			logger.Trace().Msg("Hash caching bypassed by request header")
			next.ServeHTTP(w, r)
			return
		}
		state, r, err := g.ensureState(r)
		if err != nil {
			g.reportGetError(r, "read request", err)
			next.ServeHTTP(w, r)
			return
		}
		if state.req == nil {
			next.ServeHTTP(w, r)
			return
		}
		state.hash = cachekey.BodyHash(state.body)
		w.Header().Set(HeaderCacheHash, state.hash)
		now := strconv.FormatInt(time.Now().Unix(), 10)
		if err := g.store.HSet(r.Context(), state.hash, fieldLastRequested, now, g.defaultTTL); err != nil {
			g.reportGetError(r, "touch record", err)
		}
		record, ok, err := g.store.HGet(r.Context(), state.hash)
		if err != nil {
			g.reportGetError(r, "lookup record", err)
			next.ServeHTTP(w, r)
			return
		}
		if ok {
			if response, ok := record[fieldResponse]; ok {
				logger.Trace().Str("key", state.hash).Msg("Cache hit and serving")
				g.serveCached(w, r, state.hash, []byte(response))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
