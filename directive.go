package gqlcache

import (
	"net/http"

	cachedirective "github.com/gqlcache/gqlcache/pkg/cache-directive"
	cachekey "github.com/gqlcache/gqlcache/pkg/cache-key"
)

// DirectiveMiddleware is the first caching stage. It looks for the @cache
// directive on the query and serves the stored payload when the declared
// key is cached. On a miss it strips the directive from the forwarded
// query and marks the write as pending for the response interceptor.
//
// Failures while inspecting the request leave it untouched, directive
// included, and the next stage takes over.
func (g *GqlCache) DirectiveMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := g.getLogger(r)
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
		doc, err := cachedirective.Parse(state.req.Query)
		if err != nil {
			g.reportGetError(r, "parse query", err)
			next.ServeHTTP(w, r)
			return
		}
		annotation, found, err := cachedirective.Extract(doc, state.req.Variables)
		if err != nil {
			g.reportGetError(r, "extract directive", err)
			next.ServeHTTP(w, r)
			return
		}
		if !found {
			next.ServeHTTP(w, r)
			return
		}
		ttl := annotation.Timeout
		if ttl == 0 {
			ttl = g.defaultTTL
		}
		key := cachekey.Directive(annotation.ID, g.keyModifier, r)
		payload, ok, err := g.store.Get(r.Context(), key)
		if err != nil {
			g.reportGetError(r, "lookup", err)
			next.ServeHTTP(w, r)
			return
		}
		if ok {
			logger.Trace().Str("key", key).Msg("Cache hit and serving")
			g.serveCached(w, r, key, payload)
			return
		}
		cachedirective.Strip(doc)
		stripped, err := (&Request{
			Query:         cachedirective.Print(doc),
			OperationName: state.req.OperationName,
			Variables:     state.req.Variables,
		}).Bytes()
		if err != nil {
			g.reportGetError(r, "serialize query", err)
			next.ServeHTTP(w, r)
			return
		}
		state.pendingKey = key
		state.pendingTTL = ttl
		rewriteBody(r, stripped)
		logger.Trace().Str("key", key).Msg("Cache miss, directive stripped")
		next.ServeHTTP(w, r)
	})
}

// ensureState returns the per-request cache state, creating it and parsing
// the request body on first use. The returned request carries the state in
// its context and must be the one passed on.
func (g *GqlCache) ensureState(r *http.Request) (*cacheState, *http.Request, error) {
	if state := stateFromContext(r.Context()); state != nil {
		return state, r, nil
	}
	state := &cacheState{}
	r = r.WithContext(withState(r.Context(), state))
	req, err := readRequest(r)
	if err != nil {
		return state, r, err
	}
	if req != nil {
		body, err := req.Bytes()
		if err != nil {
			return state, r, err
		}
		state.req = req
		state.body = body
	}
	return state, r, nil
}
