package gqlcache

import (
	"net/http"

	tee "github.com/gqlcache/gqlcache/pkg/response-writer-tee"
)

// SaveMiddleware captures the response of the wrapped handler and runs the
// same write-back step the proxy runs for origin responses. Use it to
// compose the caching stages around an in-process handler instead of the
// forwarding proxy:
//
//	gc.DirectiveMiddleware(gc.HashMiddleware(gc.SaveMiddleware(app)))
func (g *GqlCache) SaveMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := stateFromContext(r.Context())
		if state == nil || (state.hash == "" && !state.directivePending()) {
			next.ServeHTTP(w, r)
			return
		}
		saver := tee.New(w)
		next.ServeHTTP(saver, r)
		g.storeResult(r, state, saver.Body())
	})
}
