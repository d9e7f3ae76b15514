package gqlcache

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// Fields of the hash-strategy record accumulated under the content hash.
const (
	fieldLastRequested = "lastRequested"
	fieldRequest       = "request"
	fieldResponse      = "response"
)

// envelope is the GraphQL-over-HTTP response body.
type envelope struct {
	Data   json.RawMessage   `json:"data,omitempty"`
	Errors []json.RawMessage `json:"errors,omitempty"`
}

// cacheable reports whether a decoded upstream response should be stored:
// no errors and a present, non-null data payload.
func (e envelope) cacheable() bool {
	if len(e.Errors) > 0 {
		return false
	}
	data := bytes.TrimSpace(e.Data)
	return len(data) > 0 && !bytes.Equal(data, []byte("null"))
}

// successPayload wraps a stored payload in the standard success envelope.
func successPayload(payload []byte) []byte {
	body, err := json.Marshal(envelope{Data: payload})
	if err != nil {
		// stored payloads are valid JSON, so this cannot happen
		return []byte(`{"data":null}`)
	}
	return body
}

// serveCached writes a stored payload to the client, marked as a hit.
func (g *GqlCache) serveCached(w http.ResponseWriter, r *http.Request, key string, payload []byte) {
	markCacheHit(w.Header())
	w.Header().Set("Content-Type", "application/json")
	w.Write(successPayload(payload))
	g.logRequest(r, key)
}

// interceptResponse inspects the response coming back through the proxy
// and stores its payload when a request-time stage marked the request for
// caching. The response is always relayed to the client unchanged, also
// when decoding or storing fails.
func (g *GqlCache) interceptResponse(res *http.Response) error {
	state := stateFromContext(res.Request.Context())
	if state == nil || (state.hash == "" && !state.directivePending()) {
		return nil
	}
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	res.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		g.reportSetError(res.Request, "read response", err)
		return nil
	}
	g.storeResult(res.Request, state, body)
	return nil
}

// storeResult decodes a response body and writes its payload to the
// store. When both strategies marked the request, the hash strategy wins
// and the directive key is left unwritten.
func (g *GqlCache) storeResult(r *http.Request, state *cacheState, body []byte) {
	logger := g.getLogger(r)
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		g.reportSetError(r, "decode response", err)
		return
	}
	if !env.cacheable() {
		logger.Trace().Msg("Response not cacheable, skipping cache write")
		return
	}
	ctx := r.Context()
	if state.hash != "" {
		if err := g.store.HSet(ctx, state.hash, fieldRequest, string(state.body), g.defaultTTL); err != nil {
			g.reportSetError(r, "write request field", err)
			return
		}
		if err := g.store.HSet(ctx, state.hash, fieldResponse, string(env.Data), g.defaultTTL); err != nil {
			g.reportSetError(r, "write response field", err)
			return
		}
		logger.Trace().Str("key", state.hash).Msg("Cache write")
		return
	}
	if err := g.store.Set(ctx, state.pendingKey, env.Data, state.pendingTTL); err != nil {
		g.reportSetError(r, "write entry", err)
		return
	}
	logger.Trace().Str("key", state.pendingKey).Dur("ttl", state.pendingTTL).Msg("Cache write")
}
