package gqlcache

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// Request is the parsed GraphQL request body.
// The field order here fixes the order of the canonical serialization.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Bytes returns the canonical serialization of the request: fields in
// declaration order, variable keys sorted. Semantically identical requests
// serialize to identical bytes, which makes this the input for the hash
// strategy.
func (req *Request) Bytes() ([]byte, error) {
	return json.Marshal(req)
}

// readRequest decodes the request body into a Request, leaving the body
// rewound to the beginning so the request can still be forwarded.
// A missing body, a non-GraphQL body and an empty query all return nil:
// there is nothing for the cache to do with such requests.
func readRequest(r *http.Request) (*Request, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, nil
	}
	if req.Query == "" {
		return nil, nil
	}
	return &req, nil
}

// rewriteBody replaces the outgoing request body and fixes the content
// length so the proxy forwards the rewritten body correctly.
func rewriteBody(r *http.Request, body []byte) {
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
}
