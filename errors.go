package gqlcache

import (
	"fmt"
	"net/http"
)

// Cache failures fall into two phases: failures while deriving or looking
// up a key are get-phase errors, failures while storing an upstream
// response are set-phase errors. Both are logged and swallowed; caching is
// best effort and must never fail the proxied request.
const (
	phaseGet = "get"
	phaseSet = "set"
)

// PhaseError wraps a cache failure with the phase and operation it
// happened in.
type PhaseError struct {
	Phase string
	Op    string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("cache %s phase: %s: %v", e.Phase, e.Op, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// reportGetError reports a lookup-side cache failure.
// The request then continues as if the cache had missed.
func (g *GqlCache) reportGetError(r *http.Request, op string, err error) {
	g.getLogger(r).Error().
		Err(&PhaseError{Phase: phaseGet, Op: op, Err: err}).
		Msg("Could not read from cache")
}

// reportSetError reports a write-side cache failure.
// The response is still relayed to the client.
func (g *GqlCache) reportSetError(r *http.Request, op string, err error) {
	g.getLogger(r).Error().
		Err(&PhaseError{Phase: phaseSet, Op: op, Err: err}).
		Msg("Could not write to cache")
}
